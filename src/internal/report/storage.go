package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/VectorBits/SmartScan/src/internal"
)

// FileStorage 合约源码与审计报告的落盘
// 源码文件每次覆盖；报告文件默认不覆盖已有结果
type FileStorage struct {
	ContractsDir string
	ReportDir    string
	generators   []Generator
}

func NewFileStorage(contractsDir, reportDir string) *FileStorage {
	if contractsDir == "" {
		contractsDir = "contracts"
	}
	if reportDir == "" {
		reportDir = "reports"
	}
	return &FileStorage{
		ContractsDir: contractsDir,
		ReportDir:    reportDir,
		generators:   []Generator{NewMarkdownGenerator(), NewJSONGenerator()},
	}
}

func sanitizeFilenameComponent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	out := strings.Trim(b.String(), "._-")
	if out == "" {
		return "unknown"
	}
	return out
}

// BaseName {chain}_{address}
func BaseName(chain, address string) string {
	return sanitizeFilenameComponent(chain) + "_" + sanitizeFilenameComponent(address)
}

// ArchiveSource 写入 contracts/{chain}_{address}.sol
func (s *FileStorage) ArchiveSource(chain, address string, src *internal.ContractSource) (string, error) {
	path := filepath.Join(s.ContractsDir, BaseName(chain, address)+".sol")
	if err := writeFileAtomic(path, []byte(RenderSourceArtifact(src))); err != nil {
		return "", fmt.Errorf("failed to save contract source: %w", err)
	}
	return path, nil
}

// ArchiveBytecode 写入 contracts/{chain}_{address}.bin，内容为原始十六进制字节码
func (s *FileStorage) ArchiveBytecode(chain, address, bytecode string) (string, error) {
	path := filepath.Join(s.ContractsDir, BaseName(chain, address)+".bin")
	if err := writeFileAtomic(path, []byte(bytecode)); err != nil {
		return "", fmt.Errorf("failed to save contract bytecode: %w", err)
	}
	return path, nil
}

// ReportPaths 依次为 .md 和 .json
func (s *FileStorage) ReportPaths(chain, address string) []string {
	base := filepath.Join(s.ReportDir, BaseName(chain, address))
	paths := make([]string, 0, len(s.generators))
	for _, g := range s.generators {
		paths = append(paths, base+g.Extension())
	}
	return paths
}

// ArchiveReport 写入 Markdown 和 JSON 报告
// 任一文件已存在且 overwrite 为 false 时返回 *internal.ReportExistsError，不写任何文件
// 两个文件各自原子替换，但两者之间不是事务：写完 .md 后失败会只留下 .md
func (s *FileStorage) ArchiveReport(report *AuditReport, overwrite bool) ([]string, error) {
	paths := s.ReportPaths(report.Chain, report.Address)

	if !overwrite {
		for _, p := range paths {
			_, err := os.Stat(p)
			if err == nil {
				return nil, &internal.ReportExistsError{Path: p}
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to check existing report: %w", err)
			}
		}
	}

	contents := make([][]byte, len(s.generators))
	for i, g := range s.generators {
		data, err := g.Generate(report)
		if err != nil {
			return nil, err
		}
		contents[i] = data
	}

	for i, p := range paths {
		if err := writeFileAtomic(p, contents[i]); err != nil {
			return nil, fmt.Errorf("failed to save report: %w", err)
		}
	}
	return paths, nil
}

// RenderSourceArtifact 拼接代理合约与实现合约源码；都没有时写入字节码注释
func RenderSourceArtifact(src *internal.ContractSource) string {
	var b strings.Builder
	if src == nil {
		src = &internal.ContractSource{}
	}
	if src.SourceCode != nil && *src.SourceCode != "" {
		b.WriteString("// Proxy Contract Source Code\n")
		b.WriteString(*src.SourceCode + "\n\n")
	}
	if src.ImplementationCode != nil && *src.ImplementationCode != "" {
		b.WriteString("// Implementation Contract Source Code\n")
		b.WriteString(*src.ImplementationCode + "\n")
	}
	if b.Len() == 0 {
		b.WriteString("// No source code available\n")
		if src.Bytecode != nil && *src.Bytecode != "" {
			b.WriteString("// Bytecode: " + *src.Bytecode + "\n")
		}
	}
	return b.String()
}

func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmpFile.Write(content); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}
