package static_analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/VectorBits/SmartScan/src/internal/logger"
	"github.com/VectorBits/SmartScan/src/internal/static_analyzer/backend"
)

type BackendType string

const (
	BackendAuto     BackendType = "auto" // slither + 字节码扫描
	BackendSlither  BackendType = "slither"
	BackendBytecode BackendType = "bytecode"
	BackendNoOp     BackendType = "noop"
)

type AnalyzerConfig struct {
	Backend     BackendType
	SlitherPath string
	Enabled     bool
}

// ParseBackend 解析配置中的后端名，空串等同 auto
func ParseBackend(s string) (BackendType, error) {
	b := BackendType(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendSlither, BackendBytecode, BackendNoOp:
		return b, nil
	}
	return "", fmt.Errorf("unsupported backend: %s (supported: auto, slither, bytecode, noop)", s)
}

// NewAnalyzer creates an analyzer instance
func NewAnalyzer(cfg AnalyzerConfig) (Analyzer, error) {
	if !cfg.Enabled {
		return NewNoOpAnalyzer(), nil
	}

	switch cfg.Backend {
	case BackendAuto, "":
		return &compositeAnalyzer{analyzers: []Analyzer{
			&slitherAdapter{backend: backend.NewSlitherBackend(cfg.SlitherPath)},
			&bytecodeAdapter{},
		}}, nil
	case BackendSlither:
		return &slitherAdapter{backend: backend.NewSlitherBackend(cfg.SlitherPath)}, nil
	case BackendBytecode:
		return &bytecodeAdapter{}, nil
	case BackendNoOp:
		return NewNoOpAnalyzer(), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: auto, slither, bytecode, noop)", cfg.Backend)
	}
}

func DefaultConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Backend:     BackendAuto,
		SlitherPath: "slither",
		Enabled:     true,
	}
}

func parseImpactOrInfo(s string) Impact {
	i, err := ParseImpact(s)
	if err != nil {
		logger.Debug("unknown impact %q, treating as Informational", s)
		return ImpactInformational
	}
	return i
}

type slitherAdapter struct {
	backend *backend.SlitherBackend
}

func (a *slitherAdapter) AnalyzeContract(ctx context.Context, contractFile string) (*AnalysisResult, error) {
	detectors, err := a.backend.Run(ctx, contractFile)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{Findings: make([]Finding, 0, len(detectors))}
	for _, d := range detectors {
		result.Findings = append(result.Findings, Finding{
			Tool:        "slither",
			Check:       d.Check,
			Impact:      parseImpactOrInfo(d.Impact),
			Confidence:  d.Confidence,
			Description: strings.TrimSpace(d.Description),
		})
	}
	return result, nil
}

func (a *slitherAdapter) Name() string { return "slither" }

func (a *slitherAdapter) Close() error { return nil }

// bytecodeAdapter 只处理 .bin 文件，其余文件返回空结果
type bytecodeAdapter struct{}

func (a *bytecodeAdapter) AnalyzeContract(ctx context.Context, contractFile string) (*AnalysisResult, error) {
	if filepath.Ext(contractFile) != ".bin" {
		return &AnalysisResult{}, nil
	}

	raw, err := os.ReadFile(contractFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read bytecode file: %w", err)
	}
	code := common.FromHex(strings.TrimSpace(string(raw)))

	hits := backend.ScanBytecode(code)
	result := &AnalysisResult{Findings: make([]Finding, 0, len(hits))}
	for _, h := range hits {
		result.Findings = append(result.Findings, Finding{
			Tool:        "bytecode",
			Check:       h.Check,
			Impact:      parseImpactOrInfo(h.Impact),
			Confidence:  "Medium",
			Description: h.Description,
		})
	}
	return result, nil
}

func (a *bytecodeAdapter) Name() string { return "bytecode" }

func (a *bytecodeAdapter) Close() error { return nil }

// compositeAnalyzer 依次运行所有后端
// 部分失败时仍返回成功后端的结果，同时返回合并后的错误
type compositeAnalyzer struct {
	analyzers []Analyzer
}

func (c *compositeAnalyzer) AnalyzeContract(ctx context.Context, contractFile string) (*AnalysisResult, error) {
	merged := &AnalysisResult{}
	var errs []error
	for _, a := range c.analyzers {
		res, err := a.AnalyzeContract(ctx, contractFile)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		merged.Findings = append(merged.Findings, res.Findings...)
	}
	return merged, errors.Join(errs...)
}

func (c *compositeAnalyzer) Name() string {
	names := make([]string, 0, len(c.analyzers))
	for _, a := range c.analyzers {
		names = append(names, a.Name())
	}
	return strings.Join(names, "+")
}

func (c *compositeAnalyzer) Close() error {
	var errs []error
	for _, a := range c.analyzers {
		errs = append(errs, a.Close())
	}
	return errors.Join(errs...)
}
