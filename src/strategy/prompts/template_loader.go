package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed audit/*.tmpl
var embedded embed.FS

const DefaultStrategy = "default"

// LoadTemplate 按策略名加载审计模板
// 依次查找 strategy/prompts/audit/、src/strategy/prompts/audit/，最后使用内置模板
func LoadTemplate(strategy string) (string, error) {
	if strategy == "" {
		strategy = DefaultStrategy
	}
	if strings.ContainsAny(strategy, `/\`) || strings.Contains(strategy, "..") {
		return "", fmt.Errorf("invalid strategy name: %s", strategy)
	}
	name := strategy + ".tmpl"

	for _, dir := range []string{
		filepath.Join("strategy", "prompts", "audit"),
		filepath.Join("src", "strategy", "prompts", "audit"),
	} {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(content), nil
		}
	}

	content, err := embedded.ReadFile("audit/" + name)
	if err != nil {
		return "", fmt.Errorf("template %q not found (available: %s)", strategy, strings.Join(Strategies(), ", "))
	}
	return string(content), nil
}

// Strategies 内置模板名
func Strategies() []string {
	entries, err := fs.Glob(embedded, "audit/*.tmpl")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(filepath.Base(e), ".tmpl"))
	}
	sort.Strings(out)
	return out
}

// ExtractTemplates 把内置模板释放到 dir，已存在的文件不覆盖
func ExtractTemplates(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	var written []string
	err := fs.WalkDir(embedded, "audit", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		target := filepath.Join(dir, filepath.Base(path))
		if _, err := os.Stat(target); err == nil {
			return nil
		}
		data, err := embedded.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return err
		}
		written = append(written, target)
		return nil
	})
	return written, err
}
