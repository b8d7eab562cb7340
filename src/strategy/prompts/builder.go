package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// PromptVariables 审计模板可用的变量
type PromptVariables struct {
	ContractAddress string
	Chain           string
	ContractName    string
	CompilerVersion string

	SourceCode         string // 外层（代理）合约源码
	ImplementationCode string // 为空时模板输出 N/A
}

var (
	templateCacheMu sync.Mutex
	templateCache   = map[string]*template.Template{}
)

func templateKey(templateContent string) string {
	sum := sha256.Sum256([]byte(templateContent))
	return hex.EncodeToString(sum[:])
}

func parseCached(templateContent string) (*template.Template, error) {
	key := templateKey(templateContent)
	templateCacheMu.Lock()
	defer templateCacheMu.Unlock()

	if tmpl := templateCache[key]; tmpl != nil {
		return tmpl, nil
	}
	parsed, err := template.New("prompt").Option("missingkey=error").Parse(templateContent)
	if err != nil {
		return nil, err
	}
	if len(templateCache) >= 64 {
		templateCache = map[string]*template.Template{}
	}
	templateCache[key] = parsed
	return parsed, nil
}

// BuildPrompt 使用模板和变量构建 Prompt
func BuildPrompt(templateContent string, variables PromptVariables) (string, error) {
	tmpl, err := parseCached(templateContent)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var result strings.Builder
	if err := tmpl.Execute(&result, variables); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return result.String(), nil
}
