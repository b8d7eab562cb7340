package renderers

import (
	"fmt"
	"strings"
)

type MarkdownRenderer struct{}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// RenderAuditDocument 报告 Markdown：标题、正文、最终得分
func (r *MarkdownRenderer) RenderAuditDocument(chain, address, body, score string) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("# Audit Report: `%s:%s`\n\n", chain, address))
	result.WriteString(body + "\n")
	result.WriteString(fmt.Sprintf("\n**Final Score: %s/100**\n", score))
	return result.String()
}

// RenderFindings 每条发现一行，格式 "<描述>: <等级> severity"
func (r *MarkdownRenderer) RenderFindings(findings []Finding, empty string) string {
	if len(findings) == 0 {
		return empty
	}
	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		lines = append(lines, fmt.Sprintf("%s: %s severity", strings.TrimSpace(f.Description), f.Impact))
	}
	return strings.Join(lines, "\n")
}

type Finding struct {
	Description string
	Impact      string
}
