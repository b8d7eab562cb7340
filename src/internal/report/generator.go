package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/VectorBits/SmartScan/src/internal/report/renderers"
)

// ScoreUnavailable 无法得到分数时的占位值
const ScoreUnavailable = "N/A"

// AuditReport 单次扫描的结果，创建后不再修改
type AuditReport struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Score   string `json:"score"`
	Report  string `json:"report"`
}

type Generator interface {
	Generate(report *AuditReport) ([]byte, error)
	Extension() string
}

type MarkdownGenerator struct {
	renderer *renderers.MarkdownRenderer
}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{renderer: renderers.NewMarkdownRenderer()}
}

func (g *MarkdownGenerator) Generate(report *AuditReport) ([]byte, error) {
	return []byte(g.renderer.RenderAuditDocument(report.Chain, report.Address, report.Report, report.Score)), nil
}

func (g *MarkdownGenerator) Extension() string { return ".md" }

type JSONGenerator struct{}

func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

func (g *JSONGenerator) Generate(report *AuditReport) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *JSONGenerator) Extension() string { return ".json" }
