package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/VectorBits/SmartScan/src/internal"
	"github.com/VectorBits/SmartScan/src/internal/ai/parser"
	"github.com/VectorBits/SmartScan/src/internal/logger"
	"github.com/VectorBits/SmartScan/src/internal/metrics"
	"github.com/VectorBits/SmartScan/src/internal/report"
	"github.com/VectorBits/SmartScan/src/internal/report/renderers"
	"github.com/VectorBits/SmartScan/src/internal/static_analyzer"
	"github.com/VectorBits/SmartScan/src/strategy/prompts"
)

const (
	noFindingsMessage    = "No high/medium severity issues detected."
	bytecodeOnlyWarning  = "⚠️ Source code not available. Performed limited bytecode analysis."
	verifyRecommendation = "Recommendation: Contact the contract owner to verify the source code on the blockchain explorer."
)

// LLM 审计模型，*ai.Manager 实现该接口
type LLM interface {
	AnalyzeContract(ctx context.Context, prompt string) (*parser.AuditResult, error)
}

// AuditEngine 静态分析 + LLM 审计，生成报告正文和分数
// 任何分析失败都写进正文，不会中断扫描
type AuditEngine struct {
	analyzer  static_analyzer.Analyzer
	llm       LLM
	llmErr    error // llm 为 nil 时的原因
	template  string
	threshold static_analyzer.Impact
	renderer  *renderers.MarkdownRenderer
	metrics   *metrics.ScanMetrics
}

type AuditEngineConfig struct {
	Analyzer  static_analyzer.Analyzer
	LLM       LLM
	LLMErr    error
	Template  string
	Threshold static_analyzer.Impact
	Metrics   *metrics.ScanMetrics
}

func NewAuditEngine(cfg AuditEngineConfig) *AuditEngine {
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = static_analyzer.NewNoOpAnalyzer()
	}
	llmErr := cfg.LLMErr
	if cfg.LLM == nil && llmErr == nil {
		llmErr = fmt.Errorf("no AI client configured")
	}
	return &AuditEngine{
		analyzer:  analyzer,
		llm:       cfg.LLM,
		llmErr:    llmErr,
		template:  cfg.Template,
		threshold: cfg.Threshold,
		renderer:  renderers.NewMarkdownRenderer(),
		metrics:   cfg.Metrics,
	}
}

// Analyze 返回 (报告正文, 分数)；分数为 "0".."100" 或 "N/A"
func (e *AuditEngine) Analyze(ctx context.Context, contractFile string, src *internal.ContractSource, chain, address string) (string, string) {
	static := e.staticSection(ctx, contractFile)

	if !src.HasSource() {
		var b strings.Builder
		b.WriteString("# Analysis Report\n")
		b.WriteString(bytecodeOnlyWarning + "\n")
		b.WriteString("# Static Analysis Results (Slither)\n")
		b.WriteString(static + "\n")
		b.WriteString(verifyRecommendation)
		return b.String(), report.ScoreUnavailable
	}

	result, err := e.runLLM(ctx, src, chain, address)
	if err != nil {
		logger.Warn("AI analysis failed: %v", err)
		return fmt.Sprintf("❌ Analysis error: %v", err), report.ScoreUnavailable
	}

	body := "# AI Audit Results\n" + result.Text + "\n\n# Static Analysis Results (Slither)\n" + static
	return body, result.Score
}

func (e *AuditEngine) runLLM(ctx context.Context, src *internal.ContractSource, chain, address string) (*parser.AuditResult, error) {
	if e.llm == nil {
		return nil, e.llmErr
	}
	prompt, err := prompts.BuildPrompt(e.template, prompts.PromptVariables{
		ContractAddress:    address,
		Chain:              chain,
		ContractName:       src.ContractName,
		CompilerVersion:    src.CompilerVersion,
		SourceCode:         internal.Deref(src.SourceCode, ""),
		ImplementationCode: internal.Deref(src.ImplementationCode, ""),
	})
	if err != nil {
		return nil, err
	}
	defer e.metrics.ObserveStage("llm")()
	return e.llm.AnalyzeContract(ctx, prompt)
}

// staticSection 过滤后的发现逐行列出；分析器出错时追加 "Slither error: ..."
func (e *AuditEngine) staticSection(ctx context.Context, contractFile string) string {
	done := e.metrics.ObserveStage("static_analysis")
	res, err := e.analyzer.AnalyzeContract(ctx, contractFile)
	done()

	var findings []renderers.Finding
	if res != nil {
		for _, f := range res.Findings {
			if e.metrics != nil {
				e.metrics.Findings.WithLabelValues(f.Tool, f.Impact.String()).Inc()
			}
		}
		for _, f := range res.Filter(e.threshold) {
			findings = append(findings, renderers.Finding{Description: f.Description, Impact: f.Impact.String()})
		}
	}

	if err != nil {
		logger.InfoFileOnly("static analysis error on %s: %v", contractFile, err)
		errLine := fmt.Sprintf("Slither error: %v", err)
		if len(findings) == 0 {
			return errLine
		}
		return e.renderer.RenderFindings(findings, "") + "\n" + errLine
	}
	return e.renderer.RenderFindings(findings, noFindingsMessage)
}
