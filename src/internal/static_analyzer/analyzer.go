package static_analyzer

import (
	"context"
)

// Analyzer 对落盘的合约文件做静态分析
// 源码文件为 .sol，降级模式下为 .bin 十六进制字节码
type Analyzer interface {
	AnalyzeContract(ctx context.Context, contractFile string) (*AnalysisResult, error)

	Name() string

	Close() error
}

type NoOpAnalyzer struct{}

func (n *NoOpAnalyzer) AnalyzeContract(ctx context.Context, contractFile string) (*AnalysisResult, error) {
	return &AnalysisResult{}, nil
}

func (n *NoOpAnalyzer) Name() string { return "noop" }

func (n *NoOpAnalyzer) Close() error {
	return nil
}

func NewNoOpAnalyzer() Analyzer {
	return &NoOpAnalyzer{}
}
