package handler

import (
	"context"
	"fmt"

	"github.com/VectorBits/SmartScan/src/internal/ai"
	"github.com/VectorBits/SmartScan/src/internal/config"
	"github.com/VectorBits/SmartScan/src/internal/download"
	"github.com/VectorBits/SmartScan/src/internal/logger"
	"github.com/VectorBits/SmartScan/src/internal/metrics"
	"github.com/VectorBits/SmartScan/src/internal/report"
	"github.com/VectorBits/SmartScan/src/internal/retry"
	"github.com/VectorBits/SmartScan/src/internal/static_analyzer"
	"github.com/VectorBits/SmartScan/src/strategy/prompts"
)

func InitScanLogger(logDir, scanID string) error {
	return logger.InitLogger(logDir, scanID)
}

func CloseScanLogger() {
	logger.Close()
}

// Components 组装好的扫描器及需要在退出时释放的资源
type Components struct {
	Scanner  *Scanner
	closers  []func() error
	AIClient string
}

func (c *Components) Close() {
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			logger.Debug("close: %v", err)
		}
	}
}

// BuildScanner 按配置组装浏览器、RPC、分析器、AI 客户端和报告存储
// AI 客户端创建失败不是致命错误，分析阶段会把原因写进报告
func BuildScanner(ctx context.Context, cfg config.ScanConfiguration, scanID, strategy string, m *metrics.ScanMetrics) (*Components, error) {
	chainSettings, err := cfg.ChainSettings()
	if err != nil {
		return nil, err
	}

	keys := config.NewAPIKeyManager(chainSettings.APIKeys)
	explorer, err := download.NewExplorerClient(download.ExplorerConfig{
		Chain:             cfg.Chain,
		BaseURL:           chainSettings.ExplorerURL,
		ChainID:           chainSettings.ChainID,
		APIKeys:           keys,
		Proxy:             cfg.Proxy,
		RequestsPerSecond: cfg.ExplorerRPS,
	})
	if err != nil {
		return nil, err
	}
	if !keys.HasKeys() {
		logger.Warn("⚠️  No explorer API key configured for %s, requests may be rejected", cfg.Chain)
	}

	bytecode, err := download.NewBytecodeClient(cfg.Chain, chainSettings.RPCURLs, cfg.Proxy)
	if err != nil {
		return nil, err
	}

	threshold, err := static_analyzer.ParseImpact(cfg.ImpactThreshold)
	if err != nil {
		return nil, err
	}
	staticBackend, err := static_analyzer.ParseBackend(cfg.StaticBackend)
	if err != nil {
		return nil, err
	}
	analyzerCfg := static_analyzer.DefaultConfig()
	analyzerCfg.Backend = staticBackend
	analyzerCfg.Enabled = cfg.StaticEnabled
	analyzerCfg.SlitherPath = cfg.SlitherPath
	analyzer, err := static_analyzer.NewAnalyzer(analyzerCfg)
	if err != nil {
		return nil, err
	}

	tmpl, err := prompts.LoadTemplate(strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt template: %w", err)
	}

	comps := &Components{closers: []func() error{analyzer.Close}}

	var llm LLM
	manager, llmErr := ai.NewManager(ai.ManagerConfig{
		Provider: cfg.AIProvider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Timeout:  cfg.Timeout,
		Proxy:    cfg.Proxy,
	})
	if llmErr != nil {
		logger.Warn("⚠️  AI client unavailable: %v", llmErr)
	} else {
		llm = manager
		comps.AIClient = manager.GetClientInfo()
		comps.closers = append(comps.closers, manager.Close)
	}

	storage := report.NewFileStorage(cfg.ContractsDir, cfg.ReportDir)
	var mirror report.Mirror
	if cfg.Mirror.Enabled() {
		mm, err := report.NewMinioMirror(ctx, report.MinioConfig{
			Endpoint:  cfg.Mirror.Endpoint,
			AccessKey: cfg.Mirror.AccessKey,
			SecretKey: cfg.Mirror.SecretKey,
			Bucket:    cfg.Mirror.Bucket,
			Prefix:    cfg.Mirror.Prefix,
			UseSSL:    cfg.Mirror.UseSSL,
		}, scanID)
		if err != nil {
			logger.Warn("⚠️  Report mirror disabled: %v", err)
		} else {
			mirror = mm
		}
	}

	engine := NewAuditEngine(AuditEngineConfig{
		Analyzer:  analyzer,
		LLM:       llm,
		LLMErr:    llmErr,
		Template:  tmpl,
		Threshold: threshold,
		Metrics:   m,
	})

	comps.Scanner = NewScanner(ScannerConfig{
		Chain:    cfg.Chain,
		Resolver: download.NewResolver(explorer, bytecode),
		Archiver: storage,
		Reports:  report.NewReporter(storage, mirror),
		Engine:   engine,
		Retry: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Multiplier:  cfg.Retry.Multiplier,
			Min:         cfg.Retry.Min,
			Max:         cfg.Retry.Max,
		},
		Metrics: m,
		Spinner: !cfg.Verbose,
	})
	return comps, nil
}
