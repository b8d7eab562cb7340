package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/VectorBits/SmartScan/src/internal/config"
	"github.com/VectorBits/SmartScan/src/internal/handler"
	"github.com/VectorBits/SmartScan/src/internal/logger"
	"github.com/VectorBits/SmartScan/src/internal/metrics"
	"github.com/VectorBits/SmartScan/src/internal/ui"
)

// loadScanConfig 读取 settings.yaml 与 .env 后合并命令行参数
func loadScanConfig(cfg *CLIConfig) (config.ScanConfiguration, error) {
	appConfig, err := config.LoadConfig(cfg.ConfigPath)
	if err != nil {
		if cfg.ConfigPath != "" {
			return config.ScanConfiguration{}, &UsageError{Err: err}
		}
		if cfg.Verbose {
			fmt.Printf(ui.Yellow+"⚠️  Warning: Failed to load config: %v"+ui.Reset+"\n", err)
		}
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Printf(ui.Yellow+"⚠️  Warning: Failed to load .env: %v"+ui.Reset+"\n", err)
	}
	return cfg.MergeConfigs(appConfig)
}

// Execute 单个合约扫描入口
func Execute(ctx context.Context, cfg *CLIConfig) error {
	scanConfig, err := loadScanConfig(cfg)
	if err != nil {
		return err
	}

	scanID := uuid.NewString()
	if err := handler.InitScanLogger(scanConfig.LogDir, scanID); err != nil {
		fmt.Printf(ui.Yellow+"⚠️  Warning: Failed to init logger: %v"+ui.Reset+"\n", err)
	}
	defer handler.CloseScanLogger()
	logger.SetVerbose(scanConfig.Verbose)

	if scanConfig.Verbose {
		fmt.Printf(ui.Gray+"Running SmartScan %s on %s (ai=%s, static=%v, retries=%d)"+ui.Reset+"\n",
			scanID, scanConfig.Chain, scanConfig.AIProvider, scanConfig.StaticEnabled, scanConfig.Retry.MaxAttempts)
	}
	logger.InfoFileOnly("scan %s started: chain=%s address=%s ai=%s", scanID, scanConfig.Chain, scanConfig.Address, scanConfig.AIProvider)

	m := metrics.NewScanMetrics()
	defer func() {
		if err := m.WriteTextfile(scanConfig.MetricsFile); err != nil {
			logger.Warn("⚠️  Failed to write metrics to %s: %v", scanConfig.MetricsFile, err)
		}
	}()

	comps, err := handler.BuildScanner(ctx, scanConfig, scanID, cfg.Strategy, m)
	if err != nil {
		return err
	}
	defer comps.Close()
	if comps.AIClient != "" {
		logger.InfoFileOnly("AI client: %s", comps.AIClient)
	}

	outcome, err := comps.Scanner.Scan(ctx, scanConfig.Address, scanConfig.Overwrite)
	if err != nil {
		logger.InfoFileOnly("scan %s ended after %d attempt(s) in state %s", scanID, outcome.Attempts, outcome.State)
		return err
	}

	ui.PrintStats(outcome.Chain, outcome.Address, outcome.Tier, outcome.Degraded, outcome.Duration)
	if p := logger.Path(); p != "" && scanConfig.Verbose {
		ui.LogInfo("Log file: %s", p)
	}
	return nil
}
