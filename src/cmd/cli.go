package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/VectorBits/SmartScan/src/internal"
	"github.com/VectorBits/SmartScan/src/internal/ai"
	"github.com/VectorBits/SmartScan/src/internal/config"
	"github.com/VectorBits/SmartScan/src/internal/static_analyzer"
	"github.com/VectorBits/SmartScan/src/internal/ui"
)

// 退出码
const (
	ExitOK         = 0
	ExitInput      = 1
	ExitResolution = 2
	ExitConflict   = 3
	ExitOther      = 4
	ExitInterrupt  = 130
)

type CLIConfig struct {
	Address      string
	Chain        string
	Overwrite    bool
	AIProvider   string
	Model        string
	Strategy     string
	Proxy        string
	ContractsDir string
	ReportDir    string
	ConfigPath   string
	Timeout      time.Duration
	Retries      int
	Impact       string
	Backend      string
	MetricsFile  string
	NoStatic     bool
	Verbose      bool

	// 命令行显式给出的 flag，只有这些会覆盖配置文件和环境变量
	set map[string]bool
}

// UsageError 命令行参数错误，退出码 1
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

func usagef(format string, a ...interface{}) error {
	return &UsageError{Err: fmt.Errorf(format, a...)}
}

func (c *CLIConfig) Validate() error {
	if c.Address == "" {
		return usagef("missing contract address (usage: smartscan [flags] <address>)")
	}
	if _, err := internal.ParseChain(c.Chain); err != nil {
		return &UsageError{Err: err}
	}
	if c.set["ai"] {
		if err := ai.ValidateProvider(c.AIProvider); err != nil {
			return &UsageError{Err: err}
		}
	}
	if c.set["impact"] {
		if _, err := static_analyzer.ParseImpact(c.Impact); err != nil {
			return &UsageError{Err: err}
		}
	}
	if c.set["static-backend"] {
		if _, err := static_analyzer.ParseBackend(c.Backend); err != nil {
			return &UsageError{Err: err}
		}
	}
	if c.set["retries"] && c.Retries < 1 {
		return usagef("-retries must be >= 1")
	}
	if c.set["timeout"] && c.Timeout <= 0 {
		return usagef("-timeout must be positive")
	}
	return nil
}

// MergeConfigs 默认值 -> settings.yaml -> .env/环境变量 -> 命令行
func (c *CLIConfig) MergeConfigs(appConfig *config.AppConfig) (config.ScanConfiguration, error) {
	cfg := config.DefaultScanConfiguration()

	chain, err := internal.ParseChain(c.Chain)
	if err != nil {
		return cfg, &UsageError{Err: err}
	}
	cfg.Chain = chain
	cfg.Address = c.Address
	cfg.Overwrite = c.Overwrite
	cfg.Verbose = c.Verbose
	if c.set["ai"] {
		// 先确定 provider，配置文件按 provider 取 ai 段
		cfg.AIProvider = strings.ToLower(c.AIProvider)
	}

	if err := appConfig.Apply(&cfg); err != nil {
		return cfg, &UsageError{Err: err}
	}
	config.ApplyEnv(&cfg)

	if c.set["model"] {
		cfg.Model = c.Model
	}
	if c.set["proxy"] {
		cfg.Proxy = c.Proxy
	}
	if c.set["contracts"] {
		cfg.ContractsDir = c.ContractsDir
	}
	if c.set["r"] {
		cfg.ReportDir = c.ReportDir
	}
	if c.set["timeout"] {
		cfg.Timeout = c.Timeout
	}
	if c.set["retries"] {
		cfg.Retry.MaxAttempts = c.Retries
	}
	if c.set["impact"] {
		cfg.ImpactThreshold = c.Impact
	}
	if c.set["static-backend"] {
		cfg.StaticBackend = c.Backend
	}
	if c.set["metrics-file"] {
		cfg.MetricsFile = c.MetricsFile
	}
	if c.NoStatic {
		cfg.StaticEnabled = false
	}
	return cfg, nil
}

func showGeneralHelp() {
	fmt.Println(ui.Cyan + "USAGE:" + ui.Reset)
	fmt.Println("  smartscan [OPTIONS] <address>")
	fmt.Println()

	fmt.Println(ui.Cyan + "OPTIONS:" + ui.Reset)
	fmt.Printf("  %-25s %s\n", "-chain <chain>", "Blockchain network (eth/bsc/polygon) [default: eth]")
	fmt.Printf("  %-25s %s\n", "-overwrite", "Overwrite existing reports for this contract")
	fmt.Printf("  %-25s %s\n", "-ai <provider>", "AI provider (gemini/openai) [default: gemini]")
	fmt.Printf("  %-25s %s\n", "-model <name>", "Override the provider's default model")
	fmt.Printf("  %-25s %s\n", "-s <strategy>", "Prompt template under strategy/prompts/audit [default: default]")
	fmt.Printf("  %-25s %s\n", "-proxy <url>", "HTTP proxy for explorer, RPC and AI requests")
	fmt.Printf("  %-25s %s\n", "-contracts <dir>", "Contract archive directory [default: contracts]")
	fmt.Printf("  %-25s %s\n", "-r <dir>", "Report output directory [default: reports]")
	fmt.Printf("  %-25s %s\n", "-config <path>", "Settings file [default: config/settings.yaml]")
	fmt.Printf("  %-25s %s\n", "-timeout <dur>", "Per-AI request timeout [default: 120s]")
	fmt.Printf("  %-25s %s\n", "-retries <n>", "Whole-scan attempts, 1 disables retry [default: 3]")
	fmt.Printf("  %-25s %s\n", "-impact <level>", "Minimum static finding impact (low/medium/high) [default: medium]")
	fmt.Printf("  %-25s %s\n", "-metrics-file <path>", "Write Prometheus textfile metrics after the scan")
	fmt.Printf("  %-25s %s\n", "-static-backend <name>", "Static analysis backend (auto/slither/bytecode/noop) [default: auto]")
	fmt.Printf("  %-25s %s\n", "-no-static", "Skip Slither and bytecode static analysis")
	fmt.Printf("  %-25s %s\n", "-v", "Verbose output")
	fmt.Println()

	fmt.Println(ui.Cyan + "HELP:" + ui.Reset)
	fmt.Println("  smartscan [OPTION] --help   Show detailed help for an option (chain, ai, s, retries, r)")
	fmt.Println()

	fmt.Println(ui.Cyan + "EXAMPLES:" + ui.Reset)
	fmt.Println("  smartscan 0xdAC17F958D2ee523a2206206994597C13D831ec7")
	fmt.Println("  smartscan --chain bsc 0x55d398326f99059fF775485246999027B3197955")
	fmt.Println("  smartscan 0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619 -chain polygon -overwrite")
}

func showChainHelp() {
	fmt.Println(ui.Cyan + "⛓️  BLOCKCHAIN NETWORK (-chain)" + ui.Reset)
	fmt.Println(ui.Gray + "Selects the block explorer and RPC endpoints." + ui.Reset)
	fmt.Println()

	fmt.Println(ui.Cyan + "SUPPORTED NETWORKS:" + ui.Reset)
	fmt.Printf("  %-25s %s\n", "eth", "Ethereum Mainnet (Default), ETHERSCAN_API_KEY")
	fmt.Printf("  %-25s %s\n", "bsc", "BNB Smart Chain, BSCSCAN_API_KEY")
	fmt.Printf("  %-25s %s\n", "polygon", "Polygon PoS, POLYGONSCAN_API_KEY")
	fmt.Println()

	fmt.Println(ui.Cyan + "RPC OVERRIDES:" + ui.Reset)
	fmt.Println("  ETH_RPC_URL, BSC_RPC_URL, POLYGON_RPC_URL (comma separated for failover)")
}

func showAIHelp() {
	fmt.Println(ui.Cyan + "🤖 AI PROVIDER (-ai)" + ui.Reset)
	fmt.Println(ui.Gray + "Select the AI model for contract analysis." + ui.Reset)
	fmt.Println()

	fmt.Println(ui.Cyan + "SUPPORTED PROVIDERS:" + ui.Reset)
	fmt.Printf("  %-25s %s\n", "gemini", "Google Gemini (Default, gemini-2.5-flash)")
	fmt.Printf("  %-25s %s\n", "openai", "OpenAI compatible chat completions (gpt-4o)")
	fmt.Println()

	fmt.Println(ui.Cyan + "CONFIGURATION:" + ui.Reset)
	fmt.Println("  Set API keys in " + ui.Bold + "config/settings.yaml" + ui.Reset)
	fmt.Println("  Or use env vars: GEMINI_API_KEY, OPENAI_API_KEY")
}

func showStrategyHelp() {
	fmt.Println(ui.Cyan + "📋 PROMPT STRATEGY (-s)" + ui.Reset)
	fmt.Println(ui.Gray + "Specify the AI prompt template to use." + ui.Reset)
	fmt.Println()

	fmt.Println(ui.Cyan + "STRATEGIES:" + ui.Reset)
	fmt.Printf("  %-25s %s\n", "default", "Audit prompt with score line")
	fmt.Printf("  %-25s %s\n", "detailed", "Adds contract metadata (chain, name, compiler)")
	fmt.Printf("  %-25s %s\n", "<name>", "Custom template <name>.tmpl")
	fmt.Println()

	fmt.Println(ui.Cyan + "LOCATIONS:" + ui.Reset)
	fmt.Println("  Templates: " + ui.Bold + "strategy/prompts/audit/<name>.tmpl" + ui.Reset)
}

func showRetriesHelp() {
	fmt.Println(ui.Cyan + "🔁 RETRIES (-retries)" + ui.Reset)
	fmt.Println(ui.Gray + "The whole scan is re-run from address validation when any step fails." + ui.Reset)
	fmt.Println()
	fmt.Println("  Backoff: 1s multiplier, clamped to [4s, 10s]. Ctrl+C is never retried.")
	fmt.Println("  Report conflicts are retried too; pass -overwrite to replace reports.")
}

func showReportHelp() {
	fmt.Println(ui.Cyan + "📦 REPORTS (-r)" + ui.Reset)
	fmt.Println(ui.Gray + "Reports are written as {chain}_{address}.md and .json." + ui.Reset)
	fmt.Println()
	fmt.Println("  Existing reports are never replaced unless -overwrite is given.")
	fmt.Println("  Set SMARTSCAN_MINIO_ENDPOINT and SMARTSCAN_MINIO_BUCKET to mirror reports to object storage.")
}

func showHelp(topic string) {
	switch topic {
	case "chain", "c":
		showChainHelp()
	case "ai", "model":
		showAIHelp()
	case "s", "strategy":
		showStrategyHelp()
	case "retries":
		showRetriesHelp()
	case "r", "overwrite", "report":
		showReportHelp()
	default:
		showGeneralHelp()
	}
}

func isHelpArg(s string) bool {
	return s == "--help" || s == "-help" || s == "-h"
}

func newFlagSet(c *CLIConfig) *flag.FlagSet {
	fs := flag.NewFlagSet("smartscan", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = showGeneralHelp

	fs.StringVar(&c.Chain, "chain", "eth", "Chain: eth | bsc | polygon")
	fs.BoolVar(&c.Overwrite, "overwrite", false, "Overwrite existing reports")
	fs.StringVar(&c.AIProvider, "ai", "gemini", "AI provider: gemini | openai")
	fs.StringVar(&c.Model, "model", "", "AI model override")
	fs.StringVar(&c.Strategy, "s", "default", "Prompt template name")
	fs.StringVar(&c.Proxy, "proxy", "", "Optional HTTP proxy, e.g. http://127.0.0.1:7897")
	fs.StringVar(&c.ContractsDir, "contracts", "contracts", "Contract archive directory")
	fs.StringVar(&c.ReportDir, "r", "reports", "Report output directory")
	fs.StringVar(&c.ConfigPath, "config", "", "Path to settings.yaml")
	fs.DurationVar(&c.Timeout, "timeout", 120*time.Second, "Per-AI request timeout")
	fs.IntVar(&c.Retries, "retries", 3, "Whole-scan attempts")
	fs.StringVar(&c.Impact, "impact", "medium", "Minimum static finding impact")
	fs.StringVar(&c.Backend, "static-backend", "auto", "Static analysis backend: auto | slither | bytecode | noop")
	fs.StringVar(&c.MetricsFile, "metrics-file", "", "Prometheus textfile output")
	fs.BoolVar(&c.NoStatic, "no-static", false, "Disable static analysis")
	fs.BoolVar(&c.Verbose, "v", false, "Verbose output")
	return fs
}

// splitArgs 把位置参数挪到 flag 后面，允许地址出现在任意位置
func splitArgs(fs *flag.FlagSet, args []string) (flags, positional []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			positional = append(positional, arg)
			continue
		}
		flags = append(flags, arg)
		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") {
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			continue
		}
		if i+1 < len(args) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return flags, positional
}

// ParseArgs 解析命令行参数；请求帮助时打印帮助并返回 flag.ErrHelp
func ParseArgs(args []string) (*CLIConfig, error) {
	// 处理特定选项的帮助请求 (如 -chain --help)
	for i := 0; i < len(args)-1; i++ {
		if isHelpArg(args[i+1]) && strings.HasPrefix(args[i], "-") && !isHelpArg(args[i]) {
			showHelp(strings.TrimLeft(args[i], "-"))
			return nil, flag.ErrHelp
		}
	}
	for _, arg := range args {
		if isHelpArg(arg) {
			showGeneralHelp()
			return nil, flag.ErrHelp
		}
	}

	cfg := &CLIConfig{set: make(map[string]bool)}
	fs := newFlagSet(cfg)
	flags, positional := splitArgs(fs, args)
	if err := fs.Parse(flags); err != nil {
		return nil, &UsageError{Err: err}
	}
	fs.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })

	positional = append(positional, fs.Args()...)
	switch len(positional) {
	case 0:
	case 1:
		cfg.Address = strings.TrimSpace(positional[0])
	default:
		return nil, usagef("expected one contract address, got %d arguments: %v", len(positional), positional)
	}

	cfg.Chain = strings.ToLower(strings.TrimSpace(cfg.Chain))
	cfg.AIProvider = strings.TrimSpace(cfg.AIProvider)
	cfg.Strategy = strings.TrimSpace(cfg.Strategy)
	cfg.Proxy = strings.TrimSpace(cfg.Proxy)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Run(args []string) error {
	cfg, err := ParseArgs(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()

	go func() {
		count := 0
		for range sigChan {
			count++
			if count == 1 {
				fmt.Fprintln(os.Stderr, "\nInterrupt received, stopping... (press Ctrl+C again to force exit)")
				cancel()
				continue
			}
			fmt.Fprintln(os.Stderr, "\nForce exiting...")
			os.Exit(ExitInterrupt)
		}
	}()

	return Execute(ctx, cfg)
}

// ExitCode 错误到退出码的映射
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupt
	case errors.As(err, &usage),
		errors.Is(err, internal.ErrInvalidAddress),
		errors.Is(err, internal.ErrUnsupportedChain):
		return ExitInput
	case errors.Is(err, internal.ErrResolution):
		return ExitResolution
	case errors.Is(err, internal.ErrReportExists):
		return ExitConflict
	default:
		return ExitOther
	}
}

// PrintFatal 红色打印错误并按错误类型退出
func PrintFatal(err error) {
	if err == nil {
		return
	}
	code := ExitCode(err)
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, ui.Red+"Error: "+err.Error()+ui.Reset)
	}
	os.Exit(code)
}
