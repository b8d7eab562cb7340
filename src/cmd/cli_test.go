package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/VectorBits/SmartScan/src/internal"
	"github.com/VectorBits/SmartScan/src/internal/config"
	"github.com/VectorBits/SmartScan/src/internal/retry"
)

const testAddr = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		chain     string
		overwrite bool
		retries   int
		wantErr   bool
	}{
		{"address only", []string{testAddr}, "eth", false, 3, false},
		{"flags before address", []string{"-chain", "bsc", "-overwrite", testAddr}, "bsc", true, 3, false},
		{"flags after address", []string{testAddr, "--chain", "polygon", "-retries", "1"}, "polygon", false, 1, false},
		{"equals form", []string{"--chain=BSC", testAddr}, "bsc", false, 3, false},
		{"bool flag before address", []string{"-overwrite", testAddr, "-v"}, "eth", true, 3, false},
		{"missing address", []string{"-chain", "eth"}, "", false, 0, true},
		{"two addresses", []string{testAddr, testAddr}, "", false, 0, true},
		{"unknown chain", []string{"-chain", "solana", testAddr}, "", false, 0, true},
		{"unknown flag", []string{"-bogus", testAddr}, "", false, 0, true},
		{"bad provider", []string{"-ai", "claude", testAddr}, "", false, 0, true},
		{"bad impact", []string{"-impact", "severe", testAddr}, "", false, 0, true},
		{"zero retries", []string{"-retries", "0", testAddr}, "", false, 0, true},
		{"bad static backend", []string{"-static-backend", "mythril", testAddr}, "", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got config %+v", cfg)
				}
				if code := ExitCode(err); code != ExitInput {
					t.Errorf("ExitCode = %d, want %d (err: %v)", code, ExitInput, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArgs: %v", err)
			}
			if cfg.Address != testAddr {
				t.Errorf("Address = %q", cfg.Address)
			}
			if cfg.Chain != tt.chain {
				t.Errorf("Chain = %q, want %q", cfg.Chain, tt.chain)
			}
			if cfg.Overwrite != tt.overwrite {
				t.Errorf("Overwrite = %v, want %v", cfg.Overwrite, tt.overwrite)
			}
			if cfg.Retries != tt.retries {
				t.Errorf("Retries = %d, want %d", cfg.Retries, tt.retries)
			}
		})
	}
}

func TestParseArgsHelp(t *testing.T) {
	stdout := os.Stdout
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = devNull
	defer func() {
		os.Stdout = stdout
		devNull.Close()
	}()

	for _, args := range [][]string{{"--help"}, {"-chain", "--help"}, {testAddr, "-h"}} {
		if _, err := ParseArgs(args); !errors.Is(err, flag.ErrHelp) {
			t.Errorf("ParseArgs(%v) err = %v, want flag.ErrHelp", args, err)
		}
	}
	if err := Run([]string{"--help"}); err != nil {
		t.Errorf("Run(--help) = %v", err)
	}
}

func TestMergeConfigsLayering(t *testing.T) {
	for _, k := range []string{"ETHERSCAN_API_KEY", "BSCSCAN_API_KEY", "POLYGONSCAN_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY",
		"ETH_RPC_URL", "BSC_RPC_URL", "POLYGON_RPC_URL", "SMARTSCAN_MINIO_ENDPOINT", "SMARTSCAN_MINIO_BUCKET"} {
		t.Setenv(k, "")
	}
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("BSCSCAN_API_KEY", "k1, k2")

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	yaml := `ai:
  gemini:
    api_key: file-key
    model: gemini-2.5-pro
scan:
  report_dir: from-file
  contracts_dir: file-contracts
  retries: 5
  impact: low
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	appConfig, err := config.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	cli, err := ParseArgs([]string{testAddr, "-chain", "bsc", "-r", "from-flag", "-no-static", "-timeout", "30s"})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := cli.MergeConfigs(appConfig)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Chain != internal.ChainBSC || cfg.Address != testAddr {
		t.Errorf("target = %s:%s", cfg.Chain, cfg.Address)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey = %q, env should override file", cfg.APIKey)
	}
	if cfg.Model != "gemini-2.5-pro" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.ReportDir != "from-flag" {
		t.Errorf("ReportDir = %q, flag should override file", cfg.ReportDir)
	}
	if cfg.ContractsDir != "file-contracts" {
		t.Errorf("ContractsDir = %q, unset flag must not clobber file", cfg.ContractsDir)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d", cfg.Retry.MaxAttempts)
	}
	if cfg.ImpactThreshold != "low" {
		t.Errorf("ImpactThreshold = %q", cfg.ImpactThreshold)
	}
	if cfg.StaticEnabled {
		t.Error("-no-static ignored")
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	settings, err := cfg.ChainSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(settings.APIKeys) != 2 || settings.APIKeys[1] != "k2" {
		t.Errorf("APIKeys = %v", settings.APIKeys)
	}
}

func TestMergeConfigsNoFile(t *testing.T) {
	cli, err := ParseArgs([]string{testAddr, "-ai", "openai", "-model", "gpt-4.1"})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := cli.MergeConfigs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AIProvider != "openai" || cfg.Model != "gpt-4.1" {
		t.Errorf("ai = %s/%s", cfg.AIProvider, cfg.Model)
	}
	if cfg.ReportDir != "reports" || cfg.ContractsDir != "contracts" {
		t.Errorf("dirs = %s, %s", cfg.ReportDir, cfg.ContractsDir)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.Min != 4*time.Second || cfg.Retry.Max != 10*time.Second {
		t.Errorf("retry = %+v", cfg.Retry)
	}
}

func TestMergeConfigsStaticBackend(t *testing.T) {
	cli, err := ParseArgs([]string{testAddr})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := cli.MergeConfigs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StaticBackend != "auto" {
		t.Errorf("default StaticBackend = %q, want auto", cfg.StaticBackend)
	}

	cli, err = ParseArgs([]string{"-static-backend", "bytecode", testAddr})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err = cli.MergeConfigs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StaticBackend != "bytecode" {
		t.Errorf("StaticBackend = %q, want bytecode", cfg.StaticBackend)
	}
}

func TestMergeConfigsProviderAliasesReadKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	tests := []struct {
		provider string
		wantKey  string
	}{
		{"gemini", "gemini-key"},
		{"openai", "sk-test"},
		{"chatgpt", "sk-test"},
		{"gpt4", "sk-test"},
		{"GPT4", "sk-test"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cli, err := ParseArgs([]string{testAddr, "-ai", tt.provider})
			if err != nil {
				t.Fatal(err)
			}
			cfg, err := cli.MergeConfigs(nil)
			if err != nil {
				t.Fatal(err)
			}
			if cfg.APIKey != tt.wantKey {
				t.Errorf("APIKey = %q, want %q", cfg.APIKey, tt.wantKey)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"help", flag.ErrHelp, ExitOK},
		{"usage", usagef("bad flag"), ExitInput},
		{"invalid address", &internal.InvalidAddressError{}, ExitInput},
		{"unsupported chain", fmt.Errorf("x: %w", internal.ErrUnsupportedChain), ExitInput},
		{"resolution", &internal.ResolveError{ExplorerErr: errors.New("a"), BytecodeErr: errors.New("b")}, ExitResolution},
		{"exhausted resolution", &retry.ExhaustedError{Attempts: 3, Err: &internal.ResolveError{}}, ExitResolution},
		{"report conflict", &retry.ExhaustedError{Attempts: 3, Err: &internal.ReportExistsError{}}, ExitConflict},
		{"canceled", fmt.Errorf("scan: %w", context.Canceled), ExitInterrupt},
		{"other", errors.New("disk full"), ExitOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
