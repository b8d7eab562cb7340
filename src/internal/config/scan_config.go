package config

import (
	"fmt"
	"time"

	"github.com/VectorBits/SmartScan/src/internal"
	"github.com/VectorBits/SmartScan/src/internal/retry"
)

// ChainSettings 单条链的浏览器与 RPC 配置
type ChainSettings struct {
	ChainID     int64
	ExplorerURL string
	APIKeys     []string
	RPCURLs     []string
}

type MirrorConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

func (m MirrorConfig) Enabled() bool {
	return m.Endpoint != "" && m.Bucket != ""
}

type RetryConfig struct {
	MaxAttempts int
	Multiplier  time.Duration
	Min         time.Duration
	Max         time.Duration
}

// ScanConfiguration 单次扫描的完整配置，进程启动时构建一次后显式传递
type ScanConfiguration struct {
	// 扫描目标
	Chain     internal.Chain
	Address   string
	Overwrite bool

	// AI 相关
	AIProvider string
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration

	// 静态分析
	StaticEnabled   bool
	StaticBackend   string
	SlitherPath     string
	ImpactThreshold string

	// 系统相关
	Proxy        string
	Verbose      bool
	ContractsDir string
	ReportDir    string
	LogDir       string
	MetricsFile  string
	ExplorerRPS  float64

	Retry  RetryConfig
	Mirror MirrorConfig
	Chains map[internal.Chain]ChainSettings
}

func DefaultScanConfiguration() ScanConfiguration {
	policy := retry.Default()
	return ScanConfiguration{
		Chain:           internal.ChainEth,
		AIProvider:      "gemini",
		Timeout:         120 * time.Second,
		StaticEnabled:   true,
		StaticBackend:   "auto",
		SlitherPath:     "slither",
		ImpactThreshold: "medium",
		ContractsDir:    "contracts",
		ReportDir:       "reports",
		LogDir:          "logs",
		ExplorerRPS:     5,
		Retry: RetryConfig{
			MaxAttempts: policy.MaxAttempts,
			Multiplier:  policy.Multiplier,
			Min:         policy.Min,
			Max:         policy.Max,
		},
		Chains: map[internal.Chain]ChainSettings{
			internal.ChainEth: {
				ChainID:     1,
				ExplorerURL: "https://api.etherscan.io/v2/api",
				RPCURLs:     []string{"https://ethereum-rpc.publicnode.com"},
			},
			internal.ChainBSC: {
				ChainID:     56,
				ExplorerURL: "https://api.etherscan.io/v2/api",
				RPCURLs:     []string{"https://bsc-dataseed.binance.org/"},
			},
			internal.ChainPolygon: {
				ChainID:     137,
				ExplorerURL: "https://api.etherscan.io/v2/api",
				RPCURLs:     []string{"https://polygon-rpc.com/"},
			},
		},
	}
}

// ChainSettings 返回当前链的配置
func (c *ScanConfiguration) ChainSettings() (ChainSettings, error) {
	s, ok := c.Chains[c.Chain]
	if !ok {
		return ChainSettings{}, fmt.Errorf("%w: %s", internal.ErrUnsupportedChain, c.Chain)
	}
	return s, nil
}
