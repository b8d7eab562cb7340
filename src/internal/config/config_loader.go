package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/VectorBits/SmartScan/src/internal"
)

type ChainConfig struct {
	ChainID  int64    `yaml:"chain_id"`
	RPCURLs  []string `yaml:"rpc_urls"`
	Explorer Explorer `yaml:"explorer"`
}

type Explorer struct {
	APIKey  string   `yaml:"api_key"`
	APIKeys []string `yaml:"api_keys"`
	BaseURL string   `yaml:"base_url"`
}

type AIConfig struct {
	Gemini AIProvider `yaml:"gemini"`
	OpenAI AIProvider `yaml:"openai"`
}

type AIProvider struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Proxy   string `yaml:"proxy"`
}

type ScanSection struct {
	ContractsDir string  `yaml:"contracts_dir"`
	ReportDir    string  `yaml:"report_dir"`
	Retries      int     `yaml:"retries"`
	Impact       string  `yaml:"impact"`
	SlitherPath  string  `yaml:"slither_path"`
	Backend      string  `yaml:"static_backend"`
	ExplorerRPS  float64 `yaml:"explorer_rps"`
	AITimeout    string  `yaml:"ai_timeout"`
}

type MinioSection struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type AppConfig struct {
	AI      AIConfig               `yaml:"ai"`
	Chains  map[string]ChainConfig `yaml:"chains"`
	Scan    ScanSection            `yaml:"scan"`
	Storage struct {
		Minio MinioSection `yaml:"minio"`
	} `yaml:"storage"`
}

// LoadConfig 加载 YAML 配置；path 为空时按默认路径查找
func LoadConfig(path string) (*AppConfig, error) {
	configPath := strings.TrimSpace(path)
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath == "" {
		return nil, fmt.Errorf("the configuration file settings.yaml was not found")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var config AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", configPath, err)
	}
	return &config, nil
}

func findConfigFile() string {
	possiblePaths := []string{
		"config/settings.yaml",
		"settings.yaml",
		"src/config/settings.yaml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (c *AppConfig) GetAIConfig(provider string) (*AIProvider, error) {
	switch strings.ToLower(provider) {
	case "gemini":
		p := c.AI.Gemini
		return &p, nil
	case "openai", "chatgpt", "gpt4":
		p := c.AI.OpenAI
		return &p, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", provider)
	}
}

// Apply 用配置文件中非空的字段覆盖默认值
func (c *AppConfig) Apply(cfg *ScanConfiguration) error {
	if c == nil {
		return nil
	}

	ai, err := c.GetAIConfig(cfg.AIProvider)
	if err != nil {
		return err
	}
	setIfNotEmpty(&cfg.APIKey, ai.APIKey)
	setIfNotEmpty(&cfg.BaseURL, ai.BaseURL)
	setIfNotEmpty(&cfg.Model, ai.Model)
	setIfNotEmpty(&cfg.Proxy, ai.Proxy)

	for name, cc := range c.Chains {
		chain, err := internal.ParseChain(name)
		if err != nil {
			return fmt.Errorf("settings.yaml chains: %w", err)
		}
		s := cfg.Chains[chain]
		if cc.ChainID > 0 {
			s.ChainID = cc.ChainID
		}
		if len(cc.RPCURLs) > 0 {
			s.RPCURLs = cc.RPCURLs
		}
		setIfNotEmpty(&s.ExplorerURL, cc.Explorer.BaseURL)
		keys := append([]string{}, cc.Explorer.APIKeys...)
		if cc.Explorer.APIKey != "" {
			keys = append(keys, cc.Explorer.APIKey)
		}
		if len(keys) > 0 {
			s.APIKeys = keys
		}
		cfg.Chains[chain] = s
	}

	setIfNotEmpty(&cfg.ContractsDir, c.Scan.ContractsDir)
	setIfNotEmpty(&cfg.ReportDir, c.Scan.ReportDir)
	setIfNotEmpty(&cfg.ImpactThreshold, c.Scan.Impact)
	setIfNotEmpty(&cfg.SlitherPath, c.Scan.SlitherPath)
	setIfNotEmpty(&cfg.StaticBackend, c.Scan.Backend)
	if c.Scan.Retries > 0 {
		cfg.Retry.MaxAttempts = c.Scan.Retries
	}
	if c.Scan.ExplorerRPS > 0 {
		cfg.ExplorerRPS = c.Scan.ExplorerRPS
	}
	if c.Scan.AITimeout != "" {
		d, err := time.ParseDuration(c.Scan.AITimeout)
		if err != nil {
			return fmt.Errorf("settings.yaml scan.ai_timeout: %w", err)
		}
		cfg.Timeout = d
	}

	m := c.Storage.Minio
	setIfNotEmpty(&cfg.Mirror.Endpoint, m.Endpoint)
	setIfNotEmpty(&cfg.Mirror.AccessKey, m.AccessKey)
	setIfNotEmpty(&cfg.Mirror.SecretKey, m.SecretKey)
	setIfNotEmpty(&cfg.Mirror.Bucket, m.Bucket)
	setIfNotEmpty(&cfg.Mirror.Prefix, m.Prefix)
	cfg.Mirror.UseSSL = cfg.Mirror.UseSSL || m.UseSSL
	return nil
}

func setIfNotEmpty(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
