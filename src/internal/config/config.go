package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/VectorBits/SmartScan/src/internal"
)

// 每条链的浏览器 API Key 和 RPC 环境变量
var chainEnv = map[internal.Chain]struct {
	APIKey string
	RPCURL string
}{
	internal.ChainEth:     {"ETHERSCAN_API_KEY", "ETH_RPC_URL"},
	internal.ChainBSC:     {"BSCSCAN_API_KEY", "BSC_RPC_URL"},
	internal.ChainPolygon: {"POLYGONSCAN_API_KEY", "POLYGON_RPC_URL"},
}

var aiEnv = map[string]string{
	"gemini":  "GEMINI_API_KEY",
	"openai":  "OPENAI_API_KEY",
	"chatgpt": "OPENAI_API_KEY",
	"gpt4":    "OPENAI_API_KEY",
}

// LoadDotEnv 加载 .env，已存在的环境变量优先
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv 环境变量覆盖配置文件
func ApplyEnv(cfg *ScanConfiguration) {
	for chain, names := range chainEnv {
		s := cfg.Chains[chain]
		if keys := splitList(getEnv(names.APIKey, "")); len(keys) > 0 {
			s.APIKeys = keys
		}
		if urls := splitList(getEnv(names.RPCURL, "")); len(urls) > 0 {
			s.RPCURLs = urls
		}
		cfg.Chains[chain] = s
	}

	if name, ok := aiEnv[strings.ToLower(cfg.AIProvider)]; ok {
		cfg.APIKey = getEnv(name, cfg.APIKey)
	}

	cfg.Mirror.Endpoint = getEnv("SMARTSCAN_MINIO_ENDPOINT", cfg.Mirror.Endpoint)
	cfg.Mirror.AccessKey = getEnv("SMARTSCAN_MINIO_ACCESS_KEY", cfg.Mirror.AccessKey)
	cfg.Mirror.SecretKey = getEnv("SMARTSCAN_MINIO_SECRET_KEY", cfg.Mirror.SecretKey)
	cfg.Mirror.Bucket = getEnv("SMARTSCAN_MINIO_BUCKET", cfg.Mirror.Bucket)
	cfg.Mirror.UseSSL = getEnvAsBool("SMARTSCAN_MINIO_USE_SSL", cfg.Mirror.UseSSL)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
