package download

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/VectorBits/SmartScan/src/internal"
	"github.com/VectorBits/SmartScan/src/internal/logger"
)

// explorerTimeout 每次浏览器请求的固定超时
const explorerTimeout = 10 * time.Second

type KeyProvider interface {
	GetRandomKey() string
}

type ExplorerConfig struct {
	Chain             internal.Chain
	BaseURL           string // 完整接口地址，如 https://api.etherscan.io/api
	ChainID           int64
	APIKeys           KeyProvider
	Proxy             string
	RequestsPerSecond float64
}

type EtherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type EtherscanContractInfo struct {
	SourceCode      string `json:"SourceCode"`
	ContractName    string `json:"ContractName"`
	CompilerVersion string `json:"CompilerVersion"`
	Proxy           string `json:"Proxy"`
	Implementation  string `json:"Implementation"`
}

// SourceRecord 已验证的合约源码；Implementation 非空表示浏览器标记为代理合约
type SourceRecord struct {
	SourceCode      string
	ContractName    string
	CompilerVersion string
	Implementation  string
}

// ExplorerClient Etherscan 系浏览器 getsourcecode 接口客户端
type ExplorerClient struct {
	cfg        ExplorerConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewExplorerClient(cfg ExplorerConfig) (*ExplorerClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("explorer base URL is required for %s", cfg.Chain)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("failed to parse explorer base URL: %w", err)
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}

	httpClient, err := internal.CreateProxyHTTPClient(cfg.Proxy, explorerTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create explorer HTTP client: %w", err)
	}

	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &ExplorerClient{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}, nil
}

func (c *ExplorerClient) buildURL(address string) string {
	u, _ := url.Parse(strings.TrimSpace(c.cfg.BaseURL))

	var apiKey string
	if c.cfg.APIKeys != nil {
		apiKey = c.cfg.APIKeys.GetRandomKey()
	}

	q := u.Query()
	q.Set("module", "contract")
	q.Set("action", "getsourcecode")
	q.Set("address", address)
	q.Set("apikey", strings.TrimSpace(apiKey))
	if c.cfg.ChainID > 0 {
		q.Set("chainid", fmt.Sprintf("%d", c.cfg.ChainID))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchVerifiedSource 查询已验证源码
// 未验证返回 *internal.UnverifiedError，网络或解码失败返回 *internal.TransportError
func (c *ExplorerClient) FetchVerifiedSource(ctx context.Context, address string) (*SourceRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(address), nil)
	if err != nil {
		return nil, &internal.TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("User-Agent", "SmartScan/1.0")

	logger.Debug("GET %s getsourcecode %s", c.cfg.Chain, address)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &internal.TransportError{Op: "request explorer API", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &internal.TransportError{Op: "read explorer response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return nil, &internal.TransportError{
			Op:  "explorer API",
			Err: fmt.Errorf("non-2xx status %d, body: %s", resp.StatusCode, snippet),
		}
	}

	var etherscanResp EtherscanResponse
	if err := json.Unmarshal(body, &etherscanResp); err != nil {
		return nil, &internal.TransportError{Op: "decode explorer JSON", Err: err}
	}

	if etherscanResp.Status != "1" {
		return nil, &internal.UnverifiedError{Reason: resultReason(etherscanResp)}
	}

	var infos []EtherscanContractInfo
	if err := json.Unmarshal(etherscanResp.Result, &infos); err != nil {
		return nil, &internal.TransportError{Op: "decode explorer result", Err: err}
	}
	if len(infos) == 0 || strings.TrimSpace(infos[0].SourceCode) == "" {
		return nil, &internal.UnverifiedError{}
	}

	info := infos[0]
	record := &SourceRecord{
		SourceCode:      flattenSource(info.SourceCode),
		ContractName:    info.ContractName,
		CompilerVersion: info.CompilerVersion,
	}
	if strings.TrimSpace(info.Proxy) == "1" {
		record.Implementation = strings.TrimSpace(info.Implementation)
	}
	return record, nil
}

func resultReason(resp EtherscanResponse) string {
	var s string
	if err := json.Unmarshal(resp.Result, &s); err == nil && s != "" {
		return s
	}
	if resp.Message != "" {
		return resp.Message
	}
	return "Unknown error"
}

// flattenSource 将 standard-json 多文件源码展开为单个文本，按路径排序
// 单文件源码原样返回
func flattenSource(source string) string {
	trimmed := strings.TrimSpace(source)
	if !strings.HasPrefix(trimmed, "{") {
		return source
	}
	// Etherscan 对 standard-json 输入会多包一层花括号
	if strings.HasPrefix(trimmed, "{{") && strings.HasSuffix(trimmed, "}}") {
		trimmed = trimmed[1 : len(trimmed)-1]
	}

	type sourceFile struct {
		Content string `json:"content"`
	}
	var standard struct {
		Sources map[string]sourceFile `json:"sources"`
	}
	files := map[string]sourceFile{}
	if err := json.Unmarshal([]byte(trimmed), &standard); err == nil && len(standard.Sources) > 0 {
		files = standard.Sources
	} else if err := json.Unmarshal([]byte(trimmed), &files); err != nil || len(files) == 0 {
		return source
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("// File: " + p + "\n")
		b.WriteString(strings.TrimRight(files[p].Content, "\n"))
	}
	return b.String()
}
