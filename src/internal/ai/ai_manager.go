package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/VectorBits/SmartScan/src/internal/ai/parser"
	"github.com/VectorBits/SmartScan/src/internal/logger"
)

// Manager 包装 AI 客户端：限速、超时、结果解析
type Manager struct {
	client  AIClient
	limiter *rate.Limiter
	timeout time.Duration
}

// multiAIClient 多个 API key 时轮询使用
type multiAIClient struct {
	clients []AIClient
	next    uint32
}

func (m *multiAIClient) pick() AIClient {
	idx := atomic.AddUint32(&m.next, 1) - 1
	return m.clients[int(idx)%len(m.clients)]
}

func (m *multiAIClient) Analyze(ctx context.Context, prompt string) (string, error) {
	return m.pick().Analyze(ctx, prompt)
}

func (m *multiAIClient) GetName() string {
	if len(m.clients) == 0 {
		return "multi"
	}
	return fmt.Sprintf("%s x%d", m.clients[0].GetName(), len(m.clients))
}

func (m *multiAIClient) Close() error {
	for _, c := range m.clients {
		if c != nil {
			_ = c.Close()
		}
	}
	return nil
}

func parseAPIKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\t' || r == ' '
	})
	keys := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, p := range parts {
		k := strings.TrimSpace(p)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

type ManagerConfig struct {
	Provider       string
	APIKey         string // 可用逗号分隔多个 key
	BaseURL        string
	Model          string
	Timeout        time.Duration
	Proxy          string
	RequestsPerMin int
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	keys := parseAPIKeys(cfg.APIKey)
	if len(keys) == 0 {
		return nil, fmt.Errorf("no API key configured for provider %q", cfg.Provider)
	}

	clients := make([]AIClient, 0, len(keys))
	for _, key := range keys {
		c, err := NewAIClient(AIClientConfig{
			Provider: cfg.Provider,
			APIKey:   key,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
			Proxy:    cfg.Proxy,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AI client: %w", err)
		}
		clients = append(clients, c)
	}

	var client AIClient = clients[0]
	if len(clients) > 1 {
		client = &multiAIClient{clients: clients}
	}
	return NewManagerWithClient(client, cfg.Timeout, cfg.RequestsPerMin*len(keys)), nil
}

// NewManagerWithClient 直接使用给定客户端
func NewManagerWithClient(client AIClient, timeout time.Duration, requestsPerMin int) *Manager {
	if requestsPerMin <= 0 {
		requestsPerMin = 20
	}
	return &Manager{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMin)), 1),
		timeout: timeout,
	}
}

// AnalyzeContract 发送审计提示词并提取分数
func (m *Manager) AnalyzeContract(ctx context.Context, prompt string) (*parser.AuditResult, error) {
	reqCtx := ctx
	cancel := func() {}
	if m.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, m.timeout)
	}
	defer cancel()

	if err := m.limiter.Wait(reqCtx); err != nil {
		return nil, err
	}

	logger.InfoFileOnly("AI request: client=%s prompt_sha256=%s prompt_len=%d", m.client.GetName(), hashForLog(prompt), len(prompt))
	start := time.Now()
	response, err := m.client.Analyze(reqCtx, prompt)
	if err != nil {
		logger.InfoFileOnly("AI request failed after %v: %v", time.Since(start), err)
		return nil, err
	}
	result := parser.Parse(response)
	logger.InfoFileOnly("AI response: duration=%v len=%d score=%s", time.Since(start), len(response), result.Score)
	return result, nil
}

func hashForLog(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) GetClientInfo() string {
	return m.client.GetName()
}

func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
