package config

import (
	"math/rand"
	"sync"
	"time"
)

// APIKeyManager 在多个浏览器 API Key 之间随机分摊请求
type APIKeyManager struct {
	apiKeys []string
	mutex   sync.Mutex
	rng     *rand.Rand
}

func NewAPIKeyManager(apiKeys []string) *APIKeyManager {
	validKeys := make([]string, 0, len(apiKeys))
	seen := make(map[string]struct{}, len(apiKeys))
	for _, key := range apiKeys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		validKeys = append(validKeys, key)
	}

	return &APIKeyManager{
		apiKeys: validKeys,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetRandomKey 没有 key 时返回空串，请求照发，由浏览器返回错误
func (m *APIKeyManager) GetRandomKey() string {
	if m == nil || len(m.apiKeys) == 0 {
		return ""
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.apiKeys[m.rng.Intn(len(m.apiKeys))]
}

func (m *APIKeyManager) GetKeyCount() int {
	if m == nil {
		return 0
	}
	return len(m.apiKeys)
}

func (m *APIKeyManager) HasKeys() bool {
	return m.GetKeyCount() > 0
}
