package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/VectorBits/SmartScan/src/internal"
	"github.com/VectorBits/SmartScan/src/internal/logger"
)

// RPCManager 按顺序尝试配置的 RPC 节点，返回第一个可用的
type RPCManager struct {
	chain   internal.Chain
	urls    []string
	timeout time.Duration
	proxy   string
}

func NewRPCManager(chain internal.Chain, urls []string, timeout time.Duration, proxy string) (*RPCManager, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one RPC URL is required for %s", chain)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCManager{
		chain:   chain,
		urls:    urls,
		timeout: timeout,
		proxy:   proxy,
	}, nil
}

func dialEthClient(ctx context.Context, rawURL string, timeout time.Duration, proxy string) (*ethclient.Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("empty rpc url")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		httpClient, err := internal.CreateProxyHTTPClient(proxy, timeout)
		if err != nil {
			return nil, err
		}
		rpcClient, err := rpc.DialOptions(ctx, rawURL, rpc.WithHTTPClient(httpClient))
		if err != nil {
			return nil, err
		}
		return ethclient.NewClient(rpcClient), nil
	default:
		return ethclient.DialContext(ctx, rawURL)
	}
}

// Connect 返回第一个通过 eth_chainId 探测的节点；全部失败时返回 ConnectivityError
func (r *RPCManager) Connect(ctx context.Context) (*ethclient.Client, string, error) {
	var errs []error
	for _, rawURL := range r.urls {
		client, err := dialEthClient(ctx, rawURL, r.timeout, r.proxy)
		if err != nil {
			logger.Debug("dial %s rpc %s failed: %v", r.chain, rawURL, err)
			errs = append(errs, err)
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, r.timeout)
		_, err = client.ChainID(pingCtx)
		cancel()
		if err != nil {
			client.Close()
			logger.Debug("ping %s rpc %s failed: %v", r.chain, rawURL, err)
			errs = append(errs, err)
			continue
		}
		return client, rawURL, nil
	}

	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}
	return nil, "", &internal.ConnectivityError{Chain: r.chain, Err: errors.Join(errs...)}
}
