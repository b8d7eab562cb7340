package download

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/VectorBits/SmartScan/src/internal"
	"github.com/VectorBits/SmartScan/src/internal/config"
	"github.com/VectorBits/SmartScan/src/internal/logger"
)

const rpcTimeout = 10 * time.Second

type Connector interface {
	Connect(ctx context.Context) (*ethclient.Client, string, error)
}

// BytecodeClient 通过节点 RPC 读取链上字节码，作为没有源码时的降级路径
type BytecodeClient struct {
	chain internal.Chain
	rpc   Connector
}

func NewBytecodeClient(chain internal.Chain, urls []string, proxy string) (*BytecodeClient, error) {
	rpcManager, err := config.NewRPCManager(chain, urls, rpcTimeout, proxy)
	if err != nil {
		return nil, err
	}
	return &BytecodeClient{chain: chain, rpc: rpcManager}, nil
}

// FetchBytecode 返回 0x 前缀的十六进制字节码，未部署代码的地址返回 "0x"
func (c *BytecodeClient) FetchBytecode(ctx context.Context, address string) (string, error) {
	client, endpoint, err := c.rpc.Connect(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	callCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	code, err := client.CodeAt(callCtx, common.HexToAddress(address), nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &internal.TransportError{Op: "eth_getCode", Err: err}
	}

	logger.Debug("fetched %d bytes of code for %s via %s", len(code), address, endpoint)
	return hexutil.Encode(code), nil
}
