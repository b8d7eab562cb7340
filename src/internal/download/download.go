package download

import (
	"context"
	"errors"
	"strings"

	"github.com/VectorBits/SmartScan/src/internal"
	"github.com/VectorBits/SmartScan/src/internal/logger"
)

// 代理合约只向下解析一层
const maxProxyDepth = 1

type SourceFetcher interface {
	FetchVerifiedSource(ctx context.Context, address string) (*SourceRecord, error)
}

type BytecodeFetcher interface {
	FetchBytecode(ctx context.Context, address string) (string, error)
}

// Resolver 源码优先，失败时降级到字节码，并解析一层代理实现合约
type Resolver struct {
	explorer SourceFetcher
	bytecode BytecodeFetcher
	maxDepth int
}

func NewResolver(explorer SourceFetcher, bytecode BytecodeFetcher) *Resolver {
	return &Resolver{explorer: explorer, bytecode: bytecode, maxDepth: maxProxyDepth}
}

// Resolve 返回值组合:
//   - (src, nil)       取到已验证源码
//   - (src, explorerErr) 仅取到字节码，explorerErr 说明为什么没有源码
//   - (nil, *internal.ResolveError) 浏览器和 RPC 都失败
func (r *Resolver) Resolve(ctx context.Context, address string) (*internal.ContractSource, error) {
	record, explorerErr := r.explorer.FetchVerifiedSource(ctx, address)
	if explorerErr != nil {
		if errors.Is(explorerErr, context.Canceled) || errors.Is(explorerErr, context.DeadlineExceeded) {
			return nil, explorerErr
		}
		logger.InfoFileOnly("no verified source for %s: %v", address, explorerErr)

		bytecode, bytecodeErr := r.bytecode.FetchBytecode(ctx, address)
		if bytecodeErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &internal.ResolveError{ExplorerErr: explorerErr, BytecodeErr: bytecodeErr}
		}
		return &internal.ContractSource{Bytecode: internal.StrPtr(bytecode)}, explorerErr
	}

	src := &internal.ContractSource{
		SourceCode:      internal.StrPtr(record.SourceCode),
		ContractName:    record.ContractName,
		CompilerVersion: record.CompilerVersion,
	}

	impl := strings.TrimSpace(record.Implementation)
	if impl != "" && !strings.EqualFold(impl, address) {
		src.ImplementationAddress = impl
		if code, ok := r.resolveImplementation(ctx, address, impl); ok {
			src.ImplementationCode = internal.StrPtr(code)
		}
	}
	return src, nil
}

// resolveImplementation 沿代理链最多走 maxDepth 层，只查浏览器，返回最后取到的实现源码
func (r *Resolver) resolveImplementation(ctx context.Context, proxy, impl string) (string, bool) {
	seen := map[string]bool{strings.ToLower(proxy): true}
	var code string
	found := false
	for depth := 1; impl != "" && depth <= r.maxDepth; depth++ {
		key := strings.ToLower(impl)
		if seen[key] {
			logger.InfoFileOnly("proxy chain loops back to %s, stopping", impl)
			return code, found
		}
		seen[key] = true

		rec, err := r.explorer.FetchVerifiedSource(ctx, impl)
		if err != nil {
			logger.Warn("Implementation %s source unavailable: %v", impl, err)
			return code, found
		}
		code, found = rec.SourceCode, true
		next := strings.TrimSpace(rec.Implementation)
		if next != "" && depth == r.maxDepth {
			logger.InfoFileOnly("implementation %s is itself a proxy to %s, not following", impl, next)
		}
		impl = next
	}
	return code, found
}
