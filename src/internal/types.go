package internal

import (
	"fmt"
	"strings"
)

// Chain 支持的链标识
type Chain string

const (
	ChainEth     Chain = "eth"
	ChainBSC     Chain = "bsc"
	ChainPolygon Chain = "polygon"
)

// SupportedChains 按帮助信息中的展示顺序排列
var SupportedChains = []Chain{ChainEth, ChainBSC, ChainPolygon}

func (c Chain) String() string {
	return string(c)
}

// ParseChain 解析 -chain 参数，大小写不敏感
func ParseChain(s string) (Chain, error) {
	v := Chain(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range SupportedChains {
		if v == c {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q, supported chains: %v", ErrUnsupportedChain, s, SupportedChains)
}

// ContractSource 合约解析结果
// 三个字段都是可选的，nil 表示未获取到，与空字符串区分
type ContractSource struct {
	SourceCode         *string // 外层合约（代理合约）源码
	ImplementationCode *string // 实现合约源码，仅代理解析成功时存在
	Bytecode           *string // 无源码时的链上字节码

	ContractName          string
	CompilerVersion       string
	ImplementationAddress string
}

func (s *ContractSource) HasSource() bool {
	return s != nil && (s.SourceCode != nil || s.ImplementationCode != nil)
}

func (s *ContractSource) BytecodeOnly() bool {
	return s != nil && !s.HasSource() && s.Bytecode != nil
}

// StrPtr 返回字符串指针
func StrPtr(s string) *string {
	return &s
}

// Deref 空指针返回 fallback
func Deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
