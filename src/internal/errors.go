package internal

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAddress   = errors.New("invalid contract address")
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrNotVerified      = errors.New("contract source not verified")
	ErrConnectivity     = errors.New("rpc node unreachable")
	ErrTransport        = errors.New("transport error")
	ErrResolution       = errors.New("contract resolution failed")
	ErrReportExists     = errors.New("report already exists")
	ErrNoCode           = errors.New("no contract code")
)

type InvalidAddressError struct {
	Address string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("Invalid Ethereum address format: %q (expected 0x followed by 40 hex characters)", e.Address)
}

func (e *InvalidAddressError) Is(target error) bool { return target == ErrInvalidAddress }

// UnverifiedError 浏览器没有可用的已验证源码
type UnverifiedError struct {
	Reason string
}

func (e *UnverifiedError) Error() string {
	if e.Reason == "" {
		return "Contract is not verified or source code not available."
	}
	return "Error fetching contract: " + e.Reason
}

func (e *UnverifiedError) Is(target error) bool { return target == ErrNotVerified }

type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Network error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

type ConnectivityError struct {
	Chain Chain
	Err   error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("Failed to connect to %s RPC: %v", e.Chain, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }

// NoCodeError RPC 返回空字节码，地址上没有部署合约
type NoCodeError struct {
	Address string
}

func (e *NoCodeError) Error() string {
	return "no contract code at " + e.Address
}

func (e *NoCodeError) Is(target error) bool { return target == ErrNoCode }

// ResolveError 浏览器和 RPC 都失败时返回，两个原因都保留
type ResolveError struct {
	ExplorerErr error
	BytecodeErr error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%v\nError fetching bytecode: %v", e.ExplorerErr, e.BytecodeErr)
}

func (e *ResolveError) Unwrap() []error {
	return []error{e.ExplorerErr, e.BytecodeErr}
}

func (e *ResolveError) Is(target error) bool { return target == ErrResolution }

type ReportExistsError struct {
	Path string
}

func (e *ReportExistsError) Error() string {
	return fmt.Sprintf("Report already exists: %s. Use --overwrite to replace it.", e.Path)
}

func (e *ReportExistsError) Is(target error) bool { return target == ErrReportExists }
