package download

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/VectorBits/SmartScan/src/internal"
)

const (
	proxyAddr = "0x00000000000000000000000000000000000000a1"
	implAddr  = "0x00000000000000000000000000000000000000b2"
	deepAddr  = "0x00000000000000000000000000000000000000c3"
)

type fakeExplorer struct {
	records map[string]*SourceRecord
	errs    map[string]error
	calls   []string
}

func (f *fakeExplorer) FetchVerifiedSource(_ context.Context, address string) (*SourceRecord, error) {
	f.calls = append(f.calls, address)
	if err, ok := f.errs[address]; ok {
		return nil, err
	}
	if rec, ok := f.records[address]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, &internal.UnverifiedError{}
}

type fakeBytecode struct {
	code  string
	err   error
	calls int
}

func (f *fakeBytecode) FetchBytecode(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.code, f.err
}

func TestResolveVerifiedSource(t *testing.T) {
	ex := &fakeExplorer{records: map[string]*SourceRecord{
		proxyAddr: {SourceCode: "contract A {}", ContractName: "A"},
	}}
	bc := &fakeBytecode{code: "0x6080"}

	src, err := NewResolver(ex, bc).Resolve(context.Background(), proxyAddr)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if internal.Deref(src.SourceCode, "") != "contract A {}" || src.ImplementationCode != nil || src.Bytecode != nil {
		t.Fatalf("unexpected source: %+v", src)
	}
	if bc.calls != 0 {
		t.Errorf("bytecode fetched %d times for verified contract", bc.calls)
	}
}

func TestResolveFallbackToBytecode(t *testing.T) {
	explorerErrs := []error{
		&internal.UnverifiedError{Reason: "Contract source code not verified"},
		&internal.UnverifiedError{},
		&internal.TransportError{Op: "request explorer API", Err: errors.New("timeout")},
	}

	for _, explorerErr := range explorerErrs {
		t.Run(explorerErr.Error(), func(t *testing.T) {
			ex := &fakeExplorer{errs: map[string]error{proxyAddr: explorerErr}}
			bc := &fakeBytecode{code: "0x6080604052"}

			src, err := NewResolver(ex, bc).Resolve(context.Background(), proxyAddr)
			if src == nil {
				t.Fatal("expected bytecode-only source")
			}
			if src.SourceCode != nil || src.ImplementationCode != nil {
				t.Errorf("bytecode-only source carries text: %+v", src)
			}
			if internal.Deref(src.Bytecode, "") != "0x6080604052" {
				t.Errorf("bytecode = %v", src.Bytecode)
			}
			if err != explorerErr {
				t.Errorf("non-fatal error = %v, want original explorer error", err)
			}
		})
	}
}

func TestResolveBothFail(t *testing.T) {
	ex := &fakeExplorer{errs: map[string]error{proxyAddr: &internal.UnverifiedError{Reason: "NOTOK"}}}
	bc := &fakeBytecode{err: &internal.ConnectivityError{Chain: internal.ChainEth, Err: errors.New("refused")}}

	src, err := NewResolver(ex, bc).Resolve(context.Background(), proxyAddr)
	if src != nil {
		t.Fatalf("expected nil source, got %+v", src)
	}
	if !errors.Is(err, internal.ErrResolution) {
		t.Fatalf("error = %v, want ErrResolution", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "NOTOK") || !strings.Contains(msg, "Failed to connect to eth RPC") {
		t.Errorf("combined error lost a reason: %q", msg)
	}
}

func TestResolveProxy(t *testing.T) {
	ex := &fakeExplorer{records: map[string]*SourceRecord{
		proxyAddr: {SourceCode: "contract Proxy {}", Implementation: implAddr},
		implAddr:  {SourceCode: "contract Impl {}"},
	}}

	src, err := NewResolver(ex, &fakeBytecode{}).Resolve(context.Background(), proxyAddr)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if internal.Deref(src.SourceCode, "") != "contract Proxy {}" {
		t.Errorf("SourceCode = %v", src.SourceCode)
	}
	if internal.Deref(src.ImplementationCode, "") != "contract Impl {}" {
		t.Errorf("ImplementationCode = %v", src.ImplementationCode)
	}
	if src.ImplementationAddress != implAddr {
		t.Errorf("ImplementationAddress = %q", src.ImplementationAddress)
	}
}

func TestResolveProxyDepthLimit(t *testing.T) {
	ex := &fakeExplorer{records: map[string]*SourceRecord{
		proxyAddr: {SourceCode: "contract Proxy {}", Implementation: implAddr},
		implAddr:  {SourceCode: "contract Impl {}", Implementation: deepAddr},
		deepAddr:  {SourceCode: "contract Deep {}"},
	}}

	src, err := NewResolver(ex, &fakeBytecode{}).Resolve(context.Background(), proxyAddr)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if internal.Deref(src.ImplementationCode, "") != "contract Impl {}" {
		t.Errorf("ImplementationCode = %v", src.ImplementationCode)
	}
	if want := []string{proxyAddr, implAddr}; !reflect.DeepEqual(ex.calls, want) {
		t.Fatalf("explorer calls = %v, want %v", ex.calls, want)
	}
}

func TestResolveFollowsChainUpToMaxDepth(t *testing.T) {
	tests := []struct {
		name      string
		records   map[string]*SourceRecord
		maxDepth  int
		wantCode  string
		wantCalls []string
	}{
		{
			name: "two levels",
			records: map[string]*SourceRecord{
				proxyAddr: {SourceCode: "contract Proxy {}", Implementation: implAddr},
				implAddr:  {SourceCode: "contract Impl {}", Implementation: deepAddr},
				deepAddr:  {SourceCode: "contract Deep {}"},
			},
			maxDepth:  2,
			wantCode:  "contract Deep {}",
			wantCalls: []string{proxyAddr, implAddr, deepAddr},
		},
		{
			name: "loop back to proxy",
			records: map[string]*SourceRecord{
				proxyAddr: {SourceCode: "contract Proxy {}", Implementation: implAddr},
				implAddr:  {SourceCode: "contract Impl {}", Implementation: proxyAddr},
			},
			maxDepth:  3,
			wantCode:  "contract Impl {}",
			wantCalls: []string{proxyAddr, implAddr},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExplorer{records: tt.records}
			r := NewResolver(ex, &fakeBytecode{})
			r.maxDepth = tt.maxDepth

			src, err := r.Resolve(context.Background(), proxyAddr)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got := internal.Deref(src.ImplementationCode, ""); got != tt.wantCode {
				t.Errorf("ImplementationCode = %q, want %q", got, tt.wantCode)
			}
			if !reflect.DeepEqual(ex.calls, tt.wantCalls) {
				t.Errorf("explorer calls = %v, want %v", ex.calls, tt.wantCalls)
			}
		})
	}
}

func TestResolveImplementationFailureIsBestEffort(t *testing.T) {
	ex := &fakeExplorer{
		records: map[string]*SourceRecord{proxyAddr: {SourceCode: "contract Proxy {}", Implementation: implAddr}},
		errs:    map[string]error{implAddr: &internal.TransportError{Op: "request", Err: errors.New("reset")}},
	}
	bc := &fakeBytecode{code: "0x00"}

	src, err := NewResolver(ex, bc).Resolve(context.Background(), proxyAddr)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if src.SourceCode == nil || src.ImplementationCode != nil {
		t.Fatalf("unexpected source: %+v", src)
	}
	if bc.calls != 0 {
		t.Errorf("implementation lookup must not fall back to bytecode")
	}
}

func TestResolveSelfReferencingProxy(t *testing.T) {
	ex := &fakeExplorer{records: map[string]*SourceRecord{
		proxyAddr: {SourceCode: "contract Proxy {}", Implementation: strings.ToUpper(proxyAddr[:2]) + proxyAddr[2:]},
	}}

	src, err := NewResolver(ex, &fakeBytecode{}).Resolve(context.Background(), proxyAddr)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if src.ImplementationCode != nil || len(ex.calls) != 1 {
		t.Fatalf("self reference followed: calls=%v", ex.calls)
	}
}

func TestResolveIdempotent(t *testing.T) {
	ex := &fakeExplorer{records: map[string]*SourceRecord{
		proxyAddr: {SourceCode: "contract Proxy {}", Implementation: implAddr},
		implAddr:  {SourceCode: "contract Impl {}"},
	}}
	r := NewResolver(ex, &fakeBytecode{})

	first, err1 := r.Resolve(context.Background(), proxyAddr)
	second, err2 := r.Resolve(context.Background(), proxyAddr)
	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v, %v", err1, err2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestResolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := &fakeExplorer{errs: map[string]error{proxyAddr: context.Canceled}}
	bc := &fakeBytecode{code: "0x00"}

	_, err := NewResolver(ex, bc).Resolve(ctx, proxyAddr)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if bc.calls != 0 {
		t.Error("canceled scan must not fall back to bytecode")
	}
}
