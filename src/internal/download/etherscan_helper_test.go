package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/VectorBits/SmartScan/src/internal"
)

type staticKey string

func (k staticKey) GetRandomKey() string { return string(k) }

func newTestExplorer(t *testing.T, handler http.HandlerFunc) *ExplorerClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewExplorerClient(ExplorerConfig{
		Chain:             internal.ChainEth,
		BaseURL:           srv.URL + "/api",
		APIKeys:           staticKey("test-key"),
		RequestsPerSecond: 100,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestFetchVerifiedSource(t *testing.T) {
	const addr = "0x00000000000000000000000000000000000000a1"

	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		wantSrc   string
		wantImpl  string
		errSubstr string
	}{
		{
			name:    "verified",
			status:  200,
			body:    `{"status":"1","message":"OK","result":[{"SourceCode":"contract A {}","ContractName":"A","Proxy":"0","Implementation":""}]}`,
			wantSrc: "contract A {}",
		},
		{
			name:     "proxy",
			status:   200,
			body:     `{"status":"1","message":"OK","result":[{"SourceCode":"contract P {}","Proxy":"1","Implementation":"0x00000000000000000000000000000000000000b2"}]}`,
			wantSrc:  "contract P {}",
			wantImpl: "0x00000000000000000000000000000000000000b2",
		},
		{
			name:    "proxy flag without implementation",
			status:  200,
			body:    `{"status":"1","message":"OK","result":[{"SourceCode":"contract P {}","Proxy":"1","Implementation":""}]}`,
			wantSrc: "contract P {}",
		},
		{
			name:      "status not ok",
			status:    200,
			body:      `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`,
			wantErr:   internal.ErrNotVerified,
			errSubstr: "Invalid API Key",
		},
		{
			name:      "empty source",
			status:    200,
			body:      `{"status":"1","message":"OK","result":[{"SourceCode":""}]}`,
			wantErr:   internal.ErrNotVerified,
			errSubstr: "not verified",
		},
		{
			name:    "server error",
			status:  502,
			body:    `bad gateway`,
			wantErr: internal.ErrTransport,
		},
		{
			name:    "garbage body",
			status:  200,
			body:    `<html>`,
			wantErr: internal.ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestExplorer(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("module") != "contract" || q.Get("action") != "getsourcecode" || q.Get("address") != addr || q.Get("apikey") != "test-key" {
					t.Errorf("unexpected query: %s", r.URL.RawQuery)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			rec, err := c.FetchVerifiedSource(context.Background(), addr)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if tt.errSubstr != "" && !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("error %q does not mention %q", err, tt.errSubstr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.SourceCode != tt.wantSrc || rec.Implementation != tt.wantImpl {
				t.Errorf("record = %+v", rec)
			}
		})
	}
}

func TestFetchVerifiedSourceSendsChainID(t *testing.T) {
	tests := []struct {
		chain   internal.Chain
		chainID int64
		want    string
	}{
		{internal.ChainEth, 1, "1"},
		{internal.ChainBSC, 56, "56"},
		{internal.ChainPolygon, 137, "137"},
	}
	for _, tt := range tests {
		t.Run(tt.chain.String(), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v2/api" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("chainid"); got != tt.want {
					t.Errorf("chainid = %q, want %q", got, tt.want)
				}
				w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"contract A {}"}]}`))
			}))
			defer srv.Close()

			c, err := NewExplorerClient(ExplorerConfig{
				Chain:             tt.chain,
				BaseURL:           srv.URL + "/v2/api",
				ChainID:           tt.chainID,
				APIKeys:           staticKey("test-key"),
				RequestsPerSecond: 100,
			})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := c.FetchVerifiedSource(context.Background(), "0x00000000000000000000000000000000000000a1"); err != nil {
				t.Fatalf("FetchVerifiedSource: %v", err)
			}
		})
	}
}

func TestFetchVerifiedSourceUnreachable(t *testing.T) {
	c, err := NewExplorerClient(ExplorerConfig{Chain: internal.ChainBSC, BaseURL: "http://127.0.0.1:1/api"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.FetchVerifiedSource(context.Background(), "0x0000000000000000000000000000000000000001")
	if !errors.Is(err, internal.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestFlattenSource(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  []string
		plain bool
	}{
		{name: "single file", in: "pragma solidity ^0.8.0;", plain: true},
		{
			name: "standard json double braces",
			in:   `{{"language":"Solidity","sources":{"b/B.sol":{"content":"contract B {}"},"a/A.sol":{"content":"contract A {}"}}}}`,
			want: []string{"// File: a/A.sol\ncontract A {}", "// File: b/B.sol\ncontract B {}"},
		},
		{
			name: "multi file map",
			in:   `{"Token.sol":{"content":"contract Token {}"}}`,
			want: []string{"// File: Token.sol\ncontract Token {}"},
		},
		{name: "broken json", in: `{not json`, plain: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flattenSource(tt.in)
			if tt.plain {
				if got != tt.in {
					t.Fatalf("flattenSource changed plain input: %q", got)
				}
				return
			}
			last := -1
			for _, w := range tt.want {
				idx := strings.Index(got, w)
				if idx < 0 {
					t.Fatalf("output missing %q:\n%s", w, got)
				}
				if idx < last {
					t.Fatalf("files not sorted by path:\n%s", got)
				}
				last = idx
			}
		})
	}
}
