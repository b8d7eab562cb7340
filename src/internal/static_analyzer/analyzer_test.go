package static_analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseImpact(t *testing.T) {
	tests := []struct {
		in      string
		want    Impact
		wantErr bool
	}{
		{"High", ImpactHigh, false},
		{"medium", ImpactMedium, false},
		{" Informational ", ImpactInformational, false},
		{"CRITICAL", ImpactCritical, false},
		{"severe", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseImpact(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseImpact(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseImpact(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFilter(t *testing.T) {
	r := &AnalysisResult{Findings: []Finding{
		{Check: "a", Impact: ImpactLow},
		{Check: "b", Impact: ImpactHigh},
		{Check: "c", Impact: ImpactMedium},
		{Check: "d", Impact: ImpactInformational},
	}}

	got := r.Filter(ImpactMedium)
	if len(got) != 2 || got[0].Check != "b" || got[1].Check != "c" {
		t.Errorf("Filter(Medium) = %+v", got)
	}
	if len(r.Filter(ImpactOptimization)) != 4 {
		t.Error("Filter(Optimization) should keep everything")
	}

	var nilResult *AnalysisResult
	if nilResult.Filter(ImpactLow) != nil {
		t.Error("nil result should filter to nil")
	}
}

type stubAnalyzer struct {
	name     string
	findings []Finding
	err      error
}

func (s *stubAnalyzer) AnalyzeContract(ctx context.Context, contractFile string) (*AnalysisResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &AnalysisResult{Findings: s.findings}, nil
}

func (s *stubAnalyzer) Name() string { return s.name }

func (s *stubAnalyzer) Close() error { return nil }

func TestCompositeAnalyzerPartialFailure(t *testing.T) {
	slitherErr := errors.New("solc not found")
	c := &compositeAnalyzer{analyzers: []Analyzer{
		&stubAnalyzer{name: "slither", err: slitherErr},
		&stubAnalyzer{name: "bytecode", findings: []Finding{{Check: "selfdestruct", Impact: ImpactHigh}}},
	}}

	res, err := c.AnalyzeContract(context.Background(), "x.bin")
	if !errors.Is(err, slitherErr) {
		t.Fatalf("err = %v, want wrapped slither error", err)
	}
	if res == nil || len(res.Findings) != 1 || res.Findings[0].Check != "selfdestruct" {
		t.Fatalf("res = %+v", res)
	}
	if c.Name() != "slither+bytecode" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestBytecodeAdapter(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "eth_0xabc.bin")
	if err := os.WriteFile(bin, []byte("0x6000ff\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sol := filepath.Join(dir, "eth_0xabc.sol")
	if err := os.WriteFile(sol, []byte("contract A {}"), 0644); err != nil {
		t.Fatal(err)
	}

	a := &bytecodeAdapter{}
	res, err := a.AnalyzeContract(context.Background(), bin)
	if err != nil {
		t.Fatalf("AnalyzeContract(.bin): %v", err)
	}
	if len(res.Findings) != 1 || res.Findings[0].Impact != ImpactHigh || res.Findings[0].Tool != "bytecode" {
		t.Errorf("findings = %+v", res.Findings)
	}

	res, err = a.AnalyzeContract(context.Background(), sol)
	if err != nil || len(res.Findings) != 0 {
		t.Errorf("AnalyzeContract(.sol) = %+v, %v", res, err)
	}
}

func TestNewAnalyzer(t *testing.T) {
	tests := []struct {
		cfg      AnalyzerConfig
		wantName string
		wantErr  bool
	}{
		{AnalyzerConfig{Enabled: false, Backend: BackendAuto}, "noop", false},
		{AnalyzerConfig{Enabled: true, Backend: BackendAuto}, "slither+bytecode", false},
		{AnalyzerConfig{Enabled: true}, "slither+bytecode", false},
		{AnalyzerConfig{Enabled: true, Backend: BackendBytecode}, "bytecode", false},
		{AnalyzerConfig{Enabled: true, Backend: "mythril"}, "", true},
	}
	for _, tt := range tests {
		a, err := NewAnalyzer(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewAnalyzer(%+v) error = %v", tt.cfg, err)
			continue
		}
		if !tt.wantErr && a.Name() != tt.wantName {
			t.Errorf("NewAnalyzer(%+v).Name() = %q, want %q", tt.cfg, a.Name(), tt.wantName)
		}
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    BackendType
		wantErr bool
	}{
		{"", BackendAuto, false},
		{"auto", BackendAuto, false},
		{" Slither ", BackendSlither, false},
		{"BYTECODE", BackendBytecode, false},
		{"noop", BackendNoOp, false},
		{"mythril", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackend(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
