package handler

import (
	"context"
	"strings"
	"testing"

	"github.com/VectorBits/SmartScan/src/internal"
	"github.com/VectorBits/SmartScan/src/internal/config"
	"github.com/VectorBits/SmartScan/src/internal/metrics"
)

func TestBuildScannerRejectsUnknownStaticBackend(t *testing.T) {
	cfg := config.DefaultScanConfiguration()
	cfg.Chain = internal.ChainEth
	cfg.StaticBackend = "mythril"

	_, err := BuildScanner(context.Background(), cfg, "test", "default", metrics.NewScanMetrics())
	if err == nil || !strings.Contains(err.Error(), "unsupported backend: mythril") {
		t.Fatalf("BuildScanner err = %v, want unsupported backend", err)
	}
}
