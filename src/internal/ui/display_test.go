package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestClassifyScore(t *testing.T) {
	tests := []struct {
		score string
		want  ScoreTier
	}{
		{"100", TierSafe},
		{"81", TierSafe},
		{"80", TierCaution},
		{"51", TierCaution},
		{"50", TierDanger},
		{"0", TierDanger},
		{"N/A", TierUnknown},
		{"", TierUnknown},
		{"101", TierUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyScore(tt.score); got != tt.want {
			t.Errorf("ClassifyScore(%q) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestPrintScoreBanner(t *testing.T) {
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)

	if tier := PrintScoreBanner("73"); tier != TierCaution {
		t.Errorf("tier = %v", tier)
	}
	if !strings.Contains(buf.String(), Yellow+"🔐 Final Security Score: 73/100") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	PrintScoreBanner("N/A")
	if !strings.Contains(buf.String(), "Could not determine security score") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSpinnerStop(t *testing.T) {
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)

	stop := StartSpinner("Analyzing")
	time.Sleep(20 * time.Millisecond)
	stop()
	stop()
	if !strings.Contains(buf.String(), "Analyzing") {
		t.Errorf("spinner output = %q", buf.String())
	}
}
