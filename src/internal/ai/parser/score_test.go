package parser

import "testing"

func TestExtractScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"trailing line", "Looks fine overall.\n\nSecurity Score: 73/100", "73"},
		{"no line", "The model forgot the score.", "N/A"},
		{"no space", "Security Score:85/100", "85"},
		{"zero", "Security Score: 0/100", "0"},
		{"hundred", "Security Score: 100/100", "100"},
		{"out of range", "Security Score: 150/100", "N/A"},
		{"first wins", "Security Score: 40/100\nRevised Security Score: 90/100", "40"},
		{"wrong scale", "Security Score: 7/10", "N/A"},
		{"bold markdown", "**Security Score: 62/100**", "62"},
		{"empty", "", "N/A"},
		{"leading zero kept", "Security Score: 073/100", "073"},
		{"four digits", "Security Score: 0150/100", "N/A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractScore(tt.text); got != tt.want {
				t.Errorf("ExtractScore(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseStripsCodeFence(t *testing.T) {
	res := Parse("```markdown\n## Findings\nNone.\nSecurity Score: 91/100\n```")
	if res.Score != "91" {
		t.Errorf("Score = %q", res.Score)
	}
	if res.Text != "## Findings\nNone.\nSecurity Score: 91/100" {
		t.Errorf("Text = %q", res.Text)
	}

	res = Parse("  plain answer  ")
	if res.Text != "plain answer" || res.Score != ScoreUnavailable {
		t.Errorf("res = %+v", res)
	}
}
