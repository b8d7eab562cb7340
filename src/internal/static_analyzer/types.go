package static_analyzer

import (
	"fmt"
	"strings"
)

// Impact 检测结果等级，数值越大越严重
type Impact int

const (
	ImpactOptimization Impact = iota
	ImpactInformational
	ImpactLow
	ImpactMedium
	ImpactHigh
	ImpactCritical
)

var impactNames = map[Impact]string{
	ImpactOptimization:  "Optimization",
	ImpactInformational: "Informational",
	ImpactLow:           "Low",
	ImpactMedium:        "Medium",
	ImpactHigh:          "High",
	ImpactCritical:      "Critical",
}

func (i Impact) String() string {
	if s, ok := impactNames[i]; ok {
		return s
	}
	return fmt.Sprintf("Impact(%d)", int(i))
}

func ParseImpact(s string) (Impact, error) {
	for i, name := range impactNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown impact level %q (supported: optimization, informational, low, medium, high, critical)", s)
}

type Finding struct {
	Tool        string
	Check       string
	Impact      Impact
	Confidence  string
	Description string
}

type AnalysisResult struct {
	Findings []Finding
}

// Filter 保留等级不低于 threshold 的结果，顺序不变
func (r *AnalysisResult) Filter(threshold Impact) []Finding {
	if r == nil {
		return nil
	}
	out := make([]Finding, 0, len(r.Findings))
	for _, f := range r.Findings {
		if f.Impact >= threshold {
			out = append(out, f)
		}
	}
	return out
}
