package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// ScoreUnavailable 无法提取分数时的占位值
const ScoreUnavailable = "N/A"

var scorePattern = regexp.MustCompile(`Security Score:\s*(\d{1,3})/100`)

// AuditResult 一次 LLM 审计的原始文本和提取出的分数
type AuditResult struct {
	Text  string
	Score string
}

// ExtractScore 取第一个 "Security Score: NN/100"，超出 0-100 视为无效
// 有效时原样返回匹配到的数字文本，"073" 不会被改写成 "73"
func ExtractScore(text string) string {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return ScoreUnavailable
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > 100 {
		return ScoreUnavailable
	}
	return m[1]
}

// Parse 清理模型输出并提取分数
func Parse(response string) *AuditResult {
	text := cleanResponse(response)
	return &AuditResult{Text: text, Score: ExtractScore(text)}
}

// cleanResponse 去掉包裹整段回答的 markdown 代码块
func cleanResponse(response string) string {
	s := strings.TrimSpace(response)
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) > 6 {
		s = strings.TrimSuffix(s, "```")
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
	}
	return s
}
