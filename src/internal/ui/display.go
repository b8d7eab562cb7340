package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"
	Bold   = "\033[1m"
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stdout
)

// SetOutput 替换控制台输出，返回原来的 writer
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

func PrintBanner() {
	banner := `
  ____                       _   ____
 / ___| _ __ ___   __ _ _ __| |_/ ___|  ___ __ _ _ __
 \___ \| '_ ` + "`" + ` _ \ / _` + "`" + ` | '__| __\___ \ / __/ _` + "`" + ` | '_ \
  ___) | | | | | | (_| | |  | |_ ___) | (_| (_| | | | |
 |____/|_| |_| |_|\__,_|_|   \__|____/ \___\__,_|_| |_|
`
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(out, Cyan+banner+Reset)
	fmt.Fprintln(out, Gray+"  v1.0.0 - EVM Smart Contract Security Scanner"+Reset)
	fmt.Fprintln(out)
}

func clearLine() {
	fmt.Fprint(out, "\r\033[K")
}

func printf(color, prefix, format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	clearLine()
	fmt.Fprintf(out, color+prefix+format+Reset+"\n", a...)
}

// Println 整行输出，先清掉 spinner 所在行
func Println(line string) {
	mu.Lock()
	defer mu.Unlock()
	clearLine()
	fmt.Fprintln(out, line)
}

// Step 流程提示，例如 "🔍 Fetching contract ..."
func Step(format string, a ...interface{}) {
	printf(Cyan, "", format, a...)
}

func LogSuccess(format string, a ...interface{}) {
	printf(Green, "", format, a...)
}

func LogWarn(format string, a ...interface{}) {
	printf(Yellow, "", format, a...)
}

func LogInfo(format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	clearLine()
	fmt.Fprintf(out, Blue+"[INFO] "+Reset+format+"\n", a...)
}

func LogError(format string, a ...interface{}) {
	printf(Red, "", format, a...)
}

// PrintReport 原样输出报告正文
func PrintReport(title, body string) {
	mu.Lock()
	defer mu.Unlock()
	clearLine()
	fmt.Fprintln(out, Bold+title+Reset)
	fmt.Fprintln(out, body)
}

// StartSpinner 在终端显示转圈提示，调用返回的函数停止
func StartSpinner(msg string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			mu.Lock()
			clearLine()
			fmt.Fprintf(out, Cyan+"%s %s"+Reset, frames[i%len(frames)], msg)
			mu.Unlock()
			select {
			case <-stop:
				mu.Lock()
				clearLine()
				mu.Unlock()
				return
			case <-ticker.C:
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}
}

// ScoreTier 分数档位
type ScoreTier int

const (
	TierUnknown ScoreTier = iota
	TierDanger
	TierCaution
	TierSafe
)

func (t ScoreTier) String() string {
	switch t {
	case TierSafe:
		return "safe"
	case TierCaution:
		return "caution"
	case TierDanger:
		return "danger"
	default:
		return "unknown"
	}
}

func (t ScoreTier) Color() string {
	switch t {
	case TierSafe:
		return Green
	case TierCaution:
		return Yellow
	case TierDanger:
		return Red
	default:
		return Gray
	}
}

// ClassifyScore >80 safe，50<s≤80 caution，≤50 danger，非数字为 unknown
func ClassifyScore(score string) ScoreTier {
	n, err := strconv.Atoi(strings.TrimSpace(score))
	if err != nil || n < 0 || n > 100 {
		return TierUnknown
	}
	switch {
	case n > 80:
		return TierSafe
	case n > 50:
		return TierCaution
	default:
		return TierDanger
	}
}

// PrintScoreBanner 按档位着色输出最终分数
func PrintScoreBanner(score string) ScoreTier {
	tier := ClassifyScore(score)
	if tier == TierUnknown {
		LogWarn("⚠️ Could not determine security score.")
		return tier
	}
	printf(tier.Color(), "", "🔐 Final Security Score: %s/100", score)
	return tier
}

func PrintStats(chain, address string, tier ScoreTier, degraded bool, duration time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	mode := "full"
	if degraded {
		mode = "bytecode-only"
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, Gray+strings.Repeat("─", 50)+Reset)
	fmt.Fprintf(out, "🏁 Scan of %s:%s completed in %s\n", chain, address, duration.Round(time.Millisecond))
	fmt.Fprintf(out, "📊 Mode: %s | Tier: %s\n", mode, tier)
	fmt.Fprintln(out, Gray+strings.Repeat("─", 50)+Reset)
}
