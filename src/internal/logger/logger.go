package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/VectorBits/SmartScan/src/internal/ui"
)

var (
	fileLogger  *logrus.Entry
	logFile     *os.File
	logPath     string
	initialized bool
	verbose     bool
	consoleMu   sync.Mutex
)

// InitLogger 在 logDir 下创建 scan_<时间戳>.log，scanID 写入每一条日志
func InitLogger(logDir, scanID string) error {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(logDir, fmt.Sprintf("scan_%s.log", timestamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l := logrus.New()
	l.SetOutput(f)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	consoleMu.Lock()
	logFile = f
	logPath = path
	fileLogger = l.WithField("scan_id", scanID)
	initialized = true
	consoleMu.Unlock()

	ui.Println("📝 Log file created: " + path)
	return nil
}

// SetVerbose 打开后 Debug 也输出到控制台
func SetVerbose(v bool) {
	consoleMu.Lock()
	verbose = v
	consoleMu.Unlock()
}

func Close() {
	consoleMu.Lock()
	defer consoleMu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	initialized = false
}

func Path() string {
	return logPath
}

func write(level logrus.Level, prefix string, console bool, format string, v ...interface{}) {
	msg := strings.TrimRight(fmt.Sprintf(format, v...), "\n")

	consoleMu.Lock()
	defer consoleMu.Unlock()

	if initialized {
		fileLogger.Log(level, msg)
	}
	// 控制台输出走 ui，和 spinner 共用一把锁
	if console || (level == logrus.DebugLevel && verbose) {
		ui.Println(prefix + msg)
	}
}

func InfoFileOnly(format string, v ...interface{}) {
	write(logrus.InfoLevel, "", false, format, v...)
}

func Debug(format string, v ...interface{}) {
	write(logrus.DebugLevel, "[DEBUG] ", false, format, v...)
}

func Warn(format string, v ...interface{}) {
	write(logrus.WarnLevel, "[WARN] ", true, format, v...)
}
