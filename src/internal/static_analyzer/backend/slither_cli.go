package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// SlitherDetector slither --json 输出中的单个检测结果
type SlitherDetector struct {
	Check       string `json:"check"`
	Impact      string `json:"impact"`
	Confidence  string `json:"confidence"`
	Description string `json:"description"`
}

type slitherOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Results struct {
		Detectors []SlitherDetector `json:"detectors"`
	} `json:"results"`
}

// SlitherBackend 调用本地 slither 命令行
type SlitherBackend struct {
	binary  string
	timeout time.Duration
}

func NewSlitherBackend(binary string) *SlitherBackend {
	if binary == "" {
		binary = "slither"
	}
	return &SlitherBackend{
		binary:  binary,
		timeout: 120 * time.Second,
	}
}

// Run 执行 slither <file> --json -
// 有检测结果时 slither 退出码非零，所以先解析输出再看退出码
func (b *SlitherBackend) Run(ctx context.Context, contractFile string) ([]SlitherDetector, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.binary, contractFile, "--json", "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("slither timed out or was canceled: %w", ctx.Err())
	}

	detectors, parseErr := ParseSlitherJSON(stdout.Bytes())
	if parseErr == nil {
		return detectors, nil
	}
	if runErr != nil {
		return nil, fmt.Errorf("slither execution failed: %w, stderr: %s", runErr, truncate(stderr.String(), 4096))
	}
	return nil, parseErr
}

func ParseSlitherJSON(data []byte) ([]SlitherDetector, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("slither produced no output")
	}

	var out slitherOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse slither output failed: %w, output: %s", err, truncate(string(data), 512))
	}
	if !out.Success {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%s", truncate(msg, 4096))
	}
	return out.Results.Detectors, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "...(truncated)"
	}
	return s
}
