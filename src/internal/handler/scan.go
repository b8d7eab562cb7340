package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/VectorBits/SmartScan/src/internal"
	"github.com/VectorBits/SmartScan/src/internal/logger"
	"github.com/VectorBits/SmartScan/src/internal/metrics"
	"github.com/VectorBits/SmartScan/src/internal/report"
	"github.com/VectorBits/SmartScan/src/internal/retry"
	"github.com/VectorBits/SmartScan/src/internal/ui"
)

// State 扫描状态机的状态
type State int

const (
	StateValidating State = iota
	StateResolving
	StateResolvedWithSource
	StateResolvedBytecodeOnly
	StateResolutionFailed
	StateAnalyzing
	StateArchiving
	StateDone
	StateFailed
)

var stateNames = [...]string{
	"Validating",
	"Resolving",
	"ResolvedWithSource",
	"ResolvedBytecodeOnly",
	"ResolutionFailed",
	"Analyzing",
	"Archiving",
	"Done",
	"Failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

type ContractResolver interface {
	Resolve(ctx context.Context, address string) (*internal.ContractSource, error)
}

type ContractArchiver interface {
	ArchiveSource(chain, address string, src *internal.ContractSource) (string, error)
	ArchiveBytecode(chain, address, bytecode string) (string, error)
}

type ReportSaver interface {
	Save(ctx context.Context, report *report.AuditReport, overwrite bool) ([]string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, contractFile string, src *internal.ContractSource, chain, address string) (string, string)
}

// ScanOutcome 一次扫描（含重试）的最终结果
type ScanOutcome struct {
	Chain        string
	Address      string
	State        State
	History      []State // 最后一次尝试经过的状态
	Attempts     int
	Degraded     bool // 仅字节码分析
	Score        string
	Tier         ui.ScoreTier
	ContractPath string
	ReportPaths  []string
	Duration     time.Duration
}

// Scanner 单个合约的扫描流程：校验、解析、落盘源码、分析、落盘报告
// 整个流程外面包一层重试，任一步失败都从 Validating 重新开始
type Scanner struct {
	chain    internal.Chain
	resolver ContractResolver
	archiver ContractArchiver
	reports  ReportSaver
	engine   Analyzer
	retry    retry.Policy
	metrics  *metrics.ScanMetrics
	spinner  bool
}

type ScannerConfig struct {
	Chain    internal.Chain
	Resolver ContractResolver
	Archiver ContractArchiver
	Reports  ReportSaver
	Engine   Analyzer
	Retry    retry.Policy
	Metrics  *metrics.ScanMetrics
	Spinner  bool
}

func NewScanner(cfg ScannerConfig) *Scanner {
	return &Scanner{
		chain:    cfg.Chain,
		resolver: cfg.Resolver,
		archiver: cfg.Archiver,
		reports:  cfg.Reports,
		engine:   cfg.Engine,
		retry:    cfg.Retry,
		metrics:  cfg.Metrics,
		spinner:  cfg.Spinner,
	}
}

// Scan 执行扫描；ctx 被取消时不再重试
func (s *Scanner) Scan(ctx context.Context, address string, overwrite bool) (*ScanOutcome, error) {
	start := time.Now()
	address = strings.TrimSpace(address)
	outcome := &ScanOutcome{Chain: s.chain.String(), Address: address, Score: report.ScoreUnavailable}

	policy := s.retry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		logger.Warn("Scan attempt %d/%d failed: %v, retrying in %v", attempt, policy.MaxAttempts, err, wait)
	}

	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		outcome.Attempts = attempt
		outcome.History = nil
		outcome.Degraded = false
		outcome.ContractPath = ""
		outcome.ReportPaths = nil
		outcome.Score = report.ScoreUnavailable
		if s.metrics != nil {
			s.metrics.Attempts.Inc()
		}
		logger.InfoFileOnly("scan attempt %d for %s:%s", attempt, s.chain, address)
		return s.scanOnce(ctx, outcome, address, overwrite)
	})
	outcome.Duration = time.Since(start)
	s.recordOutcome(outcome, err)
	return outcome, err
}

func (s *Scanner) transition(o *ScanOutcome, state State) {
	o.State = state
	o.History = append(o.History, state)
	logger.InfoFileOnly("state -> %s", state)
	s.metrics.Transition(state.String())
}

func (s *Scanner) fail(o *ScanOutcome, err error) error {
	s.transition(o, StateFailed)
	logger.InfoFileOnly("scan failed in %s: %v", o.History[len(o.History)-2], err)
	return err
}

func (s *Scanner) scanOnce(ctx context.Context, o *ScanOutcome, address string, overwrite bool) error {
	chain := s.chain.String()

	s.transition(o, StateValidating)
	if err := internal.ValidateAddress(address); err != nil {
		return s.fail(o, err)
	}

	s.transition(o, StateResolving)
	ui.Step("🔍 Fetching contract on %s for address: %s", strings.ToUpper(chain), address)
	done := s.metrics.ObserveStage("resolve")
	src, explorerErr := s.resolver.Resolve(ctx, address)
	done()

	switch {
	case src == nil:
		s.transition(o, StateResolutionFailed)
		s.countResolution("failed")
		if explorerErr == nil {
			explorerErr = fmt.Errorf("%w: no result", internal.ErrResolution)
		}
		return s.fail(o, explorerErr)

	case src.BytecodeOnly() && isEmptyCode(internal.Deref(src.Bytecode, "")):
		// 没有源码也没有代码，不是合约
		s.transition(o, StateResolutionFailed)
		s.countResolution("no_code")
		return s.fail(o, &internal.ResolveError{
			ExplorerErr: explorerErr,
			BytecodeErr: &internal.NoCodeError{Address: address},
		})

	case src.BytecodeOnly():
		s.transition(o, StateResolvedBytecodeOnly)
		s.countResolution("bytecode")
		o.Degraded = true
		if explorerErr != nil {
			ui.LogError("%v", explorerErr)
		}
		ui.Step("🔧 Attempting bytecode analysis...")
		path, err := s.archiver.ArchiveBytecode(chain, address, internal.Deref(src.Bytecode, "0x"))
		if err != nil {
			return s.fail(o, err)
		}
		o.ContractPath = path

	default:
		s.transition(o, StateResolvedWithSource)
		s.countResolution("source")
		ui.LogSuccess("✅ Contract source code retrieved.")
		if src.ImplementationAddress != "" {
			ui.LogInfo("Proxy detected, implementation: %s", src.ImplementationAddress)
		}
		path, err := s.archiver.ArchiveSource(chain, address, src)
		if err != nil {
			return s.fail(o, err)
		}
		o.ContractPath = path
		ui.LogSuccess("📝 Contract saved to: %s", path)
	}

	s.transition(o, StateAnalyzing)
	stop := func() {}
	if s.spinner {
		stop = ui.StartSpinner("🧠 Analyzing contract...")
	} else {
		ui.Step("🧠 Analyzing contract...")
	}
	done = s.metrics.ObserveStage("analyze")
	body, score := s.engine.Analyze(ctx, o.ContractPath, src, chain, address)
	done()
	stop()
	if err := ctx.Err(); err != nil {
		return s.fail(o, err)
	}
	o.Score = score

	ui.PrintReport("📋 Audit Report:", body)

	s.transition(o, StateArchiving)
	paths, err := s.reports.Save(ctx, &report.AuditReport{
		Chain:   chain,
		Address: address,
		Score:   score,
		Report:  body,
	}, overwrite)
	if err != nil {
		return s.fail(o, err)
	}
	o.ReportPaths = paths
	ui.LogSuccess("📦 Report saved as: md and json (%s)", strings.Join(paths, ", "))

	s.transition(o, StateDone)
	if o.Degraded {
		o.Tier = ui.TierUnknown
		ui.LogWarn("⚠️ Limited analysis performed due to missing source code.")
	} else {
		o.Tier = ui.PrintScoreBanner(score)
	}
	return nil
}

func isEmptyCode(code string) bool {
	code = strings.TrimSpace(code)
	return code == "" || strings.EqualFold(code, "0x")
}

func (s *Scanner) countResolution(result string) {
	if s.metrics != nil {
		s.metrics.Resolutions.WithLabelValues(s.chain.String(), result).Inc()
	}
}

func (s *Scanner) recordOutcome(o *ScanOutcome, err error) {
	if s.metrics == nil {
		return
	}
	result := "success"
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		result = "canceled"
	case err != nil:
		result = "failed"
	case o.Degraded:
		result = "degraded"
	}
	s.metrics.Outcomes.WithLabelValues(o.Chain, result).Inc()
	s.metrics.ScanDuration.Observe(o.Duration.Seconds())
	if n, convErr := strconv.Atoi(o.Score); convErr == nil {
		s.metrics.LastScore.Set(float64(n))
	} else {
		s.metrics.LastScore.Set(-1)
	}
}
