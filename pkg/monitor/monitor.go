package monitor

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-sitemap-watch/internal/pipeline"
	"github.com/shouni/go-sitemap-watch/pkg/diff"
	"github.com/shouni/go-sitemap-watch/pkg/logger"
	"github.com/shouni/go-sitemap-watch/pkg/metrics"
	"github.com/shouni/go-sitemap-watch/pkg/sitemap"
)

// DefaultInterval はサイクル間の既定の待機時間です。
const DefaultInterval = 60 * time.Second

// Runner は1サイクル分の 取得 → 展開 → 解析 を実行します。
type Runner interface {
	Run(ctx context.Context, url string) (sitemap.Snapshot, error)
}

// CycleResult は1サイクルの結果です。
type CycleResult struct {
	ID       string
	Stage    pipeline.Stage // 失敗した段階。成功時は StageNone
	Err      error
	First    bool // 初回の成功サイクル (差分は計算しない)
	URLCount int
	Report   diff.Report
	Duration time.Duration
}

// OK はサイクルが最後まで成功したかどうかを返します。
func (r CycleResult) OK() bool {
	return r.Err == nil
}

// Monitor はサイトマップを定期的に取得し、直前の結果との差分を報告します。
type Monitor struct {
	url          string
	runner       Runner
	state        *State
	scheduler    Scheduler
	interval     time.Duration
	contextLines int
	out          io.Writer
	log          logger.Logger
	metrics      *metrics.Metrics
	newID        func() string
}

// Option は Monitor の設定関数です。
type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithScheduler(s Scheduler) Option {
	return func(m *Monitor) {
		if s != nil {
			m.scheduler = s
		}
	}
}

// WithContextLines は差分のコンテキスト行数を設定します。
func WithContextLines(n int) Option {
	return func(m *Monitor) {
		m.contextLines = n
	}
}

// WithOutput はレポートの出力先を設定します。既定は標準出力です。
func WithOutput(w io.Writer) Option {
	return func(m *Monitor) {
		if w != nil {
			m.out = w
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = mt
	}
}

// WithState は外部で用意した State を使います。
func WithState(s *State) Option {
	return func(m *Monitor) {
		if s != nil {
			m.state = s
		}
	}
}

// New は Monitor を初期化します。
func New(url string, runner Runner, opts ...Option) (*Monitor, error) {
	if url == "" {
		return nil, errors.New("監視対象のURLが空です")
	}
	if runner == nil {
		return nil, errors.New("Runner cannot be nil")
	}

	m := &Monitor{
		url:          url,
		runner:       runner,
		state:        &State{},
		scheduler:    TimerScheduler{},
		interval:     DefaultInterval,
		contextLines: diff.DefaultContext,
		out:          os.Stdout,
		log:          logger.NewNop(),
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State は Monitor が所有する State を返します。
func (m *Monitor) State() *State {
	return m.state
}

// Run は ctx が終了するまでサイクルと待機を繰り返します。
// 個々のサイクルの失敗では終了せず、戻り値は常に ctx の終了理由です。
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("サイトマップの監視を開始します",
		logger.String("url", m.url),
		logger.Duration("interval", m.interval),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.RunCycle(ctx)

		if err := m.scheduler.Wait(ctx, m.interval); err != nil {
			return err
		}
	}
}

// RunCycle はサイクルを1回実行します。
// 取得・展開・解析のいずれかが失敗した場合、State は変更されず差分も出力しません。
func (m *Monitor) RunCycle(ctx context.Context) CycleResult {
	start := time.Now()
	res := CycleResult{ID: m.newID()}
	log := m.log.With(logger.String("cycle_id", res.ID))

	snap, err := m.runner.Run(ctx, m.url)
	if err != nil {
		res.Err = err
		res.Stage = pipeline.StageOf(err)
		res.Duration = time.Since(start)

		log.Error(pipeline.Describe(err),
			logger.String("stage", string(res.Stage)),
			logger.String("url", m.url),
			logger.Error(err),
		)
		m.metrics.ObserveCycle(resultLabel(res.Stage), res.Duration, -1, 0, 0)
		return res
	}

	res.URLCount = snap.Len()
	prev, ready := m.state.Previous()
	res.First = !ready

	if ready {
		res.Report = diff.Compute(prev.URLs(), snap.URLs(), m.contextLines)
		if werr := writeReport(m.out, res.Report); werr != nil {
			log.Warn("差分レポートの出力に失敗しました", logger.Error(werr))
		}
	}

	m.state.Replace(snap)
	res.Duration = time.Since(start)

	log.Info("サイクルが完了しました",
		logger.Int("urls", res.URLCount),
		logger.Int("added", res.Report.Added()),
		logger.Int("removed", res.Report.Removed()),
		logger.Duration("elapsed", res.Duration),
	)
	m.metrics.ObserveCycle(metrics.ResultOK, res.Duration, res.URLCount, res.Report.Added(), res.Report.Removed())
	return res
}

func resultLabel(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageFetch:
		return metrics.ResultFetch
	case pipeline.StageDecompress:
		return metrics.ResultDecompress
	case pipeline.StageParse:
		return metrics.ResultParse
	default:
		return metrics.ResultUnknown
	}
}
