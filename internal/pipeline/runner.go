// Package pipeline orchestrates the daily decision run: fetch state, derive
// signals, generate and vet trade ideas, persist history, then render and
// deliver the report.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/archive"
	"github.com/akshayg/coach/internal/core"
	"github.com/akshayg/coach/internal/critic"
	"github.com/akshayg/coach/internal/ideas"
	"github.com/akshayg/coach/internal/market"
	"github.com/akshayg/coach/internal/metrics"
	"github.com/akshayg/coach/internal/notify"
	"github.com/akshayg/coach/internal/portfolio"
	"github.com/akshayg/coach/internal/report"
	"github.com/akshayg/coach/internal/risk"
	"github.com/akshayg/coach/internal/signal"
	"github.com/akshayg/coach/internal/tracking"
)

// Deps are the collaborators a Runner needs. Portfolio, Signals, Gate and
// Tracker are required; everything else may be nil and its stage is skipped.
type Deps struct {
	Portfolio portfolio.Provider
	Market    market.Provider
	Signals   *signal.Engine
	Generator *ideas.Generator
	Gate      *risk.Gate
	Critic    *critic.Critic
	Tracker   *tracking.Tracker
	Archiver  *archive.Archiver
	Notifiers *notify.Registry
	Metrics   *metrics.Registry

	// TargetWeights feed the drift signal engine.
	TargetWeights map[string]float64
	// MaxDrawdown is the configured tolerance, as a fraction.
	MaxDrawdown float64
}

// Outcome is the result of one pipeline run.
type Outcome struct {
	Date            string
	Snapshot        core.PortfolioSnapshot
	Market          core.MarketContext
	Signals         []core.Signal
	Ideas           []core.TradeIdea
	Rejected        []risk.Verdict
	Recommendations []core.TradeRecommendation
	Report          string
	// TrackingErr is set when persistence failed but the run still produced
	// a report from in-memory state.
	TrackingErr error
	// NotifyErrors maps notifier name to its delivery failure, if any.
	NotifyErrors map[string]error
}

// Runner executes the daily pipeline. At most one run is in flight at a time.
type Runner struct {
	deps Deps
	log  *zap.Logger
	now  func() time.Time

	mu      sync.Mutex
	running bool
}

// NewRunner creates a Runner from its dependencies.
func NewRunner(deps Deps, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		deps: deps,
		log:  log,
		now:  time.Now,
	}
}

// Run executes one full pipeline pass. A second call while a run is in
// flight returns ErrRunInProgress without touching any state.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, core.ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	start := r.now()
	outcome, err := r.run(ctx)
	if err != nil {
		r.recordRun("failed")
		r.log.Error("pipeline run failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	r.recordRun("success")
	r.log.Info("pipeline run complete",
		zap.String("date", outcome.Date),
		zap.Int("recommendations", len(outcome.Recommendations)),
		zap.Duration("elapsed", time.Since(start)))
	return outcome, nil
}

func (r *Runner) run(ctx context.Context) (*Outcome, error) {
	snap, mkt, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.SetPortfolio(snap.Summary.TotalValue, snap.Summary.TotalStocks)
	}

	outcome := &Outcome{
		Date:     snap.DateKey(),
		Snapshot: snap,
		Market:   mkt,
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcome.Signals = r.deps.Signals.ComputeDriftSignals(snap.Holdings, r.deps.TargetWeights)

	proposed := r.generate(ctx, ideas.Input{
		Snapshot: snap,
		Market:   mkt,
		Signals:  outcome.Signals,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	approved, verdicts := r.deps.Gate.Apply(proposed, snap.Summary)
	outcome.Rejected = rejectedOnly(verdicts)
	r.recordGate(verdicts)

	if r.deps.Critic != nil {
		approved = r.observeStage("critic", func() []core.TradeIdea {
			return r.deps.Critic.Review(ctx, approved, snap.Summary)
		})
	}
	outcome.Ideas = approved

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Persistence failure degrades the run instead of aborting it: the
	// report is still rendered from in-memory state.
	reportIn := report.Input{
		Date:        snap.CapturedAt,
		Snapshot:    snap,
		Market:      mkt,
		MaxDrawdown: r.deps.MaxDrawdown,
	}

	trackStart := r.now()
	result, trackErr := r.deps.Tracker.Record(ctx, tracking.RunRecord{
		Snapshot: snap,
		Market:   mkt,
		Ideas:    approved,
	})
	r.recordStage("tracking", time.Since(trackStart))

	if trackErr != nil {
		outcome.TrackingErr = trackErr
		r.log.Error("tracking failed, reporting from in-memory state", zap.Error(trackErr))
		reportIn.Recommendations = untrackedRecommendations(snap.CapturedAt, approved)
	} else {
		reportIn.Recommendations = result.Recommendations
		reportIn.Changes = result.Changes
		reportIn.Metrics = &result.Metrics
	}
	outcome.Recommendations = reportIn.Recommendations

	outcome.Report = report.Build(reportIn)

	r.archiveRun(ctx, outcome, result)
	r.notifyAll(ctx, outcome)

	return outcome, nil
}

// fetch loads the portfolio snapshot and market context concurrently. The
// snapshot is mandatory; a market failure degrades to zero quotes.
func (r *Runner) fetch(ctx context.Context) (core.PortfolioSnapshot, core.MarketContext, error) {
	var (
		wg      sync.WaitGroup
		snap    core.PortfolioSnapshot
		snapErr error
		mkt     core.MarketContext
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		start := r.now()
		snap, snapErr = r.deps.Portfolio.Snapshot(ctx)
		r.recordStage("portfolio", time.Since(start))
	}()

	if r.deps.Market != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := r.now()
			m, err := r.deps.Market.Context(ctx)
			r.recordStage("market", time.Since(start))
			if err != nil {
				r.log.Warn("market context unavailable, continuing without quotes", zap.Error(err))
				return
			}
			mkt = m
		}()
	}

	wg.Wait()

	if snapErr != nil {
		return core.PortfolioSnapshot{}, core.MarketContext{}, snapErr
	}
	return snap, mkt, nil
}

// generate produces trade ideas. A transport failure yields zero ideas:
// the run carries on and the report records an empty day rather than
// fabricated trades.
func (r *Runner) generate(ctx context.Context, in ideas.Input) []core.TradeIdea {
	start := r.now()
	proposed, source, err := r.deps.Generator.Generate(ctx, in)
	r.recordStage("ideas", time.Since(start))

	if err != nil {
		r.log.Error("idea generation failed, continuing with no ideas", zap.Error(err))
		return nil
	}
	if r.deps.Metrics != nil {
		for _, idea := range proposed {
			r.deps.Metrics.RecordIdea(string(source), string(idea.Action))
		}
	}
	return proposed
}

func (r *Runner) archiveRun(ctx context.Context, outcome *Outcome, result *tracking.RunResult) {
	if r.deps.Archiver == nil {
		return
	}
	start := r.now()
	defer func() { r.recordStage("archive", time.Since(start)) }()

	if err := r.deps.Archiver.SaveReport(ctx, outcome.Date, outcome.Report); err != nil {
		r.log.Warn("report archive failed", zap.Error(err))
	}

	artifact := archive.RunArtifact{
		Date:            outcome.Date,
		Snapshot:        outcome.Snapshot,
		Market:          outcome.Market,
		Recommendations: outcome.Recommendations,
	}
	if result != nil {
		artifact.Metrics = result.Metrics
	}
	if err := r.deps.Archiver.SaveRun(ctx, artifact); err != nil {
		r.log.Warn("run archive failed", zap.Error(err))
	}
}

func (r *Runner) notifyAll(ctx context.Context, outcome *Outcome) {
	if r.deps.Notifiers == nil || len(r.deps.Notifiers.Names()) == 0 {
		return
	}
	start := r.now()
	defer func() { r.recordStage("notify", time.Since(start)) }()

	subject := "Portfolio Coach " + outcome.Snapshot.CapturedAt.Format("02 Jan 2006")
	failures := r.deps.Notifiers.SendAll(ctx, notify.Message{
		Subject:  subject,
		Markdown: outcome.Report,
	})
	outcome.NotifyErrors = failures

	for _, name := range r.deps.Notifiers.Names() {
		status := "success"
		if err, ok := failures[name]; ok {
			status = "failed"
			r.log.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
		}
		if r.deps.Metrics != nil {
			r.deps.Metrics.RecordNotification(name, status)
		}
	}
}

// untrackedRecommendations gives ideas report-ready shape without IDs when
// the store was unavailable.
func untrackedRecommendations(date time.Time, approved []core.TradeIdea) []core.TradeRecommendation {
	recs := make([]core.TradeRecommendation, 0, len(approved))
	for _, idea := range approved {
		recs = append(recs, core.TradeRecommendation{
			Date:      date,
			TradeIdea: idea,
			Status:    core.StatusPending,
		})
	}
	return recs
}

func rejectedOnly(verdicts []risk.Verdict) []risk.Verdict {
	var out []risk.Verdict
	for _, v := range verdicts {
		if !v.Approved {
			out = append(out, v)
		}
	}
	return out
}

func (r *Runner) observeStage(stage string, fn func() []core.TradeIdea) []core.TradeIdea {
	start := r.now()
	out := fn()
	r.recordStage(stage, time.Since(start))
	return out
}

func (r *Runner) recordStage(stage string, d time.Duration) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.RecordStage(stage, d.Seconds())
	}
}

func (r *Runner) recordRun(status string) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.RecordPipelineRun(status)
	}
}

func (r *Runner) recordGate(verdicts []risk.Verdict) {
	if r.deps.Metrics == nil {
		return
	}
	for _, v := range verdicts {
		if v.Approved {
			r.deps.Metrics.RecordGate("approved")
		} else {
			r.deps.Metrics.RecordGate("rejected")
		}
	}
}
