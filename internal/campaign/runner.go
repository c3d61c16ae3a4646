package campaign

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/types"
)

// Store is the durable result list. Load is called once per run; Put after every target.
type Store interface {
	Load(ctx context.Context) (map[string]types.ResultRecord, error)
	Put(ctx context.Context, rec types.ResultRecord) error
}

// Processor handles a single target.
type Processor interface {
	Process(ctx context.Context, target types.Target) types.Outcome
}

// ProgressEvent reports one finished target.
type ProgressEvent struct {
	Index  int // 1-based position in the input
	Total  int
	Record types.ResultRecord
}

// ProgressCallback is called after each target is recorded or skipped.
type ProgressCallback func(event ProgressEvent)

// RunnerOptions configures pacing and bookkeeping of a run.
type RunnerOptions struct {
	RunID         string
	TargetTimeout time.Duration
	MinDelay      time.Duration
	MaxDelay      time.Duration
	OnProgress    ProgressCallback

	// Test seams; zero values use the real clock and randomness.
	Sleep func(ctx context.Context, d time.Duration) error
	Rand  func(n int64) int64
	Now   func() time.Time
}

// Summary is the outcome of a run, one record per input row.
type Summary struct {
	RunID     string
	Processed int
	Skipped   int
	Records   []types.ResultRecord
}

// Counts returns the number of records per status kind.
func (s *Summary) Counts() map[types.StatusKind]int {
	counts := make(map[types.StatusKind]int)
	for _, rec := range s.Records {
		counts[rec.Status.Kind]++
	}
	return counts
}

// Runner processes targets one at a time, persisting each result before moving on.
type Runner struct {
	processor Processor
	store     Store
	opts      RunnerOptions
	log       *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(processor Processor, store Store, opts RunnerOptions, logger *zap.Logger) *Runner {
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	if opts.Rand == nil {
		opts.Rand = rand.Int64N
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{processor: processor, store: store, opts: opts, log: logger.Named("runner")}
}

// Run processes targets in order. Targets already recorded as sent, and
// repeats of a URL earlier in the list, are skipped without navigation.
// Each processed target's record is written before the next one starts.
//
// A store failure aborts the run with a *StoreError. Cancelling ctx stops the
// run after the in-flight target has been recorded; the partial summary is
// returned with ctx.Err().
func (r *Runner) Run(ctx context.Context, targets []types.Target) (*Summary, error) {
	summary := &Summary{RunID: r.opts.RunID}

	existing, err := r.store.Load(ctx)
	if err != nil {
		return summary, &StoreError{Op: "load", Cause: err}
	}
	r.log.Info("Loaded existing results", zap.Int("records", len(existing)), zap.Int("targets", len(targets)))

	seen := make(map[string]bool, len(targets))
	delayPending := false

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		key := target.Key()
		if seen[key] {
			r.log.Info("Skipping duplicate target", zap.String("url", target.URL))
			r.skip(summary, i, len(targets), target, "duplicate in input")
			continue
		}
		seen[key] = true

		if rec, ok := existing[key]; ok && rec.Status.IsSent() {
			r.log.Info("Skipping target (already sent)", zap.String("name", target.DisplayName), zap.String("url", target.URL))
			r.skip(summary, i, len(targets), target, "already sent")
			continue
		}

		if delayPending {
			if err := r.pause(ctx); err != nil {
				return summary, err
			}
		}

		r.log.Info("Processing target",
			zap.Int("index", i+1), zap.Int("total", len(targets)),
			zap.String("name", target.DisplayName), zap.String("url", target.URL))

		out := r.process(ctx, target)

		rec := types.ResultRecord{
			URL:            target.URL,
			DisplayName:    target.DisplayName,
			ContactPageURL: out.ContactPageURL,
			Status:         out.Status,
			Timestamp:      r.opts.Now().UTC().Truncate(time.Second),
			RunID:          r.opts.RunID,
		}
		if err := r.store.Put(context.WithoutCancel(ctx), rec); err != nil {
			return summary, &StoreError{Op: "write", Cause: err}
		}

		summary.Processed++
		summary.Records = append(summary.Records, rec)
		r.logOutcome(target, rec)
		r.progress(i, len(targets), rec)

		delayPending = out.Navigated
	}

	return summary, nil
}

// process runs one target. It finishes even when ctx is cancelled so the
// in-flight record is never lost; TargetTimeout bounds it instead.
func (r *Runner) process(ctx context.Context, target types.Target) types.Outcome {
	targetCtx := context.WithoutCancel(ctx)
	if r.opts.TargetTimeout > 0 {
		var cancel context.CancelFunc
		targetCtx, cancel = context.WithTimeout(targetCtx, r.opts.TargetTimeout)
		defer cancel()
	}
	return r.processor.Process(targetCtx, target)
}

func (r *Runner) skip(summary *Summary, i, total int, target types.Target, reason string) {
	rec := types.ResultRecord{
		URL:         target.URL,
		DisplayName: target.DisplayName,
		Status:      types.Skipped(reason),
		RunID:       r.opts.RunID,
	}
	summary.Skipped++
	summary.Records = append(summary.Records, rec)
	r.progress(i, total, rec)
}

// pause sleeps for a uniformly random duration in [MinDelay, MaxDelay].
func (r *Runner) pause(ctx context.Context) error {
	delay := r.opts.MinDelay
	if spread := r.opts.MaxDelay - r.opts.MinDelay; spread > 0 {
		delay += time.Duration(r.opts.Rand(int64(spread) + 1))
	}
	if delay <= 0 {
		return nil
	}
	r.log.Info("Waiting before next submission", zap.Duration("delay", delay.Round(time.Second)))
	return r.opts.Sleep(ctx, delay)
}

func (r *Runner) logOutcome(target types.Target, rec types.ResultRecord) {
	fields := []zap.Field{
		zap.String("name", target.DisplayName),
		zap.String("url", target.URL),
		zap.String("contact_page", rec.ContactPageURL),
		zap.Stringer("status", rec.Status),
	}
	switch rec.Status.Kind {
	case types.StatusSent:
		r.log.Info("Submitted contact form", fields...)
	case types.StatusNoContactPage:
		r.log.Warn("No contact page found", fields...)
	default:
		r.log.Error("Target did not complete", fields...)
	}
}

func (r *Runner) progress(i, total int, rec types.ResultRecord) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(ProgressEvent{Index: i + 1, Total: total, Record: rec})
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
