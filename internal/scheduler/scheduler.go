// Package scheduler runs one worker's share of the seed list: it streams
// seeds from a chunk file and keeps a bounded cohort of domain pipelines in
// flight, batch by batch. Pipeline failures are isolated; only a burst of
// internal errors brings the worker down.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/submarine-osint/submarine/internal/models"
	"github.com/submarine-osint/submarine/internal/partition"
)

const (
	// DefaultConcurrent is K, the cohort size.
	DefaultConcurrent = 20
	// DefaultPipelineTimeout is the soft wall-clock cap per domain.
	DefaultPipelineTimeout = 120 * time.Second
	// DefaultErrorThreshold and DefaultErrorWindow bound how many internal
	// errors a worker tolerates before exiting for a supervisor restart.
	DefaultErrorThreshold = 25
	DefaultErrorWindow    = 10 * time.Minute
)

// ErrTooManyInternalErrors signals that the worker should exit nonzero.
var ErrTooManyInternalErrors = errors.New("internal error threshold exceeded")

// Runner crawls one seed domain. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, seed string) models.Completion
}

// Factory builds a fresh single-use Runner for each seed.
type Factory func() Runner

// Options configure a Scheduler. Zero values select the defaults.
type Options struct {
	Concurrent      int
	PipelineTimeout time.Duration
	ErrorThreshold  int
	ErrorWindow     time.Duration
}

// Stats aggregate one chunk run.
type Stats struct {
	Seeds    int
	Pages    int
	Failures int
	Outcomes map[models.CompletionOutcome]int
}

// Scheduler owns the cohort loop for one worker.
type Scheduler struct {
	logger  *slog.Logger
	opts    Options
	factory Factory
	errs    *errorWindow
}

// New builds a Scheduler.
func New(logger *slog.Logger, factory Factory, opts Options) *Scheduler {
	if opts.Concurrent <= 0 {
		opts.Concurrent = DefaultConcurrent
	}
	if opts.PipelineTimeout <= 0 {
		opts.PipelineTimeout = DefaultPipelineTimeout
	}
	if opts.ErrorThreshold <= 0 {
		opts.ErrorThreshold = DefaultErrorThreshold
	}
	if opts.ErrorWindow <= 0 {
		opts.ErrorWindow = DefaultErrorWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger:  logger.With("component", "scheduler"),
		opts:    opts,
		factory: factory,
		errs:    newErrorWindow(opts.ErrorThreshold, opts.ErrorWindow),
	}
}

// RunChunk streams the chunk's seeds in cohorts of K until the chunk is
// exhausted, the context ends, or the internal-error window trips.
func (s *Scheduler) RunChunk(ctx context.Context, chunkPath string) (Stats, error) {
	stats := Stats{Outcomes: make(map[models.CompletionOutcome]int)}

	var (
		batch   []string
		loopErr error
	)
	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		comps := s.runCohort(ctx, batch)
		batch = batch[:0]
		for _, c := range comps {
			s.account(&stats, c)
		}
		if s.errs.tripped() {
			loopErr = ErrTooManyInternalErrors
			return false
		}
		return ctx.Err() == nil
	}

	err := partition.Seeds(chunkPath, func(seed string) bool {
		batch = append(batch, seed)
		if len(batch) < s.opts.Concurrent {
			return true
		}
		return flush()
	})
	if err != nil {
		return stats, err
	}
	if loopErr == nil {
		flush()
	}

	if loopErr != nil {
		return stats, loopErr
	}
	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	s.logger.Info("chunk complete",
		"chunk", chunkPath,
		"seeds", stats.Seeds,
		"pages", stats.Pages,
		"failures", stats.Failures)
	return stats, nil
}

// runCohort starts one pipeline per seed and waits for the whole batch.
// A failing pipeline never cancels its peers.
func (s *Scheduler) runCohort(ctx context.Context, seeds []string) []models.Completion {
	comps := make([]models.Completion, len(seeds))
	var g errgroup.Group
	for i, seed := range seeds {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.opts.PipelineTimeout)
			defer cancel()
			comps[i] = s.factory().Run(pctx, seed)
			return nil
		})
	}
	g.Wait()
	return comps
}

// account logs the per-domain completion record and feeds the error window.
func (s *Scheduler) account(stats *Stats, c models.Completion) {
	stats.Seeds++
	stats.Pages += c.Pages
	stats.Failures += c.Failures
	stats.Outcomes[c.Outcome]++

	attrs := []any{
		"seed", c.Seed,
		"outcome", string(c.Outcome),
		"pages", c.Pages,
		"failures", c.Failures,
		"duration", c.Duration.Round(time.Millisecond),
	}
	if c.Err != nil {
		attrs = append(attrs, "error", c.Err)
	}
	if c.Outcome == models.OutcomeOK {
		s.logger.Info("domain complete", attrs...)
	} else {
		s.logger.Warn("domain complete", attrs...)
	}

	if c.Outcome == models.OutcomeInternalError {
		s.errs.record(time.Now())
	}
}

// errorWindow is a sliding window of internal-error timestamps.
type errorWindow struct {
	limit  int
	window time.Duration
	times  []time.Time
}

func newErrorWindow(limit int, window time.Duration) *errorWindow {
	return &errorWindow{limit: limit, window: window}
}

func (w *errorWindow) record(now time.Time) {
	w.times = append(w.times, now)
	w.prune(now)
}

func (w *errorWindow) tripped() bool {
	if len(w.times) == 0 {
		return false
	}
	w.prune(time.Now())
	return len(w.times) >= w.limit
}

func (w *errorWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.times) && w.times[i].Before(cutoff) {
		i++
	}
	w.times = w.times[i:]
}
