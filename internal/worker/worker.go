// Package worker assembles one crawl worker: the shared fetch tiers, the
// extraction engine, the per-worker sink, and the scheduler that drives the
// worker's chunk of seeds through them.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/submarine-osint/submarine/internal/config"
	"github.com/submarine-osint/submarine/internal/fetch"
	"github.com/submarine-osint/submarine/internal/pacman"
	"github.com/submarine-osint/submarine/internal/pipeline"
	"github.com/submarine-osint/submarine/internal/scheduler"
	"github.com/submarine-osint/submarine/internal/sink"
)

// closeGrace bounds the sink drain after the crawl finishes.
const closeGrace = 2 * time.Minute

// Worker owns one chunk's crawl: shared tier clients, a sink, and the
// cohort scheduler. Tier clients are constructed once and read-only.
type Worker struct {
	id       int
	logger   *slog.Logger
	cfg      *config.Config
	render   *fetch.Render
	sink     *sink.Sink
	sched    *scheduler.Scheduler
	uploader *sink.Uploader

	filePath  string
	spillPath string
}

// New wires a worker. The extractor and uploader are shared across workers;
// everything else is per-worker.
func New(logger *slog.Logger, cfg *config.Config, id int, extractor *pacman.Extractor, uploader *sink.Uploader) (*Worker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "worker", "worker_id", id)

	live := fetch.NewLive(fetch.LiveOptions{
		UserAgent:  cfg.UserAgent,
		RatePerSec: cfg.RatePerSec,
	})
	archive := fetch.NewArchive(fetch.ArchiveOptions{
		UserAgent: cfg.UserAgent,
		Base:      cfg.ArchiveBase,
	})
	render := fetch.NewRender(logger, fetch.RenderOptions{UserAgent: cfg.UserAgent})
	chain := fetch.NewChain(logger, live, archive.Index(), archive.Snapshot(), render)

	w := &Worker{
		id:        id,
		logger:    logger,
		cfg:       cfg,
		render:    render,
		uploader:  uploader,
		filePath:  filepath.Join(cfg.OutputDir, fmt.Sprintf("worker_%d.jsonl", id)),
		spillPath: filepath.Join(cfg.OutputDir, fmt.Sprintf("worker_%d_spill.jsonl", id)),
	}

	writer, err := w.newWriter()
	if err != nil {
		return nil, err
	}
	w.sink = sink.New(logger, writer, sink.Options{
		QueueSize: 2 * cfg.ChunkSize,
		Spill: func() (sink.Writer, error) {
			return sink.NewFile(logger, w.spillPath, 0)
		},
	})

	robotsClient := &http.Client{Timeout: fetch.TimeoutTierA}
	pcfg := pipeline.Config{
		MaxPages:        cfg.MaxPages,
		MaxDepth:        cfg.MaxDepth,
		AllowSubdomains: cfg.AllowSubdomains,
		RespectRobots:   cfg.RespectRobots,
		FailureRecords:  cfg.FailureRecords,
		UserAgent:       cfg.UserAgent,
	}
	factory := func() scheduler.Runner {
		return pipeline.New(logger, pcfg, chain, robotsClient, extractor, w.sink)
	}
	w.sched = scheduler.New(logger, factory, scheduler.Options{
		Concurrent:      cfg.Concurrent,
		PipelineTimeout: cfg.PipelineTimeout,
	})
	return w, nil
}

func (w *Worker) newWriter() (sink.Writer, error) {
	if w.cfg.IndexingEnabled() {
		return sink.NewElastic(w.logger, sink.ElasticOptions{
			Addresses:        w.cfg.ESAddresses(),
			Username:         w.cfg.ESUsername,
			Password:         w.cfg.ESPassword,
			APIKey:           w.cfg.ESAPIKey,
			Index:            w.cfg.ESIndex,
			ChunkSize:        w.cfg.ChunkSize,
			DeterministicIDs: w.cfg.DeterministicIDs,
		})
	}
	return sink.NewFile(w.logger, w.filePath, 0)
}

// Run crawls one chunk to completion, drains the sink, and uploads any
// completed output files. The scheduler's error (if any) wins over
// teardown errors.
func (w *Worker) Run(ctx context.Context, chunkPath string) (scheduler.Stats, error) {
	stats, runErr := w.sched.RunChunk(ctx, chunkPath)

	closeCtx, cancel := context.WithTimeout(context.Background(), closeGrace)
	defer cancel()
	closeErr := w.sink.Close(closeCtx)
	w.render.Close()

	w.upload(closeCtx)

	if runErr != nil {
		return stats, runErr
	}
	if closeErr != nil {
		return stats, fmt.Errorf("sink close: %w", closeErr)
	}
	return stats, nil
}

// FellBack reports whether the index sink degraded to the spill file.
func (w *Worker) FellBack() bool {
	return w.sink.FellBack()
}

func (w *Worker) upload(ctx context.Context) {
	if w.uploader == nil {
		return
	}
	var paths []string
	if !w.cfg.IndexingEnabled() {
		paths = append(paths, w.filePath)
	}
	if w.sink.FellBack() {
		paths = append(paths, w.spillPath)
	}
	for _, path := range paths {
		if err := w.uploader.Upload(ctx, path); err != nil {
			w.logger.Error("output upload failed", "path", path, "error", err)
		}
	}
}
