// Package main is the crawler entry point: it partitions the seed file,
// launches the configured number of workers, and maps run outcomes to the
// documented exit codes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/submarine-osint/submarine/internal/config"
	"github.com/submarine-osint/submarine/internal/logging"
	"github.com/submarine-osint/submarine/internal/pacman"
	"github.com/submarine-osint/submarine/internal/partition"
	"github.com/submarine-osint/submarine/internal/scheduler"
	"github.com/submarine-osint/submarine/internal/sink"
	"github.com/submarine-osint/submarine/internal/version"
	"github.com/submarine-osint/submarine/internal/worker"
)

// Exit codes.
const (
	exitOK          = 0
	exitSeedFile    = 2
	exitConfig      = 3
	exitSinkFailure = 4
	exitInternal    = 5
)

// exitError carries a process exit code through cobra's error path.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitf(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

func main() {
	logger := logging.SetDefault()

	if err := newRootCommand(logger).Execute(); err != nil {
		logger.Error("run failed", "error", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger) *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "submarine <seed-file>",
		Short: "Archive-backed web crawler and entity extraction pipeline",
		Long: "submarine crawls a list of seed domains through a tiered fetch fallback\n" +
			"(live HTTP, web archive index, live archive snapshot, headless render),\n" +
			"extracts structured entities from every page, and emits JSONL records\n" +
			"or bulk-indexes them into Elasticsearch.",
		Version:       version.Get().String(),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.SeedPath = args[0]
			return run(cmd.Context(), logger, cfg)
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.MaxPages, "max-pages", cfg.MaxPages, "per-domain page budget")
	f.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "per-domain link-follow depth")
	f.IntVar(&cfg.Concurrent, "concurrent", cfg.Concurrent, "concurrent domain pipelines per worker")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "worker count (one chunk and one output file each)")
	f.IntVar(&cfg.WorkerID, "worker-id", cfg.WorkerID, "base numeric identifier used in output file naming")
	f.DurationVar(&cfg.PipelineTimeout, "timeout", cfg.PipelineTimeout, "soft wall-clock cap per domain")
	f.BoolVar(&cfg.AllowSubdomains, "allow-subdomains", cfg.AllowSubdomains, "follow links to sibling subdomains of the seed's registrable domain")
	f.BoolVar(&cfg.RespectRobots, "respect-robots", cfg.RespectRobots, "honor robots.txt")
	f.BoolVar(&cfg.NoIndex, "no-index", cfg.NoIndex, "force file-mode sink")
	f.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory for chunks and JSONL output")
	f.StringVar(&cfg.ESIndex, "es-index", cfg.ESIndex, "target index name in index mode")
	f.StringVar(&cfg.ESHost, "es-host", cfg.ESHost, "search-cluster host")
	f.IntVar(&cfg.ESPort, "es-port", cfg.ESPort, "search-cluster port")
	f.BoolVar(&cfg.DeterministicIDs, "deterministic-ids", cfg.DeterministicIDs, "derive document _id from sha256(url)")
	f.BoolVar(&cfg.StrictSink, "strict-sink", cfg.StrictSink, "exit nonzero when the index sink fell back to file mode")
	f.Float64Var(&cfg.RatePerSec, "rate", cfg.RatePerSec, "live-fetch requests per second, 0 = unlimited")

	var noFailureRecords bool
	f.BoolVar(&noFailureRecords, "no-failure-records", false, "suppress records for URLs where every tier failed")
	cmd.PreRun = func(*cobra.Command, []string) {
		if noFailureRecords {
			cfg.FailureRecords = false
		}
	}

	return cmd
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return exitf(exitConfig, "configuration: %w", err)
	}

	runID := ulid.Make().String()
	logger = logger.With("run_id", runID)
	ctx = logging.WithRunID(ctx, runID)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	v := version.Get()
	logger.Info("starting submarine",
		"version", v.Version,
		"commit", v.Commit,
		"seed_file", cfg.SeedPath,
		"workers", cfg.Workers,
		"mode", sinkMode(cfg))

	chunks, err := partition.Partition(cfg.SeedPath, cfg.Workers, cfg.OutputDir)
	if err != nil {
		if errors.Is(err, partition.ErrSeedFileMissing) {
			return exitf(exitSeedFile, "seed file: %w", err)
		}
		return exitf(exitInternal, "partition: %w", err)
	}

	var uploader *sink.Uploader
	if cfg.UploadEnabled() {
		uploader, err = sink.NewUploader(logger, sink.UploaderOptions{
			Bucket:    cfg.StorageBucket,
			Prefix:    cfg.StoragePrefix,
			Region:    cfg.StorageRegion,
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
		})
		if err != nil {
			return exitf(exitConfig, "object storage: %w", err)
		}
	}

	extractor := pacman.New(logger, pacman.Options{})

	var (
		g        errgroup.Group
		fellBack atomic.Bool
		seeds    atomic.Int64
		pages    atomic.Int64
	)
	for i := range cfg.Workers {
		id := cfg.WorkerID + i
		chunk := chunks[i]
		g.Go(func() error {
			w, err := worker.New(logger, cfg, id, extractor, uploader)
			if err != nil {
				return fmt.Errorf("worker %d: %w", id, err)
			}
			stats, err := w.Run(ctx, chunk)
			seeds.Add(int64(stats.Seeds))
			pages.Add(int64(stats.Pages))
			if w.FellBack() {
				fellBack.Store(true)
			}
			if err != nil {
				return fmt.Errorf("worker %d: %w", id, err)
			}
			return nil
		})
	}
	runErr := g.Wait()

	logger.Info("run finished",
		"seeds", seeds.Load(),
		"pages", pages.Load(),
		"sink_fallback", fellBack.Load())

	if runErr != nil {
		if errors.Is(runErr, scheduler.ErrTooManyInternalErrors) {
			return exitf(exitInternal, "worker stopped: %w", runErr)
		}
		return exitf(exitInternal, "%w", runErr)
	}
	if fellBack.Load() && cfg.StrictSink && cfg.IndexingEnabled() {
		return exitf(exitSinkFailure, "index sink fell back to file mode")
	}
	return nil
}

func sinkMode(cfg *config.Config) string {
	if cfg.IndexingEnabled() {
		return "index"
	}
	return "file"
}
