package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/submarine-osint/submarine/internal/config"
	"github.com/submarine-osint/submarine/internal/pacman"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		MaxPages:        5,
		MaxDepth:        1,
		Concurrent:      2,
		Workers:         1,
		PipelineTimeout: time.Second,
		FailureRecords:  true,
		NoIndex:         true,
		OutputDir:       dir,
		ChunkSize:       10,
	}
}

func TestWorkerFileModeEmptyChunk(t *testing.T) {
	dir := t.TempDir()
	chunk := filepath.Join(dir, "chunk_0.txt")
	if err := os.WriteFile(chunk, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(nil, testConfig(dir), 0, pacman.New(nil, pacman.Options{}), nil)
	if err != nil {
		t.Fatal(err)
	}

	stats, err := w.Run(context.Background(), chunk)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Seeds != 0 {
		t.Errorf("seeds = %d, want 0", stats.Seeds)
	}
	if w.FellBack() {
		t.Error("file-mode worker cannot fall back")
	}

	// The output file exists even for an empty chunk.
	if _, err := os.Stat(filepath.Join(dir, "worker_0.jsonl")); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestWorkerOutputPaths(t *testing.T) {
	dir := t.TempDir()
	w, err := New(nil, testConfig(dir), 3, pacman.New(nil, pacman.Options{}), nil)
	if err != nil {
		t.Fatal(err)
	}
	if w.filePath != filepath.Join(dir, "worker_3.jsonl") {
		t.Errorf("file path = %s", w.filePath)
	}
	if w.spillPath != filepath.Join(dir, "worker_3_spill.jsonl") {
		t.Errorf("spill path = %s", w.spillPath)
	}
	if err := w.sink.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}
