package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/submarine-osint/submarine/internal/models"
)

// DefaultFlushEvery is the record interval between explicit flushes in
// file mode.
const DefaultFlushEvery = 100

// File writes records as JSON Lines to an append-only file.
type File struct {
	logger     *slog.Logger
	f          *os.File
	w          *bufio.Writer
	path       string
	flushEvery int
	sinceFlush int
	written    int
}

// NewFile opens (or creates) path for appending.
func NewFile(logger *slog.Logger, path string, flushEvery int) (*File, error) {
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &File{
		logger:     logger.With("component", "sink", "mode", "file"),
		f:          f,
		w:          bufio.NewWriterSize(f, 256<<10),
		path:       path,
		flushEvery: flushEvery,
	}, nil
}

// Path returns the output file path.
func (s *File) Path() string { return s.path }

// Written returns the number of records written so far.
func (s *File) Written() int { return s.written }

// Write appends one record as a single JSON line.
func (s *File) Write(_ context.Context, page *models.Page) error {
	line, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	s.written++
	s.sinceFlush++
	if s.sinceFlush >= s.flushEvery {
		s.sinceFlush = 0
		if err := s.w.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}
	return nil
}

// Flush forces buffered records to disk.
func (s *File) Flush(context.Context) error {
	s.sinceFlush = 0
	return s.w.Flush()
}

// Close flushes and closes the file.
func (s *File) Close(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		s.f.Close()
		return err
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	s.logger.Info("output file closed", "path", s.path, "records", s.written)
	return nil
}
