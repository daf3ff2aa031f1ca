// Package sink is the emission layer: records flow through a bounded queue
// into either an append-only JSONL file or bulk submissions to an
// Elasticsearch index. A persistently failing index sink falls back to a
// spill file so the worker keeps making progress.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/submarine-osint/submarine/internal/models"
)

// DefaultChunkSize is the index-mode bulk buffer size; the queue holds
// twice this many records.
const DefaultChunkSize = 500

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("sink closed")

// ErrBulkPermanent marks a bulk submission that failed after all retries.
var ErrBulkPermanent = errors.New("bulk submission failed permanently")

// Writer persists records. Implementations are driven by the single
// flush goroutine and need no internal locking.
type Writer interface {
	Write(ctx context.Context, page *models.Page) error
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// pendingHolder is implemented by writers that buffer records and can hand
// back the unsubmitted tail when they fail permanently.
type pendingHolder interface {
	Pending() []*models.Page
}

// Sink owns the bounded queue and the flush goroutine. Enqueue blocks when
// the queue is full, which propagates backpressure to the pipelines.
type Sink struct {
	logger   *slog.Logger
	queue    chan *models.Page
	done     chan struct{}
	writer   Writer
	spill    func() (Writer, error)
	fellBack bool

	mu        sync.Mutex
	closed    bool
	runErr    error
	enqueuers sync.WaitGroup
}

// Options configure a Sink.
type Options struct {
	// QueueSize bounds the in-memory queue (0 means 2×DefaultChunkSize).
	QueueSize int
	// Spill builds the fallback writer engaged when the primary writer
	// fails permanently. Nil disables fallback.
	Spill func() (Writer, error)
}

// New starts a Sink draining into w.
func New(logger *slog.Logger, w Writer, opts Options) *Sink {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 2 * DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sink{
		logger: logger.With("component", "sink"),
		queue:  make(chan *models.Page, opts.QueueSize),
		done:   make(chan struct{}),
		writer: w,
		spill:  opts.Spill,
	}
	go s.run()
	return s
}

// Enqueue hands one record to the sink, blocking while the queue is full.
// The enqueuers group keeps Close from closing the queue under an in-flight
// send.
func (s *Sink) Enqueue(ctx context.Context, page *models.Page) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.enqueuers.Add(1)
	s.mu.Unlock()
	defer s.enqueuers.Done()

	select {
	case s.queue <- page:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the single queue consumer.
func (s *Sink) run() {
	defer close(s.done)
	ctx := context.Background()
	for page := range s.queue {
		if err := s.writer.Write(ctx, page); err != nil {
			s.handleWriteError(ctx, page, err)
		}
	}
}

// handleWriteError engages the spill writer on permanent failures; other
// errors are logged and the record is dropped (the queue must keep
// draining or the whole worker stalls).
func (s *Sink) handleWriteError(ctx context.Context, page *models.Page, err error) {
	if !errors.Is(err, ErrBulkPermanent) || s.spill == nil || s.fellBack {
		s.logger.Error("record write failed", "url", page.URL, "error", err)
		s.setErr(err)
		return
	}

	s.logger.Warn("index sink failed permanently, switching to file mode", "error", err)
	spillWriter, spillErr := s.spill()
	if spillErr != nil {
		s.logger.Error("spill writer unavailable", "error", spillErr)
		s.setErr(spillErr)
		return
	}

	// A buffering writer still holds the failed record in Pending; a plain
	// writer does not, so the record itself is replayed. The failed writer
	// is abandoned rather than closed: closing would resubmit the very
	// buffer that just failed.
	replay := []*models.Page{page}
	if holder, ok := s.writer.(pendingHolder); ok {
		replay = holder.Pending()
	}

	s.writer = spillWriter
	s.mu.Lock()
	s.fellBack = true
	s.mu.Unlock()
	s.setErr(err)

	for _, p := range replay {
		if werr := s.writer.Write(ctx, p); werr != nil {
			s.logger.Error("spill write failed", "url", p.URL, "error", werr)
		}
	}
}

func (s *Sink) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runErr == nil {
		s.runErr = err
	}
}

// FellBack reports whether the sink switched to the spill writer.
func (s *Sink) FellBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fellBack
}

// Close drains the queue, flushes and closes the writer. Safe to call once.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// In-flight Enqueue calls finish before the queue closes; the consumer
	// is still draining, so none of them can block forever.
	s.enqueuers.Wait()
	close(s.queue)
	select {
	case <-s.done:
	case <-ctx.Done():
		return fmt.Errorf("sink drain: %w", ctx.Err())
	}

	if err := s.writer.Close(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}
