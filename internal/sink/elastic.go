package sink

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/submarine-osint/submarine/internal/models"
)

// Bulk retry policy: transient failures (connection errors, 429, 5xx) are
// retried bulkMaxRetries times with exponential backoff after the initial
// attempt, then the submission is declared permanent and the sink falls
// back to file mode.
const (
	bulkMaxRetries = 5
	bulkRetryBase  = time.Second
	bulkRetryCap   = 30 * time.Second
)

// ElasticOptions configure the index-mode writer.
type ElasticOptions struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
	Index     string
	// ChunkSize is the bulk buffer size (0 means DefaultChunkSize).
	ChunkSize int
	// DeterministicIDs derives _id from sha256(url) so reindexing the same
	// crawl overwrites rather than duplicates.
	DeterministicIDs bool
}

// Elastic buffers records and submits them with the bulk API when the
// buffer fills. Driven by the sink's flush goroutine only.
type Elastic struct {
	logger        *slog.Logger
	client        *elasticsearch.Client
	index         string
	chunkSize     int
	deterministic bool
	retryBase     time.Duration

	buf     bytes.Buffer
	pending []*models.Page
}

// NewElastic builds the index-mode writer and verifies nothing: the first
// bulk call surfaces connectivity problems through the retry path.
func NewElastic(logger *slog.Logger, opts ElasticOptions) (*Elastic, error) {
	if opts.Index == "" {
		return nil, fmt.Errorf("elastic sink: index name required")
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: opts.Addresses,
		Username:  opts.Username,
		Password:  opts.Password,
		APIKey:    opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("elastic client: %w", err)
	}
	return &Elastic{
		logger:        logger.With("component", "sink", "mode", "index"),
		client:        client,
		index:         opts.Index,
		chunkSize:     opts.ChunkSize,
		deterministic: opts.DeterministicIDs,
		retryBase:     bulkRetryBase,
	}, nil
}

// Write buffers one record; a full buffer triggers a bulk submission.
func (e *Elastic) Write(ctx context.Context, page *models.Page) error {
	doc, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if e.deterministic {
		id := sha256.Sum256([]byte(page.URL))
		fmt.Fprintf(&e.buf, `{"index":{"_index":%q,"_id":%q}}`+"\n", e.index, hex.EncodeToString(id[:]))
	} else {
		fmt.Fprintf(&e.buf, `{"index":{"_index":%q}}`+"\n", e.index)
	}
	e.buf.Write(doc)
	e.buf.WriteByte('\n')
	e.pending = append(e.pending, page)

	if len(e.pending) >= e.chunkSize {
		return e.submit(ctx)
	}
	return nil
}

// Flush submits any buffered records.
func (e *Elastic) Flush(ctx context.Context) error {
	if len(e.pending) == 0 {
		return nil
	}
	return e.submit(ctx)
}

// Close submits the remaining buffer.
func (e *Elastic) Close(ctx context.Context) error {
	return e.Flush(ctx)
}

// Pending returns the records buffered but not yet durably submitted.
func (e *Elastic) Pending() []*models.Page {
	return e.pending
}

// submit performs one bulk call with retries. On success the buffer is
// reset; permanent failure keeps the buffer for spill replay and returns
// an error wrapping ErrBulkPermanent.
func (e *Elastic) submit(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= bulkMaxRetries; attempt++ {
		if attempt > 0 {
			delay := e.retryBase << (attempt - 1)
			if delay > bulkRetryCap {
				delay = bulkRetryCap
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := e.bulkOnce(ctx)
		if err == nil {
			count := len(e.pending)
			e.buf.Reset()
			e.pending = nil
			e.logger.Debug("bulk submitted", "records", count)
			return nil
		}
		lastErr = err
		if !isBulkTransient(err) {
			break
		}
		e.logger.Warn("bulk submission failed, retrying",
			"attempt", attempt+1,
			"error", err)
	}
	return fmt.Errorf("%w: %w", ErrBulkPermanent, lastErr)
}

// bulkStatusError carries the HTTP status of a failed bulk call.
type bulkStatusError struct {
	status int
	body   string
}

func (e *bulkStatusError) Error() string {
	return fmt.Sprintf("bulk status %d: %s", e.status, e.body)
}

func isBulkTransient(err error) bool {
	var statusErr *bulkStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status == 429 || statusErr.status >= 500
	}
	// Transport-level failures (refused, reset, timeout) are transient.
	return true
}

func (e *Elastic) bulkOnce(ctx context.Context) error {
	res, err := e.client.Bulk(
		bytes.NewReader(e.buf.Bytes()),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("bulk call: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return &bulkStatusError{status: res.StatusCode, body: string(body)}
	}

	// Item-level failures do not fail the batch; surface them in logs.
	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil // submitted; an unreadable response body is not a failure
	}
	if result.Errors {
		failed := 0
		for _, item := range result.Items {
			for _, op := range item {
				if op.Error != nil {
					failed++
				}
			}
		}
		e.logger.Warn("bulk items rejected", "failed", failed, "total", len(result.Items))
	}
	return nil
}
