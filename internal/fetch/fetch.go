// Package fetch implements the four acquisition tiers: direct HTTP, archive
// index lookup, live archive snapshot, and headless rendering. A Chain walks
// them in order, retrying transient failures in-tier and promoting on
// failures a lower tier cannot recover from.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/submarine-osint/submarine/internal/models"
)

// Per-tier request timeouts and concurrency ceilings.
const (
	TimeoutTierA = 10 * time.Second
	TimeoutTierB = 20 * time.Second
	TimeoutTierC = 45 * time.Second
	TimeoutTierD = 60 * time.Second

	ConcurrentA = 200
	ConcurrentB = 50
	ConcurrentC = 25
	ConcurrentD = 4
)

// In-tier retry policy for transient failures.
const (
	MaxRetries   = 2
	RetryBase    = 500 * time.Millisecond
	RetryFactor  = 2.0
	RetryJitter  = 0.25
	MinBodyBytes = 128
	MaxBodyBytes = 5 << 20
	DefaultUA    = "Mozilla/5.0 (compatible; submarine/1.0; +https://github.com/submarine-osint/submarine)"
)

var (
	// ErrNotFound covers 404 and 410: the resource does not exist here.
	ErrNotFound = errors.New("not found")
	// ErrForbidden covers 403: retrying the same tier will not help.
	ErrForbidden = errors.New("forbidden")
	// ErrBlocked marks bot-protection interstitials served with 2xx.
	ErrBlocked = errors.New("blocked by protection")
	// ErrTooSmall marks a body under the minimum plausible page size.
	ErrTooSmall = errors.New("body below minimum plausible size")
	// ErrNoSnapshot means the archive index has no capture for the URL.
	ErrNoSnapshot = errors.New("no archive snapshot")
	// ErrAllTiersFailed is returned by the Chain when every tier failed.
	ErrAllTiersFailed = errors.New("all fetch tiers failed")
)

// StatusError carries an unexpected HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Response is the outcome of a successful fetch at any tier.
type Response struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
	Source      models.FetchSource
}

// Fetcher is one acquisition tier.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// IsTerminal reports failures that in-tier retries cannot fix: the next
// tier should be tried immediately.
func IsTerminal(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrBlocked) || errors.Is(err, ErrTooSmall) ||
		errors.Is(err, ErrNoSnapshot) {
		return true
	}
	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}

// IsRetryable reports failures worth another in-tier attempt: transient
// 5xx, 429, timeouts, and resets mid-transfer.
func IsRetryable(err error) bool {
	if err == nil || IsTerminal(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == 429 || statusErr.Code >= 500
	}
	return true
}

// StatusOf extracts the HTTP status behind an error, or 0.
func StatusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrForbidden):
		return 403
	}
	return 0
}
