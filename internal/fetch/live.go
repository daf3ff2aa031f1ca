package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/submarine-osint/submarine/internal/models"
)

// Live is tier A: direct HTTP against the origin. One instance is shared by
// all pipelines in a worker; the semaphore bounds in-flight requests.
type Live struct {
	client  *http.Client
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	ua      string
	timeout time.Duration
}

// LiveOptions tune the tier A client. Zero values select defaults.
type LiveOptions struct {
	UserAgent string
	Timeout   time.Duration
	MaxConns  int64
	// RatePerSec caps outbound requests per second across all pipelines.
	// 0 disables the cap.
	RatePerSec float64
}

// NewLive builds the tier A fetcher with a pooled transport.
func NewLive(opts LiveOptions) *Live {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUA
	}
	if opts.Timeout <= 0 {
		opts.Timeout = TimeoutTierA
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = ConcurrentA
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          int(opts.MaxConns),
		MaxIdleConnsPerHost:   8,
		MaxConnsPerHost:       16,
		IdleConnTimeout:       60 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	var limiter *rate.Limiter
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), int(opts.RatePerSec)+1)
	}

	return &Live{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		sem:     semaphore.NewWeighted(opts.MaxConns),
		limiter: limiter,
		ua:      opts.UserAgent,
		timeout: opts.Timeout,
	}
}

// Fetch performs one GET with the tier A timeout and body cap.
func (l *Live) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	resp, err := l.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	resp.Source = models.SourceLive
	return resp, nil
}

// do issues the request and classifies the outcome. The returned URL is the
// final one after redirects, not the requested one.
func (l *Live) do(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", l.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%s: %w", rawURL, ErrNotFound)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s: %w", rawURL, ErrForbidden)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%s: %w", rawURL, &StatusError{Code: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if looksHTML(contentType) {
		if len(body) < MinBodyBytes {
			return nil, fmt.Errorf("%s: %d bytes: %w", rawURL, len(body), ErrTooSmall)
		}
		if sig := blockSignature(body); sig != "" {
			return nil, fmt.Errorf("%s: %s: %w", rawURL, sig, ErrBlocked)
		}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Response{
		URL:         finalURL,
		Status:      resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

func looksHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.Contains(ct, "text/html") || strings.Contains(ct, "xhtml")
}

// blockSignature checks a 2xx HTML body for bot-protection interstitials.
// Only the head of the body is examined.
func blockSignature(body []byte) string {
	head := body
	if len(head) > 4096 {
		head = head[:4096]
	}
	lower := strings.ToLower(string(head))
	for _, sig := range []string{
		"cf-challenge",
		"checking your browser",
		"just a moment...",
		"attention required! | cloudflare",
		"are you a robot",
		"/cdn-cgi/challenge-platform",
		"ddos protection by",
	} {
		if strings.Contains(lower, sig) {
			return sig
		}
	}
	return ""
}
