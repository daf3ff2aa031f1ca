package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/submarine-osint/submarine/internal/models"
)

// DefaultArchiveBase is the public web archive endpoint serving both the
// CDX index and snapshot capture.
const DefaultArchiveBase = "https://web.archive.org"

// Archive talks to a web archive and provides tiers B and C. Tier B
// resolves the most recent capture through the CDX index and fetches the
// stored record; tier C asks the archive to capture the page live.
type Archive struct {
	client   *http.Client
	ua       string
	base     string
	semIndex *semaphore.Weighted
	semLive  *semaphore.Weighted
}

// ArchiveOptions tune the archive client. Zero values select defaults.
type ArchiveOptions struct {
	UserAgent string
	Base      string
}

// NewArchive builds the shared archive client.
func NewArchive(opts ArchiveOptions) *Archive {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUA
	}
	if opts.Base == "" {
		opts.Base = DefaultArchiveBase
	}
	return &Archive{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        ConcurrentB,
				MaxIdleConnsPerHost: ConcurrentB,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		ua:       opts.UserAgent,
		base:     opts.Base,
		semIndex: semaphore.NewWeighted(ConcurrentB),
		semLive:  semaphore.NewWeighted(ConcurrentC),
	}
}

// Index returns the tier B fetcher.
func (a *Archive) Index() Fetcher { return &archiveIndex{a} }

// Snapshot returns the tier C fetcher.
func (a *Archive) Snapshot() Fetcher { return &archiveSnapshot{a} }

type archiveIndex struct{ a *Archive }

// Fetch resolves the latest 200 capture via the CDX index, then retrieves
// the stored record with the id_ flag so the body is unrewritten.
func (f *archiveIndex) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	a := f.a
	if err := a.semIndex.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer a.semIndex.Release(1)

	ctx, cancel := context.WithTimeout(ctx, TimeoutTierB)
	defer cancel()

	timestamp, original, err := a.latestCapture(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	recordURL := fmt.Sprintf("%s/web/%sid_/%s", a.base, timestamp, original)
	resp, err := a.get(ctx, recordURL)
	if err != nil {
		return nil, err
	}
	resp.URL = rawURL
	resp.Source = models.SourceArchiveIndex
	return resp, nil
}

// latestCapture queries the CDX index for the most recent 200 capture.
func (a *Archive) latestCapture(ctx context.Context, rawURL string) (timestamp, original string, err error) {
	q := url.Values{}
	q.Set("url", rawURL)
	q.Set("output", "json")
	q.Set("filter", "statuscode:200")
	q.Set("limit", "-1")

	resp, err := a.get(ctx, a.base+"/cdx/search/cdx?"+q.Encode())
	if err != nil {
		return "", "", fmt.Errorf("cdx lookup: %w", err)
	}

	// First row is the field header; captures follow.
	var rows [][]string
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return "", "", fmt.Errorf("cdx response: %w", err)
	}
	if len(rows) < 2 {
		return "", "", fmt.Errorf("%s: %w", rawURL, ErrNoSnapshot)
	}
	fields := rows[len(rows)-1]
	if len(fields) < 3 {
		return "", "", fmt.Errorf("%s: malformed cdx row: %w", rawURL, ErrNoSnapshot)
	}
	return fields[1], fields[2], nil
}

type archiveSnapshot struct{ a *Archive }

// Fetch asks the archive to capture the page now (tier C). Slow, so it gets
// the longer timeout and the tighter ceiling.
func (f *archiveSnapshot) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	a := f.a
	if err := a.semLive.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer a.semLive.Release(1)

	ctx, cancel := context.WithTimeout(ctx, TimeoutTierC)
	defer cancel()

	resp, err := a.get(ctx, a.base+"/save/"+rawURL)
	if err != nil {
		return nil, err
	}
	resp.URL = rawURL
	resp.Source = models.SourceArchiveLive
	return resp, nil
}

// get issues one GET against the archive with shared status classification.
func (a *Archive) get(ctx context.Context, u string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", a.ua)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%s: %w", u, ErrNotFound)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s: %w", u, ErrForbidden)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%s: %w", u, &StatusError{Code: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{
		URL:         u,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
