package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/submarine-osint/submarine/internal/fetch"
	"github.com/submarine-osint/submarine/internal/models"
	"github.com/submarine-osint/submarine/internal/pacman"
	"github.com/submarine-osint/submarine/internal/urlutil"
)

// stubFetcher serves canned responses keyed by normalized URL. URLs with no
// entry fail as if every tier were exhausted.
type stubFetcher struct {
	pages   map[string]*fetch.Response
	calls   map[string]int
	onFetch func()
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) (*fetch.Response, error) {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[rawURL]++
	if s.onFetch != nil {
		s.onFetch()
	}
	resp, ok := s.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("%w: %w", fetch.ErrAllTiersFailed, &fetch.StatusError{Code: 404})
	}
	out := *resp
	if out.URL == "" {
		out.URL = rawURL
	}
	return &out, nil
}

// noNetwork fails every robots and sitemap request so tests stay off the
// real network.
type noNetwork struct{}

func (noNetwork) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, fmt.Errorf("no network in tests: %s", req.URL)
}

type collectEmitter struct {
	pages []*models.Page
}

func (c *collectEmitter) Enqueue(_ context.Context, p *models.Page) error {
	c.pages = append(c.pages, p)
	return nil
}

func htmlResp(body string) *fetch.Response {
	return &fetch.Response{
		Status:      200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(body),
		Source:      models.SourceLive,
	}
}

func newTestPipeline(t *testing.T, cfg Config, f fetch.Fetcher) (*Pipeline, *collectEmitter) {
	t.Helper()
	out := &collectEmitter{}
	client := &http.Client{Transport: noNetwork{}}
	p := New(nil, cfg, f, client, pacman.New(nil, pacman.Options{}), out)
	return p, out
}

func mustNormalize(t *testing.T, raw string) string {
	t.Helper()
	n, err := urlutil.Normalize(raw)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCrawlFollowsInternalLinks(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetch.Response{
		"https://example.com/": htmlResp(
			`<html><title>Home</title><body><a href="/about">About us</a></body></html>`),
		"https://example.com/about": htmlResp(
			`<html><body>Contact info@example.com <a href="https://partner.org/page">partner</a></body></html>`),
	}}
	p, out := newTestPipeline(t, Config{MaxPages: 3, MaxDepth: 2}, f)

	comp := p.Run(context.Background(), "https://example.com/")
	if comp.Outcome != models.OutcomeOK {
		t.Fatalf("outcome = %s, err = %v", comp.Outcome, comp.Err)
	}
	if comp.Pages != 2 || len(out.pages) != 2 {
		t.Fatalf("pages = %d (emitted %d), want 2", comp.Pages, len(out.pages))
	}

	index := out.pages[0]
	if index.URL != "https://example.com/" || index.Depth != 0 {
		t.Errorf("first record = %s depth %d, want seed at depth 0", index.URL, index.Depth)
	}
	if index.InternalLinks != 1 {
		t.Errorf("index internal_links = %d, want 1", index.InternalLinks)
	}

	about := out.pages[1]
	if about.URL != "https://example.com/about" || about.Depth != 1 {
		t.Errorf("second record = %s depth %d", about.URL, about.Depth)
	}
	if len(about.Outlinks) != 1 || about.Outlinks[0] != "https://partner.org/page" {
		t.Errorf("outlinks = %v", about.Outlinks)
	}
	if got := about.Entities[models.KindEmail]; len(got) != 1 || got[0] != "info@example.com" {
		t.Errorf("EMAIL = %v", got)
	}

	// The external link must not have been fetched.
	if f.calls["https://partner.org/page"] != 0 {
		t.Error("external URL was fetched")
	}
}

func TestPageBudgetStopsPipeline(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetch.Response{
		"https://example.com/": htmlResp(
			`<html><body><a href="/a">a</a><a href="/b">b</a><a href="/c">c</a></body></html>`),
		"https://example.com/a": htmlResp(`<html><body>a</body></html>`),
		"https://example.com/b": htmlResp(`<html><body>b</body></html>`),
		"https://example.com/c": htmlResp(`<html><body>c</body></html>`),
	}}
	p, out := newTestPipeline(t, Config{MaxPages: 2, MaxDepth: 2}, f)

	comp := p.Run(context.Background(), "https://example.com/")
	if comp.Outcome != models.OutcomeOK {
		t.Fatalf("outcome = %s", comp.Outcome)
	}
	if len(out.pages) != 2 {
		t.Fatalf("emitted %d pages, want 2", len(out.pages))
	}
}

func TestMaxDepthZeroFetchesOnlySeed(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetch.Response{
		"https://example.com/": htmlResp(
			`<html><body><a href="/a">a</a> <a href="https://other.org/x">x</a></body></html>`),
		"https://example.com/a": htmlResp(`<html><body>a</body></html>`),
	}}
	p, out := newTestPipeline(t, Config{MaxPages: 10, MaxDepth: 0}, f)

	comp := p.Run(context.Background(), "https://example.com/")
	if comp.Pages != 1 {
		t.Fatalf("pages = %d, want 1", comp.Pages)
	}
	// Outlinks are still extracted even though nothing is enqueued.
	if len(out.pages[0].Outlinks) != 1 {
		t.Errorf("outlinks = %v", out.pages[0].Outlinks)
	}
	if f.calls["https://example.com/a"] != 0 {
		t.Error("child fetched despite max_depth=0")
	}
}

func TestRedirectTargetRecordedAndNotRefetched(t *testing.T) {
	redirected := htmlResp(`<html><body><a href="/home">home</a></body></html>`)
	redirected.URL = "https://example.com/home"
	f := &stubFetcher{pages: map[string]*fetch.Response{
		"https://example.com/": redirected,
	}}
	p, out := newTestPipeline(t, Config{MaxPages: 10, MaxDepth: 2}, f)

	comp := p.Run(context.Background(), "https://example.com/")
	if comp.Outcome != models.OutcomeOK || comp.Pages != 1 {
		t.Fatalf("outcome = %s pages = %d", comp.Outcome, comp.Pages)
	}
	// The record carries the post-redirect URL, and the redirect target is
	// deduped rather than crawled again through the self-link.
	if out.pages[0].URL != "https://example.com/home" {
		t.Errorf("record url = %s, want final URL", out.pages[0].URL)
	}
	if f.calls["https://example.com/home"] != 0 {
		t.Error("redirect target fetched a second time")
	}
}

func TestFrontierDedupAcrossSpellings(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetch.Response{
		"https://example.com/": htmlResp(
			`<html><body>
			<a href="/about">1</a>
			<a href="/about#team">2</a>
			<a href="/about?utm_source=x">3</a>
			</body></html>`),
		"https://example.com/about": htmlResp(`<html><body>about</body></html>`),
	}}
	p, _ := newTestPipeline(t, Config{MaxPages: 10, MaxDepth: 2}, f)

	comp := p.Run(context.Background(), "https://example.com/")
	if comp.Pages != 2 {
		t.Fatalf("pages = %d, want 2", comp.Pages)
	}
	if f.calls["https://example.com/about"] != 1 {
		t.Errorf("about fetched %d times, want 1", f.calls["https://example.com/about"])
	}
}

func TestSeedUnreachable(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetch.Response{}}
	p, out := newTestPipeline(t, Config{MaxPages: 5, MaxDepth: 2, FailureRecords: true}, f)

	comp := p.Run(context.Background(), "https://dead.example/")
	if comp.Outcome != models.OutcomeDomainUnreachable {
		t.Fatalf("outcome = %s", comp.Outcome)
	}
	if comp.Pages != 0 || comp.Failures != 1 {
		t.Errorf("pages = %d failures = %d", comp.Pages, comp.Failures)
	}
	if len(out.pages) != 1 {
		t.Fatalf("emitted %d records, want 1 failure record", len(out.pages))
	}
	rec := out.pages[0]
	if rec.Source != models.SourceFailed || rec.HTTPStatus != 404 {
		t.Errorf("failure record = %+v", rec)
	}
}

func TestFailureRecordsDisabled(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetch.Response{}}
	p, out := newTestPipeline(t, Config{MaxPages: 5, MaxDepth: 2}, f)

	comp := p.Run(context.Background(), "https://dead.example/")
	if comp.Outcome != models.OutcomeDomainUnreachable {
		t.Fatalf("outcome = %s", comp.Outcome)
	}
	if len(out.pages) != 0 {
		t.Errorf("emitted %d records, want 0", len(out.pages))
	}
}

func TestChildFailureDoesNotStopCrawl(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetch.Response{
		"https://example.com/": htmlResp(
			`<html><body><a href="/missing">m</a><a href="/b">b</a></body></html>`),
		"https://example.com/b": htmlResp(`<html><body>b</body></html>`),
	}}
	p, out := newTestPipeline(t, Config{MaxPages: 10, MaxDepth: 2, FailureRecords: true}, f)

	comp := p.Run(context.Background(), "https://example.com/")
	if comp.Outcome != models.OutcomeOK {
		t.Fatalf("outcome = %s, err = %v", comp.Outcome, comp.Err)
	}
	if comp.Pages != 2 || comp.Failures != 1 {
		t.Errorf("pages = %d failures = %d, want 2/1", comp.Pages, comp.Failures)
	}
	if len(out.pages) != 3 {
		t.Fatalf("emitted %d records, want 3", len(out.pages))
	}
	if out.pages[1].Source != models.SourceFailed {
		t.Errorf("second record source = %s, want failed", out.pages[1].Source)
	}
}

func TestRobotsDeniedSeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := &stubFetcher{}
	out := &collectEmitter{}
	p := New(nil, Config{MaxPages: 5, MaxDepth: 2, RespectRobots: true}, f, srv.Client(), pacman.New(nil, pacman.Options{}), out)

	comp := p.Run(context.Background(), srv.URL+"/")
	if comp.Outcome != models.OutcomeRobotsDenied {
		t.Fatalf("outcome = %s", comp.Outcome)
	}
	if len(f.calls) != 0 || len(out.pages) != 0 {
		t.Errorf("fetches = %v records = %d, want none", f.calls, len(out.pages))
	}
}

func TestRobotsFiltersChildURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	seed := mustNormalize(t, srv.URL+"/")
	f := &stubFetcher{pages: map[string]*fetch.Response{
		seed: htmlResp(
			`<html><body><a href="/private/x">p</a><a href="/public">q</a></body></html>`),
		mustNormalize(t, srv.URL+"/public"): htmlResp(`<html><body>ok</body></html>`),
	}}
	out := &collectEmitter{}
	p := New(nil, Config{MaxPages: 10, MaxDepth: 2, RespectRobots: true}, f, srv.Client(), pacman.New(nil, pacman.Options{}), out)

	comp := p.Run(context.Background(), seed)
	if comp.Pages != 2 {
		t.Fatalf("pages = %d, want 2", comp.Pages)
	}
	if f.calls[mustNormalize(t, srv.URL+"/private/x")] != 0 {
		t.Error("disallowed URL was fetched")
	}
}

func TestPartialTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &stubFetcher{
		pages: map[string]*fetch.Response{
			"https://example.com/": htmlResp(`<html><body>home</body></html>`),
		},
		onFetch: cancel, // deadline fires while the first page is in flight
	}
	p, out := newTestPipeline(t, Config{MaxPages: 10, MaxDepth: 2}, f)

	comp := p.Run(ctx, "https://example.com/")
	if comp.Outcome != models.OutcomePartialTimeout {
		t.Fatalf("outcome = %s", comp.Outcome)
	}
	// Everything completed before the timeout must have been emitted.
	if len(out.pages) != 1 {
		t.Errorf("emitted %d records, want 1", len(out.pages))
	}
}

func TestShortenerSeedIsURLOnly(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetch.Response{
		"https://bit.ly/abc123": htmlResp(
			`<html><body>info@example.com <a href="https://other.org/">x</a></body></html>`),
	}}
	p, out := newTestPipeline(t, Config{MaxPages: 5, MaxDepth: 2}, f)

	comp := p.Run(context.Background(), "https://bit.ly/abc123")
	if comp.Outcome != models.OutcomeOK || comp.Pages != 1 {
		t.Fatalf("outcome = %s pages = %d", comp.Outcome, comp.Pages)
	}
	rec := out.pages[0]
	if rec.Text != "" || len(rec.Entities) != 0 || len(rec.Outlinks) != 0 {
		t.Errorf("url-only record carries content: %+v", rec)
	}
}

func TestMaxPagesZeroEmitsNothing(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetch.Response{
		"https://example.com/": htmlResp(`<html><body>home</body></html>`),
	}}
	p, out := newTestPipeline(t, Config{MaxPages: 0, MaxDepth: 2}, f)

	comp := p.Run(context.Background(), "https://example.com/")
	if comp.Outcome != models.OutcomeOK {
		t.Fatalf("outcome = %s", comp.Outcome)
	}
	if len(out.pages) != 0 || len(f.calls) != 0 {
		t.Errorf("records = %d fetches = %v, want none", len(out.pages), f.calls)
	}
}

func TestLegacyBinaryDegradesToURLOnly(t *testing.T) {
	f := &stubFetcher{pages: map[string]*fetch.Response{
		"https://example.com/report": {
			Status:      200,
			ContentType: "application/msword",
			Body:        []byte("\xd0\xcf\x11\xe0 legacy doc bytes"),
			Source:      models.SourceLive,
		},
	}}
	p, out := newTestPipeline(t, Config{MaxPages: 5, MaxDepth: 2}, f)

	comp := p.Run(context.Background(), "https://example.com/report")
	if comp.Pages != 1 {
		t.Fatalf("pages = %d, want 1", comp.Pages)
	}
	rec := out.pages[0]
	if rec.Text != "" || rec.HTTPStatus != 200 {
		t.Errorf("legacy binary record = %+v", rec)
	}
}

func TestSitemapSupplementsSparseFrontier(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/a</loc></url>
  <url><loc>%s/b</loc></url>
</urlset>`, srv.URL, srv.URL)
	})

	seed := mustNormalize(t, srv.URL+"/")
	pages := map[string]*fetch.Response{
		seed: htmlResp(`<html><body>no links here</body></html>`),
	}
	pages[mustNormalize(t, srv.URL+"/a")] = htmlResp(`<html><body>a</body></html>`)
	pages[mustNormalize(t, srv.URL+"/b")] = htmlResp(`<html><body>b</body></html>`)
	f := &stubFetcher{pages: pages}
	out := &collectEmitter{}
	p := New(nil, Config{MaxPages: 10, MaxDepth: 2}, f, srv.Client(), pacman.New(nil, pacman.Options{}), out)

	comp := p.Run(context.Background(), seed)
	if comp.Outcome != models.OutcomeOK {
		t.Fatalf("outcome = %s, err = %v", comp.Outcome, comp.Err)
	}
	if comp.Pages != 3 {
		t.Fatalf("pages = %d, want 3 (seed + 2 sitemap URLs)", comp.Pages)
	}
	for _, rec := range out.pages[1:] {
		if rec.Depth != 1 {
			t.Errorf("sitemap URL %s at depth %d, want 1", rec.URL, rec.Depth)
		}
	}
}

func TestSitemapSkippedAtMaxDepthZero(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/a</loc></url>
</urlset>`, srv.URL)
	})

	seed := mustNormalize(t, srv.URL+"/")
	pages := map[string]*fetch.Response{
		seed: htmlResp(`<html><body>no links here</body></html>`),
	}
	pages[mustNormalize(t, srv.URL+"/a")] = htmlResp(`<html><body>a</body></html>`)
	f := &stubFetcher{pages: pages}
	out := &collectEmitter{}
	p := New(nil, Config{MaxPages: 10, MaxDepth: 0}, f, srv.Client(), pacman.New(nil, pacman.Options{}), out)

	comp := p.Run(context.Background(), seed)
	if comp.Pages != 1 {
		t.Fatalf("pages = %d, want only the seed", comp.Pages)
	}
	if f.calls[mustNormalize(t, srv.URL+"/a")] != 0 {
		t.Error("sitemap URL fetched despite max_depth=0")
	}
	if out.pages[0].Depth != 0 {
		t.Errorf("record depth = %d, want 0", out.pages[0].Depth)
	}
}

func TestSecondaryBudget(t *testing.T) {
	if got := secondaryBudget(50); got != 200 {
		t.Errorf("secondaryBudget(50) = %d, want 200", got)
	}
	if got := secondaryBudget(10); got != 100 {
		t.Errorf("secondaryBudget(10) = %d, want 100", got)
	}
}
