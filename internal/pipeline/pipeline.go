// Package pipeline crawls one seed domain: it manages the frontier,
// drives the tiered fetcher, parses and extracts each page, and emits
// exactly one record per fetched URL. A pipeline is single-use and owns no
// shared state beyond the fetch clients and the sink handed to it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/submarine-osint/submarine/internal/content"
	"github.com/submarine-osint/submarine/internal/fetch"
	"github.com/submarine-osint/submarine/internal/models"
	"github.com/submarine-osint/submarine/internal/pacman"
	"github.com/submarine-osint/submarine/internal/urlutil"
)

// Secondary budget for URL_ONLY and EXTRACT fetches, which are cheap
// relative to full page processing.
const (
	secondaryBudgetFactor = 4
	secondaryBudgetMin    = 100
)

// Config holds the per-domain crawl limits.
type Config struct {
	MaxPages        int
	MaxDepth        int
	AllowSubdomains bool
	RespectRobots   bool
	// FailureRecords emits a record with source "failed" when every tier
	// is exhausted for a URL.
	FailureRecords bool
	UserAgent      string
}

// Emitter receives finished records. *sink.Sink satisfies it.
type Emitter interface {
	Enqueue(ctx context.Context, page *models.Page) error
}

// Pipeline crawls a single seed domain to completion.
type Pipeline struct {
	logger    *slog.Logger
	cfg       Config
	fetcher   fetch.Fetcher
	client    *http.Client // robots.txt and sitemap requests
	extractor *pacman.Extractor
	binary    content.BinaryExtractor
	sink      Emitter
}

// New builds a Pipeline. The fetcher is normally a fetch.Chain shared
// tier-by-tier across all pipelines of a worker; client serves the
// pipeline's own robots and sitemap requests.
func New(logger *slog.Logger, cfg Config, fetcher fetch.Fetcher, client *http.Client, extractor *pacman.Extractor, sink Emitter) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetch.DefaultUA
	}
	return &Pipeline{
		logger:    logger.With("component", "pipeline"),
		cfg:       cfg,
		fetcher:   fetcher,
		client:    client,
		extractor: extractor,
		binary:    content.NewBinary(0),
		sink:      sink,
	}
}

func secondaryBudget(maxPages int) int {
	b := secondaryBudgetFactor * maxPages
	if b < secondaryBudgetMin {
		b = secondaryBudgetMin
	}
	return b
}

// run-loop state for one seed.
type crawl struct {
	seedURL     *url.URL
	frontier    *frontier
	robots      *fetch.Robots
	pages       int
	failures    int
	full        int
	secondary   int
	sitemapDone bool
}

// Run crawls seed until the page budget, the frontier, or the context is
// exhausted. It always returns a Completion; the caller logs it.
func (p *Pipeline) Run(ctx context.Context, seed string) models.Completion {
	start := time.Now()
	done := func(outcome models.CompletionOutcome, c *crawl, err error) models.Completion {
		comp := models.Completion{
			Seed:     seed,
			Outcome:  outcome,
			Duration: time.Since(start),
			Err:      err,
		}
		if c != nil {
			comp.Pages = c.pages
			comp.Failures = c.failures
		}
		return comp
	}

	normalized, err := urlutil.Normalize(seed)
	if err != nil {
		return done(models.OutcomeInternalError, nil, fmt.Errorf("seed url: %w", err))
	}
	seedURL, err := url.Parse(normalized)
	if err != nil {
		return done(models.OutcomeInternalError, nil, fmt.Errorf("seed url: %w", err))
	}

	c := &crawl{seedURL: seedURL, frontier: newFrontier()}
	if p.cfg.RespectRobots {
		c.robots = fetch.NewRobots(p.client, p.cfg.UserAgent, seedURL)
		if !c.robots.Allow(ctx, seedURL) {
			return done(models.OutcomeRobotsDenied, c, nil)
		}
	}

	c.frontier.push(normalized, 0, "")

	for {
		if ctx.Err() != nil {
			return done(models.OutcomePartialTimeout, c, ctx.Err())
		}
		entry, ok := c.frontier.pop()
		if !ok {
			break
		}

		tier := pacman.ClassifyTier(entry.url)
		if tier == pacman.TierSkip {
			continue
		}
		if tier == pacman.TierFull {
			if c.full >= p.cfg.MaxPages {
				break // page budget exhausted, stop the pipeline
			}
		} else if c.secondary >= secondaryBudget(p.cfg.MaxPages) {
			continue
		}

		if c.robots != nil {
			if u, err := url.Parse(entry.url); err == nil && !c.robots.Allow(ctx, u) {
				continue
			}
		}

		outcome, err := p.processURL(ctx, c, entry, tier)
		if err != nil {
			return done(outcome, c, err)
		}
	}

	if ctx.Err() != nil {
		return done(models.OutcomePartialTimeout, c, ctx.Err())
	}
	return done(models.OutcomeOK, c, nil)
}

// processURL fetches one frontier entry and emits its record. A non-nil
// error terminates the pipeline with the returned outcome.
func (p *Pipeline) processURL(ctx context.Context, c *crawl, entry frontierEntry, tier pacman.ExtractionTier) (models.CompletionOutcome, error) {
	resp, err := p.fetcher.Fetch(ctx, entry.url)
	if err != nil {
		if ctx.Err() != nil {
			return models.OutcomePartialTimeout, ctx.Err()
		}
		c.failures++
		p.logger.Debug("all tiers failed",
			"url", entry.url,
			"parent", entry.parent,
			"error", err)
		if p.cfg.FailureRecords {
			if emitErr := p.emit(ctx, &models.Page{
				URL:        entry.url,
				Depth:      entry.depth,
				Source:     models.SourceFailed,
				HTTPStatus: fetch.StatusOf(err),
				Entities:   map[models.EntityKind][]string{},
			}); emitErr != nil {
				return p.emitFailureOutcome(ctx, emitErr)
			}
		}
		if entry.depth == 0 {
			return models.OutcomeDomainUnreachable, fmt.Errorf("seed unreachable: %w", err)
		}
		return "", nil
	}

	// The response URL is the canonical post-redirect URL; marking it seen
	// keeps the redirect target from being crawled a second time.
	if resp.URL != "" && resp.URL != entry.url {
		c.frontier.mark(resp.URL)
	}

	page, links := p.buildPage(entry, tier, resp)
	if err := p.emit(ctx, page); err != nil {
		return p.emitFailureOutcome(ctx, err)
	}
	c.pages++
	if tier == pacman.TierFull {
		c.full++
	} else {
		c.secondary++
	}

	if tier == pacman.TierFull && entry.depth+1 <= p.cfg.MaxDepth {
		p.enqueueLinks(c, entry, links)
	}
	if entry.depth == 0 && !c.sitemapDone {
		p.supplementFromSitemaps(ctx, c)
	}
	return "", nil
}

// buildPage decodes, parses and extracts one fetched payload. It never
// fails: undecodable content degrades to a URL-only record.
func (p *Pipeline) buildPage(entry frontierEntry, tier pacman.ExtractionTier, resp *fetch.Response) (*models.Page, []content.Link) {
	pageURL := resp.URL
	if pageURL == "" {
		pageURL = entry.url
	}
	page := &models.Page{
		URL:         pageURL,
		Depth:       entry.depth,
		Source:      resp.Source,
		HTTPStatus:  resp.Status,
		ContentType: resp.ContentType,
		Len:         len(resp.Body),
		Entities:    map[models.EntityKind][]string{},
		CrawledAt:   time.Now().UTC(),
	}
	if tier == pacman.TierURLOnly {
		return page, nil
	}

	var (
		text  string
		links []content.Link
	)
	switch {
	case content.IsHTML(resp.ContentType):
		decoded := content.DecodeHTML(resp.Body, resp.ContentType)
		if parsed, err := content.ParseHTML(decoded, p.baseURL(pageURL)); err == nil {
			text = parsed.Text
			links = parsed.Links
		}
	case content.IsTextual(resp.ContentType):
		text = content.CollapseText(content.DecodeHTML(resp.Body, resp.ContentType))
	case content.IsBinaryExtractable(resp.ContentType):
		binText, _, partial, err := p.binary.Extract(resp.Body, resp.ContentType)
		if err != nil {
			// Legacy and damaged binary formats degrade to URL-only.
			return page, nil
		}
		text = binText
		page.Partial = partial
	default:
		return page, nil
	}

	res := p.extractor.Extract(pacman.Input{
		URL:         pageURL,
		Text:        text,
		Links:       links,
		ContentType: resp.ContentType,
	})
	page.Text = text
	page.Entities = res.Entities
	page.Tripwires = res.Tripwires
	page.Outlinks = res.Outlinks
	page.InternalLinks = res.InternalLinks
	return page, links
}

// enqueueLinks feeds in-scope child URLs back into the frontier.
func (p *Pipeline) enqueueLinks(c *crawl, parent frontierEntry, links []content.Link) {
	for _, link := range links {
		if urlutil.ShouldSkip(link.URL) {
			continue
		}
		if !urlutil.InScope(c.seedURL.String(), link.URL, p.cfg.AllowSubdomains) {
			continue
		}
		c.frontier.push(urlutil.StripTracking(link.URL), parent.depth+1, parent.url)
	}
}

// supplementFromSitemaps tops up a sparse frontier from the domain's
// sitemaps after the seed fetch. Runs at most once per pipeline. Sitemap
// URLs enter at depth 1, so a depth-0 crawl skips the supplement entirely.
func (p *Pipeline) supplementFromSitemaps(ctx context.Context, c *crawl) {
	c.sitemapDone = true
	if p.cfg.MaxDepth < 1 {
		return
	}
	if c.frontier.len() >= p.cfg.MaxPages/2 {
		return
	}

	sitemaps := []string{c.seedURL.Scheme + "://" + c.seedURL.Host + "/sitemap.xml"}
	if c.robots != nil {
		sitemaps = append(c.robots.Sitemaps(ctx), sitemaps...)
	}

	added := 0
	for _, loc := range fetchSitemapURLs(ctx, p.client, p.cfg.UserAgent, sitemaps, maxSitemapURLs) {
		if urlutil.ShouldSkip(loc) {
			continue
		}
		if !urlutil.InScope(c.seedURL.String(), loc, p.cfg.AllowSubdomains) {
			continue
		}
		if c.frontier.push(urlutil.StripTracking(loc), 1, c.seedURL.String()) {
			added++
		}
	}
	if added > 0 {
		p.logger.Debug("frontier supplemented from sitemaps", "seed", c.seedURL.Host, "added", added)
	}
}

func (p *Pipeline) emit(ctx context.Context, page *models.Page) error {
	return p.sink.Enqueue(ctx, page)
}

// emitFailureOutcome classifies a sink enqueue failure: a cancelled context
// is the pipeline timeout, anything else is internal.
func (p *Pipeline) emitFailureOutcome(ctx context.Context, err error) (models.CompletionOutcome, error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return models.OutcomePartialTimeout, err
	}
	return models.OutcomeInternalError, fmt.Errorf("sink enqueue: %w", err)
}

func (p *Pipeline) baseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}
