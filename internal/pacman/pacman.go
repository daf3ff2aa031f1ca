// Package pacman is the extraction engine: it turns normalized page text
// into structured entities, risk-term hits, and external outlinks. All
// automata, expressions and gazetteers are compiled once in New; Extract is
// deterministic and never returns an error to its caller.
package pacman

import (
	"log/slog"
	"net/url"

	"github.com/submarine-osint/submarine/internal/content"
	"github.com/submarine-osint/submarine/internal/models"
	"github.com/submarine-osint/submarine/internal/urlutil"
)

const (
	defaultMaxContentScan = 100_000
	defaultMaxOutlinks    = 300
)

// Options tune the extractor's caps. Zero values select the defaults.
type Options struct {
	MaxContentScan  int
	MaxOutlinks     int
	MaxPersons      int
	MaxCompanies    int
	PersonThreshold float64
}

// Input is one page's worth of material for extraction.
type Input struct {
	URL         string
	Text        string
	Links       []content.Link
	ContentType string
}

// Result is the structured output for one page. Entity lists are
// deduplicated and ordered by first occurrence in the scanned text.
type Result struct {
	Tier          ExtractionTier
	Entities      map[models.EntityKind][]string
	Companies     []CompanyMatch
	Tripwires     []models.TripwireHit
	Outlinks      []string
	InternalLinks int
}

// Extractor holds the compiled pattern bank, tripwire automaton and
// gazetteers. One instance serves all pipelines; it is read-only after New.
type Extractor struct {
	opts     Options
	tripwire *tripwireScanner
	logger   *slog.Logger
}

// New builds an Extractor with all state compiled up front.
func New(logger *slog.Logger, opts Options) *Extractor {
	if opts.MaxContentScan <= 0 {
		opts.MaxContentScan = defaultMaxContentScan
	}
	if opts.MaxOutlinks <= 0 {
		opts.MaxOutlinks = defaultMaxOutlinks
	}
	if opts.MaxPersons <= 0 {
		opts.MaxPersons = defaultMaxPersons
	}
	if opts.MaxCompanies <= 0 {
		opts.MaxCompanies = defaultMaxCompanies
	}
	if opts.PersonThreshold <= 0 {
		opts.PersonThreshold = defaultPersonThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		opts:     opts,
		tripwire: newTripwireScanner(),
		logger:   logger.With("component", "pacman"),
	}
}

// Extract runs the fixed stage order: tier classification, tripwire scan,
// pattern extraction, name extraction, outlink extraction. Repeated calls
// on the same input produce identical results.
func (e *Extractor) Extract(in Input) Result {
	res := Result{
		Tier:     ClassifyTier(in.URL),
		Entities: make(map[models.EntityKind][]string),
	}
	if res.Tier == TierSkip || res.Tier == TierURLOnly {
		return res
	}

	text := in.Text
	if len(text) > e.opts.MaxContentScan {
		text = text[:e.opts.MaxContentScan]
	}

	res.Tripwires = e.tripwire.Scan(text)

	for i := range patternBank {
		p := &patternBank[i]
		values := e.applyPattern(p, text)
		if len(values) > 0 {
			res.Entities[p.kind] = values
		}
	}

	persons := extractPersons(text, e.opts.PersonThreshold, e.opts.MaxPersons)
	if len(persons) > 0 {
		res.Entities[models.KindPerson] = persons
	}
	res.Companies = extractCompanies(text, e.opts.MaxCompanies)
	if len(res.Companies) > 0 {
		names := make([]string, len(res.Companies))
		for i, c := range res.Companies {
			names[i] = c.Name
		}
		res.Entities[models.KindCompany] = names
	}

	if res.Tier == TierFull {
		res.Outlinks, res.InternalLinks = e.extractOutlinks(in.URL, in.Links)
	}
	return res
}

// applyPattern runs one pattern over the capped text and returns the
// normalized, validated, deduplicated values in first-seen order. A panic
// inside a pattern is logged and drops only that kind.
func (e *Extractor) applyPattern(p *pattern, text string) (values []string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("pattern extraction failed", "kind", string(p.kind), "panic", r)
			values = nil
		}
	}()

	locs := p.re.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return nil
	}
	group := 0
	if p.re.NumSubexp() > 0 {
		group = 1
	}

	seen := make(map[string]bool)
	for _, loc := range locs {
		start, end := loc[2*group], loc[2*group+1]
		if start < 0 {
			continue
		}
		v := text[start:end]
		if p.normalize != nil {
			v = p.normalize(v)
		}
		if p.valid != nil && !p.valid(v) {
			continue
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}

// extractOutlinks keeps links whose registrable domain differs from the
// page's, with tracking parameters stripped and duplicates removed, capped
// at MaxOutlinks. The count of same-domain links is returned alongside.
func (e *Extractor) extractOutlinks(pageURL string, links []content.Link) ([]string, int) {
	var pageDomain string
	if u, err := url.Parse(pageURL); err == nil {
		pageDomain = urlutil.RegistrableDomain(u.Hostname())
	}

	internal := 0
	seen := make(map[string]bool)
	var out []string
	for _, l := range links {
		u, err := url.Parse(l.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		if urlutil.RegistrableDomain(u.Hostname()) == pageDomain && pageDomain != "" {
			internal++
			continue
		}

		cleaned := urlutil.StripTracking(l.URL)
		if seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		if len(out) < e.opts.MaxOutlinks {
			out = append(out, cleaned)
		}
	}
	return out, internal
}
