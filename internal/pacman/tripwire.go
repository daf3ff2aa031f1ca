package pacman

import (
	"sort"

	ahocorasick "github.com/BobuSumisu/aho-corasick"

	"github.com/submarine-osint/submarine/internal/models"
)

// tripwireScanner wraps the Aho-Corasick automaton built from the risk
// dictionary. Built once per extractor; safe for concurrent readers.
type tripwireScanner struct {
	trie *ahocorasick.Trie
	// terms[i] is the (category, canonical term) behind pattern index i.
	terms []tripwireEntry
}

type tripwireEntry struct {
	category models.TripwireCategory
	term     string
}

func newTripwireScanner() *tripwireScanner {
	cats := make([]string, 0, len(tripwireTerms))
	for c := range tripwireTerms {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	s := &tripwireScanner{}
	var patterns []string
	for _, c := range cats {
		for _, term := range tripwireTerms[c] {
			patterns = append(patterns, asciiLower(term))
			s.terms = append(s.terms, tripwireEntry{
				category: models.TripwireCategory(c),
				term:     term,
			})
		}
	}
	s.trie = ahocorasick.NewTrieBuilder().AddStrings(patterns).Build()
	return s
}

// Scan reports dictionary hits in text, deduplicated per (category, term)
// with the first occurrence's span kept, ordered by offset.
func (s *tripwireScanner) Scan(text string) []models.TripwireHit {
	matches := s.trie.MatchString(asciiLower(text))
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[tripwireEntry]bool)
	var hits []models.TripwireHit
	for _, m := range matches {
		entry := s.terms[m.Pattern()]
		if seen[entry] {
			continue
		}
		seen[entry] = true
		start := int(m.Pos())
		hits = append(hits, models.TripwireHit{
			Category: entry.category,
			Term:     entry.term,
			Span:     [2]int{start, start + len(m.Match())},
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Span[0] < hits[j].Span[0] })
	return hits
}

// asciiLower lowercases A-Z only, so byte offsets into the original text
// stay valid.
func asciiLower(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
