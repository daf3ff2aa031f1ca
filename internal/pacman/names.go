package pacman

import (
	"regexp"
	"sort"
	"strings"
)

// Name extraction: gazetteer-scored person candidates and legal-form-anchored
// company candidates. Both run over the capped text only.

const (
	defaultPersonThreshold = 0.6
	defaultMaxPersons      = 30
	defaultMaxCompanies    = 20
)

var personCandidateRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:-[A-Z][a-z]+)?(?: [A-Z][a-z]+(?:-[A-Z][a-z]+)?){1,2}\b`)

// CompanyMatch is one extracted company with the jurisdiction implied by
// its legal-form designator.
type CompanyMatch struct {
	Name         string
	Jurisdiction string
}

var (
	companyRe     *regexp.Regexp
	designatorJur map[string]string
)

func init() {
	// Longest designators first so "Pte. Ltd." wins over "Ltd.".
	forms := make([]string, 0, len(legalForms))
	designatorJur = make(map[string]string, len(legalForms))
	for f, jur := range legalForms {
		forms = append(forms, f)
		designatorJur[strings.ToLower(f)] = jur
	}
	sort.Slice(forms, func(i, j int) bool {
		if len(forms[i]) != len(forms[j]) {
			return len(forms[i]) > len(forms[j])
		}
		return forms[i] < forms[j]
	})
	escaped := make([]string, len(forms))
	for i, f := range forms {
		escaped[i] = regexp.QuoteMeta(f)
	}
	companyRe = regexp.MustCompile(
		`\b((?:[A-Z][A-Za-z0-9&.'\-]*,? ){1,6}(` + strings.Join(escaped, "|") + `))(?:[ .,;)\n]|$)`)
}

type personMatch struct {
	name   string
	offset int
	score  float64
}

// extractPersons proposes title-cased bigram/trigram candidates, scores
// each against the name gazetteer plus nearby title cues, and keeps those
// at or above the threshold, ordered by first occurrence.
func extractPersons(text string, threshold float64, maxPersons int) []string {
	locs := personCandidateRe.FindAllStringIndex(text, -1)
	if locs == nil {
		return nil
	}

	seen := make(map[string]bool)
	var kept []personMatch
	for _, loc := range locs {
		candidate := text[loc[0]:loc[1]]
		parts := strings.Fields(candidate)
		if len(parts) < 2 || len(parts) > 3 {
			continue
		}

		hits := 0
		for i, p := range parts {
			w := strings.ToLower(strings.Trim(p, "-"))
			if i == 0 && givenNames[w] {
				hits++
			} else if i > 0 && (familyNames[w] || givenNames[w]) {
				hits++
			}
		}
		score := float64(hits) / float64(len(parts))
		if hasTitleCue(text, loc[0]) {
			score += 0.3
			if score > 1 {
				score = 1
			}
		}
		if score < threshold {
			continue
		}
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		kept = append(kept, personMatch{name: candidate, offset: loc[0], score: score})
	}

	if len(kept) > maxPersons {
		kept = kept[:maxPersons]
	}
	out := make([]string, len(kept))
	for i, m := range kept {
		out[i] = m.name
	}
	return out
}

// hasTitleCue checks the 24 characters preceding the candidate for an
// honorific or role token.
func hasTitleCue(text string, start int) bool {
	lo := start - 24
	if lo < 0 {
		lo = 0
	}
	window := strings.ToLower(text[lo:start])
	fields := strings.Fields(window)
	if len(fields) == 0 {
		return false
	}
	last := strings.Trim(fields[len(fields)-1], ",:;")
	for _, cue := range titleCues {
		if last == cue {
			return true
		}
	}
	return false
}

// extractCompanies finds phrases ending in a known legal-form designator.
// Results keep first-seen order and are deduplicated on the full name.
func extractCompanies(text string, maxCompanies int) []CompanyMatch {
	locs := companyRe.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []CompanyMatch
	for _, loc := range locs {
		name := strings.TrimSpace(text[loc[2]:loc[3]])
		designator := text[loc[4]:loc[5]]
		if seen[name] {
			continue
		}
		// A bare designator with no preceding name token is noise.
		if name == designator {
			continue
		}
		seen[name] = true
		out = append(out, CompanyMatch{
			Name:         name,
			Jurisdiction: designatorJur[strings.ToLower(designator)],
		})
		if len(out) == maxCompanies {
			break
		}
	}
	return out
}
