package pacman

import (
	"regexp"
	"strings"

	"github.com/submarine-osint/submarine/internal/models"
)

// pattern binds an entity kind to its compiled expression and the per-kind
// normalization and validation steps. When the expression has a capture
// group, group 1 is the candidate; otherwise the full match is.
type pattern struct {
	kind      models.EntityKind
	re        *regexp.Regexp
	normalize func(string) string
	valid     func(string) bool
}

func normalizePhone(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		} else if r == '+' && i == 0 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func stripSpacesUpper(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	return strings.ToUpper(s)
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// patternBank is the fixed, ordered bank applied to every scanned page. The
// order fixes iteration order for deterministic output; expressions are
// compiled once at package load.
var patternBank = []pattern{
	{
		kind:      models.KindEmail,
		re:        regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9][A-Za-z0-9.\-]*\.[A-Za-z]{2,}`),
		normalize: strings.ToLower,
	},
	{
		kind:      models.KindPhoneIntl,
		re:        regexp.MustCompile(`\+\d{1,3}[ .\-]?\(?\d{1,4}\)?(?:[ .\-]?\d{2,4}){2,4}`),
		normalize: normalizePhone,
		valid: func(s string) bool {
			d := len(digitsOnly(s))
			return d >= 8 && d <= 15
		},
	},
	{
		kind:      models.KindPhoneUS,
		re:        regexp.MustCompile(`\(?\b[2-9]\d{2}\)?[ .\-]\d{3}[ .\-]\d{4}\b`),
		normalize: normalizePhone,
	},
	{
		kind:      models.KindPhoneUK,
		re:        regexp.MustCompile(`\b0[12378]\d{1,3}[ \-]?\d{3,4}[ \-]?\d{3,4}\b`),
		normalize: normalizePhone,
		valid: func(s string) bool {
			d := len(digitsOnly(s))
			return d == 10 || d == 11
		},
	},
	{
		kind:      models.KindPhoneEU,
		re:        regexp.MustCompile(`\b0\d{1,3}[ \-/]\d{2,4}[ \-/]?\d{2,4}[ \-/]?\d{0,4}\b`),
		normalize: normalizePhone,
		valid: func(s string) bool {
			d := len(digitsOnly(s))
			return d >= 8 && d <= 12
		},
	},
	{
		kind:      models.KindLEI,
		re:        regexp.MustCompile(`\b[A-Z0-9]{18}[0-9]{2}\b`),
		normalize: strings.ToUpper,
		valid:     validLEI,
	},
	{
		kind:      models.KindIBAN,
		re:        regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:[ ]?[A-Z0-9]{4}){2,7}(?:[ ]?[A-Z0-9]{1,4})?\b`),
		normalize: stripSpacesUpper,
		valid:     validIBAN,
	},
	{
		kind: models.KindSWIFT,
		re:   regexp.MustCompile(`\b[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}(?:[A-Z0-9]{3})?\b`),
		valid: func(s string) bool {
			// Shape collides with ordinary uppercase words; require a digit
			// in the location or branch part.
			return strings.IndexFunc(s[6:], func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
		},
	},
	{
		kind: models.KindVAT,
		re:   regexp.MustCompile(`\b(?:ATU\d{8}|BE0\d{9}|DE\d{9}|DK\d{8}|EL\d{9}|ES[A-Z0-9]\d{7}[A-Z0-9]|FI\d{8}|FR[A-Z0-9]{2}\d{9}|GB\d{9}(?:\d{3})?|IE\d[A-Z0-9+*]\d{5}[A-Z]|IT\d{11}|LU\d{8}|NL\d{9}B\d{2}|PL\d{10}|PT\d{9}|SE\d{12}|CZ\d{8,10}|RO\d{2,10}|HU\d{8})\b`),
	},
	{
		kind:  models.KindIMO,
		re:    regexp.MustCompile(`\bIMO[ :]?(\d{7})\b`),
		valid: validIMO,
	},
	{
		kind: models.KindMMSI,
		re:   regexp.MustCompile(`\bMMSI[ :#]*(\d{9})\b`),
	},
	{
		kind:      models.KindISIN,
		re:        regexp.MustCompile(`\b[A-Z]{2}[A-Z0-9]{9}\d\b`),
		normalize: strings.ToUpper,
		valid:     validISIN,
	},
	{
		kind:      models.KindDUNS,
		re:        regexp.MustCompile(`\b(?:DUNS|D-U-N-S)[ :#]*(\d{2}-?\d{3}-?\d{4})\b`),
		normalize: digitsOnly,
	},
	{
		kind:      models.KindUKCRN,
		re:        regexp.MustCompile(`(?i)\bcompany\s+(?:no\.?|number|registration(?:\s+number)?)[ :#]*([A-Z]{2}\d{6}|\d{8})\b`),
		normalize: strings.ToUpper,
	},
	{
		kind:      models.KindDEHRB,
		re:        regexp.MustCompile(`\bHR[AB][ ]?\d{1,6}(?:[ ]?[A-Z]{1,2})?\b`),
		normalize: stripSpacesUpper,
	},
	{
		kind:      models.KindFRSiren,
		re:        regexp.MustCompile(`(?i)\bSIREN[ :#]*(\d{3}[ ]?\d{3}[ ]?\d{3})\b`),
		normalize: digitsOnly,
		valid:     validSIREN,
	},
	{
		kind: models.KindBTC,
		re:   regexp.MustCompile(`\b[13][1-9A-HJ-NP-Za-km-z]{25,34}\b`),
		valid: func(s string) bool {
			return base58Check(s, btcAlphabet)
		},
	},
	{
		kind:  models.KindBTCBech32,
		re:    regexp.MustCompile(`\b(?:bc1|tb1)[02-9ac-hj-np-z]{11,87}\b`),
		valid: validBech32,
	},
	{
		kind:  models.KindETH,
		re:    regexp.MustCompile(`\b0x[0-9a-fA-F]{40}\b`),
		valid: validETH,
	},
	{
		kind: models.KindLTC,
		re:   regexp.MustCompile(`\b[LM][1-9A-HJ-NP-Za-km-z]{26,33}\b`),
		valid: func(s string) bool {
			return base58Check(s, btcAlphabet)
		},
	},
	{
		kind: models.KindXRP,
		re:   regexp.MustCompile(`\br[1-9A-HJ-NP-Za-km-z]{24,34}\b`),
		valid: func(s string) bool {
			return base58Check(s, xrpAlphabet)
		},
	},
	{
		// CryptoNote base58 has no per-address checksum we can verify
		// cheaply; shape plus the network prefix is the filter.
		kind: models.KindXMR,
		re:   regexp.MustCompile(`\b4[0-9AB][1-9A-HJ-NP-Za-km-z]{93}\b`),
	},
}
