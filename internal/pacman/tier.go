package pacman

import (
	"net/url"
	"strings"
)

// ExtractionTier controls how much work the extractor spends on a page.
type ExtractionTier string

const (
	// TierFull runs every stage.
	TierFull ExtractionTier = "FULL"
	// TierExtract runs pattern and name extraction but skips outlink
	// harvesting (profile pages link to the platform, not the subject).
	TierExtract ExtractionTier = "EXTRACT"
	// TierURLOnly records the page without scanning its text.
	TierURLOnly ExtractionTier = "URL_ONLY"
	// TierSkip drops the page entirely.
	TierSkip ExtractionTier = "SKIP"
)

// socialProfileHosts are platforms where a page is a profile rather than
// open web content.
var socialProfileHosts = map[string]bool{
	"facebook.com":    true,
	"twitter.com":     true,
	"x.com":           true,
	"instagram.com":   true,
	"linkedin.com":    true,
	"tiktok.com":      true,
	"youtube.com":     true,
	"pinterest.com":   true,
	"threads.net":     true,
	"vk.com":          true,
	"t.me":            true,
	"telegram.me":     true,
	"medium.com":      true,
	"github.com":      true,
}

// shortenerHosts resolve to somewhere else; the URL itself is the only
// signal worth keeping.
var shortenerHosts = map[string]bool{
	"bit.ly":     true,
	"t.co":       true,
	"goo.gl":     true,
	"tinyurl.com": true,
	"ow.ly":      true,
	"buff.ly":    true,
	"is.gd":      true,
	"rebrand.ly": true,
	"cutt.ly":    true,
	"shorturl.at": true,
}

// infraHosts serve assets and beacons, never subject content.
var infraHosts = map[string]bool{
	"doubleclick.net":      true,
	"googletagmanager.com": true,
	"google-analytics.com": true,
	"googlesyndication.com": true,
	"adnxs.com":            true,
	"criteo.com":           true,
	"scorecardresearch.com": true,
	"cloudfront.net":       true,
	"akamaihd.net":         true,
	"fastly.net":           true,
	"gstatic.com":          true,
	"fbcdn.net":            true,
	"twimg.com":            true,
}

// ClassifyTier assigns an extraction tier from the URL alone. It is pure:
// no network, no state.
func ClassifyTier(rawURL string) ExtractionTier {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return TierFull
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	if matchHostSuffix(host, infraHosts) {
		return TierSkip
	}
	if matchHostSuffix(host, shortenerHosts) {
		return TierURLOnly
	}
	if matchHostSuffix(host, socialProfileHosts) {
		return TierExtract
	}
	return TierFull
}

// matchHostSuffix checks host and each parent domain against the set, so
// sub.linkedin.com matches linkedin.com.
func matchHostSuffix(host string, set map[string]bool) bool {
	for {
		if set[host] {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return false
		}
		host = host[i+1:]
	}
}
