package pipeline

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
)

// maxSitemapURLs bounds how many URLs the sitemap supplement may contribute
// to a sparse frontier.
const maxSitemapURLs = 1000

const maxSitemapBytes = 10 << 20

type sitemapDoc struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndexDoc struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// fetchSitemapURLs retrieves each sitemap and returns the <loc> URLs found,
// following one level of sitemap-index nesting. Errors are silent: a broken
// sitemap just contributes nothing.
func fetchSitemapURLs(ctx context.Context, client *http.Client, ua string, sitemaps []string, limit int) []string {
	if limit <= 0 || limit > maxSitemapURLs {
		limit = maxSitemapURLs
	}
	var out []string
	for _, sm := range sitemaps {
		if len(out) >= limit {
			break
		}
		body := fetchSitemapBody(ctx, client, ua, sm)
		if body == nil {
			continue
		}

		var set sitemapDoc
		if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
			for _, u := range set.URLs {
				if u.Loc == "" {
					continue
				}
				out = append(out, u.Loc)
				if len(out) >= limit {
					break
				}
			}
			continue
		}

		var index sitemapIndexDoc
		if err := xml.Unmarshal(body, &index); err != nil {
			continue
		}
		for _, child := range index.Sitemaps {
			if len(out) >= limit || child.Loc == "" {
				continue
			}
			childBody := fetchSitemapBody(ctx, client, ua, child.Loc)
			if childBody == nil {
				continue
			}
			var childSet sitemapDoc
			if err := xml.Unmarshal(childBody, &childSet); err != nil {
				continue
			}
			for _, u := range childSet.URLs {
				if u.Loc == "" {
					continue
				}
				out = append(out, u.Loc)
				if len(out) >= limit {
					break
				}
			}
		}
	}
	return out
}

func fetchSitemapBody(ctx context.Context, client *http.Client, ua, rawURL string) []byte {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", ua)
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapBytes))
	if err != nil {
		return nil
	}
	return body
}
