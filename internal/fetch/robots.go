package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// Robots evaluates robots.txt for one host. It belongs to a single domain
// pipeline, so it carries no locking; the file is fetched once on first use.
// A missing, malformed, or unfetchable robots.txt allows everything.
type Robots struct {
	client  *http.Client
	ua      string
	baseURL *url.URL

	loaded   bool
	group    *robotstxt.Group
	sitemaps []string
}

// NewRobots builds the robots gate for the host of seedURL.
func NewRobots(client *http.Client, ua string, seedURL *url.URL) *Robots {
	if client == nil {
		client = &http.Client{Timeout: TimeoutTierA}
	}
	if ua == "" {
		ua = DefaultUA
	}
	return &Robots{client: client, ua: ua, baseURL: seedURL}
}

// Allow reports whether the path of u may be fetched.
func (r *Robots) Allow(ctx context.Context, u *url.URL) bool {
	r.load(ctx)
	if r.group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return r.group.Test(path)
}

// Sitemaps returns the Sitemap entries declared in robots.txt.
func (r *Robots) Sitemaps(ctx context.Context) []string {
	r.load(ctx)
	return r.sitemaps
}

func (r *Robots) load(ctx context.Context) {
	if r.loaded {
		return
	}
	r.loaded = true

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", r.baseURL.Scheme, r.baseURL.Host)
	ctx, cancel := context.WithTimeout(ctx, TimeoutTierA)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", r.ua)

	resp, err := r.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return
	}
	r.group = data.FindGroup(r.ua)
	r.sitemaps = data.Sitemaps
}
