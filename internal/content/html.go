// Package content converts fetched payloads into normalized UTF-8 text:
// charset-aware HTML decoding, text collapsing, link harvesting, and
// binary-format text extraction.
package content

import (
	"fmt"
	"mime"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

// Link is one anchor extracted from a page.
type Link struct {
	URL    string
	Anchor string
}

// ParsedPage is the outcome of HTML parsing: collapsed visible text and the
// resolved links found in the document.
type ParsedPage struct {
	Title string
	Text  string
	Links []Link
}

var (
	metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_\-]+)`)
	spaceRe       = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankLinesRe  = regexp.MustCompile(`\n{2,}`)
)

// DecodeHTML converts raw page bytes to UTF-8 using the declared charset
// (Content-Type parameter, then meta tag), falling back to statistical
// detection. Undetectable input is passed through unchanged.
func DecodeHTML(body []byte, contentType string) string {
	name := charsetFromContentType(contentType)
	if name == "" {
		if m := metaCharsetRe.FindSubmatch(body); m != nil {
			name = string(m[1])
		}
	}
	if name == "" {
		det := chardet.NewHtmlDetector()
		if best, err := det.DetectBest(body); err == nil && best.Confidence > 40 {
			name = best.Charset
		}
	}
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "us-ascii") {
		return string(body)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func charsetFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// ParseHTML parses UTF-8 HTML into collapsed text and resolved links.
// Script, style and noscript subtrees are removed before text extraction;
// whitespace is collapsed to single-spaced lines.
func ParseHTML(htmlText string, base *url.URL) (*ParsedPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, template").Remove()

	page := &ParsedPage{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	page.Text = CollapseText(body.Text())

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(strings.ToLower(href), "javascript:") ||
			strings.HasPrefix(strings.ToLower(href), "mailto:") ||
			strings.HasPrefix(strings.ToLower(href), "tel:") {
			return
		}
		resolved := href
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				resolved = base.ResolveReference(ref).String()
			}
		}
		page.Links = append(page.Links, Link{
			URL:    resolved,
			Anchor: CollapseText(sel.Text()),
		})
	})

	return page, nil
}

// CollapseText normalizes whitespace: runs of spaces become one space, runs
// of blank lines become one newline, lines are trimmed.
func CollapseText(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// IsTextual reports whether a MIME type carries text we can scan directly.
func IsTextual(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	switch {
	case strings.HasPrefix(mt, "text/"):
		return true
	case mt == "application/json", mt == "application/xml",
		mt == "application/xhtml+xml", mt == "application/rss+xml",
		mt == "application/atom+xml":
		return true
	}
	return false
}

// IsHTML reports whether a MIME type is HTML-like.
func IsHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mt == "text/html" || mt == "application/xhtml+xml" || mt == ""
}
