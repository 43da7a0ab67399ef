package crawler

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/routescan/internal/model"
	"golang.org/x/net/html"
)

// LinkExtractor yields candidate locators from a parsed HTML document.
// Implementations return absolute locators resolved against base and do
// not filter by origin; admission is the Frontier's job.
type LinkExtractor interface {
	Extract(doc *goquery.Document, base *url.URL) []string
}

// linkElements are the elements whose href or src attribute is followed.
const linkElements = "a, link, script, img, source, video, audio"

// MarkupExtractor extracts href and src attributes of anchors, links,
// scripts, images, media sources, videos and audio elements.
type MarkupExtractor struct{}

// Extract implements LinkExtractor.
func (MarkupExtractor) Extract(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find(linkElements).Each(func(_ int, sel *goquery.Selection) {
		ref, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(ref) == "" {
			ref, ok = sel.Attr("src")
		}
		if !ok {
			return
		}
		if resolved, ok := resolveURL(base, ref); ok {
			links = append(links, resolved)
		}
	})
	return links
}

// scriptPathPattern matches quoted, root-relative paths that end in a file
// extension, such as "/static/js/app.js" or '/api/v1/users.json'.
var scriptPathPattern = regexp.MustCompile(`["'](/(?:[A-Za-z0-9_\-/]*/)*[A-Za-z0-9_\-]*\.[A-Za-z0-9]+)["']`)

// ScriptPathExtractor scans the text of inline scripts for path-like string
// literals. It is a heuristic: paths are recognized by shape, never by
// executing or parsing the script.
type ScriptPathExtractor struct {
	pattern *regexp.Regexp
}

// NewScriptPathExtractor returns a ScriptPathExtractor using the default pattern.
func NewScriptPathExtractor() *ScriptPathExtractor {
	return &ScriptPathExtractor{pattern: scriptPathPattern}
}

// Extract implements LinkExtractor. Matches are resolved from the root of base.
func (e *ScriptPathExtractor) Extract(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if _, external := sel.Attr("src"); external {
			return
		}
		for _, m := range e.pattern.FindAllStringSubmatch(sel.Text(), -1) {
			if resolved, ok := resolveURL(base, m[1]); ok {
				links = append(links, resolved)
			}
		}
	})
	return links
}

// DefaultExtractors returns the markup and inline script extractors.
func DefaultExtractors() []LinkExtractor {
	return []LinkExtractor{MarkupExtractor{}, NewScriptPathExtractor()}
}

// ExtractLinks parses body and runs every extractor over it. The result is
// deduplicated and keeps first-seen order. A document that cannot be parsed
// yields *model.ParseError.
func ExtractLinks(body []byte, base string, extractors ...LinkExtractor) ([]string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, &model.ParseError{URL: base, Err: err}
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &model.ParseError{URL: base, Err: err}
	}
	doc := goquery.NewDocumentFromNode(root)

	// A <base href> changes how relative references resolve.
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := baseURL.Parse(strings.TrimSpace(href)); err == nil {
			baseURL = b
		}
	}

	seen := make(map[string]bool)
	var links []string
	for _, e := range extractors {
		for _, link := range e.Extract(doc, baseURL) {
			if seen[link] {
				continue
			}
			seen[link] = true
			links = append(links, link)
		}
	}
	return links, nil
}

// resolveURL resolves ref against base. References that cannot lead to a
// fetchable resource (javascript:, mailto:, tel:, data:) are dropped.
// Fragments are kept so that admission can reject same-page anchors.
func resolveURL(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	lower := strings.ToLower(ref)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	resolved, err := base.Parse(ref)
	if err != nil {
		return "", false
	}
	return resolved.String(), true
}
