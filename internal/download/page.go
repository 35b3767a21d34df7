// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// maxPageCandidates caps how many links one landing page can contribute.
const maxPageCandidates = 5

// scanPage fetches a landing page and extracts candidate PDF links, best
// first. The citation_pdf_url meta tag wins when present; otherwise links
// to .pdf paths and anchors labeled as PDF or full-text downloads are
// collected. Relative links are resolved against the final request URL, so
// redirected pages resolve correctly.
func scanPage(ctx context.Context, client *http.Client, pageURL string, cfg types.DownloadConfig) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	base := resp.Request.URL

	var candidates []string
	seen := make(map[string]bool)
	add := func(raw string) {
		if raw == "" || len(candidates) >= maxPageCandidates {
			return
		}
		resolved := resolveLink(base, raw)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		candidates = append(candidates, resolved)
	}

	// Highwire-style meta tag used by most academic publishers.
	doc.Find(`meta[name="citation_pdf_url"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("content", ""))
	})

	// Direct links to PDF files.
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if strings.HasSuffix(strings.ToLower(urlPath(href)), ".pdf") ||
			strings.Contains(href, "/pdf/") {
			add(href)
		}
	})

	// Anchors whose text advertises a PDF or full-text download.
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		if strings.Contains(text, "pdf") ||
			strings.Contains(text, "download") ||
			strings.Contains(text, "full text") {
			add(s.AttrOr("href", ""))
		}
	})

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no PDF links found on %s", pageURL)
	}
	return candidates, nil
}

// resolveLink resolves a possibly relative href against the page URL.
func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// pageScanStrategy scans the paper's landing page for PDF links.
type pageScanStrategy struct{}

func (pageScanStrategy) Name() string { return "page_scan" }

func (pageScanStrategy) Candidates(ctx context.Context, client *http.Client, p types.Paper, cfg types.DownloadConfig) ([]string, error) {
	if p.URL == "" {
		return nil, nil
	}
	return scanPage(ctx, client, p.URL, cfg)
}
