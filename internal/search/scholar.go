// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/pdiddy/paper-triage/internal/httputil"
	"github.com/pdiddy/paper-triage/pkg/types"
)

// scholarAPIBase is the Serper Google Scholar endpoint. Declared as a var so
// tests can substitute an httptest server.
var scholarAPIBase = "https://google.serper.dev/scholar"

// doiInURLPattern extracts a DOI embedded in a result link
// (e.g. "https://doi.org/10.1145/3292500").
var doiInURLPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s?#]+`)

// GoogleScholarBackend queries Google Scholar through the Serper API.
// Scholar is the lowest-trust source: it is the only provider whose
// DOI-less records survive aggregation.
type GoogleScholarBackend struct {
	Client *http.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *GoogleScholarBackend) Name() types.Source { return types.SourceGoogleScholar }

// Search queries the Serper Scholar API and returns normalized papers.
// DOI-less records are kept; a DOI is recovered from the result link when
// the link points at a DOI resolver.
func (b *GoogleScholarBackend) Search(ctx context.Context, spec Spec, cfg types.SearchConfig) (*Result, error) {
	if b.APIKey == "" {
		return nil, fmt.Errorf("Serper API key not configured")
	}

	body, err := json.Marshal(map[string]any{
		"q":   spec.Query,
		"num": spec.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, scholarAPIBase, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", b.APIKey)
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Serper API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Serper API returned HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Serper response: %w", err)
	}

	var sr scholarResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("parsing Serper response: %w", err)
	}

	result := &Result{Raw: raw}
	for _, item := range sr.Organic {
		if item.Title == "" {
			continue
		}
		p := types.Paper{
			Title:     item.Title,
			URL:       item.Link,
			Abstract:  item.Snippet,
			PDFURL:    item.PDFURL,
			Published: yearString(item.Year),
		}
		if strings.Contains(item.Link, "doi.org/") {
			if m := doiInURLPattern.FindString(item.Link); m != "" {
				p.DOI = m
			}
		}
		if authors := parsePublicationInfo(item.PublicationInfo); len(authors) > 0 {
			p.Authors = authors
		}
		result.Papers = append(result.Papers, p)
	}
	return result, nil
}

// parsePublicationInfo pulls author names out of Scholar's publication-info
// line, which looks like "J Smith, A Jones - Nature, 2021 - nature.com".
func parsePublicationInfo(info string) []string {
	head, _, _ := strings.Cut(info, " - ")
	head = strings.TrimSpace(head)
	if head == "" {
		return nil
	}
	var authors []string
	for _, part := range strings.Split(head, ",") {
		name := strings.TrimSpace(strings.TrimSuffix(part, "…"))
		if name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

func yearString(year int) string {
	if year <= 0 {
		return ""
	}
	return fmt.Sprintf("%04d", year)
}

// Serper Scholar API JSON structures.
type scholarResponse struct {
	Organic []scholarResult `json:"organic"`
}

type scholarResult struct {
	Title           string `json:"title"`
	Link            string `json:"link"`
	PublicationInfo string `json:"publicationInfo"`
	Snippet         string `json:"snippet"`
	Year            int    `json:"year"`
	PDFURL          string `json:"pdfUrl"`
}
