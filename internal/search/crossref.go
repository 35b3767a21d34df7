// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/paper-triage/internal/httputil"
	"github.com/pdiddy/paper-triage/pkg/types"
)

// crossrefAPIBase is the Crossref works endpoint. Declared as a var so tests
// can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

// CrossrefBackend queries the Crossref REST API.
type CrossrefBackend struct {
	Client *http.Client
}

// Name returns the backend identifier.
func (b *CrossrefBackend) Name() types.Source { return types.SourceCrossref }

// Search queries Crossref and returns normalized papers. Records without a
// DOI are dropped; Crossref results are useless downstream without one.
func (b *CrossrefBackend) Search(ctx context.Context, spec Spec, cfg types.SearchConfig) (*Result, error) {
	params := url.Values{
		"query": {spec.Query},
		"rows":  {fmt.Sprintf("%d", spec.Limit)},
	}
	if cfg.CrossrefEmail != "" {
		params.Set("mailto", cfg.CrossrefEmail)
	}

	var filters []string
	if spec.From != "" {
		filters = append(filters, "from-pub-date:"+spec.From)
	}
	if spec.Until != "" {
		filters = append(filters, "until-pub-date:"+spec.Until)
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Crossref API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Crossref API returned HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Crossref response: %w", err)
	}

	var cr crossrefResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("parsing Crossref response: %w", err)
	}

	result := &Result{Raw: raw}
	for _, item := range cr.Message.Items {
		if item.DOI == "" {
			continue
		}
		p := types.Paper{
			DOI:      item.DOI,
			Abstract: stripJATS(item.Abstract),
			URL:      item.URL,
		}
		if len(item.Title) > 0 {
			p.Title = item.Title[0]
		}
		if len(item.ContainerTitle) > 0 {
			p.Journal = item.ContainerTitle[0]
		}
		for _, a := range item.Author {
			name := strings.TrimSpace(a.Given + " " + a.Family)
			if name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		p.Published = crossrefDateString(item.Published, item.Created)
		result.Papers = append(result.Papers, p)
	}
	return result, nil
}

// crossrefDateString picks the best available date-parts field and formats
// it as YYYY-MM-DD, degrading to YYYY-MM or YYYY when parts are missing.
func crossrefDateString(candidates ...crossrefDate) string {
	for _, c := range candidates {
		if len(c.DateParts) == 0 || len(c.DateParts[0]) == 0 {
			continue
		}
		parts := c.DateParts[0]
		switch len(parts) {
		case 1:
			return fmt.Sprintf("%04d", parts[0])
		case 2:
			return fmt.Sprintf("%04d-%02d", parts[0], parts[1])
		default:
			return fmt.Sprintf("%04d-%02d-%02d", parts[0], parts[1], parts[2])
		}
	}
	return ""
}

// stripJATS removes the JATS XML tags Crossref wraps abstracts in.
func stripJATS(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	Items []crossrefItem `json:"items"`
}

type crossrefItem struct {
	DOI            string           `json:"DOI"`
	Title          []string         `json:"title"`
	ContainerTitle []string         `json:"container-title"`
	Abstract       string           `json:"abstract"`
	URL            string           `json:"URL"`
	Author         []crossrefAuthor `json:"author"`
	Published      crossrefDate     `json:"published"`
	Created        crossrefDate     `json:"created"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}
