// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pdiddy/paper-triage/internal/httputil"
	"github.com/pdiddy/paper-triage/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,publicationDate,openAccessPdf,url,venue"

// SemanticScholarBackend queries the Semantic Scholar Graph API.
type SemanticScholarBackend struct {
	Client *http.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() types.Source { return types.SourceSemanticScholar }

// Search queries Semantic Scholar and returns normalized papers. Records
// without a DOI are dropped. An open-access PDF location, when present, is
// carried through so the downloader can fetch it directly.
func (b *SemanticScholarBackend) Search(ctx context.Context, spec Spec, cfg types.SearchConfig) (*Result, error) {
	params := url.Values{
		"query":  {spec.Query},
		"limit":  {fmt.Sprintf("%d", spec.Limit)},
		"fields": {semanticFields},
	}
	if yearRange := buildYearRange(spec.From, spec.Until); yearRange != "" {
		params.Set("year", yearRange)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Semantic Scholar response: %w", err)
	}

	var sr semanticResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	result := &Result{Raw: raw}
	for _, paper := range sr.Data {
		if paper.ExternalIDs.DOI == "" {
			continue
		}
		p := types.Paper{
			DOI:      paper.ExternalIDs.DOI,
			Title:    paper.Title,
			Abstract: paper.Abstract,
			Journal:  paper.Venue,
			URL:      paper.URL,
		}
		for _, a := range paper.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		if paper.PublicationDate != "" {
			p.Published = paper.PublicationDate
		} else if paper.Year > 0 {
			p.Published = fmt.Sprintf("%04d", paper.Year)
		}
		if paper.OpenAccessPDF != nil && paper.OpenAccessPDF.URL != "" {
			p.PDFURL = paper.OpenAccessPDF.URL
		}
		if paper.ExternalIDs.ArXiv != "" {
			p.SourceSpecific = map[string]string{"arxiv_id": paper.ExternalIDs.ArXiv}
		}
		result.Papers = append(result.Papers, p)
	}
	return result, nil
}

// buildYearRange returns a Semantic Scholar year filter string
// (e.g. "2020-2023") from YYYY-MM-DD date bounds.
func buildYearRange(from, until string) string {
	fromYear := yearOf(from)
	untilYear := yearOf(until)
	switch {
	case fromYear != "" && untilYear != "":
		return fromYear + "-" + untilYear
	case fromYear != "":
		return fromYear + "-"
	case untilYear != "":
		return "-" + untilYear
	default:
		return ""
	}
}

func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	year := date[:4]
	for _, r := range year {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return year
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Venue           string              `json:"venue"`
	URL             string              `json:"url"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
	OpenAccessPDF   *semanticOpenAccess `json:"openAccessPdf"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}

type semanticOpenAccess struct {
	URL string `json:"url"`
}
