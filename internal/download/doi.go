// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// API bases for the DOI fallback chain. Declared as vars so tests can
// substitute httptest servers.
var (
	doiResolverBase    = "https://doi.org"
	unpaywallAPIBase   = "https://api.unpaywall.org/v2"
	semanticLookupBase = "https://api.semanticscholar.org/graph/v1/paper"
	arxivPDFBase       = "https://arxiv.org/pdf"
)

// doiResolveStrategy follows the DOI through doi.org. The resolver URL
// itself is the first candidate (some DOIs resolve straight to a PDF);
// otherwise the resolved landing page is scanned for PDF links.
type doiResolveStrategy struct{}

func (doiResolveStrategy) Name() string { return "doi" }

func (doiResolveStrategy) Candidates(ctx context.Context, client *http.Client, p types.Paper, cfg types.DownloadConfig) ([]string, error) {
	if p.DOI == "" {
		return nil, nil
	}
	resolver := doiResolverBase + "/" + p.DOI
	candidates := []string{resolver}

	scanned, err := scanPage(ctx, client, resolver, cfg)
	if err != nil {
		// The resolver URL alone is still worth trying.
		return candidates, nil
	}
	return append(candidates, scanned...), nil
}

// unpaywallStrategy queries the Unpaywall API for an open-access location.
type unpaywallStrategy struct{}

func (unpaywallStrategy) Name() string { return "unpaywall" }

// unpaywallResponse is the subset of the Unpaywall record we read.
type unpaywallResponse struct {
	BestOALocation *unpaywallLocation  `json:"best_oa_location"`
	OALocations    []unpaywallLocation `json:"oa_locations"`
}

type unpaywallLocation struct {
	URLForPDF string `json:"url_for_pdf"`
}

func (unpaywallStrategy) Candidates(ctx context.Context, client *http.Client, p types.Paper, cfg types.DownloadConfig) ([]string, error) {
	if p.DOI == "" || cfg.UnpaywallEmail == "" {
		return nil, nil
	}

	apiURL := fmt.Sprintf("%s/%s?email=%s", unpaywallAPIBase, p.DOI, url.QueryEscape(cfg.UnpaywallEmail))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unpaywall request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unpaywall returned HTTP %d", resp.StatusCode)
	}

	var ur unpaywallResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, fmt.Errorf("parsing unpaywall response: %w", err)
	}

	var candidates []string
	if ur.BestOALocation != nil && ur.BestOALocation.URLForPDF != "" {
		candidates = append(candidates, ur.BestOALocation.URLForPDF)
	}
	for _, loc := range ur.OALocations {
		if loc.URLForPDF != "" && (len(candidates) == 0 || loc.URLForPDF != candidates[0]) {
			candidates = append(candidates, loc.URLForPDF)
		}
	}
	return candidates, nil
}

// arxivDOIPattern matches DataCite DOIs minted for arXiv preprints.
var arxivDOIPattern = regexp.MustCompile(`(?i)^10\.48550/arxiv\.(.+)$`)

// arxivStrategy recognizes arXiv preprints by their provider-supplied ID or
// their DataCite DOI and builds the canonical arXiv PDF URL.
type arxivStrategy struct{}

func (arxivStrategy) Name() string { return "arxiv" }

func (arxivStrategy) Candidates(_ context.Context, _ *http.Client, p types.Paper, _ types.DownloadConfig) ([]string, error) {
	id := p.SourceSpecific["arxiv_id"]
	if id == "" {
		if m := arxivDOIPattern.FindStringSubmatch(p.DOI); m != nil {
			id = m[1]
		}
	}
	if id == "" {
		return nil, nil
	}
	return []string{arxivPDFBase + "/" + id}, nil
}

// semanticLookupStrategy asks the Semantic Scholar graph API whether it
// knows an open-access PDF for the DOI.
type semanticLookupStrategy struct{}

func (semanticLookupStrategy) Name() string { return "semantic_scholar" }

type semanticLookupResponse struct {
	OpenAccessPDF *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

func (semanticLookupStrategy) Candidates(ctx context.Context, client *http.Client, p types.Paper, cfg types.DownloadConfig) ([]string, error) {
	if p.DOI == "" {
		return nil, nil
	}

	apiURL := fmt.Sprintf("%s/DOI:%s?fields=openAccessPdf", semanticLookupBase, p.DOI)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("semantic scholar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("semantic scholar returned HTTP %d", resp.StatusCode)
	}

	var sr semanticLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing semantic scholar response: %w", err)
	}
	if sr.OpenAccessPDF == nil || sr.OpenAccessPDF.URL == "" {
		return nil, nil
	}
	return []string{sr.OpenAccessPDF.URL}, nil
}

// mirrorStrategy tries configured mirror domains as a last resort. Disabled
// entirely when EnableMirrors is off or no mirrors are configured.
type mirrorStrategy struct{}

func (mirrorStrategy) Name() string { return "mirror" }

func (mirrorStrategy) Candidates(_ context.Context, _ *http.Client, p types.Paper, cfg types.DownloadConfig) ([]string, error) {
	if p.DOI == "" || !cfg.EnableMirrors {
		return nil, nil
	}
	var candidates []string
	for _, domain := range cfg.Mirrors {
		candidates = append(candidates, domain+"/"+p.DOI)
	}
	return candidates, nil
}
