// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/paper-triage/internal/httputil"
	"github.com/pdiddy/paper-triage/pkg/types"
)

// PubMed E-utilities endpoints. Declared as vars so tests can substitute
// httptest servers.
var (
	pubmedSearchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedFetchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// PubMedBackend queries PubMed through the NCBI E-utilities. The protocol
// is two-step: ESearch returns a history-server handle (WebEnv + query key)
// plus candidate PMIDs, and EFetch retrieves the full records through the
// handle, falling back to the raw ID list when no handle was returned.
type PubMedBackend struct {
	Client *http.Client
}

// Name returns the backend identifier.
func (b *PubMedBackend) Name() types.Source { return types.SourcePubMed }

// Search runs the ESearch/EFetch sequence and returns normalized papers.
// Records without a DOI are dropped; the PMID is kept in SourceSpecific so
// the downloader can fall back to the PubMed landing page.
func (b *PubMedBackend) Search(ctx context.Context, spec Spec, cfg types.SearchConfig) (*Result, error) {
	handle, err := b.esearch(ctx, spec, cfg)
	if err != nil {
		return nil, err
	}
	if len(handle.IDList) == 0 {
		return &Result{}, nil
	}

	raw, err := b.efetch(ctx, handle, spec.Limit, cfg)
	if err != nil {
		return nil, err
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("parsing EFetch response: %w", err)
	}

	result := &Result{Raw: raw}
	for _, article := range set.Articles {
		p, ok := convertPubMedArticle(article)
		if !ok {
			continue
		}
		result.Papers = append(result.Papers, p)
	}
	return result, nil
}

// pubmedHandle is the result-set handle returned by ESearch.
type pubmedHandle struct {
	WebEnv   string
	QueryKey string
	IDList   []string
}

func (b *PubMedBackend) esearch(ctx context.Context, spec Spec, cfg types.SearchConfig) (pubmedHandle, error) {
	params := url.Values{
		"db":         {"pubmed"},
		"term":       {Keywords(spec.Query)},
		"retmax":     {fmt.Sprintf("%d", spec.Limit)},
		"retmode":    {"json"},
		"usehistory": {"y"},
	}
	if cfg.PubMedEmail != "" {
		params.Set("email", cfg.PubMedEmail)
	}
	if spec.From != "" || spec.Until != "" {
		params.Set("datetype", "pdat")
		if spec.From != "" {
			params.Set("mindate", spec.From)
		}
		if spec.Until != "" {
			params.Set("maxdate", spec.Until)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return pubmedHandle{}, fmt.Errorf("creating ESearch request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return pubmedHandle{}, fmt.Errorf("ESearch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pubmedHandle{}, fmt.Errorf("ESearch returned HTTP %d", resp.StatusCode)
	}

	var es esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&es); err != nil {
		return pubmedHandle{}, fmt.Errorf("parsing ESearch response: %w", err)
	}

	return pubmedHandle{
		WebEnv:   es.Result.WebEnv,
		QueryKey: es.Result.QueryKey,
		IDList:   es.Result.IDList,
	}, nil
}

func (b *PubMedBackend) efetch(ctx context.Context, handle pubmedHandle, limit int, cfg types.SearchConfig) ([]byte, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"retmode": {"xml"},
		"retmax":  {fmt.Sprintf("%d", limit)},
	}
	if handle.WebEnv != "" && handle.QueryKey != "" {
		params.Set("WebEnv", handle.WebEnv)
		params.Set("query_key", handle.QueryKey)
	} else {
		params.Set("id", strings.Join(handle.IDList, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedFetchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating EFetch request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("EFetch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("EFetch returned HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// convertPubMedArticle maps one EFetch record into the common Paper shape.
// Records without a DOI are rejected.
func convertPubMedArticle(a pubmedArticle) (types.Paper, bool) {
	doi := ""
	for _, id := range a.Citation.Article.ELocationIDs {
		if id.EIdType == "doi" && id.Value != "" {
			doi = id.Value
			break
		}
	}
	if doi == "" {
		for _, id := range a.PubmedData.ArticleIDs {
			if id.IDType == "doi" && id.Value != "" {
				doi = id.Value
				break
			}
		}
	}
	if doi == "" {
		return types.Paper{}, false
	}

	article := a.Citation.Article
	p := types.Paper{
		DOI:      doi,
		Title:    strings.TrimSpace(article.Title),
		Journal:  article.Journal.Title,
		Abstract: strings.TrimSpace(strings.Join(article.Abstract.Texts, " ")),
	}
	for _, author := range article.Authors {
		name := strings.TrimSpace(author.ForeName + " " + author.LastName)
		if name != "" {
			p.Authors = append(p.Authors, name)
		}
	}

	pd := article.Journal.Issue.PubDate
	if pd.Year != "" {
		p.Published = pd.Year
		if pd.Month != "" {
			p.Published += "-" + pd.Month
			if pd.Day != "" {
				p.Published += "-" + pd.Day
			}
		}
	}

	if a.Citation.PMID != "" {
		p.SourceSpecific = map[string]string{"pmid": a.Citation.PMID}
		p.URL = "https://pubmed.ncbi.nlm.nih.gov/" + a.Citation.PMID + "/"
	}
	return p, true
}

// ESearch JSON structures.
type esearchResponse struct {
	Result esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count    string   `json:"count"`
	WebEnv   string   `json:"webenv"`
	QueryKey string   `json:"querykey"`
	IDList   []string `json:"idlist"`
}

// EFetch XML structures.
type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation   pubmedCitation `xml:"MedlineCitation"`
	PubmedData pubmedData     `xml:"PubmedData"`
}

type pubmedCitation struct {
	PMID    string        `xml:"PMID"`
	Article pubmedArticleBody `xml:"Article"`
}

type pubmedArticleBody struct {
	Title        string             `xml:"ArticleTitle"`
	Abstract     pubmedAbstract     `xml:"Abstract"`
	Authors      []pubmedAuthor     `xml:"AuthorList>Author"`
	Journal      pubmedJournal      `xml:"Journal"`
	ELocationIDs []pubmedELocationID `xml:"ELocationID"`
}

type pubmedAbstract struct {
	Texts []string `xml:"AbstractText"`
}

type pubmedAuthor struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

type pubmedJournal struct {
	Title string            `xml:"Title"`
	Issue pubmedJournalIssue `xml:"JournalIssue"`
}

type pubmedJournalIssue struct {
	PubDate pubmedPubDate `xml:"PubDate"`
}

type pubmedPubDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

type pubmedELocationID struct {
	EIdType string `xml:"EIdType,attr"`
	Value   string `xml:",chardata"`
}

type pubmedData struct {
	ArticleIDs []pubmedArticleID `xml:"ArticleIdList>ArticleId"`
}

type pubmedArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}
