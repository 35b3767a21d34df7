// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const efetchFixture = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>12345678</PMID>
      <Article>
        <ArticleTitle>Sleep and Memory Consolidation</ArticleTitle>
        <Abstract><AbstractText>Sleep helps.</AbstractText><AbstractText>A lot.</AbstractText></Abstract>
        <AuthorList>
          <Author><LastName>Smith</LastName><ForeName>Alice</ForeName></Author>
          <Author><LastName>Jones</LastName><ForeName>Bob</ForeName></Author>
        </AuthorList>
        <Journal>
          <Title>Sleep Research</Title>
          <JournalIssue><PubDate><Year>2020</Year><Month>03</Month><Day>15</Day></PubDate></JournalIssue>
        </Journal>
        <ELocationID EIdType="doi">10.1000/sleep.2020</ELocationID>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>99999999</PMID>
      <Article><ArticleTitle>No DOI Here</ArticleTitle></Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

// newPubMedServers stands up ESearch and EFetch fakes, swaps the package
// base URLs for the duration of the test, and returns the captured EFetch
// requests.
func newPubMedServers(t *testing.T, esearchBody string, efetchBody string) *[]*http.Request {
	t.Helper()

	searchTS := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, esearchBody)
	}))

	var captured []*http.Request
	fetchTS := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = append(captured, r.Clone(r.Context()))
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, efetchBody)
	}))

	oldSearch, oldFetch := pubmedSearchBase, pubmedFetchBase
	pubmedSearchBase = searchTS.URL
	pubmedFetchBase = fetchTS.URL
	t.Cleanup(func() {
		pubmedSearchBase = oldSearch
		pubmedFetchBase = oldFetch
		searchTS.Close()
		fetchTS.Close()
	})

	return &captured
}

func TestPubMedSearchUsesHistoryHandle(t *testing.T) {
	esearch := `{"esearchresult":{"count":"2","webenv":"WEB123","querykey":"1","idlist":["12345678","99999999"]}}`
	fetchReqs := newPubMedServers(t, esearch, efetchFixture)

	b := &PubMedBackend{Client: http.DefaultClient}
	result, err := b.Search(context.Background(), Spec{Query: "sleep memory", Limit: 20}, testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(*fetchReqs) != 1 {
		t.Fatalf("EFetch called %d times, want 1", len(*fetchReqs))
	}
	q := (*fetchReqs)[0].URL.Query()
	if q.Get("WebEnv") != "WEB123" || q.Get("query_key") != "1" {
		t.Errorf("EFetch params = WebEnv %q query_key %q, want history handle", q.Get("WebEnv"), q.Get("query_key"))
	}
	if q.Get("id") != "" {
		t.Errorf("id param = %q, should be empty when the handle is used", q.Get("id"))
	}

	// The DOI-less article is dropped.
	if len(result.Papers) != 1 {
		t.Fatalf("len(Papers) = %d, want 1", len(result.Papers))
	}
	p := result.Papers[0]
	if p.DOI != "10.1000/sleep.2020" {
		t.Errorf("DOI = %q", p.DOI)
	}
	if p.Title != "Sleep and Memory Consolidation" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Abstract != "Sleep helps. A lot." {
		t.Errorf("Abstract = %q, want joined AbstractText parts", p.Abstract)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Alice Smith" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if p.Journal != "Sleep Research" {
		t.Errorf("Journal = %q", p.Journal)
	}
	if p.Published != "2020-03-15" {
		t.Errorf("Published = %q, want 2020-03-15", p.Published)
	}
	if p.SourceSpecific["pmid"] != "12345678" {
		t.Errorf("pmid = %q, want 12345678", p.SourceSpecific["pmid"])
	}
	if p.URL != "https://pubmed.ncbi.nlm.nih.gov/12345678/" {
		t.Errorf("URL = %q, want pubmed landing page", p.URL)
	}
}

func TestPubMedSearchFallsBackToIDList(t *testing.T) {
	// No webenv/querykey in the ESearch response.
	esearch := `{"esearchresult":{"count":"2","idlist":["12345678","99999999"]}}`
	fetchReqs := newPubMedServers(t, esearch, efetchFixture)

	b := &PubMedBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), Spec{Query: "sleep", Limit: 20}, testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := (*fetchReqs)[0].URL.Query()
	if got := q.Get("id"); got != "12345678,99999999" {
		t.Errorf("id param = %q, want the PMID list", got)
	}
	if q.Get("WebEnv") != "" {
		t.Errorf("WebEnv param = %q, should be absent in fallback", q.Get("WebEnv"))
	}
}

func TestPubMedSearchNoResults(t *testing.T) {
	esearch := `{"esearchresult":{"count":"0","idlist":[]}}`
	fetchReqs := newPubMedServers(t, esearch, efetchFixture)

	b := &PubMedBackend{Client: http.DefaultClient}
	result, err := b.Search(context.Background(), Spec{Query: "nothing at all", Limit: 20}, testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Papers) != 0 {
		t.Errorf("len(Papers) = %d, want 0", len(result.Papers))
	}
	if len(*fetchReqs) != 0 {
		t.Errorf("EFetch called %d times for an empty ID list, want 0", len(*fetchReqs))
	}
}

func TestPubMedSearchDateParams(t *testing.T) {
	var captured *http.Request
	searchTS := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"esearchresult":{"count":"0","idlist":[]}}`)
	}))
	defer searchTS.Close()

	old := pubmedSearchBase
	pubmedSearchBase = searchTS.URL
	defer func() { pubmedSearchBase = old }()

	b := &PubMedBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), Spec{
		Query: "what is the role of sleep in memory",
		Limit: 5,
		From:  "2019-01-01",
		Until: "2022-06-30",
	}, testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := captured.URL.Query()
	if q.Get("datetype") != "pdat" {
		t.Errorf("datetype = %q, want pdat", q.Get("datetype"))
	}
	if q.Get("mindate") != "2019-01-01" || q.Get("maxdate") != "2022-06-30" {
		t.Errorf("date params = %q/%q", q.Get("mindate"), q.Get("maxdate"))
	}
	if q.Get("usehistory") != "y" {
		t.Errorf("usehistory = %q, want y", q.Get("usehistory"))
	}
	// Full-sentence queries are reduced to keywords for PubMed.
	if term := q.Get("term"); strings.Contains(term, "what") || strings.Contains(term, "the") {
		t.Errorf("term = %q, want stop words stripped", term)
	}
}

func TestPubMedSearchESearchError(t *testing.T) {
	searchTS := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer searchTS.Close()

	old := pubmedSearchBase
	pubmedSearchBase = searchTS.URL
	defer func() { pubmedSearchBase = old }()

	b := &PubMedBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), Spec{Query: "x", Limit: 5}, testCfg())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "HTTP 502") {
		t.Errorf("error = %q, want HTTP 502", err.Error())
	}
}

func TestPubMedBackendName(t *testing.T) {
	b := &PubMedBackend{}
	if got := b.Name(); got != "pubmed" {
		t.Errorf("Name() = %q, want %q", got, "pubmed")
	}
}
