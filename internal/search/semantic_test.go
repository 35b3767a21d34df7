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

// --- Request construction (URL params, headers) ---

func TestSemanticSearchRequestParams(t *testing.T) {
	var capturedReq *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total":0,"offset":0,"data":[]}`)
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	b := &SemanticScholarBackend{Client: ts.Client()}
	_, err := b.Search(context.Background(), Spec{
		Query: "attention",
		Limit: 15,
		From:  "2020-01-01",
		Until: "2023-12-31",
	}, testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := capturedReq.URL.Query()

	if got := q.Get("query"); got != "attention" {
		t.Errorf("query param = %q, want %q", got, "attention")
	}
	if got := q.Get("limit"); got != "15" {
		t.Errorf("limit param = %q, want %q", got, "15")
	}

	fields := q.Get("fields")
	for _, f := range []string{"title", "abstract", "authors", "externalIds", "openAccessPdf", "venue"} {
		if !strings.Contains(fields, f) {
			t.Errorf("fields param %q missing %q", fields, f)
		}
	}

	if got := q.Get("year"); got != "2020-2023" {
		t.Errorf("year param = %q, want %q", got, "2020-2023")
	}
}

func TestSemanticSearchAPIKeyHeader(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		wantValue string
	}{
		{"with API key", "test-key-123", "test-key-123"},
		{"without API key", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedReq *http.Request
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedReq = r
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"total":0,"offset":0,"data":[]}`)
			}))
			defer ts.Close()

			old := semanticAPIBase
			semanticAPIBase = ts.URL
			defer func() { semanticAPIBase = old }()

			b := &SemanticScholarBackend{Client: ts.Client(), APIKey: tt.apiKey}
			_, err := b.Search(context.Background(), Spec{Query: "test", Limit: 5}, testCfg())
			if err != nil {
				t.Fatalf("Search: %v", err)
			}

			if got := capturedReq.Header.Get("x-api-key"); got != tt.wantValue {
				t.Errorf("x-api-key header = %q, want %q", got, tt.wantValue)
			}
		})
	}
}

// --- Record normalization ---

func TestSemanticSearchDropsRecordsWithoutDOI(t *testing.T) {
	resp := `{"total":3,"offset":0,"data":[
		{"paperId":"a","title":"Has DOI","authors":[],"externalIds":{"DOI":"10.555/a"}},
		{"paperId":"b","title":"No DOI","authors":[],"externalIds":{}},
		{"paperId":"c","title":"ArXiv only","authors":[],"externalIds":{"ArXiv":"1706.03762"}}]}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, resp)
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	b := &SemanticScholarBackend{Client: ts.Client()}
	result, err := b.Search(context.Background(), Spec{Query: "test", Limit: 5}, testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Papers) != 1 {
		t.Fatalf("len(Papers) = %d, want 1", len(result.Papers))
	}
	if result.Papers[0].DOI != "10.555/a" {
		t.Errorf("DOI = %q, want %q", result.Papers[0].DOI, "10.555/a")
	}
}

func TestSemanticSearchOpenAccessPDF(t *testing.T) {
	resp := `{"total":1,"offset":0,"data":[{
		"paperId":"x","title":"P","venue":"NeurIPS",
		"authors":[{"authorId":"1","name":"Alice Smith"},{"authorId":"2","name":"Bob Jones"}],
		"publicationDate":"2017-06-12",
		"externalIds":{"DOI":"10.555/x","ArXiv":"1706.03762"},
		"openAccessPdf":{"url":"https://example.org/x.pdf"}}]}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, resp)
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	b := &SemanticScholarBackend{Client: ts.Client()}
	result, err := b.Search(context.Background(), Spec{Query: "test", Limit: 5}, testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Papers) != 1 {
		t.Fatalf("len(Papers) = %d, want 1", len(result.Papers))
	}

	p := result.Papers[0]
	if p.PDFURL != "https://example.org/x.pdf" {
		t.Errorf("PDFURL = %q, want open-access link", p.PDFURL)
	}
	if p.Journal != "NeurIPS" {
		t.Errorf("Journal = %q, want %q", p.Journal, "NeurIPS")
	}
	if p.Published != "2017-06-12" {
		t.Errorf("Published = %q, want %q", p.Published, "2017-06-12")
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Alice Smith" {
		t.Errorf("Authors = %v, want [Alice Smith Bob Jones]", p.Authors)
	}
	if p.SourceSpecific["arxiv_id"] != "1706.03762" {
		t.Errorf("SourceSpecific arxiv_id = %q, want %q", p.SourceSpecific["arxiv_id"], "1706.03762")
	}
}

func TestSemanticSearchYearFallback(t *testing.T) {
	resp := `{"total":1,"offset":0,"data":[{"paperId":"b","title":"P","authors":[],"year":2023,"publicationDate":"","externalIds":{"DOI":"10.555/b"}}]}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, resp)
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	b := &SemanticScholarBackend{Client: ts.Client()}
	result, err := b.Search(context.Background(), Spec{Query: "test", Limit: 5}, testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Papers[0].Published != "2023" {
		t.Errorf("Published = %q, want %q", result.Papers[0].Published, "2023")
	}
}

// --- Error cases ---

func TestSemanticSearchHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	b := &SemanticScholarBackend{Client: ts.Client()}
	_, err := b.Search(context.Background(), Spec{Query: "test", Limit: 5}, testCfg())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("error = %q, want substring %q", err.Error(), "HTTP 500")
	}
}

func TestSemanticSearchMalformedJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{invalid json`)
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	b := &SemanticScholarBackend{Client: ts.Client()}
	_, err := b.Search(context.Background(), Spec{Query: "test", Limit: 5}, testCfg())
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if !strings.Contains(err.Error(), "parsing") {
		t.Errorf("error = %q, want substring 'parsing'", err.Error())
	}
}

// --- Year range building ---

func TestBuildYearRange(t *testing.T) {
	tests := []struct {
		name  string
		from  string
		until string
		want  string
	}{
		{"both bounds", "2020-01-01", "2023-12-31", "2020-2023"},
		{"from only", "2020-01-01", "", "2020-"},
		{"until only", "", "2023-12-31", "-2023"},
		{"neither", "", "", ""},
		{"malformed from", "20xx", "2023-12-31", "-2023"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildYearRange(tt.from, tt.until); got != tt.want {
				t.Errorf("buildYearRange(%q, %q) = %q, want %q", tt.from, tt.until, got, tt.want)
			}
		})
	}
}

// --- Backend name ---

func TestSemanticScholarBackendName(t *testing.T) {
	b := &SemanticScholarBackend{}
	if got := b.Name(); got != "semantic_scholar" {
		t.Errorf("Name() = %q, want %q", got, "semantic_scholar")
	}
}
