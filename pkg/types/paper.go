// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-triage pipeline.
package types

// Source identifies the search provider a paper record came from.
type Source string

const (
	SourceCrossref        Source = "crossref"
	SourceSemanticScholar Source = "semantic_scholar"
	SourceGoogleScholar   Source = "google_scholar"
	SourcePubMed          Source = "pubmed"
)

// Paper holds the normalized metadata for one candidate paper. Records from
// every provider are mapped into this shape at the searcher boundary and are
// never mutated after aggregation assigns provenance and a local ID.
type Paper struct {
	// DOI is the Digital Object Identifier, empty when the provider has none.
	DOI string `json:"doi" yaml:"doi"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Published is the publication date string as reported by the source
	// (providers disagree on granularity, so this stays a string).
	Published string `json:"published" yaml:"published"`

	// Journal is the venue or journal name.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// URL is the landing-page URL for the paper.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Abstract is the paper abstract or summary.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// PDFURL is a direct PDF link when the provider supplied one
	// (e.g. an open-access PDF location).
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// FetchedSource records which provider produced this record. Assigned
	// by the aggregator, never by a searcher.
	FetchedSource Source `json:"fetched_source" yaml:"fetched_source"`

	// LocalID is a session-unique identifier ("paper_" + 12 hex chars)
	// assigned exactly once at aggregation time. Downstream consumers key
	// their artifacts on it.
	LocalID string `json:"local_id" yaml:"local_id"`

	// SourceSpecific holds provider-only fields (e.g. PubMed's pmid) that
	// downstream strategies may need but the common shape does not model.
	SourceSpecific map[string]string `json:"source_specific,omitempty" yaml:"source_specific,omitempty"`

	// Evaluation is attached after triage; nil until then.
	Evaluation *Evaluation `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
}

// Key returns the identifier downloads and summaries are keyed by:
// the DOI when present, the local ID otherwise.
func (p Paper) Key() string {
	if p.DOI != "" {
		return p.DOI
	}
	return p.LocalID
}

// Evaluation is the LLM relevance verdict for one paper.
type Evaluation struct {
	// Score is the relevance score in [0, 100].
	Score int `json:"score" yaml:"score"`

	// Download is the yes/no decision on whether the paper is worth fetching.
	Download bool `json:"download" yaml:"download"`

	// Reasoning is the model's one-line justification.
	Reasoning string `json:"reasoning" yaml:"reasoning"`

	// Citation is a preformatted APA reference, or the sentinel "None".
	Citation string `json:"citation" yaml:"citation"`
}

// DownloadStatus tracks the lifecycle of one paper's download attempt.
type DownloadStatus string

const (
	DownloadPending DownloadStatus = "pending"
	DownloadSuccess DownloadStatus = "success"
	DownloadFailed  DownloadStatus = "failed"
	DownloadSkipped DownloadStatus = "skipped"
	DownloadError   DownloadStatus = "error"
)

// DownloadResult is the per-paper outcome of the download orchestrator.
// Path is set only while the file is confirmed present on disk; the
// post-run verification pass demotes success to failed if it vanished.
type DownloadResult struct {
	// Key is the paper's identifying key (DOI or local ID).
	Key string `json:"key" yaml:"key"`

	// LocalID is the paper's session-unique identifier.
	LocalID string `json:"local_id" yaml:"local_id"`

	// Title is carried for human-readable summaries.
	Title string `json:"title" yaml:"title"`

	// Status is the download outcome.
	Status DownloadStatus `json:"download_status" yaml:"download_status"`

	// Path is the local filesystem path of the verified PDF.
	Path string `json:"download_path,omitempty" yaml:"download_path,omitempty"`

	// DownloadedFrom names the fallback strategy that succeeded
	// (e.g. "direct_pdf", "page_scan", "doi", "unpaywall").
	DownloadedFrom string `json:"downloaded_from,omitempty" yaml:"downloaded_from,omitempty"`

	// ErrorMessage describes the failure when Status is failed or error.
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// SessionFolders is the immutable set of absolute paths for one session.
// Only the session package creates these directories.
type SessionFolders struct {
	// ChatID is the session identifier the folder tree is keyed by.
	ChatID string `json:"chat_id" yaml:"chat_id"`

	// Base is the session root directory.
	Base string `json:"base" yaml:"base"`

	// SearchResults holds the raw aggregated search artifact.
	SearchResults string `json:"search_results" yaml:"search_results"`

	// SmartResults holds the LLM evaluation artifacts.
	SmartResults string `json:"smart_search_results" yaml:"smart_search_results"`

	// Downloads holds the retrieved PDF files.
	Downloads string `json:"downloaded_pdfs" yaml:"downloaded_pdfs"`

	// Summary holds the download summary artifact.
	Summary string `json:"download_summary" yaml:"download_summary"`
}
