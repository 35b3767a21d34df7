// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries academic APIs and aggregates the results into a
// single deduplicated paper list.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// Backend searches a single academic API. Each provider (Crossref, Semantic
// Scholar, PubMed, Google Scholar) implements this interface.
type Backend interface {
	Name() types.Source
	Search(ctx context.Context, spec Spec, cfg types.SearchConfig) (*Result, error)
}

// Spec holds the common search parameters passed to every backend.
type Spec struct {
	Query string
	Limit int

	// From and Until bound the publication date (YYYY-MM-DD); either or
	// both may be empty.
	From  string
	Until string
}

// Result is one backend's contribution: normalized papers plus the
// provider's raw response body for artifact persistence.
type Result struct {
	Papers []types.Paper
	Raw    json.RawMessage
}

// Output holds the aggregated, deduplicated papers and per-run statistics.
type Output struct {
	Papers       []types.Paper
	Raw          map[types.Source]json.RawMessage
	PerSource    map[types.Source]int
	DupsRemoved  int
	SourceErrors []string
}

// newLocalID returns a fresh session-unique paper identifier. Declared as a
// var so tests can substitute a deterministic sequence.
var newLocalID = func() string {
	return "paper_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Aggregate runs the backends sequentially in the given priority order,
// assigns provenance and a local ID to every record, and deduplicates by
// DOI and, for DOI-less records, by exact title. First seen wins, so the
// backend order doubles as the preference order for duplicate resolution.
//
// A failing backend contributes zero results and a logged warning; the run
// aborts only on context cancellation, never on source failure. When every
// source fails the output is simply empty, with all errors recorded.
func Aggregate(ctx context.Context, spec Spec, backends []Backend, cfg types.SearchConfig, w io.Writer) (Output, error) {
	out := Output{
		Raw:       make(map[types.Source]json.RawMessage),
		PerSource: make(map[types.Source]int),
	}
	if strings.TrimSpace(spec.Query) == "" {
		return out, fmt.Errorf("query is empty")
	}
	if len(backends) == 0 {
		return out, fmt.Errorf("no search backends configured")
	}

	seenDOIs := make(map[string]bool)
	seenTitles := make(map[string]bool)

	for _, b := range backends {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		source := b.Name()
		result, err := b.Search(ctx, spec, cfg)
		if err != nil {
			msg := fmt.Sprintf("%s: %v", source, err)
			out.SourceErrors = append(out.SourceErrors, msg)
			fmt.Fprintf(w, "warning: source %s failed: %v\n", source, err)
			continue
		}
		out.Raw[source] = result.Raw

		kept := 0
		for _, p := range result.Papers {
			if !admit(p, source, seenDOIs, seenTitles) {
				out.DupsRemoved++
				continue
			}
			p.FetchedSource = source
			p.LocalID = newLocalID()
			out.Papers = append(out.Papers, p)
			kept++
		}
		out.PerSource[source] = kept
		fmt.Fprintf(w, "%s: %d papers (%d kept)\n", source, len(result.Papers), kept)
	}

	return out, nil
}

// admit decides whether a record enters the aggregated set, updating the
// dedup sets when it does. DOI-less records are allowed only from Google
// Scholar, the lowest-trust source, and dedup by exact title there.
func admit(p types.Paper, source types.Source, seenDOIs, seenTitles map[string]bool) bool {
	if p.DOI != "" {
		doi := strings.ToLower(strings.TrimSpace(p.DOI))
		if seenDOIs[doi] {
			return false
		}
		seenDOIs[doi] = true
		if p.Title != "" {
			seenTitles[p.Title] = true
		}
		return true
	}

	if source != types.SourceGoogleScholar {
		return false
	}
	if p.Title == "" || seenTitles[p.Title] {
		return false
	}
	seenTitles[p.Title] = true
	return true
}

// FormatTable writes aggregated papers as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-30s  %s\n",
		"Rank", "Title", "Authors", "DOI", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 130))

	for i, p := range out.Papers {
		title := truncate(p.Title, 60)
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-30s  %s\n",
			i+1, title, formatAuthors(p.Authors), truncate(p.DOI, 30), p.FetchedSource)
	}

	fmt.Fprintf(w, "\n%d papers", len(out.Papers))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes aggregated papers as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Papers)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
