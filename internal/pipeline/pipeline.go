// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the full acquisition flow for one query: session
// setup, multi-source search, LLM triage, and bounded PDF downloads, with
// every stage's artifact persisted into the session tree.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/pdiddy/paper-triage/internal/download"
	"github.com/pdiddy/paper-triage/internal/evaluate"
	"github.com/pdiddy/paper-triage/internal/search"
	"github.com/pdiddy/paper-triage/internal/session"
	"github.com/pdiddy/paper-triage/pkg/types"
)

// Artifact filenames inside a session tree.
const (
	searchArtifact   = "search_results.json"
	smartArtifact    = "smart_results.json"
	filteredArtifact = "filtered_papers.json"
	summaryArtifact  = "download_summary.json"
)

// Options are the per-run knobs. Zero values defer to the configuration.
type Options struct {
	// Query is the research question to search for. Required.
	Query string

	// FromDate and UntilDate bound publication dates (YYYY-MM-DD).
	FromDate  string
	UntilDate string

	// Limit overrides the per-source result cap.
	Limit int

	// MaxPapers caps how many papers are downloaded.
	MaxPapers int

	// SkipExisting, when set, overrides the configured skip behavior.
	SkipExisting *bool

	// MaxConcurrent overrides the configured download bound.
	MaxConcurrent int

	// EvaluatePapers enables the LLM triage stage.
	EvaluatePapers bool

	// DownloadOnlyEvaluated restricts downloads to papers the model marked.
	// Ignored unless EvaluatePapers is set.
	DownloadOnlyEvaluated bool

	// BatchSize overrides the evaluation batch size.
	BatchSize int

	// ChatID resumes an existing session instead of starting a new one.
	ChatID string
}

// Result is the outcome of one pipeline run.
type Result struct {
	ChatID     string
	Folders    types.SessionFolders
	Papers     []types.Paper
	Evaluation *evaluate.Summary
	Downloads  *download.BatchSummary
}

// Pipeline wires the stages together. Tests substitute the client, search
// backends, and AI backend; the CLI builds them from configuration.
type Pipeline struct {
	Config   types.PipelineConfig
	Client   *http.Client
	Searches []search.Backend

	// AI is the triage backend. Required when a run asks for evaluation.
	AI evaluate.AIBackend

	// Registry records finished sessions; nil disables recording.
	Registry *session.Registry
}

// New builds a pipeline from configuration with real HTTP backends.
func New(cfg types.PipelineConfig) *Pipeline {
	client := &http.Client{Timeout: cfg.Search.Timeout}
	p := &Pipeline{
		Config:   cfg,
		Client:   client,
		Searches: search.Backends(cfg.Search, client),
	}
	if cfg.Evaluation.APIKey != "" {
		p.AI = &evaluate.GeminiBackend{
			APIKey: cfg.Evaluation.APIKey,
			Model:  cfg.Evaluation.Model,
			Client: client,
		}
	}
	return p
}

// ProcessQuery runs search, optional triage, and downloads for one query.
// Individual source and paper failures are reported in the artifacts and
// progress output but do not abort the run.
func (pl *Pipeline) ProcessQuery(ctx context.Context, opts Options, w io.Writer) (*Result, error) {
	if opts.Query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if opts.EvaluatePapers && pl.AI == nil {
		return nil, fmt.Errorf("evaluation requested but no LLM backend configured")
	}

	folders, err := session.Open(pl.Config.Session.BaseDir, opts.ChatID)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	fmt.Fprintf(w, "session: %s\n", folders.ChatID)

	result := &Result{ChatID: folders.ChatID, Folders: folders}

	// Search.
	spec := search.Spec{
		Query: opts.Query,
		Limit: pl.Config.Search.Limit,
		From:  opts.FromDate,
		Until: opts.UntilDate,
	}
	if opts.Limit > 0 {
		spec.Limit = opts.Limit
	}

	out, err := search.Aggregate(ctx, spec, pl.Searches, pl.Config.Search, w)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	result.Papers = out.Papers

	searchPath := filepath.Join(folders.SearchResults, searchArtifact)
	if err := session.WriteJSON(searchPath, out); err != nil {
		return nil, err
	}

	if len(out.Papers) == 0 {
		fmt.Fprintln(w, "no papers found")
		pl.record(ctx, folders.ChatID, opts.Query, result, w)
		return result, nil
	}

	// Triage.
	toDownload := out.Papers
	inputFile := searchPath
	if opts.EvaluatePapers {
		evalCfg := pl.Config.Evaluation
		if opts.BatchSize > 0 {
			evalCfg.BatchSize = opts.BatchSize
		}

		summary, err := evaluate.EvaluateAll(ctx, pl.AI, opts.Query, out.Papers, evalCfg, w)
		if err != nil {
			return nil, fmt.Errorf("evaluating: %w", err)
		}
		result.Evaluation = summary
		result.Papers = summary.Papers

		if err := session.WriteJSON(filepath.Join(folders.SmartResults, smartArtifact), summary); err != nil {
			return nil, err
		}

		selected := evaluate.SelectForDownload(summary.Papers, opts.MaxPapers)
		filteredPath := filepath.Join(folders.SmartResults, filteredArtifact)
		if err := session.WriteJSON(filteredPath, selected); err != nil {
			return nil, err
		}

		if opts.DownloadOnlyEvaluated {
			toDownload = selected
			inputFile = filteredPath
		} else {
			toDownload = summary.Papers
		}
	} else if opts.MaxPapers > 0 && len(toDownload) > opts.MaxPapers {
		toDownload = toDownload[:opts.MaxPapers]
	}

	// Download.
	dlCfg := pl.Config.Download
	if opts.SkipExisting != nil {
		dlCfg.SkipExisting = *opts.SkipExisting
	}
	if opts.MaxConcurrent > 0 {
		dlCfg.MaxConcurrent = opts.MaxConcurrent
	}

	batch, err := download.DownloadAll(ctx, pl.Client, toDownload, folders.Downloads, dlCfg, w)
	if err != nil {
		return nil, fmt.Errorf("downloading: %w", err)
	}
	batch.Metadata.InputFile = inputFile
	result.Downloads = batch

	if err := session.WriteJSON(filepath.Join(folders.Summary, summaryArtifact), batch); err != nil {
		return nil, err
	}

	pl.record(ctx, folders.ChatID, opts.Query, result, w)
	return result, nil
}

// record writes the session registry row, best effort. A registry failure
// is reported as a warning; the run itself already succeeded.
func (pl *Pipeline) record(ctx context.Context, chatID, query string, result *Result, w io.Writer) {
	if pl.Registry == nil {
		return
	}
	rec := session.Record{
		ChatID:      chatID,
		Query:       query,
		TotalPapers: len(result.Papers),
	}
	if result.Evaluation != nil {
		rec.Evaluated = result.Evaluation.PapersEvaluated
	}
	if result.Downloads != nil {
		rec.Downloaded = result.Downloads.Metadata.Successful
	}
	if err := pl.Registry.Record(ctx, rec); err != nil {
		fmt.Fprintf(w, "warning: recording session %s: %v\n", chatID, err)
	}
}
