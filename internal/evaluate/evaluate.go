// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate scores search results for relevance with an LLM and
// selects the papers worth downloading.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// Summary holds counts and scored papers from one triage run.
type Summary struct {
	// TotalPapers is the number of papers submitted for evaluation.
	TotalPapers int `json:"total_papers" yaml:"total_papers"`

	// PapersEvaluated is the number of papers that received a response
	// block from the model. Papers missing from the response carry a
	// synthesized default and are not counted here.
	PapersEvaluated int `json:"papers_evaluated" yaml:"papers_evaluated"`

	// PapersToDownload is the number of papers the model marked for download.
	PapersToDownload int `json:"papers_to_download" yaml:"papers_to_download"`

	// AverageScore is the mean relevance score across all papers.
	AverageScore float64 `json:"average_score" yaml:"average_score"`

	// Papers are the inputs in their original order, each with Evaluation set.
	Papers []types.Paper `json:"papers" yaml:"papers"`
}

// defaultEvaluation is attached to papers the model failed to cover.
func defaultEvaluation() *types.Evaluation {
	return &types.Evaluation{
		Score:     50,
		Download:  false,
		Reasoning: "evaluation missing",
		Citation:  "None",
	}
}

// EvaluateAll scores papers against the query in batches. Input order is
// preserved in the returned summary. A batch whose retries are exhausted, or
// that fails with a non-retryable API error, aborts the whole run.
func EvaluateAll(ctx context.Context, backend AIBackend, query string, papers []types.Paper, cfg types.EvaluationConfig, w io.Writer) (*Summary, error) {
	if len(papers) == 0 {
		return &Summary{}, nil
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	summary := &Summary{
		TotalPapers: len(papers),
		Papers:      make([]types.Paper, len(papers)),
	}
	copy(summary.Papers, papers)

	batches := (len(papers) + batchSize - 1) / batchSize

	for b := 0; b < batches; b++ {
		if b > 0 && cfg.InterBatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.InterBatchDelay):
			}
		}

		start := b * batchSize
		end := start + batchSize
		if end > len(papers) {
			end = len(papers)
		}
		batch := summary.Papers[start:end]

		fmt.Fprintf(w, "evaluating batch %d/%d (%d papers)\n", b+1, batches, len(batch))

		prompt, err := renderBatchPrompt(query, batch)
		if err != nil {
			return nil, fmt.Errorf("rendering batch %d prompt: %w", b+1, err)
		}

		raw, err := callWithRetry(ctx, backend, prompt, maxRetries)
		if err != nil {
			return nil, fmt.Errorf("evaluating batch %d/%d: %w", b+1, batches, err)
		}

		evaluations := parseEvaluations(raw)
		for i := range batch {
			ev, ok := evaluations[batch[i].LocalID]
			if !ok {
				fmt.Fprintf(w, "warning: no evaluation for %s, using default\n", batch[i].LocalID)
				batch[i].Evaluation = defaultEvaluation()
				continue
			}
			batch[i].Evaluation = ev
			summary.PapersEvaluated++
		}
	}

	var scoreSum int
	for _, p := range summary.Papers {
		scoreSum += p.Evaluation.Score
		if p.Evaluation.Download {
			summary.PapersToDownload++
		}
	}
	summary.AverageScore = float64(scoreSum) / float64(len(summary.Papers))

	fmt.Fprintf(w, "evaluated %d/%d papers, %d marked for download\n",
		summary.PapersEvaluated, summary.TotalPapers, summary.PapersToDownload)

	return summary, nil
}

// backoffBase controls the base duration for rate-limit backoff. Tests
// override this to avoid real sleeps.
var backoffBase = 2 * time.Second

// callWithRetry calls the backend with exponential backoff. Only retryable
// API errors (rate limits, transient failures) are retried; anything else
// fails immediately.
func callWithRetry(ctx context.Context, backend AIBackend, prompt string, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := backend.Evaluate(ctx, prompt)
		if err == nil {
			return resp, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// --- Response parsing ---

var (
	paperBlockPattern = regexp.MustCompile(`(?s)<paper>(.*?)</paper>`)
	fieldPatterns     = map[string]*regexp.Regexp{
		"local_id":     regexp.MustCompile(`(?s)<local_id>(.*?)</local_id>`),
		"score":        regexp.MustCompile(`(?s)<score>(.*?)</score>`),
		"download":     regexp.MustCompile(`(?s)<download>(.*?)</download>`),
		"reasoning":    regexp.MustCompile(`(?s)<reasoning>(.*?)</reasoning>`),
		"apareference": regexp.MustCompile(`(?s)<apareference>(.*?)</apareference>`),
	}
)

// parseEvaluations extracts tagged paper blocks from the raw model response,
// keyed by local_id. Blocks without a local_id are dropped; surrounding prose
// is ignored.
func parseEvaluations(raw string) map[string]*types.Evaluation {
	result := make(map[string]*types.Evaluation)

	for _, block := range paperBlockPattern.FindAllStringSubmatch(raw, -1) {
		body := block[1]

		localID := extractField(body, "local_id")
		if localID == "" {
			continue
		}

		ev := &types.Evaluation{
			Score:     clampScore(extractField(body, "score")),
			Download:  strings.EqualFold(extractField(body, "download"), "yes"),
			Reasoning: extractField(body, "reasoning"),
			Citation:  extractField(body, "apareference"),
		}
		if ev.Citation == "" {
			ev.Citation = "None"
		}

		result[localID] = ev
	}

	return result
}

// extractField returns the trimmed content of one tagged field, or "".
func extractField(body, name string) string {
	m := fieldPatterns[name].FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// clampScore parses a score string and clamps it to [0, 100]. Unparseable
// scores fall back to 50.
func clampScore(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 50
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// SelectForDownload returns the papers marked for download, highest score
// first. Ties keep their evaluation order. A positive max caps the result.
func SelectForDownload(papers []types.Paper, max int) []types.Paper {
	var selected []types.Paper
	for _, p := range papers {
		if p.Evaluation != nil && p.Evaluation.Download {
			selected = append(selected, p)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Evaluation.Score > selected[j].Evaluation.Score
	})

	if max > 0 && len(selected) > max {
		selected = selected[:max]
	}
	return selected
}
