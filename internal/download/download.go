// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// Concurrency bounds for simultaneous downloads.
const (
	minConcurrent     = 3
	maxConcurrent     = 5
	defaultConcurrent = 4
)

// SummaryMetadata describes one download run.
type SummaryMetadata struct {
	Total      int    `json:"total" yaml:"total"`
	Successful int    `json:"successful" yaml:"successful"`
	Failed     int    `json:"failed" yaml:"failed"`
	OutputDir  string `json:"output_dir" yaml:"output_dir"`
	Timestamp  string `json:"timestamp" yaml:"timestamp"`
	InputFile  string `json:"input_file,omitempty" yaml:"input_file,omitempty"`
}

// BatchSummary is the persisted outcome of a download run. Results keep the
// input paper order.
type BatchSummary struct {
	Metadata SummaryMetadata        `json:"metadata" yaml:"metadata"`
	Results  []types.DownloadResult `json:"results" yaml:"results"`
}

// HasFailures reports whether any papers failed.
func (s *BatchSummary) HasFailures() bool {
	return s.Metadata.Failed > 0
}

// clampConcurrency keeps the download bound inside its allowed range.
func clampConcurrency(n int) int {
	switch {
	case n <= 0:
		return defaultConcurrent
	case n < minConcurrent:
		return minConcurrent
	case n > maxConcurrent:
		return maxConcurrent
	default:
		return n
	}
}

// DownloadAll downloads PDFs for papers into outDir, at most a bounded
// number in flight at once. Existing files are skipped without network
// traffic when SkipExisting is set. Results preserve input order. After all
// workers finish, a verification pass demotes any success whose file is no
// longer on disk.
func DownloadAll(ctx context.Context, client *http.Client, papers []types.Paper, outDir string, cfg types.DownloadConfig, w io.Writer) (*BatchSummary, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", outDir, err)
	}

	results := make([]types.DownloadResult, len(papers))
	sem := semaphore.NewWeighted(int64(clampConcurrency(cfg.MaxConcurrent)))

	var mu sync.Mutex
	progress := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, args...)
	}

	var wg sync.WaitGroup
	for i := range papers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := papers[i]
			destPath := filepath.Join(outDir, FileName(p))

			result := types.DownloadResult{
				Key:     p.Key(),
				LocalID: p.LocalID,
				Title:   p.Title,
				Status:  types.DownloadPending,
			}

			if cfg.SkipExisting {
				if _, err := os.Stat(destPath); err == nil {
					progress("skipped: %s (already exists)\n", p.Key())
					result.Status = types.DownloadSkipped
					result.Path = destPath
					results[i] = result
					return
				}
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				result.Status = types.DownloadError
				result.ErrorMessage = err.Error()
				results[i] = result
				return
			}
			defer sem.Release(1)

			progress("downloading: %s\n", p.Key())

			strategyName, err := downloadPaper(ctx, client, p, destPath, cfg)
			if err != nil {
				progress("failed: %s (%v)\n", p.Key(), err)
				result.Status = types.DownloadFailed
				result.ErrorMessage = err.Error()
				results[i] = result
				return
			}

			result.Status = types.DownloadSuccess
			result.Path = destPath
			result.DownloadedFrom = strategyName
			results[i] = result
		}(i)
	}
	wg.Wait()

	Verify(results, w)

	summary := Summarize(results, outDir, "")
	fmt.Fprintf(w, "\nDownload summary: %d successful, %d failed (total: %d)\n",
		summary.Metadata.Successful, summary.Metadata.Failed, summary.Metadata.Total)
	return summary, nil
}

// downloadPaper walks the paper's strategy chain, trying each candidate URL
// until one yields a valid PDF. It returns the name of the strategy that
// succeeded. Strategy failures are collected so the final error names every
// step that was tried.
func downloadPaper(ctx context.Context, client *http.Client, p types.Paper, destPath string, cfg types.DownloadConfig) (string, error) {
	var failures []string

	for _, strat := range chainFor(p.FetchedSource) {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		candidates, err := strat.Candidates(ctx, client, p, cfg)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", strat.Name(), err))
			continue
		}

		for _, url := range candidates {
			if err := fetchPDF(ctx, client, url, destPath, cfg); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", strat.Name(), err))
				continue
			}
			return strat.Name(), nil
		}
	}

	if len(failures) == 0 {
		return "", fmt.Errorf("no download strategy applicable")
	}
	return "", fmt.Errorf("all strategies failed: %s", strings.Join(failures, "; "))
}

// Verify confirms that every successful or skipped result still has its
// file on disk, demoting missing ones to failed.
func Verify(results []types.DownloadResult, w io.Writer) {
	for i := range results {
		r := &results[i]
		if r.Status != types.DownloadSuccess && r.Status != types.DownloadSkipped {
			continue
		}
		if _, err := os.Stat(r.Path); err != nil {
			fmt.Fprintf(w, "warning: %s reported %s but file is missing\n", r.Key, r.Status)
			r.Status = types.DownloadFailed
			r.Path = ""
			r.ErrorMessage = "File not found on disk"
		}
	}
}

// Summarize builds the persisted summary from verified results.
func Summarize(results []types.DownloadResult, outDir, inputFile string) *BatchSummary {
	summary := &BatchSummary{
		Metadata: SummaryMetadata{
			Total:     len(results),
			OutputDir: outDir,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			InputFile: inputFile,
		},
		Results: results,
	}
	for _, r := range results {
		switch r.Status {
		case types.DownloadSuccess, types.DownloadSkipped:
			summary.Metadata.Successful++
		case types.DownloadFailed, types.DownloadError:
			summary.Metadata.Failed++
		}
	}
	return summary
}
