// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-triage/internal/pipeline"
	"github.com/pdiddy/paper-triage/internal/secrets"
	"github.com/pdiddy/paper-triage/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run <query>",
	Short: "Run the full search, triage, and download pipeline",
	Long: `Run searches all configured sources for the query, deduplicates the
results, optionally scores them for relevance with an LLM, and downloads
the selected PDFs into a fresh session folder.`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	runCmd.Flags().String("until", "", "publication date range end (YYYY-MM-DD)")
	runCmd.Flags().Int("limit", 0, "per-source result cap (default from config)")
	runCmd.Flags().Int("max-papers", 0, "cap on papers selected for download")
	runCmd.Flags().Bool("evaluate", true, "score papers with the LLM before downloading")
	runCmd.Flags().Bool("download-all", false, "download every result, not only LLM-selected papers")
	runCmd.Flags().Bool("skip-existing", true, "skip papers whose PDF already exists")
	runCmd.Flags().Int("max-concurrent", 0, "simultaneous downloads (default from config)")
	runCmd.Flags().Int("batch-size", 0, "papers per LLM call (default from config)")
	runCmd.Flags().String("chat-id", "", "resume an existing session")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	evaluatePapers, _ := cmd.Flags().GetBool("evaluate")
	if evaluatePapers && cfg.Evaluation.APIKey == "" {
		return secrets.Require(loadedSecrets, "gemini-api-key")
	}

	downloadAll, _ := cmd.Flags().GetBool("download-all")
	skipExisting, _ := cmd.Flags().GetBool("skip-existing")
	fromDate, _ := cmd.Flags().GetString("from")
	untilDate, _ := cmd.Flags().GetString("until")
	limit, _ := cmd.Flags().GetInt("limit")
	maxPapers, _ := cmd.Flags().GetInt("max-papers")
	maxConcurrent, _ := cmd.Flags().GetInt("max-concurrent")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	chatID, _ := cmd.Flags().GetString("chat-id")

	pl := pipeline.New(cfg)

	registry, err := session.OpenRegistry(cfg.Session.BaseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: session registry unavailable: %v\n", err)
	} else {
		defer registry.Close()
		pl.Registry = registry
	}

	opts := pipeline.Options{
		Query:                 args[0],
		FromDate:              fromDate,
		UntilDate:             untilDate,
		Limit:                 limit,
		MaxPapers:             maxPapers,
		SkipExisting:          &skipExisting,
		MaxConcurrent:         maxConcurrent,
		EvaluatePapers:        evaluatePapers,
		DownloadOnlyEvaluated: !downloadAll,
		BatchSize:             batchSize,
		ChatID:                chatID,
	}

	result, err := pl.ProcessQuery(cmd.Context(), opts, os.Stdout)
	if err != nil {
		return err
	}

	if result.Downloads != nil && result.Downloads.HasFailures() {
		return fmt.Errorf("%d paper(s) failed to download", result.Downloads.Metadata.Failed)
	}
	return nil
}
