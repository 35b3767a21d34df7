// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-triage/internal/download"
	"github.com/pdiddy/paper-triage/internal/session"
	"github.com/pdiddy/paper-triage/pkg/types"
)

var downloadCmd = &cobra.Command{
	Use:   "download <papers.json>",
	Short: "Download PDFs for a saved result file",
	Long: `Download reads a JSON paper list (for example a session's
filtered_papers.json) and fetches the PDFs through each paper's fallback
chain. A summary is written next to the PDFs.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().String("output", "downloaded_pdfs", "directory for downloaded PDFs")
	downloadCmd.Flags().Bool("skip-existing", true, "skip papers whose PDF already exists")
	downloadCmd.Flags().Int("max-concurrent", 0, "simultaneous downloads (default from config)")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	inputFile := args[0]
	var papers []types.Paper
	if err := session.ReadJSON(inputFile, &papers); err != nil {
		return err
	}
	if len(papers) == 0 {
		return fmt.Errorf("no papers in %s", inputFile)
	}

	outDir, _ := cmd.Flags().GetString("output")
	skipExisting, _ := cmd.Flags().GetBool("skip-existing")
	maxConcurrent, _ := cmd.Flags().GetInt("max-concurrent")

	dlCfg := cfg.Download
	dlCfg.SkipExisting = skipExisting
	if maxConcurrent > 0 {
		dlCfg.MaxConcurrent = maxConcurrent
	}

	client := &http.Client{Timeout: dlCfg.Timeout}

	summary, err := download.DownloadAll(cmd.Context(), client, papers, outDir, dlCfg, os.Stdout)
	if err != nil {
		return err
	}
	summary.Metadata.InputFile = inputFile

	summaryPath := filepath.Join(outDir, "download_summary.json")
	if err := session.WriteJSON(summaryPath, summary); err != nil {
		return err
	}

	if summary.HasFailures() {
		return fmt.Errorf("%d paper(s) failed to download", summary.Metadata.Failed)
	}
	return nil
}
