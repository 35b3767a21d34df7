// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-triage/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search academic APIs without downloading anything",
	Long: `Search queries the configured sources (Crossref, Semantic Scholar,
PubMed, Google Scholar) for papers matching the query, deduplicates the
results across sources, and prints them. No session folder is created.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("until", "", "publication date range end (YYYY-MM-DD)")
	searchCmd.Flags().Int("limit", 0, "per-source result cap (default from config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	fromDate, _ := cmd.Flags().GetString("from")
	untilDate, _ := cmd.Flags().GetString("until")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	spec := search.Spec{
		Query: args[0],
		Limit: cfg.Search.Limit,
		From:  fromDate,
		Until: untilDate,
	}
	if limit > 0 {
		spec.Limit = limit
	}

	client := &http.Client{Timeout: cfg.Search.Timeout}
	backends := search.Backends(cfg.Search, client)

	out, err := search.Aggregate(cmd.Context(), spec, backends, cfg.Search, os.Stderr)
	if err != nil {
		return err
	}

	if asJSON {
		return search.FormatJSON(out, os.Stdout)
	}
	search.FormatTable(out, os.Stdout)
	return nil
}
