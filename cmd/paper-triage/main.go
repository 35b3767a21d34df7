// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-triage CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-triage/internal/secrets"
	"github.com/pdiddy/paper-triage/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the paper-triage CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-triage",
	Short: "Search, triage, and download academic papers",
	Long: `paper-triage aggregates paper metadata from academic search APIs,
scores the results for relevance with an LLM, and downloads the selected
PDFs through per-source fallback chains. Every run works inside its own
session folder so artifacts from different queries never mix.

Each stage is also available as a standalone subcommand: search runs only
the aggregation, download fetches PDFs for an existing result file, and
sessions inspects past runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-triage.yaml or ~/.config/paper-triage/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-triage")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-triage"))
		}
	}

	viper.SetEnvPrefix("PAPER_TRIAGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// buildConfig layers the config file and environment over the defaults,
// then fills unset credentials from loaded secrets.
func buildConfig() (types.PipelineConfig, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}

	if cfg.Evaluation.APIKey == "" {
		cfg.Evaluation.APIKey = loadedSecrets["gemini-api-key"]
	}
	if cfg.Search.SerperAPIKey == "" {
		cfg.Search.SerperAPIKey = loadedSecrets["serper-api-key"]
	}
	if cfg.Search.SemanticScholarAPIKey == "" {
		cfg.Search.SemanticScholarAPIKey = loadedSecrets["semantic-scholar-api-key"]
	}
	if cfg.Search.CrossrefEmail == "" {
		cfg.Search.CrossrefEmail = loadedSecrets["crossref-email"]
	}
	if cfg.Search.PubMedEmail == "" {
		cfg.Search.PubMedEmail = loadedSecrets["pubmed-email"]
	}
	if cfg.Download.UnpaywallEmail == "" {
		cfg.Download.UnpaywallEmail = loadedSecrets["unpaywall-email"]
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
