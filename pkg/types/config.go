// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-triage/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the search aggregation stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Limit is the per-source maximum number of results (default 20).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// Sources lists the providers to query, in priority order. Earlier
	// sources win duplicate resolution. Default: crossref,
	// semantic_scholar, pubmed, google_scholar.
	Sources []Source `json:"sources" yaml:"sources" mapstructure:"sources"`

	// CrossrefEmail is the polite-pool contact address sent to Crossref.
	CrossrefEmail string `json:"crossref_email,omitempty" yaml:"crossref_email,omitempty" mapstructure:"crossref_email"`

	// PubMedEmail is the contact address sent with E-utilities requests.
	PubMedEmail string `json:"pubmed_email,omitempty" yaml:"pubmed_email,omitempty" mapstructure:"pubmed_email"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// SerperAPIKey authenticates the Google Scholar provider.
	SerperAPIKey string `json:"serper_api_key,omitempty" yaml:"serper_api_key,omitempty" mapstructure:"serper_api_key"`
}

// EvaluationConfig holds settings for the LLM triage stage.
type EvaluationConfig struct {
	// Model is the Gemini model identifier (e.g. "gemini-2.0-flash").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the Gemini API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BatchSize is the number of papers per LLM call (default 10).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// MaxRetries is the retry budget per batch (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// InterBatchDelay is the pause between consecutive batches (default 2s).
	// The first batch is never delayed.
	InterBatchDelay time.Duration `json:"inter_batch_delay" yaml:"inter_batch_delay" mapstructure:"inter_batch_delay"`
}

// DownloadConfig holds settings for the download orchestrator.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxConcurrent bounds simultaneous in-flight downloads (default 4).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent" mapstructure:"max_concurrent"`

	// SkipExisting marks papers whose target file already exists as
	// skipped without any network call.
	SkipExisting bool `json:"skip_existing" yaml:"skip_existing" mapstructure:"skip_existing"`

	// EnableMirrors allows the last-resort mirror-domain step of the DOI
	// fallback chain.
	EnableMirrors bool `json:"enable_mirrors" yaml:"enable_mirrors" mapstructure:"enable_mirrors"`

	// Mirrors lists mirror domain roots tried as <domain>/<doi> when
	// EnableMirrors is set. Empty by default; deployments supply their own.
	Mirrors []string `json:"mirrors,omitempty" yaml:"mirrors,omitempty" mapstructure:"mirrors"`

	// UnpaywallEmail is the contact address required by the Unpaywall API.
	UnpaywallEmail string `json:"unpaywall_email,omitempty" yaml:"unpaywall_email,omitempty" mapstructure:"unpaywall_email"`
}

// SessionConfig holds settings for session folder management.
type SessionConfig struct {
	// BaseDir is the directory under which per-session trees are created
	// (default "downloads").
	BaseDir string `json:"base_dir" yaml:"base_dir" mapstructure:"base_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Search     SearchConfig     `json:"search" yaml:"search" mapstructure:"search"`
	Evaluation EvaluationConfig `json:"evaluation" yaml:"evaluation" mapstructure:"evaluation"`
	Download   DownloadConfig   `json:"download" yaml:"download" mapstructure:"download"`
	Session    SessionConfig    `json:"session" yaml:"session" mapstructure:"session"`
}

// DefaultConfig returns the pipeline configuration defaults. Flags, the
// config file, and environment variables override these per field.
func DefaultConfig() PipelineConfig {
	return PipelineConfig{
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: "paper-triage/0.1"},
			Limit:      20,
			Sources: []Source{
				SourceCrossref,
				SourceSemanticScholar,
				SourcePubMed,
				SourceGoogleScholar,
			},
		},
		Evaluation: EvaluationConfig{
			Model:           "gemini-2.0-flash",
			BatchSize:       10,
			MaxRetries:      5,
			InterBatchDelay: 2 * time.Second,
		},
		Download: DownloadConfig{
			HTTPConfig:    HTTPConfig{Timeout: 60 * time.Second, UserAgent: "paper-triage/0.1"},
			MaxConcurrent: 4,
			SkipExisting:  true,
			EnableMirrors: true,
		},
		Session: SessionConfig{BaseDir: "downloads"},
	}
}
