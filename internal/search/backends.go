// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"net/http"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// Backends constructs the backend for each configured source, preserving
// the configured priority order. Unknown source names are ignored.
func Backends(cfg types.SearchConfig, client *http.Client) []Backend {
	var backends []Backend
	for _, source := range cfg.Sources {
		switch source {
		case types.SourceCrossref:
			backends = append(backends, &CrossrefBackend{Client: client})
		case types.SourceSemanticScholar:
			backends = append(backends, &SemanticScholarBackend{Client: client, APIKey: cfg.SemanticScholarAPIKey})
		case types.SourcePubMed:
			backends = append(backends, &PubMedBackend{Client: client})
		case types.SourceGoogleScholar:
			backends = append(backends, &GoogleScholarBackend{Client: client, APIKey: cfg.SerperAPIKey})
		}
	}
	return backends
}
