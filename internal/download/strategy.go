// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"context"
	"net/http"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// Strategy produces candidate PDF URLs for a paper. A strategy with nothing
// to offer returns (nil, nil); an error means the strategy was applicable
// but failed, which the orchestrator records before moving down the chain.
type Strategy interface {
	Name() string
	Candidates(ctx context.Context, client *http.Client, p types.Paper, cfg types.DownloadConfig) ([]string, error)
}

// directStrategy yields the provider-supplied direct PDF link.
type directStrategy struct{}

func (directStrategy) Name() string { return "direct_pdf" }

func (directStrategy) Candidates(_ context.Context, _ *http.Client, p types.Paper, _ types.DownloadConfig) ([]string, error) {
	if p.PDFURL == "" {
		return nil, nil
	}
	return []string{p.PDFURL}, nil
}

// doiChain is the shared DOI-based fallback sequence, mirrors last.
func doiChain() []Strategy {
	return []Strategy{
		doiResolveStrategy{},
		unpaywallStrategy{},
		arxivStrategy{},
		semanticLookupStrategy{},
		mirrorStrategy{},
	}
}

// chainFor returns the ordered strategy chain for a paper's source.
// Providers that supply direct PDF links try those first; record-only
// providers go straight to the DOI chain.
func chainFor(source types.Source) []Strategy {
	switch source {
	case types.SourceSemanticScholar, types.SourceGoogleScholar:
		return append([]Strategy{directStrategy{}, pageScanStrategy{}}, doiChain()...)
	case types.SourcePubMed:
		return append(doiChain(), pageScanStrategy{})
	case types.SourceCrossref:
		return doiChain()
	default:
		return append([]Strategy{directStrategy{}, pageScanStrategy{}}, doiChain()...)
	}
}
