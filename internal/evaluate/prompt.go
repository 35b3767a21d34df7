// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// batchPromptTmpl is the prompt sent to the LLM for each batch of papers.
// The response contract is one tagged block per paper; the parser tolerates
// surrounding prose but papers missing from the response get a synthesized
// default evaluation.
var batchPromptTmpl = template.Must(template.New("batch").Funcs(template.FuncMap{
	"join":   strings.Join,
	"abbrev": abbrevAbstract,
}).Parse(`You are a research assistant evaluating academic papers for relevance to a query.

Research query: {{.Query}}

Evaluate each paper below. For every paper, respond with exactly one block in this format:

<paper>
<local_id>the paper's local_id copied verbatim</local_id>
<score>an integer 0-100 rating relevance to the query</score>
<download>yes or no - whether this paper is worth downloading and reading in full</download>
<reasoning>one or two sentences justifying the score</reasoning>
<apareference>an APA-style reference for the paper, or None if the metadata is insufficient</apareference>
</paper>

Do not skip any paper. Do not invent papers that are not listed.

Papers to evaluate:
{{range $i, $p := .Papers}}
Paper {{$i}}:
local_id: {{$p.LocalID}}
title: {{$p.Title}}
authors: {{join $p.Authors ", "}}
published: {{$p.Published}}{{if $p.Journal}}
journal: {{$p.Journal}}{{end}}{{if $p.Abstract}}
abstract: {{abbrev $p.Abstract}}{{end}}
{{end}}`))

// renderBatchPrompt executes the batch template for one batch of papers.
func renderBatchPrompt(query string, papers []types.Paper) (string, error) {
	var buf bytes.Buffer
	if err := batchPromptTmpl.Execute(&buf, struct {
		Query  string
		Papers []types.Paper
	}{Query: query, Papers: papers}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// abbrevAbstract caps abstracts so large batches stay inside the model's
// context window.
func abbrevAbstract(s string) string {
	const max = 1200
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
