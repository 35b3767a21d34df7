// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// AIBackend abstracts the LLM API so tests can supply a mock. It takes a
// rendered batch prompt and returns the model's text response.
type AIBackend interface {
	Evaluate(ctx context.Context, prompt string) (string, error)
}

// geminiAPIBase is the Gemini generateContent endpoint root. Declared as a
// var so tests can substitute an httptest server.
var geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiBackend calls the Gemini generateContent API.
type GeminiBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

// geminiRequest is the request body for the generateContent API.
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiResponse is the response body from the generateContent API.
type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Evaluate posts the prompt to the Gemini API and returns the first text
// candidate. Failures come back as *APIError with the retry class set:
// HTTP 429 and RESOURCE_EXHAUSTED are rate limits, 5xx and transport
// failures are transient, everything else is fatal.
func (g *GeminiBackend) Evaluate(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &APIError{Kind: Fatal, Message: fmt.Sprintf("marshaling request: %v", err)}
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiAPIBase, g.Model, g.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &APIError{Kind: Fatal, Message: fmt.Sprintf("creating request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &APIError{Kind: Transient, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APIError{Kind: Transient, Message: fmt.Sprintf("reading response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTPFailure(resp.StatusCode, raw)
	}

	var gr geminiResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", &APIError{Kind: Fatal, Message: fmt.Sprintf("decoding response: %v", err)}
	}

	for _, cand := range gr.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", &APIError{Kind: Fatal, Message: "empty response: no text candidates"}
}

// classifyHTTPFailure maps a non-200 response to an APIError kind. The body
// is parsed for the structured error status when present.
func classifyHTTPFailure(status int, body []byte) *APIError {
	var gr geminiResponse
	message := strings.TrimSpace(string(body))
	apiStatus := ""
	if err := json.Unmarshal(body, &gr); err == nil && gr.Error != nil {
		message = gr.Error.Message
		apiStatus = gr.Error.Status
	}

	kind := Fatal
	switch {
	case status == http.StatusTooManyRequests || apiStatus == "RESOURCE_EXHAUSTED":
		kind = RateLimited
	case status >= 500:
		kind = Transient
	}
	return &APIError{Kind: kind, Status: status, Message: message}
}
