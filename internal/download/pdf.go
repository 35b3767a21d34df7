// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download retrieves PDFs for triaged papers through per-source
// fallback chains and verifies the files afterwards.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// pdfMagic is the required prefix of a well-formed PDF file.
const pdfMagic = "%PDF-"

// fetchPDF downloads url to destPath using a temporary file, renaming on
// success. The response is rejected unless it looks like a real PDF, so a
// publisher serving an HTML error page under a .pdf link does not produce
// a corrupt file.
func fetchPDF(ctx context.Context, client *http.Client, url, destPath string, cfg types.DownloadConfig) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf,*/*")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	prefix := make([]byte, 512)
	n, err := io.ReadFull(resp.Body, prefix)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("reading response: %w", err)
	}
	prefix = prefix[:n]

	if !looksLikePDF(prefix, resp.Header.Get("Content-Type"), url) {
		return fmt.Errorf("response from %s is not a PDF", url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := tmpFile.Write(prefix)
	if copyErr == nil {
		_, copyErr = io.Copy(tmpFile, resp.Body)
	}
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// looksLikePDF accepts content with the PDF magic prefix, a PDF content
// type, or a .pdf URL whose body is at least not HTML.
func looksLikePDF(prefix []byte, contentType, url string) bool {
	if strings.HasPrefix(string(prefix), pdfMagic) {
		return true
	}
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	if strings.HasSuffix(strings.ToLower(urlPath(url)), ".pdf") && !isHTML(prefix, contentType) {
		return true
	}
	return false
}

// urlPath strips query and fragment so suffix checks see only the path.
func urlPath(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}

// isHTML sniffs for markup in the content type or the body prefix.
func isHTML(prefix []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := strings.ToLower(string(prefix))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype")
}

// FileName returns the target filename for a paper's PDF. The local ID is
// the primary key; papers without one fall back to the DOI and finally to
// a sanitized title.
func FileName(p types.Paper) string {
	if p.LocalID != "" {
		return p.LocalID + ".pdf"
	}
	if p.DOI != "" {
		return strings.ReplaceAll(p.DOI, "/", "_") + ".pdf"
	}
	return sanitizeTitle(p.Title) + ".pdf"
}

// sanitizeTitle makes a title safe for use as a filename.
func sanitizeTitle(title string) string {
	var sb strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			sb.WriteRune('_')
		}
	}
	s := sb.String()
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "untitled"
	}
	return s
}
