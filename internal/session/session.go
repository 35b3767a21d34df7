// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session manages per-run folder trees and the session registry.
// Every pipeline run works inside its own session directory so concurrent
// runs never collide.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// Subdirectory names inside one session tree.
const (
	searchResultsDir = "search_results"
	smartResultsDir  = "smart_search_results"
	downloadsDir     = "downloaded_pdfs"
	summaryDir       = "download_summary"
)

// timeNow is replaceable in tests for deterministic chat IDs.
var timeNow = time.Now

// chatIDPattern validates externally supplied chat IDs.
var chatIDPattern = regexp.MustCompile(`^chat_[0-9a-f]{10}_\d{8}_\d{6}$`)

// NewChatID generates a fresh session identifier. The embedded timestamp
// keeps directory listings chronological; the random prefix keeps two runs
// in the same second apart.
func NewChatID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("chat_%s_%s", hex, timeNow().Format("20060102_150405"))
}

// ValidChatID reports whether id has the session identifier shape.
func ValidChatID(id string) bool {
	return chatIDPattern.MatchString(id)
}

// Open creates (or reopens) the session tree for chatID under baseDir and
// returns its folder set. An empty chatID starts a new session. Opening an
// existing session is idempotent.
func Open(baseDir, chatID string) (types.SessionFolders, error) {
	if chatID == "" {
		chatID = NewChatID()
	} else if !ValidChatID(chatID) {
		return types.SessionFolders{}, fmt.Errorf("invalid chat ID %q", chatID)
	}

	base := filepath.Join(baseDir, chatID)
	folders := types.SessionFolders{
		ChatID:        chatID,
		Base:          base,
		SearchResults: filepath.Join(base, searchResultsDir),
		SmartResults:  filepath.Join(base, smartResultsDir),
		Downloads:     filepath.Join(base, downloadsDir),
		Summary:       filepath.Join(base, summaryDir),
	}

	for _, dir := range []string{folders.SearchResults, folders.SmartResults, folders.Downloads, folders.Summary} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return types.SessionFolders{}, fmt.Errorf("creating session directory %s: %w", dir, err)
		}
	}
	return folders, nil
}

// WriteJSON persists an artifact as indented JSON.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads an artifact written by WriteJSON.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
