// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// --- chat IDs ---

func TestNewChatID(t *testing.T) {
	orig := timeNow
	timeNow = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	defer func() { timeNow = orig }()

	id := NewChatID()
	if !ValidChatID(id) {
		t.Fatalf("generated ID %q does not validate", id)
	}
	if !strings.HasSuffix(id, "_20260314_092653") {
		t.Errorf("ID %q missing timestamp suffix", id)
	}

	if other := NewChatID(); other == id {
		t.Errorf("two IDs in the same second collide: %s", id)
	}
}

func TestValidChatID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"chat_abc123def0_20260314_092653", true},
		{"chat_ABC123DEF0_20260314_092653", false},
		{"chat_abc123_20260314_092653", false},
		{"session_abc123def0_20260314_092653", false},
		{"chat_abc123def0_2026031_092653", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidChatID(tt.id); got != tt.want {
			t.Errorf("ValidChatID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

// --- folder trees ---

func TestOpenCreatesTree(t *testing.T) {
	baseDir := t.TempDir()

	folders, err := Open(baseDir, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !ValidChatID(folders.ChatID) {
		t.Errorf("chat ID %q does not validate", folders.ChatID)
	}
	for name, dir := range map[string]string{
		"search results": folders.SearchResults,
		"smart results":  folders.SmartResults,
		"downloads":      folders.Downloads,
		"summary":        folders.Summary,
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("%s directory missing: %v", name, err)
		}
		if !strings.HasPrefix(dir, filepath.Join(baseDir, folders.ChatID)) {
			t.Errorf("%s directory %q outside session base", name, dir)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	baseDir := t.TempDir()

	first, err := Open(baseDir, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Drop a file into the tree, then reopen the same session.
	marker := filepath.Join(first.Downloads, "paper_x.pdf")
	if err := os.WriteFile(marker, []byte("%PDF-"), 0o644); err != nil {
		t.Fatal(err)
	}

	second, err := Open(baseDir, first.ChatID)
	if err != nil {
		t.Fatalf("reopening session: %v", err)
	}
	if second != first {
		t.Errorf("reopened folders differ:\n%+v\n%+v", second, first)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("reopen clobbered existing file: %v", err)
	}
}

func TestOpenRejectsMalformedChatID(t *testing.T) {
	if _, err := Open(t.TempDir(), "../escape"); err == nil {
		t.Fatal("expected error for malformed chat ID")
	}
}

// --- JSON artifacts ---

func TestWriteReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search_results.json")

	in := []types.Paper{{DOI: "10.1/a", Title: "A", LocalID: "paper_000000000001"}}
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Error("artifact not indented")
	}

	var out []types.Paper
	if err := ReadJSON(path, &out); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if len(out) != 1 || out[0].DOI != "10.1/a" {
		t.Errorf("round trip = %+v", out)
	}
}

func TestReadJSONMissingFile(t *testing.T) {
	var v any
	if err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &v); err == nil {
		t.Fatal("expected error")
	}
}

// --- registry ---

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := OpenRegistry(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRegistryRecordAndLookup(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	rec := Record{
		ChatID:      "chat_abc123def0_20260314_092653",
		Query:       "transformer models",
		CreatedAt:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		TotalPapers: 19,
		Evaluated:   19,
		Downloaded:  7,
	}
	if err := reg.Record(ctx, rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := reg.Lookup(ctx, rec.ChatID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != rec {
		t.Errorf("Lookup = %+v, want %+v", got, rec)
	}
}

func TestRegistryUpsert(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	rec := Record{ChatID: "chat_abc123def0_20260314_092653", Query: "q", TotalPapers: 5}
	if err := reg.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.Downloaded = 3
	if err := reg.Record(ctx, rec); err != nil {
		t.Fatalf("re-recording: %v", err)
	}

	got, err := reg.Lookup(ctx, rec.ChatID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Downloaded != 3 {
		t.Errorf("Downloaded = %d, want 3", got.Downloaded)
	}

	records, err := reg.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestRegistryListNewestFirst(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{
		"chat_000000000a_20260314_090000",
		"chat_000000000b_20260314_091000",
		"chat_000000000c_20260314_092000",
	} {
		rec := Record{ChatID: id, Query: "q", CreatedAt: base.Add(time.Duration(i) * 10 * time.Minute)}
		if err := reg.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	records, err := reg.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].ChatID != "chat_000000000c_20260314_092000" {
		t.Errorf("first record = %s, want newest", records[0].ChatID)
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	reg := openTestRegistry(t)
	_, err := reg.Lookup(context.Background(), "chat_ffffffffff_20260101_000000")
	if err != sql.ErrNoRows {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestRegistryExportYAML(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	rec := Record{ChatID: "chat_abc123def0_20260314_092653", Query: "graph neural networks", TotalPapers: 12}
	if err := reg.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := reg.ExportYAML(ctx, &buf); err != nil {
		t.Fatalf("ExportYAML: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "chat_abc123def0_20260314_092653") ||
		!strings.Contains(out, "graph neural networks") {
		t.Errorf("export missing fields:\n%s", out)
	}
}
