// ABOUTME: Tests for the SQLite run store: upsert, lookup, per-caller listing, and prompt search.
// ABOUTME: Pins metadata round-trip fidelity and the case-insensitive search behavior.
package runstore_test

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/2389-research/conjure/runstore"
)

func openStore(t *testing.T) *runstore.Store {
	t.Helper()
	store, err := runstore.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makeRecord(runID, callerID string, createdAt time.Time) *runstore.RunRecord {
	return &runstore.RunRecord{
		RunID:          runID,
		CallerID:       callerID,
		Prompt:         "a red cube",
		EnhancedPrompt: "a red cube, highly detailed, cinematic lighting",
		ImagePath:      "images/output_" + runID + ".png",
		ModelPath:      "models/model_" + runID + ".glb",
		CreatedAt:      createdAt,
		Metadata: map[string]any{
			"steps": float64(25),
			"size":  map[string]any{"width": float64(768), "height": float64(768)},
		},
	}
}

func TestSaveAndGetRoundTripsMetadata(t *testing.T) {
	store := openStore(t)

	rec := makeRecord("run-1", "caller-a", time.Now().UTC())
	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, ok, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !ok {
		t.Fatal("GetRun: record not found")
	}
	if got.Prompt != rec.Prompt || got.EnhancedPrompt != rec.EnhancedPrompt {
		t.Errorf("prompts = (%q, %q), want (%q, %q)", got.Prompt, got.EnhancedPrompt, rec.Prompt, rec.EnhancedPrompt)
	}
	if !reflect.DeepEqual(got.Metadata, rec.Metadata) {
		t.Errorf("metadata = %#v, want %#v", got.Metadata, rec.Metadata)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("created_at = %s, want %s", got.CreatedAt, rec.CreatedAt)
	}
}

func TestGetRunMissing(t *testing.T) {
	store := openStore(t)

	rec, ok, err := store.GetRun("nope")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if ok || rec != nil {
		t.Errorf("GetRun = (%v, %v), want (nil, false)", rec, ok)
	}
}

func TestSaveRunReplacesWholeRecord(t *testing.T) {
	store := openStore(t)

	rec := makeRecord("run-1", "caller-a", time.Now().UTC())
	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	replacement := makeRecord("run-1", "caller-b", time.Now().UTC())
	replacement.Prompt = "a blue sphere"
	replacement.Metadata = map[string]any{"format": "obj"}
	if err := store.SaveRun(replacement); err != nil {
		t.Fatalf("SaveRun (replace): %v", err)
	}

	got, ok, err := store.GetRun("run-1")
	if err != nil || !ok {
		t.Fatalf("GetRun: ok=%v err=%v", ok, err)
	}
	if got.CallerID != "caller-b" || got.Prompt != "a blue sphere" {
		t.Errorf("replaced record = %+v, want caller-b / a blue sphere", got)
	}
	if !reflect.DeepEqual(got.Metadata, replacement.Metadata) {
		t.Errorf("metadata = %#v, want %#v (no merge with old record)", got.Metadata, replacement.Metadata)
	}
}

func TestListRunsForCallerOrderAndOwnership(t *testing.T) {
	store := openStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		rec := makeRecord(id, "caller-a", base.Add(time.Duration(i)*time.Minute))
		if err := store.SaveRun(rec); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}
	other := makeRecord("run-other", "caller-b", base.Add(time.Hour))
	if err := store.SaveRun(other); err != nil {
		t.Fatalf("SaveRun other: %v", err)
	}

	runs, err := store.ListRunsForCaller("caller-a")
	if err != nil {
		t.Fatalf("ListRunsForCaller: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	wantOrder := []string{"run-new", "run-mid", "run-old"}
	for i, want := range wantOrder {
		if runs[i].RunID != want {
			t.Errorf("runs[%d] = %s, want %s", i, runs[i].RunID, want)
		}
	}
	for _, r := range runs {
		if r.CallerID != "caller-a" {
			t.Errorf("run %s belongs to %s, want caller-a only", r.RunID, r.CallerID)
		}
	}
}

func TestSearchRunsMatchesEitherPrompt(t *testing.T) {
	store := openStore(t)

	now := time.Now().UTC()
	raw := makeRecord("run-raw", "caller-a", now)
	raw.Prompt = "a wooden chair"
	raw.EnhancedPrompt = "ornate seating, oak grain"
	if err := store.SaveRun(raw); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	enhancedOnly := makeRecord("run-enh", "caller-a", now.Add(time.Second))
	enhancedOnly.Prompt = "a seat"
	enhancedOnly.EnhancedPrompt = "a chair carved from walnut"
	if err := store.SaveRun(enhancedOnly); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	unrelated := makeRecord("run-none", "caller-a", now.Add(2*time.Second))
	unrelated.Prompt = "a river"
	unrelated.EnhancedPrompt = "flowing water"
	if err := store.SaveRun(unrelated); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	runs, err := store.SearchRuns("chair")
	if err != nil {
		t.Fatalf("SearchRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d matches, want 2", len(runs))
	}
	if runs[0].RunID != "run-enh" || runs[1].RunID != "run-raw" {
		t.Errorf("matches = [%s %s], want [run-enh run-raw]", runs[0].RunID, runs[1].RunID)
	}
}

// SQL LIKE is case-insensitive for ASCII, so search is too.
func TestSearchRunsCaseInsensitive(t *testing.T) {
	store := openStore(t)

	rec := makeRecord("run-1", "caller-a", time.Now().UTC())
	rec.Prompt = "A Red Dragon"
	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	runs, err := store.SearchRuns("red dragon")
	if err != nil {
		t.Fatalf("SearchRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d matches, want 1 (case-insensitive)", len(runs))
	}
}

func TestSchemaCreationIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.db")

	first, err := runstore.Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	rec := makeRecord("run-1", "caller-a", time.Now().UTC())
	if err := first.SaveRun(rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := runstore.Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer func() { _ = second.Close() }()

	_, ok, err := second.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun after reopen: %v", err)
	}
	if !ok {
		t.Error("record lost across reopen")
	}
}
