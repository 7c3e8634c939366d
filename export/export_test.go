// ABOUTME: Tests for the Markdown and YAML run record exporters.
// ABOUTME: Pins deterministic section ordering and YAML metadata round-trip.
package export_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/conjure/export"
	"github.com/2389-research/conjure/runstore"
)

func sampleRecord() *runstore.RunRecord {
	return &runstore.RunRecord{
		RunID:          "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		CallerID:       "caller-a",
		Prompt:         "a red cube",
		EnhancedPrompt: "a red cube, highly detailed, cinematic lighting",
		ImagePath:      "images/output_01ARZ3NDEKTSV4RRFFQ69G5FAV.png",
		ModelPath:      "models/model_01ARZ3NDEKTSV4RRFFQ69G5FAV.glb",
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Metadata: map[string]any{
			"image_to_3d_params":   map[string]any{"format": "glb"},
			"text_to_image_params": map[string]any{"steps": 25},
		},
	}
}

func TestMarkdownSections(t *testing.T) {
	md := export.Markdown(sampleRecord())

	wantFragments := []string{
		"# Run 01ARZ3NDEKTSV4RRFFQ69G5FAV",
		"> a red cube",
		"## Enhanced Prompt",
		"a red cube, highly detailed, cinematic lighting",
		"## Artifacts",
		"output_01ARZ3NDEKTSV4RRFFQ69G5FAV.png",
		"## Metadata",
	}
	for _, frag := range wantFragments {
		if !strings.Contains(md, frag) {
			t.Errorf("markdown missing %q\n%s", frag, md)
		}
	}

	// Metadata keys render alphabetically.
	i3d := strings.Index(md, "image_to_3d_params")
	t2i := strings.Index(md, "text_to_image_params")
	if i3d == -1 || t2i == -1 || i3d > t2i {
		t.Errorf("metadata keys not sorted: image_to_3d at %d, text_to_image at %d", i3d, t2i)
	}
}

func TestMarkdownOmitsEmptyMetadata(t *testing.T) {
	rec := sampleRecord()
	rec.Metadata = nil
	md := export.Markdown(rec)
	if strings.Contains(md, "## Metadata") {
		t.Error("metadata section rendered for empty metadata")
	}
}

func TestYAMLRoundTripsMetadata(t *testing.T) {
	rec := sampleRecord()
	doc, err := export.YAML(rec)
	if err != nil {
		t.Fatalf("YAML: %v", err)
	}

	var decoded export.YamlRun
	if err := yaml.Unmarshal([]byte(doc), &decoded); err != nil {
		t.Fatalf("unmarshal exported YAML: %v", err)
	}
	if decoded.RunID != rec.RunID || decoded.Prompt != rec.Prompt {
		t.Errorf("decoded = %+v", decoded)
	}

	want := map[string]any{
		"image_to_3d_params":   map[string]any{"format": "glb"},
		"text_to_image_params": map[string]any{"steps": 25},
	}
	if !reflect.DeepEqual(decoded.Metadata, want) {
		t.Errorf("metadata = %#v, want %#v", decoded.Metadata, want)
	}
}
