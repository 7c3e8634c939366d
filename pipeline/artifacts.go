// ABOUTME: Artifact persistence for pipeline runs: images and 3D models under run-keyed filenames.
// ABOUTME: Paths follow output_<runID>.png and model_<runID>.<format> in their configured directories.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactWriter persists stage artifacts to disk. Directories are created
// on demand; filenames are keyed by run id so concurrent runs never collide.
type ArtifactWriter struct {
	ImagesDir string
	ModelsDir string
}

// WriteImage persists the image artifact for a run and returns its path.
func (w *ArtifactWriter) WriteImage(runID string, data []byte) (string, error) {
	path := filepath.Join(w.ImagesDir, fmt.Sprintf("output_%s.png", runID))
	if err := writeArtifact(path, data); err != nil {
		return "", fmt.Errorf("persist image artifact: %w", err)
	}
	return path, nil
}

// WriteModel persists the 3D model artifact for a run and returns its path.
func (w *ArtifactWriter) WriteModel(runID, format string, data []byte) (string, error) {
	path := filepath.Join(w.ModelsDir, fmt.Sprintf("model_%s.%s", runID, format))
	if err := writeArtifact(path, data); err != nil {
		return "", fmt.Errorf("persist model artifact: %w", err)
	}
	return path, nil
}

func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
