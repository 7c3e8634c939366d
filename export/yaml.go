// ABOUTME: Exports run records as structured YAML documents.
// ABOUTME: Uses gopkg.in/yaml.v3 for serialization with stable field ordering.
package export

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/conjure/runstore"
)

// YamlRun is the serializable YAML representation of a run record.
type YamlRun struct {
	RunID          string         `yaml:"run_id"`
	CallerID       string         `yaml:"caller_id"`
	Prompt         string         `yaml:"prompt"`
	EnhancedPrompt string         `yaml:"enhanced_prompt"`
	ImagePath      string         `yaml:"image_path"`
	ModelPath      string         `yaml:"model_path"`
	CreatedAt      string         `yaml:"created_at"`
	Metadata       map[string]any `yaml:"metadata,omitempty"`
}

// YAML exports a run record as a YAML document.
func YAML(rec *runstore.RunRecord) (string, error) {
	doc := YamlRun{
		RunID:          rec.RunID,
		CallerID:       rec.CallerID,
		Prompt:         rec.Prompt,
		EnhancedPrompt: rec.EnhancedPrompt,
		ImagePath:      rec.ImagePath,
		ModelPath:      rec.ModelPath,
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		Metadata:       rec.Metadata,
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal run %s: %w", rec.RunID, err)
	}
	return string(data), nil
}
