// ABOUTME: Exports a run record as a deterministic Markdown report.
// ABOUTME: Sections: header, prompts, artifacts, then sorted metadata keys.
package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/2389-research/conjure/runstore"
)

// Markdown renders a run record as a Markdown report with deterministic
// ordering. Metadata keys are sorted alphabetically; nested values render as
// compact JSON.
func Markdown(rec *runstore.RunRecord) string {
	var out strings.Builder

	fmt.Fprintf(&out, "# Run %s\n", rec.RunID)
	fmt.Fprintln(&out)
	fmt.Fprintf(&out, "> %s\n", rec.Prompt)
	fmt.Fprintln(&out)
	fmt.Fprintf(&out, "- **Caller:** %s\n", rec.CallerID)
	fmt.Fprintf(&out, "- **Created:** %s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintln(&out)
	fmt.Fprintln(&out, "## Enhanced Prompt")
	fmt.Fprintln(&out)
	fmt.Fprintln(&out, rec.EnhancedPrompt)
	fmt.Fprintln(&out)
	fmt.Fprintln(&out, "## Artifacts")
	fmt.Fprintln(&out)
	fmt.Fprintf(&out, "- Image: `%s`\n", rec.ImagePath)
	fmt.Fprintf(&out, "- Model: `%s`\n", rec.ModelPath)

	if len(rec.Metadata) > 0 {
		fmt.Fprintln(&out)
		fmt.Fprintln(&out, "## Metadata")
		fmt.Fprintln(&out)

		keys := make([]string, 0, len(rec.Metadata))
		for k := range rec.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			encoded, err := json.Marshal(rec.Metadata[k])
			if err != nil {
				encoded = []byte(fmt.Sprintf("%v", rec.Metadata[k]))
			}
			fmt.Fprintf(&out, "- **%s:** `%s`\n", k, encoded)
		}
	}

	return out.String()
}
