// ABOUTME: Help display for the conjure CLI with grouped flags, examples, and environment status.
// ABOUTME: Provides printHelp for usage output and envStatus for configuration detection.
package main

import (
	"fmt"
	"io"
	"os"
)

// printHelp writes a formatted help message to w, including usage patterns,
// grouped flags, examples, and environment status.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "conjure %s — text-to-3D generation pipeline\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  conjure \"<prompt>\"                 Run one generation end to end")
	fmt.Fprintln(w, "  conjure -tui                        Interactive terminal UI")
	fmt.Fprintln(w, "  conjure -serve [-addr host:port]    Start the web dashboard and API")
	fmt.Fprintln(w, "  conjure history [query]             List past runs, optionally filtered")
	fmt.Fprintln(w, "  conjure export <run-id>             Print a run record report")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Generation Flags:")
	fmt.Fprintln(w, "  -steps <n>            Diffusion steps (default: 25)")
	fmt.Fprintln(w, "  -size <WxH>           Image dimensions (default: 768x768)")
	fmt.Fprintln(w, "  -format <fmt>         3D output format: glb, obj, stl (default: glb)")
	fmt.Fprintln(w, "  -negative <text>      Negative prompt override")
	fmt.Fprintln(w, "  -retry <policy>       Remote call retry policy: none, standard (default: none)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Other Flags:")
	fmt.Fprintln(w, "  -serve                Start web server mode")
	fmt.Fprintln(w, "  -addr <host:port>     Web server address (default: 127.0.0.1:2389)")
	fmt.Fprintln(w, "  -tui                  Run with interactive terminal UI")
	fmt.Fprintln(w, "  -data-dir <dir>       Persistent state directory (default: $XDG_DATA_HOME/conjure)")
	fmt.Fprintln(w, "  -config <file>        YAML config file (default: $XDG_CONFIG_HOME/conjure/config.yaml)")
	fmt.Fprintln(w, "  -export-format <fmt>  Export format: markdown, yaml, json (default: markdown)")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w, "  -help                 Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  conjure \"a glowing dragon standing on a cliff at sunset\"")
	fmt.Fprintln(w, "  conjure -steps 40 -format obj \"a weathered bronze statue\"")
	fmt.Fprintln(w, "  conjure history dragon")
	fmt.Fprintln(w, "  conjure -export-format yaml export 01JC6YQZ8M0000000000000000")
	fmt.Fprintln(w, "  conjure -serve -addr 127.0.0.1:8080")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  CONJURE_LLM_BASE_URL  %s\n", envStatus("CONJURE_LLM_BASE_URL"))
	fmt.Fprintf(w, "  CONJURE_IMAGE_SERVICE %s\n", envStatus("CONJURE_IMAGE_SERVICE"))
	fmt.Fprintf(w, "  CONJURE_MODEL_SERVICE %s\n", envStatus("CONJURE_MODEL_SERVICE"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Prompt enhancement expects a local OpenAI-compatible endpoint")
	fmt.Fprintln(w, "  (llama.cpp, Ollama) at CONJURE_LLM_BASE_URL; runs fall back to a")
	fmt.Fprintln(w, "  deterministic prompt suffix when the model is unavailable.")
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}
