// ABOUTME: Tests for CLI argument handling, size parsing, retry mapping, and help output.
package main

import (
	"strings"
	"testing"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"768x768", 768, 768, false},
		{"1024X512", 1024, 512, false},
		{"768", 0, 0, true},
		{"axb", 0, 0, true},
		{"768x", 0, 0, true},
	}

	for _, tc := range cases {
		w, h, err := parseSize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseSize(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSize(%q): %v", tc.in, err)
			continue
		}
		if w != tc.w || h != tc.h {
			t.Errorf("parseSize(%q) = %dx%d, want %dx%d", tc.in, w, h, tc.w, tc.h)
		}
	}
}

func TestRequestFromFlags(t *testing.T) {
	cli := cliConfig{steps: 40, size: "512x512", format: "obj"}

	req, err := requestFromFlags(cli, "a red cube")
	if err != nil {
		t.Fatalf("requestFromFlags: %v", err)
	}
	if req.Prompt != "a red cube" || req.Steps != 40 || req.Width != 512 || req.Height != 512 || req.Format != "obj" {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestRequestFromFlagsBadSize(t *testing.T) {
	cli := cliConfig{size: "tiny"}
	if _, err := requestFromFlags(cli, "a red cube"); err == nil {
		t.Fatal("expected error for bad size")
	}
}

func TestRetryPolicyFromName(t *testing.T) {
	if got := retryPolicyFromName("standard"); got.MaxAttempts < 2 {
		t.Errorf("standard policy should retry, got %+v", got)
	}
	if got := retryPolicyFromName("none"); got.MaxAttempts != 1 {
		t.Errorf("none policy should not retry, got %+v", got)
	}
	if got := retryPolicyFromName("bogus"); got.MaxAttempts != 1 {
		t.Errorf("unknown policy should map to none, got %+v", got)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &Config{Addr: "127.0.0.1:2389", Retry: "none"}
	cli := cliConfig{addr: "127.0.0.1:8080", retryPolicy: "standard", negative: "low poly"}

	applyFlagOverrides(cfg, cli)

	if cfg.Addr != "127.0.0.1:8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Retry != "standard" {
		t.Errorf("Retry = %q", cfg.Retry)
	}
	if cfg.NegativePrompt != "low poly" {
		t.Errorf("NegativePrompt = %q", cfg.NegativePrompt)
	}
}

func TestPrintHelpMentionsModes(t *testing.T) {
	var b strings.Builder
	printHelp(&b, "test")

	out := b.String()
	for _, want := range []string{"conjure test", "-serve", "-tui", "history", "export", "CONJURE_LLM_BASE_URL"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q", want)
		}
	}
}
