// ABOUTME: Tests for the .env loader covering parsing, quoting, and no-clobber behavior.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestLoadDotEnvSetsVariables(t *testing.T) {
	path := writeEnvFile(t, "CONJURE_TEST_A=hello\nCONJURE_TEST_B=\"quoted value\"\nexport CONJURE_TEST_C='single'\n")
	t.Setenv("CONJURE_TEST_A", "")
	os.Unsetenv("CONJURE_TEST_A")
	t.Setenv("CONJURE_TEST_B", "")
	os.Unsetenv("CONJURE_TEST_B")
	t.Setenv("CONJURE_TEST_C", "")
	os.Unsetenv("CONJURE_TEST_C")

	loadDotEnv(path)

	if got := os.Getenv("CONJURE_TEST_A"); got != "hello" {
		t.Errorf("CONJURE_TEST_A = %q", got)
	}
	if got := os.Getenv("CONJURE_TEST_B"); got != "quoted value" {
		t.Errorf("CONJURE_TEST_B = %q", got)
	}
	if got := os.Getenv("CONJURE_TEST_C"); got != "single" {
		t.Errorf("CONJURE_TEST_C = %q", got)
	}
}

func TestLoadDotEnvDoesNotClobber(t *testing.T) {
	path := writeEnvFile(t, "CONJURE_TEST_KEEP=file-value\n")
	t.Setenv("CONJURE_TEST_KEEP", "env-value")

	loadDotEnv(path)

	if got := os.Getenv("CONJURE_TEST_KEEP"); got != "env-value" {
		t.Errorf("existing value clobbered: %q", got)
	}
}

func TestLoadDotEnvIgnoresCommentsAndMalformedLines(t *testing.T) {
	path := writeEnvFile(t, "# comment\n\nNOEQUALS\nCONJURE_TEST_D=eq=in=value\n")
	t.Setenv("CONJURE_TEST_D", "")
	os.Unsetenv("CONJURE_TEST_D")

	loadDotEnv(path)

	if got := os.Getenv("CONJURE_TEST_D"); got != "eq=in=value" {
		t.Errorf("CONJURE_TEST_D = %q", got)
	}
	if _, exists := os.LookupEnv("NOEQUALS"); exists {
		t.Error("malformed line should not set a variable")
	}
}

func TestLoadDotEnvMissingFileIsSilent(t *testing.T) {
	loadDotEnv(filepath.Join(t.TempDir(), "does-not-exist"))
}
