// ABOUTME: Tests for CLI config resolution from defaults, YAML file, and environment.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func clearConjureEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONJURE_DATA_DIR", "CONJURE_ADDR", "CONJURE_CALLER_ID",
		"CONJURE_IMAGE_SERVICE", "CONJURE_MODEL_SERVICE",
		"CONJURE_LLM_BASE_URL", "CONJURE_LLM_MODEL",
		"CONJURE_RETRY", "CONJURE_NEGATIVE_PROMPT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConjureEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Addr != "127.0.0.1:2389" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.CallerID != "super-user" {
		t.Errorf("CallerID = %q", cfg.CallerID)
	}
	if cfg.ImageServiceID != defaultImageServiceID {
		t.Errorf("ImageServiceID = %q", cfg.ImageServiceID)
	}
	if cfg.ModelServiceID != defaultModelServiceID {
		t.Errorf("ModelServiceID = %q", cfg.ModelServiceID)
	}
	if cfg.Retry != "none" {
		t.Errorf("Retry = %q", cfg.Retry)
	}
}

func TestLoadConfigReadsYAMLFile(t *testing.T) {
	clearConjureEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "addr: 127.0.0.1:9999\ncaller_id: yaml-caller\nllm_model: tinyllama\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Addr != "127.0.0.1:9999" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.CallerID != "yaml-caller" {
		t.Errorf("CallerID = %q", cfg.CallerID)
	}
	if cfg.LLMModel != "tinyllama" {
		t.Errorf("LLMModel = %q", cfg.LLMModel)
	}
	// Unset fields keep their defaults.
	if cfg.ImageServiceID != defaultImageServiceID {
		t.Errorf("ImageServiceID = %q", cfg.ImageServiceID)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearConjureEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: 127.0.0.1:9999\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONJURE_ADDR", "127.0.0.1:7777")
	t.Setenv("CONJURE_IMAGE_SERVICE", "custom-image-svc")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Addr != "127.0.0.1:7777" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.ImageServiceID != "custom-image-svc" {
		t.Errorf("ImageServiceID = %q", cfg.ImageServiceID)
	}
}

func TestLoadConfigExplicitMissingFileFails(t *testing.T) {
	clearConjureEnv(t)

	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfigRejectsEmptyServiceID(t *testing.T) {
	clearConjureEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("image_service: \"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected error for blanked image service id")
	}
}
