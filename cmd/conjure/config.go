// ABOUTME: Configuration for the conjure CLI loaded from an optional YAML file
// ABOUTME: and CONJURE_* environment variables, with env taking precedence.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default service identifiers for the hosted generation network.
const (
	defaultImageServiceID = "f0997a01-d6d3-a5fe-53d8-561300318557"
	defaultModelServiceID = "69543f29-4d41-4afc-7f29-3d51591f11eb"
)

var errEmptyServiceID = errors.New("service id must not be empty")

// Config holds the runtime configuration for the conjure CLI. Values are
// resolved in order: built-in defaults, then the YAML config file, then
// CONJURE_* environment variables.
type Config struct {
	DataDir        string `yaml:"data_dir"`        // CONJURE_DATA_DIR
	Addr           string `yaml:"addr"`            // CONJURE_ADDR
	CallerID       string `yaml:"caller_id"`       // CONJURE_CALLER_ID
	ImageServiceID string `yaml:"image_service"`   // CONJURE_IMAGE_SERVICE
	ModelServiceID string `yaml:"model_service"`   // CONJURE_MODEL_SERVICE
	LLMBaseURL     string `yaml:"llm_base_url"`    // CONJURE_LLM_BASE_URL
	LLMModel       string `yaml:"llm_model"`       // CONJURE_LLM_MODEL
	Retry          string `yaml:"retry"`           // CONJURE_RETRY: none or standard
	NegativePrompt string `yaml:"negative_prompt"` // CONJURE_NEGATIVE_PROMPT
}

// loadConfig resolves the full configuration. configPath may be empty, in
// which case config.yaml under the XDG config dir is tried; a missing file
// is not an error.
func loadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		Addr:           "127.0.0.1:2389",
		CallerID:       "super-user",
		ImageServiceID: defaultImageServiceID,
		ModelServiceID: defaultModelServiceID,
		Retry:          "none",
	}

	path := configPath
	if path == "" {
		if dir, err := defaultConfigDir(); err == nil {
			path = filepath.Join(dir, "config.yaml")
		}
	}
	if path != "" {
		if err := applyConfigFile(cfg, path, configPath != ""); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if cfg.ImageServiceID == "" {
		return nil, fmt.Errorf("image service: %w", errEmptyServiceID)
	}
	if cfg.ModelServiceID == "" {
		return nil, fmt.Errorf("model service: %w", errEmptyServiceID)
	}

	return cfg, nil
}

// applyConfigFile merges a YAML config file into cfg. When required is false,
// a missing file is ignored.
func applyConfigFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg fields from CONJURE_* environment variables.
func applyEnv(cfg *Config) {
	setFromEnv(&cfg.DataDir, "CONJURE_DATA_DIR")
	setFromEnv(&cfg.Addr, "CONJURE_ADDR")
	setFromEnv(&cfg.CallerID, "CONJURE_CALLER_ID")
	setFromEnv(&cfg.ImageServiceID, "CONJURE_IMAGE_SERVICE")
	setFromEnv(&cfg.ModelServiceID, "CONJURE_MODEL_SERVICE")
	setFromEnv(&cfg.LLMBaseURL, "CONJURE_LLM_BASE_URL")
	setFromEnv(&cfg.LLMModel, "CONJURE_LLM_MODEL")
	setFromEnv(&cfg.Retry, "CONJURE_RETRY")
	setFromEnv(&cfg.NegativePrompt, "CONJURE_NEGATIVE_PROMPT")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
