// ABOUTME: Tests for the prompt enhancement engine against a fake OpenAI-compatible endpoint.
// ABOUTME: Covers model success, degenerate-output fallback, unreachable-endpoint fallback, and model name fallback.
package enhance_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2389-research/conjure/enhance"
)

// fakeModelServer serves POST /chat/completions with a fixed completion.
func fakeModelServer(t *testing.T, content string, gotModel *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if gotModel != nil {
			*gotModel = req.Model
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
}

func TestEnhanceUsesModelOutput(t *testing.T) {
	want := "a red cube with brushed steel edges, studio lighting, 4k textures"
	srv := fakeModelServer(t, "  "+want+"  ", nil)
	defer srv.Close()

	engine := enhance.New(enhance.Config{BaseURL: srv.URL})
	got := engine.Enhance(context.Background(), "a red cube")
	if got != want {
		t.Errorf("Enhance = %q, want trimmed model output %q", got, want)
	}
}

func TestEnhanceFallsBackOnShortOutput(t *testing.T) {
	srv := fakeModelServer(t, "ok", nil)
	defer srv.Close()

	engine := enhance.New(enhance.Config{BaseURL: srv.URL})
	got := engine.Enhance(context.Background(), "a red cube")

	if !strings.Contains(got, "a red cube") {
		t.Errorf("fallback %q does not contain the original prompt", got)
	}
	if len(got) < 10 {
		t.Errorf("fallback length = %d, want >= 10", len(got))
	}
	if !strings.Contains(got, "highly detailed") {
		t.Errorf("fallback %q missing quality qualifiers", got)
	}
}

func TestEnhanceFallsBackWhenEndpointUnreachable(t *testing.T) {
	engine := enhance.New(enhance.Config{
		BaseURL: "http://127.0.0.1:1/v1", // nothing listens here
		Timeout: 500 * time.Millisecond,
	})
	got := engine.Enhance(context.Background(), "a small wooden boat")

	if !strings.Contains(got, "a small wooden boat") {
		t.Errorf("fallback %q does not contain the original prompt", got)
	}
	if len(got) < 10 {
		t.Errorf("fallback length = %d, want >= 10", len(got))
	}
}

func TestEnhanceFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := enhance.New(enhance.Config{BaseURL: srv.URL})
	got := engine.Enhance(context.Background(), "a ceramic teapot")
	if !strings.Contains(got, "a ceramic teapot") {
		t.Errorf("fallback %q does not contain the original prompt", got)
	}
}

func TestUnsupportedModelFallsBackToDefault(t *testing.T) {
	var gotModel string
	srv := fakeModelServer(t, "a richly detailed scene with dramatic rim lighting", &gotModel)
	defer srv.Close()

	engine := enhance.New(enhance.Config{BaseURL: srv.URL, Model: "gpt-enormous"})
	if engine.Model() != enhance.DefaultModel {
		t.Errorf("Model() = %q, want %q", engine.Model(), enhance.DefaultModel)
	}

	_ = engine.Enhance(context.Background(), "anything")
	if gotModel != enhance.DefaultModel {
		t.Errorf("request model = %q, want %q", gotModel, enhance.DefaultModel)
	}
}

func TestEnhanceSafeForConcurrentUse(t *testing.T) {
	srv := fakeModelServer(t, "a richly detailed scene with dramatic rim lighting", nil)
	defer srv.Close()

	engine := enhance.New(enhance.Config{BaseURL: srv.URL})

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			if got := engine.Enhance(context.Background(), "a red cube"); len(got) < 10 {
				t.Errorf("Enhance returned %q", got)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
