// ABOUTME: Prompt enhancement engine backed by a local OpenAI-compatible model endpoint.
// ABOUTME: Rewrites raw prompts into richer 3D-generation descriptions with a deterministic fallback.
package enhance

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is the one supported local model. Requests for any other
// model name fall back to it rather than failing.
const DefaultModel = "tinyllama"

// fallbackSuffix is appended to the raw prompt whenever the model path is
// unavailable or returns degenerate output. It guarantees Enhance always
// returns a usable, non-trivial prompt.
const fallbackSuffix = ", highly detailed, cinematic lighting, 8k resolution, photorealistic textures, PBR materials, accurate proportions"

// minEnhancedLength is the threshold below which a model response is
// considered degenerate and replaced by the fallback.
const minEnhancedLength = 10

// systemPrompt instructs the model on how to rewrite prompts for 3D
// generation.
const systemPrompt = `You are an expert 3D artist. Your task is to enhance text prompts for 3D model generation. Add specific details about lighting, textures, materials, perspective, and other relevant attributes that would make the 3D model more vivid and realistic. Be specific but concise. Focus on visual details, not storytelling.`

// supportedModels is the set of model names the engine can actually serve.
var supportedModels = map[string]bool{
	DefaultModel: true,
}

// Config holds the tunables for the enhancement engine. Zero values are
// replaced with defaults in New.
type Config struct {
	BaseURL     string        // OpenAI-compatible endpoint (default http://127.0.0.1:8080/v1)
	APIKey      string        // most local servers ignore this (default "local")
	Model       string        // default DefaultModel; unsupported names fall back to it
	Temperature float64       // sampling temperature (default 0.7)
	MaxTokens   int           // output length bound (default 256)
	Timeout     time.Duration // per-call timeout (default 20s)
}

// Engine rewrites raw prompts using a local generative model. The underlying
// client is created lazily on the first Enhance call and reused for the
// process lifetime; concurrent calls share it safely.
type Engine struct {
	cfg Config

	mu     sync.Mutex
	client *openai.Client
}

// New creates an Engine with defaults applied. The model endpoint is not
// contacted until the first Enhance call.
func New(cfg Config) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:8080/v1"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "local"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if !supportedModels[cfg.Model] {
		log.Printf("enhance model %q not supported, falling back to %q", cfg.Model, DefaultModel)
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Engine{cfg: cfg}
}

// Model returns the model name the engine actually uses after fallback.
func (e *Engine) Model() string { return e.cfg.Model }

// Enhance rewrites prompt into a richer 3D-generation description. It never
// fails outwardly: on model error, timeout, or degenerate output it returns
// the deterministic fallback (prompt plus fixed quality qualifiers). The
// returned string is never empty and always usable as a generation prompt.
func (e *Engine) Enhance(ctx context.Context, prompt string) string {
	enhanced, err := e.tryModel(ctx, prompt)
	if err != nil {
		log.Printf("enhance falling back err=%v", err)
		return prompt + fallbackSuffix
	}
	if len(enhanced) < minEnhancedLength {
		log.Printf("enhance falling back: model returned %d chars", len(enhanced))
		return prompt + fallbackSuffix
	}
	return enhanced
}

// tryModel performs one chat completion against the local endpoint.
func (e *Engine) tryModel(ctx context.Context, prompt string) (string, error) {
	client := e.loadClient()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: e.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Enhance this prompt for 3D model generation: " + prompt),
		},
		MaxTokens:   openai.Int(int64(e.cfg.MaxTokens)),
		Temperature: openai.Float(e.cfg.Temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// loadClient returns the shared client, constructing it on first use. The
// first caller pays initialization; later calls reuse the same client.
func (e *Engine) loadClient() *openai.Client {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		log.Printf("enhance loading model client model=%s endpoint=%s", e.cfg.Model, e.cfg.BaseURL)
		c := openai.NewClient(
			option.WithAPIKey(e.cfg.APIKey),
			option.WithBaseURL(e.cfg.BaseURL),
			option.WithMaxRetries(0),
		)
		e.client = &c
	}
	return e.client
}
