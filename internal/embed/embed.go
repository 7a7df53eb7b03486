// Package embed abstracts the remote text-embedding service behind a
// small interface with a null implementation, so hybrid search degrades
// to lexical when no provider is configured or reachable.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/lorehq/lore/internal/config"
)

// Embedder produces fixed-dimension vectors for text.
type Embedder interface {
	Name() string
	// Available probes the provider with a short timeout.
	Available(ctx context.Context) bool
	Embed(ctx context.Context, text string) ([]float32, error)
}

// FromConfig builds the configured embedder, or Null when embed.url is
// unset.
func FromConfig() Embedder {
	url := config.GetString("embed.url")
	if url == "" {
		return Null{}
	}
	timeout := config.GetDuration("embed.timeout")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPEmbedder{
		URL:     url,
		Model:   config.GetString("embed.model"),
		Timeout: timeout,
		client:  &http.Client{},
	}
}

// Null is the no-provider implementation: never available, never called.
type Null struct{}

func (Null) Name() string                   { return "null" }
func (Null) Available(context.Context) bool { return false }
func (Null) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("no embedding provider configured")
}

// HTTPEmbedder talks to an Ollama-compatible embeddings endpoint:
// POST {model, prompt} -> {embedding: [float]}.
type HTTPEmbedder struct {
	URL     string
	Model   string
	Timeout time.Duration
	client  *http.Client
}

func (e *HTTPEmbedder) Name() string { return "http" }

// Available probes the endpoint with a 2 second budget so a downed
// provider cannot stall the write or query path.
func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.URL, nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed requests one vector. The call is bounded by the configured
// timeout; failures are non-fatal for callers, which fall back to
// lexical-only behavior.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: e.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned %s", resp.Status)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing embed response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}
	return parsed.Embedding, nil
}

// Cosine computes cosine similarity between two vectors of equal length.
// Mismatched lengths score 0, matching the contract that the system never
// assumes a dimension beyond the value stored at first write.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
