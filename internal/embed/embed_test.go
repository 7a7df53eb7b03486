package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
	}
	for _, tt := range tests {
		if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("%s: Cosine = %f, want %f", tt.name, got, tt.want)
		}
	}
}

func TestCosineScaleInvariant(t *testing.T) {
	a := []float32{0.3, 0.4, 0.5}
	scaled := []float32{0.6, 0.8, 1.0}
	if got := Cosine(a, scaled); math.Abs(got-1.0) > 1e-6 {
		t.Errorf("Cosine of scaled vector = %f, want 1", got)
	}
}

func TestNullEmbedder(t *testing.T) {
	n := Null{}
	if n.Available(context.Background()) {
		t.Error("Null must never report available")
	}
	if _, err := n.Embed(context.Background(), "anything"); err == nil {
		t.Error("Null.Embed must fail")
	}
}

func TestHTTPEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Prompt == "" {
			http.Error(w, "empty prompt", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	e := &HTTPEmbedder{URL: srv.URL, Model: "test-model", Timeout: 5 * time.Second, client: srv.Client()}
	ctx := context.Background()

	if !e.Available(ctx) {
		t.Error("running server not reported available")
	}

	vec, err := e.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("embedding length = %d, want 3", len(vec))
	}
	if math.Abs(float64(vec[1])-0.2) > 1e-6 {
		t.Errorf("vec[1] = %f, want 0.2", vec[1])
	}
}

func TestHTTPEmbedderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := &HTTPEmbedder{URL: srv.URL, Model: "test-model", Timeout: 5 * time.Second, client: srv.Client()}
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Error("server error not propagated")
	}
}
