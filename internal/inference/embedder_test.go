package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newEmbeddingServer fakes the embeddings endpoint, echoing a vector whose
// first component encodes the request ordinal.
func newEmbeddingServer(t *testing.T, dim int) (*httptest.Server, *[]string) {
	t.Helper()
	var inputs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			Input string `json:"input"`
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		inputs = append(inputs, body.Input)

		vec := make([]float64, dim)
		vec[0] = float64(len(inputs))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"object":"list","model":%q,"data":[{"object":"embedding","index":0,"embedding":%s}],"usage":{"prompt_tokens":1,"total_tokens":1}}`,
			body.Model, mustJSON(vec))
	}))
	t.Cleanup(srv.Close)
	return srv, &inputs
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	srv, inputs := newEmbeddingServer(t, 4)

	e := NewEmbedder(srv.URL, "test-key", "test-embed", 4)
	vecs, err := e.EmbedTexts(context.Background(), []string{"first chunk", "second chunk", "third chunk"})
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("vectors = %d, want 3", len(vecs))
	}
	// One request per text, in input order.
	if len(*inputs) != 3 {
		t.Fatalf("requests = %d, want 3", len(*inputs))
	}
	if (*inputs)[0] != "first chunk" || (*inputs)[2] != "third chunk" {
		t.Errorf("inputs = %v", *inputs)
	}
	for i, v := range vecs {
		if len(v) != 4 {
			t.Errorf("vector %d has %d dimensions", i, len(v))
		}
		if v[0] != float32(i+1) {
			t.Errorf("vector %d first component = %f, want %d", i, v[0], i+1)
		}
	}
}

func TestEmbedder_EmbedText(t *testing.T) {
	srv, _ := newEmbeddingServer(t, 4)

	e := NewEmbedder(srv.URL, "test-key", "test-embed", 4)
	vec, err := e.EmbedText(context.Background(), "single")
	if err != nil {
		t.Fatalf("EmbedText: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("vector has %d dimensions", len(vec))
	}
}

func TestEmbedder_RejectsWrongDimension(t *testing.T) {
	srv, _ := newEmbeddingServer(t, 3)

	e := NewEmbedder(srv.URL, "test-key", "test-embed", 4)
	_, err := e.EmbedTexts(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestEmbedder_EmptyInput(t *testing.T) {
	srv, inputs := newEmbeddingServer(t, 4)

	e := NewEmbedder(srv.URL, "test-key", "test-embed", 4)
	vecs, err := e.EmbedTexts(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vecs) != 0 || len(*inputs) != 0 {
		t.Errorf("vectors = %d, requests = %d; want none", len(vecs), len(*inputs))
	}
}
