// Package inference wraps the managed model endpoints behind small
// clients: an Embedder for text embeddings and a Chat for single-shot
// completions. Both speak the OpenAI wire format.
package inference

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder turns texts into vectors via the embeddings endpoint.
type Embedder struct {
	client  openai.Client
	modelID string
	dim     int
}

// NewEmbedder builds an Embedder against baseURL. dim is the expected
// vector width; responses of any other width are rejected.
func NewEmbedder(baseURL, apiKey, modelID string, dim int) *Embedder {
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)
	return &Embedder{client: client, modelID: modelID, dim: dim}
}

// ModelID reports the configured embedding model.
func (e *Embedder) ModelID() string { return e.modelID }

// Dimension reports the expected vector width.
func (e *Embedder) Dimension() int { return e.dim }

// EmbedTexts embeds each text with one request per text. The managed
// endpoint rejects large mixed batches, so callers control batch size by
// slicing their input.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfString: openai.String(text),
			},
			Model: e.modelID,
		})
		if err != nil {
			return nil, fmt.Errorf("inference: embed text %d: %w", i, err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("inference: embed text %d: empty response", i)
		}
		raw := resp.Data[0].Embedding
		if e.dim > 0 && len(raw) != e.dim {
			return nil, fmt.Errorf("inference: embed text %d: model %s returned %d dimensions, expected %d",
				i, e.modelID, len(raw), e.dim)
		}
		vec := make([]float32, len(raw))
		for j, f := range raw {
			vec[j] = float32(f)
		}
		vectors = append(vectors, vec)
	}
	embeddingsGeneratedTotal.Add(float64(len(vectors)))
	return vectors, nil
}

// EmbedText embeds a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
