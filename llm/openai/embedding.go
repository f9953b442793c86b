package openai

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
)

// Embed returns one embedding vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, input []string) ([][]float64, error) {
	if len(input) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input: input,
		Model: openai.EmbeddingModel(c.embeddingModel),
	}

	resp, err := c.api.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding", goerr.V("model", c.embeddingModel))
	}

	if len(resp.Data) != len(input) {
		return nil, goerr.New("embedding count mismatch",
			goerr.V("expected", len(input)),
			goerr.V("actual", len(resp.Data)))
	}

	embeddings := make([][]float64, len(input))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(input) {
			return nil, goerr.New("embedding index out of range", goerr.V("index", data.Index))
		}
		vec := make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float64(v)
		}
		embeddings[data.Index] = vec
	}

	return embeddings, nil
}
