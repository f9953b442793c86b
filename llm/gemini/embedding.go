package gemini

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Embed returns one embedding vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, input []string) ([][]float64, error) {
	if len(input) == 0 {
		return nil, nil
	}

	vectors, err := c.api.BatchEmbedContents(ctx, c.embeddingModel, input)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed contents", goerr.V("model", c.embeddingModel))
	}
	if len(vectors) != len(input) {
		return nil, goerr.New("embedding count mismatch",
			goerr.V("expected", len(input)),
			goerr.V("actual", len(vectors)))
	}

	embeddings := make([][]float64, len(vectors))
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, goerr.New("empty embedding", goerr.V("index", i))
		}
		vec := make([]float64, len(v))
		for j, f := range v {
			vec[j] = float64(f)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}
