package gemini

import (
	"context"

	"github.com/google/generative-ai-go/genai"
)

// request is one stateless generation call. History excludes the final user turn, which is
// sent as Parts.
type request struct {
	Model       string
	System      *genai.Content
	Tools       []*genai.Tool
	History     []*genai.Content
	Parts       []genai.Part
	Temperature *float32
}

// apiClient is the interface for Gemini API calls (unexported for encapsulation)
type apiClient interface {
	GenerateContent(ctx context.Context, req *request) (*genai.GenerateContentResponse, error)
	BatchEmbedContents(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// realAPIClient builds a fresh model and chat session per call, so concurrent runs never
// share the SDK's mutable model configuration.
type realAPIClient struct {
	client *genai.Client
}

func (r *realAPIClient) GenerateContent(ctx context.Context, req *request) (*genai.GenerateContentResponse, error) {
	model := r.client.GenerativeModel(req.Model)
	model.SystemInstruction = req.System
	model.Tools = req.Tools
	if req.Temperature != nil {
		model.SetTemperature(*req.Temperature)
	}

	chat := model.StartChat()
	chat.History = req.History
	return chat.SendMessage(ctx, req.Parts...)
}

func (r *realAPIClient) BatchEmbedContents(ctx context.Context, model string, texts []string) ([][]float32, error) {
	em := r.client.EmbeddingModel(model)
	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e != nil {
			vectors[i] = e.Values
		}
	}
	return vectors, nil
}
