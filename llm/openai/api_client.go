package openai

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// apiClient is the subset of the go-openai client used by Client. *openai.Client satisfies it.
type apiClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}
