package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"researchd/app/config"

	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
)

const requestTimeout = 60 * time.Second

type Client struct {
	chat       *openai.Client
	embeddings *openai.Client
	chatModel  string
	embedModel string
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		chat:       createClient(cfg.OpenAI.Chat),
		embeddings: createClient(cfg.OpenAI.Embedding),
		chatModel:  cfg.OpenAI.Chat.Model,
		embedModel: cfg.OpenAI.Embedding.Model,
	}, nil
}

func createClient(cfg config.ModelConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.Token)

	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: requestTimeout,
	}

	return openai.NewClientWithConfig(clientConfig)
}

func (c *Client) ChatModel() string {
	return c.chatModel
}

// ChatCompletion forwards a raw request, filling in the configured model
// when the caller leaves it empty.
func (c *Client) ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.chatModel
	}

	return c.chat.CreateChatCompletion(ctx, req)
}

// Generate runs a single system+user exchange and returns the trimmed reply.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	aiResponse, err := c.chat.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(aiResponse.Choices) == 0 {
		return "", fmt.Errorf("no chat completion found")
	}

	return strings.TrimSpace(aiResponse.Choices[0].Message.Content), nil
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.embeddings.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch (%d != %d)", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = item.Embedding
	}

	return vectors, nil
}
