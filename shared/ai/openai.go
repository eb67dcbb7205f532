package ai

import (
	"context"
	"fmt"
	"strings"

	"video-scout/shared/config"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIGenerator struct {
	client openai.Client
	model  string
}

func newOpenAIGenerator(cfg *config.AIConfig, opts ...option.RequestOption) *openAIGenerator {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	opts = append([]option.RequestOption{
		option.WithBaseURL(strings.TrimRight(baseURL, "/")),
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}, opts...)

	return &openAIGenerator{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (g *openAIGenerator) Name() string {
	return "openai"
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion %s", completion.ID)
	}

	return completion.Choices[0].Message.Content, nil
}
