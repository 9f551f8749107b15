package openai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"ragchat/internal/domain"
	"ragchat/internal/generation"
)

const DefaultModel = openai.GPT4oMini

type openAIGenerator struct {
	options generation.Options
	client  *openai.Client
}

func (g *openAIGenerator) Name() string { return "openai" }

func (g *openAIGenerator) Generate(ctx context.Context, promptContext, question string) (domain.Generation, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.options.Model,
		MaxTokens:   g.options.MaxTokens,
		Temperature: g.options.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: g.options.Instructions + "\n\n" + promptContext,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: question,
			},
		},
	}

	rsp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Generation{}, domain.NewProviderError(g.Name(), "generate", err)
	}

	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return domain.Generation{}, domain.NewProviderError(g.Name(), "generate", errors.New("no response from OpenAI"))
	}

	g.options.Logger.Debug("generation complete",
		zap.String("model", g.options.Model),
		zap.Int("prompt_tokens", rsp.Usage.PromptTokens),
		zap.Int("completion_tokens", rsp.Usage.CompletionTokens),
	)

	return domain.Generation{
		Answer: rsp.Choices[0].Message.Content,
		Usage: &domain.Usage{
			PromptTokens:     rsp.Usage.PromptTokens,
			CompletionTokens: rsp.Usage.CompletionTokens,
		},
	}, nil
}

func NewGenerator(opts ...generation.Option) (domain.Generator, error) {
	options := generation.NewOptions(opts...)
	if len(options.APIKey) == 0 {
		return nil, domain.Configf("openai generator: API key is required")
	}
	if len(options.Model) == 0 {
		options.Model = DefaultModel
	}

	cfg := openai.DefaultConfig(options.APIKey)
	if len(options.BaseURL) > 0 {
		cfg.BaseURL = options.BaseURL
	}
	if options.HTTPClient != nil {
		cfg.HTTPClient = options.HTTPClient
	}

	g := &openAIGenerator{
		options: options,
		client:  openai.NewClientWithConfig(cfg),
	}

	return g, nil
}
