package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"ragchat/internal/domain"
	"ragchat/internal/generation"
)

const DefaultModel = "claude-3-5-haiku-latest"

type anthropicGenerator struct {
	options generation.Options
	client  *anthropic.Client
}

func (g *anthropicGenerator) Name() string { return "anthropic" }

func (g *anthropicGenerator) Generate(ctx context.Context, promptContext, question string) (domain.Generation, error) {
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.options.Model),
		MaxTokens: int64(g.options.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: g.options.Instructions + "\n\n" + promptContext},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
	}
	if g.options.Temperature > 0 {
		req.Temperature = anthropic.Float(float64(g.options.Temperature))
	}

	rsp, err := g.client.Messages.New(ctx, req)
	if err != nil {
		return domain.Generation{}, domain.NewProviderError(g.Name(), "generate", err)
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return domain.Generation{}, domain.NewProviderError(g.Name(), "generate", errors.New("no response from Anthropic"))
	}

	g.options.Logger.Debug("generation complete",
		zap.String("model", g.options.Model),
		zap.Int("prompt_tokens", int(rsp.Usage.InputTokens)),
		zap.Int("completion_tokens", int(rsp.Usage.OutputTokens)),
	)

	return domain.Generation{
		Answer: result,
		Usage: &domain.Usage{
			PromptTokens:     int(rsp.Usage.InputTokens),
			CompletionTokens: int(rsp.Usage.OutputTokens),
		},
	}, nil
}

func NewGenerator(opts ...generation.Option) (domain.Generator, error) {
	options := generation.NewOptions(opts...)
	if len(options.APIKey) == 0 {
		return nil, domain.Configf("anthropic generator: API key is required")
	}
	if len(options.Model) == 0 {
		options.Model = DefaultModel
	}

	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.APIKey),
	}
	if len(options.BaseURL) > 0 {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.BaseURL))
	}
	if options.HTTPClient != nil {
		clientOpts = append(clientOpts, anthropicopt.WithHTTPClient(options.HTTPClient))
	}

	client := anthropic.NewClient(clientOpts...)

	g := &anthropicGenerator{
		options: options,
		client:  &client,
	}

	return g, nil
}
