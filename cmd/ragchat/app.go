package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/credential"
	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	"ragchat/internal/embedding/openai"
	"ragchat/internal/embedding/tfidf"
	"ragchat/internal/generation"
	"ragchat/internal/generation/anthropic"
	"ragchat/internal/generation/extractive"
	openaigen "ragchat/internal/generation/openai"
	"ragchat/internal/index"
	"ragchat/internal/index/chromem"
	"ragchat/internal/loader"
	"ragchat/internal/logging"
	"ragchat/internal/memory"
	"ragchat/internal/service"
)

// app holds the components assembled from one configuration.
type app struct {
	cfg       *config.AppConfig
	logger    *zap.Logger
	embedder  domain.Embedder
	generator domain.Generator
	ingestor  *service.Ingestor
}

func newApp(cfg *config.AppConfig, logger *zap.Logger, prompter credential.Prompter) (*app, error) {
	emb, err := newEmbedder(cfg, logger, prompter)
	if err != nil {
		return nil, err
	}
	gen, err := newGenerator(cfg, logger, prompter)
	if err != nil {
		return nil, err
	}
	ch, err := chunker.New(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}
	ing, err := service.NewIngestor(service.IngestorConfig{
		Source:          loader.New(logger),
		Chunker:         ch,
		Embedder:        emb,
		Concurrency:     cfg.Embedder.Concurrency,
		ProviderTimeout: cfg.ProviderTimeout(),
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, embedder: emb, generator: gen, ingestor: ing}, nil
}

func newEmbedder(cfg *config.AppConfig, logger *zap.Logger, prompter credential.Prompter) (domain.Embedder, error) {
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case config.EmbedderTFIDF:
		emb = tfidf.NewEmbedder()
	case config.EmbedderOpenAI:
		oc := cfg.Embedder.OpenAI
		key, err := credential.Resolve(oc.APIKeyEnv, prompter)
		if err != nil {
			return nil, err
		}
		logger.Debug("openai embedder configured", zap.String("model", oc.Model), logging.Secret("api_key", key))
		client, err := openai.NewClient(openai.Config{
			BaseURL:    oc.BaseURL,
			APIKey:     key.Reveal(),
			Model:      oc.Model,
			MaxRetries: oc.MaxRetries,
			HTTPClient: &http.Client{Timeout: time.Duration(oc.TimeoutSecs) * time.Second},
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
		if oc.RequestsPerSecond > 0 {
			emb = embedding.NewRateLimited(emb, oc.RequestsPerSecond, cfg.Embedder.Concurrency)
		}
	default:
		return nil, domain.Configf("unknown embedder: %s", cfg.Embedder.Type)
	}
	if cfg.Embedder.Cache {
		emb = embedding.NewCached(emb)
	}
	return emb, nil
}

func newGenerator(cfg *config.AppConfig, logger *zap.Logger, prompter credential.Prompter) (domain.Generator, error) {
	gc := cfg.Generator
	var llm *config.LLMConfig
	var build func(...generation.Option) (domain.Generator, error)
	switch gc.Type {
	case config.GeneratorExtractive:
		return extractive.NewGenerator(gc.MaxSentences), nil
	case config.GeneratorOpenAI:
		llm, build = gc.OpenAI, openaigen.NewGenerator
	case config.GeneratorAnthropic:
		llm, build = gc.Anthropic, anthropic.NewGenerator
	default:
		return nil, domain.Configf("unknown generator: %s", gc.Type)
	}
	if llm == nil {
		return nil, domain.Configf("%s generator config missing", gc.Type)
	}

	key, err := credential.Resolve(llm.APIKeyEnv, prompter)
	if err != nil {
		return nil, err
	}
	logger.Debug("generator configured", zap.String("type", gc.Type), zap.String("model", llm.Model), logging.Secret("api_key", key))
	return build(
		generation.WithAPIKey(key.Reveal()),
		generation.WithBaseURL(llm.BaseURL),
		generation.WithModel(llm.Model),
		generation.WithMaxTokens(gc.MaxTokens),
		generation.WithTemperature(gc.Temperature),
		generation.WithLogger(logger),
	)
}

func (a *app) indexOptions() []index.Option {
	opts := []index.Option{index.WithLogger(a.logger)}
	if a.cfg.Index.Backend == config.BackendChromem {
		opts = append(opts, index.WithBackend(chromem.New()))
	}
	return opts
}

// openIndex ingests docs when given, otherwise restores indexPath.
func (a *app) openIndex(ctx context.Context, docs []string, indexPath string) (*index.Index, error) {
	if len(docs) == 0 {
		if indexPath == "" {
			return nil, domain.Configf("no documents and no index given")
		}
		return a.ingestor.Restore(indexPath, a.indexOptions()...)
	}
	ix, err := index.Build(nil, a.indexOptions()...)
	if err != nil {
		return nil, err
	}
	if _, err := a.ingestor.Ingest(ctx, docs, ix); err != nil {
		return nil, err
	}
	return ix, nil
}

func (a *app) orchestrator(ix *index.Index) (*service.Orchestrator, error) {
	mem, err := memory.New(a.cfg.Memory.Window)
	if err != nil {
		return nil, err
	}
	return service.NewOrchestrator(service.Config{
		Embedder:        a.embedder,
		Generator:       a.generator,
		Index:           ix,
		Memory:          mem,
		K:               a.cfg.Retrieval.K,
		QueryPolicy:     service.QueryPolicy(a.cfg.Retrieval.QueryPolicy),
		ProviderTimeout: a.cfg.ProviderTimeout(),
		Logger:          a.logger,
	})
}
