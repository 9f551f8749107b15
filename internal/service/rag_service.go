package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ragchat/internal/domain"
	"ragchat/internal/generation"
	"ragchat/internal/memory"
)

type QueryPolicy string

const (
	// QueryVerbatim retrieves with the question exactly as asked.
	QueryVerbatim QueryPolicy = "verbatim"
	// QueryCondense rewrites a follow-up into a standalone query using the history.
	QueryCondense QueryPolicy = "condense"
)

const (
	DefaultK               = 5
	DefaultProviderTimeout = 60 * time.Second
)

var ErrEmptyQuestion = errors.New("empty question")

type State int32

const (
	Idle State = iota
	Answering
)

func (s State) String() string {
	if s == Answering {
		return "answering"
	}
	return "idle"
}

// Retriever is the read side of the vector index.
type Retriever interface {
	Search(query []float32, k int) ([]domain.SearchResult, error)
	Len() int
}

type Config struct {
	Embedder        domain.Embedder
	Generator       domain.Generator
	Index           Retriever
	Memory          *memory.Window
	K               int
	QueryPolicy     QueryPolicy
	ProviderTimeout time.Duration
	Logger          *zap.Logger
}

// Orchestrator runs one conversation. Ask is not reentrant: a second call made
// while a turn is in flight fails with domain.ErrBusy.
type Orchestrator struct {
	embedder  domain.Embedder
	generator domain.Generator
	index     Retriever
	memory    *memory.Window
	k         int
	policy    QueryPolicy
	timeout   time.Duration
	logger    *zap.Logger
	sessionID string

	turn  sync.Mutex
	state atomic.Int32
	seq   int
}

func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Embedder == nil || cfg.Generator == nil || cfg.Index == nil || cfg.Memory == nil {
		return nil, domain.Configf("orchestrator needs an embedder, a generator, an index and a memory window")
	}
	if cfg.K == 0 {
		cfg.K = DefaultK
	}
	if cfg.K < 1 {
		return nil, domain.Configf("k must be at least 1, got %d", cfg.K)
	}
	switch cfg.QueryPolicy {
	case "":
		cfg.QueryPolicy = QueryVerbatim
	case QueryVerbatim, QueryCondense:
	default:
		return nil, domain.Configf("unknown query policy %q", cfg.QueryPolicy)
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultProviderTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	id := uuid.NewString()
	return &Orchestrator{
		embedder:  cfg.Embedder,
		generator: cfg.Generator,
		index:     cfg.Index,
		memory:    cfg.Memory,
		k:         cfg.K,
		policy:    cfg.QueryPolicy,
		timeout:   cfg.ProviderTimeout,
		logger:    cfg.Logger.With(zap.String("session", id)),
		sessionID: id,
	}, nil
}

func (o *Orchestrator) SessionID() string { return o.sessionID }

func (o *Orchestrator) State() State { return State(o.state.Load()) }

// History returns the turns currently in the conversation window, oldest first.
func (o *Orchestrator) History() []domain.Turn { return o.memory.History() }

// Ask answers one question. Memory is updated only when the whole turn
// succeeds and ctx is still live, so a failed turn can be retried as is.
func (o *Orchestrator) Ask(ctx context.Context, question string) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, ErrEmptyQuestion
	}
	if !o.turn.TryLock() {
		return domain.Answer{}, domain.ErrBusy
	}
	defer o.turn.Unlock()
	o.state.Store(int32(Answering))
	defer o.state.Store(int32(Idle))

	start := time.Now()
	history := o.memory.History()

	query, err := o.retrievalQuery(ctx, history, question)
	if err != nil {
		return domain.Answer{}, o.fail("query", err)
	}

	results, err := o.retrieve(ctx, query)
	if err != nil {
		return domain.Answer{}, o.fail("retrieve", err)
	}

	promptContext := generation.BuildContext(results, history)
	gen, err := o.generate(ctx, promptContext, question)
	if err != nil {
		return domain.Answer{}, o.fail("generate", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Answer{}, o.fail("generate", err)
	}

	o.seq++
	o.memory.Append(domain.Turn{Question: question, Answer: gen.Answer, Seq: o.seq})

	fields := []zap.Field{
		zap.Int("seq", o.seq),
		zap.Int("chunks", len(results)),
		zap.Duration("took", time.Since(start)),
	}
	if gen.Usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", gen.Usage.PromptTokens),
			zap.Int("completion_tokens", gen.Usage.CompletionTokens))
	}
	o.logger.Info("turn answered", fields...)

	return domain.Answer{
		Text:      gen.Answer,
		Query:     query,
		Citations: Citations(results),
		Chunks:    results,
		Usage:     gen.Usage,
	}, nil
}

func (o *Orchestrator) fail(stage string, err error) error {
	o.logger.Warn("turn failed", zap.String("stage", stage), zap.Error(err))
	return err
}

func (o *Orchestrator) retrievalQuery(ctx context.Context, history []domain.Turn, question string) (string, error) {
	if o.policy != QueryCondense || len(history) == 0 {
		return question, nil
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var query string
	if c, ok := o.generator.(generation.Condenser); ok {
		q, err := c.Condense(ctx, history, question)
		if err != nil {
			return "", domain.NewProviderError(o.generator.Name(), "condense", err)
		}
		query = q
	} else {
		gen, err := o.generator.Generate(ctx, generation.CondenseContext(history), question)
		if err != nil {
			return "", domain.NewProviderError(o.generator.Name(), "condense", err)
		}
		query = gen.Answer
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return question, nil
	}
	o.logger.Debug("query condensed", zap.String("query", query))
	return query, nil
}

// retrieve skips the embedding call entirely when nothing has been indexed yet.
func (o *Orchestrator) retrieve(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if o.index.Len() == 0 {
		return []domain.SearchResult{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	vec, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, domain.NewProviderError(o.embedder.Name(), "embed", err)
	}
	return o.index.Search(vec, o.k)
}

func (o *Orchestrator) generate(ctx context.Context, promptContext, question string) (domain.Generation, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	gen, err := o.generator.Generate(ctx, promptContext, question)
	if err != nil {
		return domain.Generation{}, domain.NewProviderError(o.generator.Name(), "generate", err)
	}
	return gen, nil
}

// Citations lists the distinct pages behind results, in rank order.
func Citations(results []domain.SearchResult) []domain.Citation {
	seen := make(map[domain.Citation]bool, len(results))
	out := make([]domain.Citation, 0, len(results))
	for _, r := range results {
		c := domain.Citation{Source: r.Chunk.Source, Page: r.Chunk.Page}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
