package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ragchat/internal/chunker"
	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	"ragchat/internal/index"
)

const DefaultConcurrency = 4

type IngestorConfig struct {
	Source          domain.DocumentSource
	Chunker         *chunker.Chunker
	Embedder        domain.Embedder
	Concurrency     int
	ProviderTimeout time.Duration
	Logger          *zap.Logger
}

// Ingestor turns documents into index entries: load, chunk, fit, embed.
type Ingestor struct {
	source      domain.DocumentSource
	chunker     *chunker.Chunker
	embedder    domain.Embedder
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger
}

// Report summarizes one ingestion run.
type Report struct {
	Documents int
	Chunks    int
	Dimension int
	Took      time.Duration
}

func NewIngestor(cfg IngestorConfig) (*Ingestor, error) {
	if cfg.Source == nil || cfg.Chunker == nil || cfg.Embedder == nil {
		return nil, domain.Configf("ingestor needs a document source, a chunker and an embedder")
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Concurrency < 1 {
		return nil, domain.Configf("embedding concurrency must be at least 1, got %d", cfg.Concurrency)
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultProviderTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Ingestor{
		source:      cfg.Source,
		chunker:     cfg.Chunker,
		embedder:    cfg.Embedder,
		concurrency: cfg.Concurrency,
		timeout:     cfg.ProviderTimeout,
		logger:      cfg.Logger,
	}, nil
}

// Ingest loads paths and replaces the contents of ix with the result. Either
// every chunk is embedded and ix is rebuilt, or ix and the embedder are left as
// they were.
func (in *Ingestor) Ingest(ctx context.Context, paths []string, ix *index.Index) (Report, error) {
	start := time.Now()
	docs, err := in.source.Load(ctx, paths)
	if err != nil {
		return Report{}, err
	}

	var chunks []domain.Chunk
	for _, d := range docs {
		for c := range in.chunker.Split(d) {
			chunks = append(chunks, c)
		}
	}
	in.logger.Info("documents chunked", zap.Int("documents", len(docs)), zap.Int("chunks", len(chunks)))

	previous := ix.Chunks()
	entries, err := in.Embed(ctx, chunks)
	if err != nil {
		in.refit(previous)
		return Report{}, err
	}
	if err := ix.Replace(entries); err != nil {
		in.refit(previous)
		return Report{}, err
	}

	report := Report{Documents: len(docs), Chunks: len(entries), Dimension: ix.Dimension(), Took: time.Since(start)}
	in.logger.Info("index built",
		zap.Int("chunks", report.Chunks),
		zap.Int("dimension", report.Dimension),
		zap.Duration("took", report.Took))
	return report, nil
}

// Embed fits the embedder on the chunk texts when it needs it, then embeds
// every chunk concurrently. The first failure cancels the rest and no entries
// are returned.
func (in *Ingestor) Embed(ctx context.Context, chunks []domain.Chunk) ([]index.Entry, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if err := embedding.Prepare(in.embedder, texts(chunks)); err != nil {
		return nil, fmt.Errorf("preparing %s embedder: %w", in.embedder.Name(), err)
	}

	entries := make([]index.Entry, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cctx, cancel := context.WithTimeout(gctx, in.timeout)
			defer cancel()
			vec, err := in.embedder.Embed(cctx, c.Text)
			if err != nil {
				return fmt.Errorf("embedding %s p.%d offset %d: %w", c.Source, c.Page, c.Offset,
					domain.NewProviderError(in.embedder.Name(), "embed", err))
			}
			entries[i] = index.Entry{Vector: vec, Chunk: c}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Restore reads a persisted index and refits a corpus-fitted embedder on the
// stored chunk texts so that query vectors land in the same space.
func (in *Ingestor) Restore(path string, opts ...index.Option) (*index.Index, error) {
	ix, err := index.Restore(path, opts...)
	if err != nil {
		return nil, err
	}
	if ix.Len() == 0 {
		return ix, nil
	}
	if err := embedding.Prepare(in.embedder, texts(ix.Chunks())); err != nil {
		return nil, fmt.Errorf("preparing %s embedder: %w", in.embedder.Name(), err)
	}
	if d := in.embedder.Dimension(); d > 0 && d != ix.Dimension() {
		return nil, fmt.Errorf("%w: %s embedder produces %d dimensions, index %s has %d",
			domain.ErrDimensionMismatch, in.embedder.Name(), d, path, ix.Dimension())
	}
	in.logger.Info("index restored", zap.String("path", path), zap.Int("chunks", ix.Len()))
	return ix, nil
}

// refit puts a corpus-fitted embedder back on the chunks still in the index.
func (in *Ingestor) refit(chunks []domain.Chunk) {
	if len(chunks) == 0 || !embedding.NeedsPreparation(in.embedder) {
		return
	}
	if err := embedding.Prepare(in.embedder, texts(chunks)); err != nil {
		in.logger.Error("refitting embedder after failed ingest", zap.Error(err))
	}
}

func texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
