package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/embedding"
)

func offlineConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	cfg.Chunker.Size = 120
	cfg.Chunker.Overlap = 20
	return cfg
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "volcanoes.txt"),
		[]byte("Volcanoes form where magma reaches the surface. Mount Etna is in Sicily.\fEtna erupts frequently and is monitored closely."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rivers.md"),
		[]byte("The Danube flows through ten countries. It ends in the Black Sea."), 0o644))
	return dir
}

func TestOfflineConversation(t *testing.T) {
	ctx := context.Background()
	cfg := offlineConfig(t)
	a, err := newApp(cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	ix, err := a.openIndex(ctx, []string{writeCorpus(t)}, "")
	require.NoError(t, err)
	orch, err := a.orchestrator(ix)
	require.NoError(t, err)

	ans, err := orch.Ask(ctx, "Where is Mount Etna?")
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "Mount Etna is in Sicily.")
	require.NotEmpty(t, ans.Citations)
	assert.Equal(t, 1, ans.Citations[0].Page)
	assert.Equal(t, "volcanoes.txt", filepath.Base(ans.Citations[0].Source))

	ans, err = orch.Ask(ctx, "Which sea does the Danube end in?")
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "Black Sea")
	assert.Len(t, orch.History(), 2)

	// persisted and restored, the index answers the same way
	path := filepath.Join(t.TempDir(), "corpus.index.json")
	require.NoError(t, ix.Persist(path))

	b, err := newApp(cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	restored, err := b.openIndex(ctx, nil, path)
	require.NoError(t, err)
	orch2, err := b.orchestrator(restored)
	require.NoError(t, err)
	again, err := orch2.Ask(ctx, "Which sea does the Danube end in?")
	require.NoError(t, err)
	assert.Equal(t, ans.Text, again.Text)
	assert.Equal(t, ans.Chunks, again.Chunks)
}

func TestChromemBackend(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Index.Backend = config.BackendChromem
	a, err := newApp(cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	ix, err := a.openIndex(context.Background(), []string{writeCorpus(t)}, "")
	require.NoError(t, err)
	assert.Equal(t, config.BackendChromem, ix.Backend())
}

func TestChromemBackend_NoSharedVocabulary(t *testing.T) {
	ctx := context.Background()
	dir := writeCorpus(t)
	// only stopwords, so tfidf embeds this page as a zero vector
	require.NoError(t, os.WriteFile(filepath.Join(dir, "filler.txt"), []byte("It is so, and it was."), 0o644))

	ask := func(backend, question string) domain.Answer {
		t.Helper()
		cfg := offlineConfig(t)
		cfg.Index.Backend = backend
		a, err := newApp(cfg, zaptest.NewLogger(t), nil)
		require.NoError(t, err)
		ix, err := a.openIndex(ctx, []string{dir}, "")
		require.NoError(t, err)
		orch, err := a.orchestrator(ix)
		require.NoError(t, err)
		ans, err := orch.Ask(ctx, question)
		require.NoError(t, err)
		return ans
	}

	for _, question := range []string{"Where is Mount Etna?", "Is it so?"} {
		t.Run(question, func(t *testing.T) {
			want := ask(config.BackendFlat, question)
			got := ask(config.BackendChromem, question)

			require.Len(t, got.Chunks, len(want.Chunks))
			for i := range want.Chunks {
				assert.Equal(t, want.Chunks[i].Chunk, got.Chunks[i].Chunk)
				assert.False(t, math.IsNaN(got.Chunks[i].Score))
				assert.InDelta(t, want.Chunks[i].Score, got.Chunks[i].Score, 1e-5)
			}
			assert.Equal(t, want.Text, got.Text)
		})
	}
}

func TestOpenIndex_NothingToOpen(t *testing.T) {
	a, err := newApp(offlineConfig(t), zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	_, err = a.openIndex(context.Background(), nil, "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewApp_HostedProviders(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Embedder.Type = config.EmbedderOpenAI
	cfg.Embedder.OpenAI = &config.OpenAIEmbedderConfig{APIKeyEnv: "RAGCHAT_TEST_OPENAI", RequestsPerSecond: 5, TimeoutSecs: 5}
	cfg.Embedder.Cache = true
	cfg.Generator.Type = config.GeneratorAnthropic
	cfg.Generator.Anthropic = &config.LLMConfig{APIKeyEnv: "RAGCHAT_TEST_ANTHROPIC", Model: "claude-test"}

	t.Setenv("RAGCHAT_TEST_OPENAI", "sk-embed")
	t.Setenv("RAGCHAT_TEST_ANTHROPIC", "")
	_, err := newApp(cfg, zaptest.NewLogger(t), nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	t.Setenv("RAGCHAT_TEST_ANTHROPIC", "sk-gen")
	a, err := newApp(cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", a.embedder.Name())
	assert.IsType(t, &embedding.Cached{}, a.embedder)
	assert.False(t, embedding.NeedsPreparation(a.embedder))
	assert.Equal(t, "anthropic", a.generator.Name())
}

func TestPrintAnswer(t *testing.T) {
	ans := domain.Answer{
		Text:      "Sicily.",
		Citations: []domain.Citation{{Source: "v.txt", Page: 1}, {Source: "w.pdf", Page: 4}},
	}

	var buf bytes.Buffer
	printAnswer(&buf, ans, false)
	assert.Equal(t, "Sicily.\n", buf.String())

	buf.Reset()
	printAnswer(&buf, ans, true)
	assert.Equal(t, "Sicily.\n\nSources:\n  - v.txt p.1\n  - w.pdf p.4\n", buf.String())
}
