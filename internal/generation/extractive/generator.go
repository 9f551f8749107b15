// Package extractive answers offline by quoting the context sentences that best
// match the question.
package extractive

import (
	"context"
	"math"
	"sort"
	"strings"

	"ragchat/internal/domain"
	"ragchat/internal/generation"
	"ragchat/internal/textutil"
)

const (
	DefaultMaxSentences = 3
	NoAnswer            = "I don't know: none of the retrieved passages match the question."
)

type Generator struct {
	maxSentences int
}

func NewGenerator(maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &Generator{maxSentences: maxSentences}
}

func (g *Generator) Name() string { return "extractive" }

type sentence struct {
	tag   string
	text  string
	order int
	match float64
	freq  float64
}

// Generate ranks every sentence of the tagged passages by token overlap with
// the question, breaking ties by corpus term frequency, and returns the best
// ones in reading order.
func (g *Generator) Generate(ctx context.Context, promptContext, question string) (domain.Generation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Generation{}, domain.NewProviderError(g.Name(), "generate", err)
	}
	qset := textutil.TokenSet(question)

	var sentences []sentence
	for _, p := range generation.ParsePassages(promptContext) {
		for _, s := range textutil.Sentences(p.Text) {
			sentences = append(sentences, sentence{tag: p.Tag(), text: s, order: len(sentences)})
		}
	}
	scoreFrequency(sentences)

	ranked := make([]sentence, 0, len(sentences))
	for _, s := range sentences {
		s.match = textutil.Ochiai(qset, s.text)
		if s.match > 0 {
			ranked = append(ranked, s)
		}
	}
	if len(ranked) == 0 {
		return domain.Generation{Answer: NoAnswer}, nil
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].match != ranked[j].match {
			return ranked[i].match > ranked[j].match
		}
		return ranked[i].freq > ranked[j].freq
	})
	if len(ranked) > g.maxSentences {
		ranked = ranked[:g.maxSentences]
	}
	// keep reading order among the selected
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].order < ranked[j].order })

	out := make([]string, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.text+" "+s.tag)
	}
	return domain.Generation{Answer: strings.Join(out, " ")}, nil
}

// Condense prefixes the question with the content words of the previous one,
// so a follow-up such as "and its population?" keeps its subject.
func (g *Generator) Condense(_ context.Context, history []domain.Turn, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}
	prev := textutil.Tokens(history[len(history)-1].Question)
	seen := textutil.TokenSet(question)
	var extra []string
	for _, t := range prev {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		extra = append(extra, t)
	}
	if len(extra) == 0 {
		return question, nil
	}
	return strings.Join(extra, " ") + " " + question, nil
}

// scoreFrequency sets freq to the normalized term frequency of each sentence,
// divided by the square root of its length.
func scoreFrequency(sentences []sentence) {
	freq := map[string]float64{}
	for _, s := range sentences {
		for _, tok := range textutil.Tokens(s.text) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF == 0 {
		return
	}
	for i := range sentences {
		toks := textutil.Tokens(sentences[i].text)
		score := 0.0
		for _, tok := range toks {
			score += freq[tok] / maxF
		}
		if len(toks) > 0 {
			score /= math.Sqrt(float64(len(toks)))
		}
		sentences[i].freq = score
	}
}
