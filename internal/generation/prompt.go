package generation

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"ragchat/internal/domain"
)

const (
	contextHeader = "Context:"
	historyHeader = "Conversation so far:"
)

// CondenseInstructions asks the generator to turn a follow-up into a standalone query.
const CondenseInstructions = `Rewrite the final question so that it can be understood without the
conversation. Reply with the rewritten question only.`

var passageRe = regexp.MustCompile(`^\[(.+) p\.(\d+)\] (.*)$`)

// Passage is one retrieved chunk as it appears inside a prompt context.
type Passage struct {
	Source string
	Page   int
	Text   string
}

func (p Passage) Tag() string {
	return domain.Chunk{Source: p.Source, Page: p.Page}.Tag()
}

// BuildContext lays out the retrieved chunks in rank order, each on its own
// line behind its [source p.N] tag, followed by the history oldest-first.
func BuildContext(results []domain.SearchResult, history []domain.Turn) string {
	var b strings.Builder
	b.WriteString(contextHeader)
	b.WriteByte('\n')
	for _, r := range results {
		b.WriteString(r.Chunk.Tag())
		b.WriteByte(' ')
		b.WriteString(oneLine(r.Chunk.Text))
		b.WriteByte('\n')
	}
	if len(history) > 0 {
		b.WriteByte('\n')
		b.WriteString(HistoryText(history))
	}
	return b.String()
}

// HistoryText renders turns oldest-first as Q:/A: pairs.
func HistoryText(history []domain.Turn) string {
	var b strings.Builder
	b.WriteString(historyHeader)
	b.WriteByte('\n')
	for _, t := range history {
		b.WriteString("Q: ")
		b.WriteString(oneLine(t.Question))
		b.WriteString("\nA: ")
		b.WriteString(oneLine(t.Answer))
		b.WriteByte('\n')
	}
	return b.String()
}

// ParsePassages extracts the tagged passages from a context built by BuildContext.
func ParsePassages(promptContext string) []Passage {
	var out []Passage
	for _, line := range strings.Split(promptContext, "\n") {
		if line == historyHeader {
			break
		}
		m := passageRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		page, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out = append(out, Passage{Source: m[1], Page: page, Text: m[3]})
	}
	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Condenser is implemented by generators that rewrite a follow-up question
// without a model round trip.
type Condenser interface {
	Condense(ctx context.Context, history []domain.Turn, question string) (string, error)
}

// CondenseContext is the prompt context used to ask a generator for a standalone query.
func CondenseContext(history []domain.Turn) string {
	return CondenseInstructions + "\n\n" + HistoryText(history)
}
