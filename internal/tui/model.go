package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/domain"
	"ragchat/internal/textutil"
)

// ChatPort is the TUI-facing subset of the orchestrator.
type ChatPort interface {
	Ask(ctx context.Context, question string) (domain.Answer, error)
}

type exchange struct {
	question string
	answer   domain.Answer
	err      error
}

type answerMsg struct {
	exchange
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	service  ChatPort
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	summary  string
	status   string
	cursor   int
	ready    bool
	pending  bool
	cancel   context.CancelFunc
}

// New creates a chat model. summary is shown under the title.
func New(service ChatPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, summary: summary, status: "Ready. Esc cancels a running question, Ctrl+C quits."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.pending = false
		m.cancel = nil
		m.history = append(m.history, msg.exchange)
		m.cursor = 0
		switch {
		case msg.err == nil:
			m.status = fmt.Sprintf("Answered from %d passages. Up/Down browse them.", len(msg.answer.Chunks))
		case errors.Is(msg.err, context.Canceled):
			m.status = "Cancelled."
		default:
			m.status = "Error: " + msg.err.Error()
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		switch msg.String() {
		case "esc":
			if m.cancel != nil {
				m.cancel()
				m.status = "Cancelling..."
			}
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			if m.pending {
				m.status = "Still answering the previous question."
				return m, nil
			}
			ctx, cancel := context.WithCancel(context.Background())
			m.pending = true
			m.cancel = cancel
			m.status = "Thinking..."
			m.input.SetValue("")
			return m, ask(ctx, cancel, m.service, q)
		case "down":
			if n := len(m.lastChunks()); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.refresh()
				return m, nil
			}
		case "up":
			if n := len(m.lastChunks()); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.refresh()
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func ask(ctx context.Context, cancel context.CancelFunc, service ChatPort, question string) tea.Cmd {
	return func() tea.Msg {
		defer cancel()
		ans, err := service.Ask(ctx, question)
		return answerMsg{exchange{question: question, answer: ans, err: err}}
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Chat")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) lastChunks() []domain.SearchResult {
	if len(m.history) == 0 {
		return nil
	}
	return m.history[len(m.history)-1].answer.Chunks
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("Q: " + ex.question))
		b.WriteByte('\n')
		if ex.err != nil {
			b.WriteString(errorStyle.Render("failed: " + ex.err.Error()))
			continue
		}
		b.WriteString("A: " + ex.answer.Text)
		if len(ex.answer.Citations) > 0 {
			b.WriteByte('\n')
			b.WriteString(citationStyle.Render("Sources: " + FormatCitations(ex.answer.Citations)))
		}
	}

	chunks := m.lastChunks()
	if len(chunks) > 0 {
		r := chunks[m.cursor]
		last := m.history[len(m.history)-1]
		title := fmt.Sprintf("Passage %d/%d  %s  score=%.3f", m.cursor+1, len(chunks), r.Chunk.Tag(), r.Score)
		b.WriteString("\n\n")
		b.WriteString(citationStyle.Render(title))
		b.WriteByte('\n')
		b.WriteString(highlightBestSentence(r.Chunk.Text, last.answer.Query))
	}
	return b.String()
}

// FormatCitations renders citations as "a.pdf p.2, b.txt p.1".
func FormatCitations(cs []domain.Citation) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = fmt.Sprintf("%s p.%d", c.Source, c.Page)
	}
	return strings.Join(parts, ", ")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	questionStyle      = lipgloss.NewStyle().Bold(true)
	citationStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func highlightBestSentence(text, query string) string {
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	qTokens := textutil.TokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1.0
	for i, s := range sentences {
		if score := textutil.Ochiai(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}
