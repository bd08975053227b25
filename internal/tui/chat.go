// Package tui implements the interactive chat shell over the discovery
// engine. Retrieval runs asynchronously so the interface stays responsive
// and an abandoned query is cancelled before its provider call completes.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/consultkit/fwassist/internal/discover"
	"github.com/consultkit/fwassist/internal/llm"
)

// DiscoverPort is the TUI-facing subset of the discovery engine.
type DiscoverPort interface {
	Discover(ctx context.Context, query string) ([]discover.Result, error)
	IndexSize() int
}

// Model is the Bubble Tea model for the chat shell.
type Model struct {
	engine DiscoverPort
	chat   *llm.Client // nil when no chat key is configured

	input    textinput.Model
	viewport viewport.Model

	transcript []string
	status     string
	ready      bool

	cancel context.CancelFunc // cancels the in-flight query, if any
}

type answerMsg struct {
	query   string
	answer  string
	results []discover.Result
	err     error
}

// New creates the chat model. chat may be nil; results are then shown as
// plain cards without LLM phrasing.
func New(engine DiscoverPort, chat *llm.Client) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe your client situation or ask about frameworks"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		engine:   engine,
		chat:     chat,
		input:    ti,
		viewport: vp,
		status:   fmt.Sprintf("%d frameworks indexed. Type a question and press Enter.", engine.IndexSize()),
	}
}

// Init starts the text input cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, qh := inputBoxStyle.GetFrameSize()
		_, th := transcriptStyle.GetFrameSize()
		vh := msg.Height - qh - th - 3
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-transcriptStyle.GetHorizontalFrameSize())
		m.viewport.Height = vh
		m.viewport.SetContent(strings.Join(m.transcript, "\n"))
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.cancel != nil {
				return m, nil
			}
			m.input.SetValue("")
			m.appendLine(userStyle.Render("you: ") + q)
			m.status = "Thinking..."
			ctx, cancel := context.WithCancel(context.Background())
			m.cancel = cancel
			return m, m.runQuery(ctx, q)
		}

	case answerMsg:
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if msg.err != nil {
			m.appendLine(errStyle.Render("error: " + msg.err.Error()))
			m.status = "Query failed. Try again."
			return m, nil
		}
		m.appendLine(assistantStyle.Render("assistant:"))
		m.appendLine(msg.answer)
		m.status = fmt.Sprintf("%d match(es) for %q", len(msg.results), msg.query)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Framework Assistant")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) appendLine(s string) {
	m.transcript = append(m.transcript, s)
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) runQuery(ctx context.Context, query string) tea.Cmd {
	engine := m.engine
	chat := m.chat
	return func() tea.Msg {
		results, err := engine.Discover(ctx, query)
		if err != nil {
			return answerMsg{query: query, err: err}
		}
		if len(results) == 0 {
			return answerMsg{
				query:   query,
				answer:  "No sufficiently similar framework in the library. Try rephrasing or relax --min-score.",
				results: results,
			}
		}
		if chat != nil {
			system, user := llm.DiscoveryPrompt(query, results)
			if answer, err := chat.Chat(ctx, system, user); err == nil {
				return answerMsg{query: query, answer: answer, results: results}
			}
			// Phrasing is best-effort; fall through to plain cards.
		}
		return answerMsg{query: query, answer: renderCards(results), results: results}
	}
}

func renderCards(results []discover.Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [%.3f] %s\n", i+1, r.Score, r.CanonicalName)
		if uc := strings.TrimSpace(r.Record.UseCase); uc != "" {
			fmt.Fprintf(&b, "   %s\n", uc)
		}
		if len(r.MergedIDs) > 0 {
			fmt.Fprintf(&b, "   (merged %d duplicate row(s))\n", len(r.MergedIDs))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
