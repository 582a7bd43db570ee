// This file implements the interactive research session using bubbletea.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"scout/internal/research"
)

// sessionMessage is one transcript entry.
type sessionMessage struct {
	role    string // "user" or "scout"
	content string
	time    time.Time
}

// Messages for tea updates
type (
	answerMsg struct{ answer *research.Answer }
	noteMsg   string
	failedMsg struct{ err error }
)

// sessionModel is the interactive research session.
type sessionModel struct {
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	renderer  *glamour.TermRenderer

	boot      *bootResult
	history   []sessionMessage
	allowWeb  bool
	isLoading bool
	err       error
	width     int
	height    int
	ready     bool
}

var (
	sessionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sessionUserStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	sessionBotStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
)

// newSession initializes the interactive session model
func newSession(boot *bootResult) sessionModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about this project... (Enter to send, Ctrl+C to exit)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 1024
	ti.Width = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(80, 20)
	vp.SetContent("")

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return sessionModel{
		textinput: ti,
		viewport:  vp,
		spinner:   sp,
		renderer:  renderer,
		boot:      boot,
		history:   []sessionMessage{},
	}
}

func (m sessionModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			// One cascade at a time; further questions wait their turn.
			if !m.isLoading {
				return m.handleSubmit()
			}
		}

		if !m.isLoading {
			m.textinput, tiCmd = m.textinput.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2
		footerHeight := 2
		inputHeight := 3

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-footerHeight-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - footerHeight - inputHeight
		}
		m.textinput.Width = msg.Width - 4

		if m.renderer != nil {
			m.renderer, _ = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(msg.Width-8),
			)
		}
		m.viewport.SetContent(m.renderHistory())

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case answerMsg:
		m.isLoading = false
		m.history = append(m.history, sessionMessage{
			role:    "scout",
			content: m.formatAnswer(msg.answer),
			time:    time.Now(),
		})
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()

	case noteMsg:
		m.isLoading = false
		m.history = append(m.history, sessionMessage{
			role:    "scout",
			content: string(msg),
			time:    time.Now(),
		})
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()

	case failedMsg:
		m.isLoading = false
		m.err = msg.err
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m sessionModel) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textinput.Value())
	if input == "" {
		return m, nil
	}

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	m.history = append(m.history, sessionMessage{role: "user", content: input, time: time.Now()})
	m.textinput.Reset()
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
	m.isLoading = true
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.ask(input))
}

// ask runs one cascade in the background and reports back as a tea.Msg.
func (m sessionModel) ask(question string) tea.Cmd {
	boot := m.boot
	q := research.Question{
		Text:           question,
		ProjectRoot:    boot.root,
		AllowWebSearch: m.allowWeb,
	}
	return func() tea.Msg {
		ans, err := boot.engine.Ask(context.Background(), q)
		if err != nil {
			return failedMsg{err}
		}
		return answerMsg{ans}
	}
}

func (m sessionModel) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	m.textinput.Reset()

	appendNote := func(content string) {
		m.history = append(m.history, sessionMessage{role: "scout", content: content, time: time.Now()})
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
	}

	switch parts[0] {
	case "/quit", "/exit", "/q":
		return m, tea.Quit

	case "/clear":
		m.history = nil
		m.viewport.SetContent("")
		return m, nil

	case "/web":
		if len(parts) > 1 {
			m.allowWeb = parts[1] == "on"
		} else {
			m.allowWeb = !m.allowWeb
		}
		state := "off"
		if m.allowWeb {
			state = "on"
		}
		appendNote(fmt.Sprintf("Web search is now **%s**.", state))
		return m, nil

	case "/env":
		m.isLoading = true
		return m, tea.Batch(m.spinner.Tick, m.envSnapshot())

	case "/cache":
		stats := m.boot.cache.Stats()
		appendNote(fmt.Sprintf("**Answer cache:** %d entries, %d hits, %d misses.", stats.Entries, stats.Hits, stats.Misses))
		return m, nil

	case "/help":
		appendNote(`## Commands

| Command | Description |
|---------|-------------|
| /help | Show this help message |
| /clear | Clear the transcript |
| /env | Show environment capabilities |
| /cache | Show answer cache statistics |
| /web [on\|off] | Toggle web search authorization |
| /quit, /exit, /q | Exit the session |

Everything else is treated as a research question. Answers cite the
evidence tiers they rest on; edit a project file and the related
cached answers are invalidated automatically.`)
		return m, nil

	default:
		appendNote(fmt.Sprintf("Unknown command %q. Try /help.", parts[0]))
		return m, nil
	}
}

// envSnapshot gathers the capability table in the background. First
// use triggers discovery, which can take a probe timeout per tool.
func (m sessionModel) envSnapshot() tea.Cmd {
	boot := m.boot
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var sb strings.Builder
		sb.WriteString("**Environment capabilities**\n\n")
		sb.WriteString("| Capability | Category | Status |\n|---|---|---|\n")
		for _, s := range boot.env.Snapshot(ctx) {
			status := "unavailable"
			if s.Available {
				status = "available"
			}
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", s.Name, s.Category, status)
		}
		return noteMsg(sb.String())
	}
}

// formatAnswer turns an answer into transcript markdown.
func (m sessionModel) formatAnswer(ans *research.Answer) string {
	var sb strings.Builder
	sb.WriteString(ans.Text)

	if ans.Metadata.CacheHit {
		sb.WriteString("\n_cached answer_\n")
	} else {
		tiers := make([]string, len(ans.Metadata.TiersQueried))
		for i, t := range ans.Metadata.TiersQueried {
			tiers[i] = string(t)
		}
		sb.WriteString(fmt.Sprintf("\n_tiers: %s | %dms_\n", strings.Join(tiers, ", "), ans.Metadata.TotalDurationMs))
	}

	if ans.NeedsWebSearch && !m.allowWeb {
		sb.WriteString("\n_A web search could help; enable it with /web on._\n")
	}
	return sb.String()
}

func (m sessionModel) renderHistory() string {
	var sb strings.Builder

	for _, msg := range m.history {
		if msg.role == "user" {
			sb.WriteString(sessionUserStyle.Render("You") + "\n")
			sb.WriteString(msg.content)
			sb.WriteString("\n\n")
		} else {
			sb.WriteString(sessionBotStyle.Render("scout") + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.content))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery
func (m sessionModel) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content
}

func (m sessionModel) View() string {
	if !m.ready {
		return "Starting scout..."
	}

	webState := "web off"
	if m.allowWeb {
		webState = "web on"
	}
	header := sessionHeaderStyle.Render(" scout ") +
		styleMuted.Render(fmt.Sprintf(" %s | %s", m.boot.root, webState))

	chatView := m.viewport.View()
	if m.isLoading {
		chatView += "\n" + m.spinner.View() + " researching..."
	}
	if m.err != nil {
		chatView += "\n" + styleWarn.Render("Error: "+m.err.Error())
	}

	inputArea := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("205")).
		Padding(0, 1).
		Render(m.textinput.View())

	footer := styleMuted.Render("Enter to ask | /help for commands | Ctrl+C to exit")

	return lipgloss.JoinVertical(lipgloss.Left, header, chatView, inputArea, footer)
}

func runSession() error {
	boot, err := bootEngine(projectRoot)
	if err != nil {
		return err
	}
	defer boot.close()

	// Keep session answers honest while files are being edited.
	if !boot.cfg.Cache.WatchProject {
		if err := boot.cache.WatchProject(boot.root); err != nil {
			fmt.Printf("warning: file watch unavailable: %v\n", err)
		}
	}

	p := tea.NewProgram(newSession(boot), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
