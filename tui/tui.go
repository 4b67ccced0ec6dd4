package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/regioncore/cli"
	"github.com/nathoo/regioncore/engine"
	"github.com/nathoo/regioncore/types"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed input
	isSystem bool // true for session feedback
}

// Model is the Bubble Tea model for the region monitor.
type Model struct {
	session *cli.Session

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated output lines (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	quitting bool
	running  bool          // ticking on its own
	interval time.Duration // real time between ticks while running
	gen      int           // timer generation; stale ticks are dropped
}

// outputMsg carries output into the Update loop.
type outputMsg struct {
	input string // echoed input (empty for ticks and intro)
	out   cli.Output
}

// tickMsg fires when the next automatic tick is due.
type tickMsg struct {
	gen int
}

// New creates a monitor wired to the given engine and outbound channel.
func New(eng *engine.Engine, outbox <-chan types.RegionMessage) Model {
	return NewModel(cli.NewSession(eng, outbox))
}

// NewModel creates a monitor around an existing session.
func NewModel(s *cli.Session) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	interval := time.Minute
	if tpm := s.Engine.World.Config.Engine.TicksPerMinute; tpm > 0 {
		interval = time.Minute / time.Duration(tpm)
	}
	return Model{
		session:  s,
		input:    ti,
		history:  NewHistory(100),
		interval: interval,
	}
}

// Run starts the Bubble Tea program on s.
func Run(s *cli.Session) error {
	m := NewModel(s)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init returns the initial command that produces the intro.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg {
		return outputMsg{out: cli.Output{Lines: m.session.Intro()}}
	})
}

func (m Model) scheduleTick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
}

// Update handles messages (key presses, window resize, output, ticks).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(m.input.Value()); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue(m.history.Prefix())
				m.input.CursorEnd()
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case tickMsg:
		if !m.running || msg.gen != m.gen {
			return m, nil
		}
		m = m.appendOutput(outputMsg{out: cli.Output{Lines: m.session.Step(1)}})
		return m, m.scheduleTick()

	case outputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	out, cmd := m.exec(input)
	m = m.appendOutput(outputMsg{input: input, out: out})
	if out.Quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, cmd
}

// exec handles the monitor's own commands and passes the rest to the
// session.
func (m *Model) exec(input string) (cli.Output, tea.Cmd) {
	switch strings.Fields(input)[0] {
	case "/run":
		if m.running {
			return cli.Output{Lines: []string{"Already running."}, System: true}, nil
		}
		m.running = true
		m.gen++
		return cli.Output{Lines: []string{"Running at " + m.interval.String() + " per tick."}, System: true}, m.scheduleTick()
	case "/pause":
		m.running = false
		return cli.Output{Lines: []string{"Paused."}, System: true}, nil
	case "/help":
		out := m.session.Exec(input)
		out.Lines = append(out.Lines, "",
			"Monitor:",
			"  /run                  Tick on a timer (ticks_per_minute)",
			"  /pause                Stop the timer",
			"",
			"Navigation: PgUp/PgDn to scroll, Up/Down for command history",
		)
		return out, nil
	}
	return m.session.Exec(input), nil
}

// appendOutput adds lines to the log and refreshes the viewport.
func (m Model) appendOutput(msg outputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: "> " + msg.input, isInput: true,
		})
	}

	for _, line := range msg.out.Lines {
		rl := rawLine{text: line, isSystem: msg.out.System}
		if !msg.out.System {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}

	if len(msg.out.Lines) > 0 || msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{})
	}

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var b strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
			lineLen = len(word)
		case lineLen+1+len(word) > width:
			b.WriteString("\n")
			lineLen = len(word)
		default:
			b.WriteString(" ")
			lineLen += 1 + len(word)
		}
		b.WriteString(word)
	}
	return b.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
