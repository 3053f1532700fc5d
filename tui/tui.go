package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"storycatcher/chat"
)

type mode int

const (
	modeChat mode = iota
	modeEmail
	modeEditing
)

// stateMsg carries a fresh machine snapshot into the Update loop.
type stateMsg chat.State

// Model renders the conversation state machine and forwards user
// intents to it. It holds no conversation logic of its own.
type Model struct {
	machine *chat.Machine

	state   chat.State
	mode    mode
	editing string // id of the message being edited

	vp     viewport.Model
	input  textinput.Model
	editor textarea.Model
	spin   spinner.Model

	width      int
	height     int
	ready      bool
	emailAsked bool

	renderer *glamour.TermRenderer

	// lineIndex maps message ids to their first line in the rendered
	// transcript, for one-shot scroll targeting.
	lineIndex map[string]int
}

// New creates the TUI model over a running machine.
func New(machine *chat.Machine) Model {
	input := textinput.New()
	input.Placeholder = "Type your answer..."
	input.CharLimit = 2000
	input.Focus()

	editor := textarea.New()
	editor.Placeholder = "Edit your storyboard..."
	editor.CharLimit = 0

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = spinnerStyle

	return Model{
		machine:   machine,
		state:     machine.Snapshot(),
		input:     input,
		editor:    editor,
		spin:      spin,
		lineIndex: map[string]int{},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.waitForState(),
		m.spin.Tick,
		textinput.Blink,
		m.boot(),
	)
}

// boot kicks off the conversation: resume a rehydrated session, or
// start a fresh one.
func (m Model) boot() tea.Cmd {
	machine := m.machine
	resume := m.state.SessionID != ""
	return func() tea.Msg {
		if resume {
			machine.ResumeSession()
		} else {
			machine.StartSession()
		}
		return nil
	}
}

// waitForState blocks on the next machine snapshot.
func (m Model) waitForState() tea.Cmd {
	machine := m.machine
	return func() tea.Msg {
		return stateMsg(<-machine.Updates())
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshTranscript(true)
		m.ready = true
		return m, nil

	case stateMsg:
		m.applySnapshot(chat.State(msg))
		return m, m.waitForState()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.anyLoading() {
			m.refreshTranscript(true)
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.machine.Close()
		return m, tea.Quit
	}

	switch m.mode {
	case modeEmail:
		return m.handleEmailKey(msg)
	case modeEditing:
		return m.handleEditingKey(msg)
	default:
		return m.handleChatKey(msg)
	}
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		switch {
		case m.state.SessionID == "" && !m.state.IsLoading:
			// Failed start: enter retries.
			m.machine.ClearError()
			m.machine.StartSession()
		case m.state.CanResume():
			// Failed resume: enter retries.
			m.machine.ClearError()
			m.machine.ResumeSession()
		case text != "" && !m.state.IsComplete:
			m.machine.SubmitAnswer(text)
			m.input.Reset()
		}
		return m, nil

	case "ctrl+g":
		if !m.state.ShowGenerateButton || m.state.VideoGenerating {
			return m, nil
		}
		if !m.emailAsked && m.state.PendingEmail == "" {
			m.mode = modeEmail
			m.input.Reset()
			m.input.Placeholder = "Email for your video (optional, enter to skip)..."
			return m, nil
		}
		m.machine.GenerateVideo("")
		return m, nil

	case "ctrl+e":
		sb, ok := m.state.Storyboard()
		if !ok || !sb.IsEditable || m.state.VideoGenerating {
			return m, nil
		}
		m.machine.StartEditing(sb.ID)
		m.editing = sb.ID
		m.editor.SetValue(sb.Text)
		m.editor.Focus()
		m.input.Blur()
		m.mode = modeEditing
		m.layout()
		return m, textarea.Blink

	case "ctrl+n":
		m.machine.ResetSession()
		m.emailAsked = false
		m.input.Reset()
		m.input.Placeholder = "Type your answer..."
		m.machine.StartSession()
		return m, nil

	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEmailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		email := strings.TrimSpace(m.input.Value())
		m.emailAsked = true
		m.mode = modeChat
		m.input.Reset()
		m.input.Placeholder = "Type your answer..."
		m.machine.GenerateVideo(email)
		return m, nil
	case "esc":
		m.mode = modeChat
		m.input.Reset()
		m.input.Placeholder = "Type your answer..."
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEditingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.machine.CancelEditing(m.editing)
		return m.leaveEditing(), nil
	case "ctrl+s":
		m.machine.EditMessage(m.editing, m.editor.Value())
		return m.leaveEditing(), nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) leaveEditing() Model {
	m.editing = ""
	m.mode = modeChat
	m.editor.Blur()
	m.input.Focus()
	m.layout()
	return m
}

// applySnapshot renders a fresh machine snapshot and decides where the
// viewport lands. A consumed scroll target wins outright; the follow-up
// snapshot that clears the one-shot flag has the same message count, so
// it leaves the viewport where the target put it instead of snapping to
// the bottom.
func (m *Model) applySnapshot(next chat.State) {
	grew := len(next.Messages) > len(m.state.Messages)
	m.state = next
	m.refreshTranscript(true)

	if target, ok := m.machine.ConsumeScrollTarget(); ok {
		m.scrollToMessage(target.ID)
		return
	}
	if grew {
		m.vp.GotoBottom()
	}
}

// anyLoading reports whether a loading placeholder is on screen, which
// is when spinner ticks need a re-render.
func (m Model) anyLoading() bool {
	if m.state.IsLoading {
		return true
	}
	for _, msg := range m.state.Messages {
		if msg.IsLoading {
			return true
		}
	}
	return false
}

// layout sizes the viewport and composer to the terminal.
func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	composerHeight := 3
	if m.mode == modeEditing {
		composerHeight = editorHeight + 2
	}
	vpHeight := m.height - headerHeight - statusHeight - composerHeight - helpHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.vp = viewport.New(m.width, vpHeight)
	} else {
		m.vp.Width = m.width
		m.vp.Height = vpHeight
	}
	m.input.Width = m.width - 6
	m.editor.SetWidth(m.width - 4)
	m.editor.SetHeight(editorHeight)

	wrap := m.width - 10
	if wrap < 20 {
		wrap = 20
	}
	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
}

// scrollToMessage brings a message's first rendered line into view.
func (m *Model) scrollToMessage(id string) {
	line, ok := m.lineIndex[id]
	if !ok {
		m.vp.GotoBottom()
		return
	}
	m.vp.SetYOffset(line)
}

// Run starts the TUI over the machine and blocks until the user quits.
func Run(machine *chat.Machine) error {
	p := tea.NewProgram(New(machine), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
