package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"storycatcher/chat"
)

const (
	headerHeight = 3
	statusHeight = 1
	helpHeight   = 1
	editorHeight = 8
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F25D94"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#874BFD"))

	videoStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#04B575")).
			Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#04B575")).
			Padding(0, 1)

	editorStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#F2C94C")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.headerView(),
		m.vp.View(),
		m.statusView(),
		m.composerView(),
		helpStyle.Render(m.helpLine()),
	)
}

func (m Model) headerView() string {
	title := titleStyle.Render("Storycatcher")
	progress := ""
	if m.state.SessionID != "" && !m.state.IsComplete {
		progress = statusStyle.Render(
			fmt.Sprintf("  Question %d of %d", m.state.CurrentQuestion, m.state.TotalQuestions),
		)
	} else if m.state.IsComplete {
		progress = statusStyle.Render("  Interview complete")
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, title, progress) + "\n"
}

func (m Model) statusView() string {
	switch {
	case m.state.Err != "":
		return errorStyle.Render(m.state.Err)
	case m.state.VideoGenerating:
		return statusStyle.Render(m.spin.View() + " Generating video...")
	case m.state.IsLoading:
		return statusStyle.Render(m.spin.View() + " Working...")
	case m.state.ShowGenerateButton && !m.state.VideoGenerated:
		return statusStyle.Render("Storyboard ready. Press ctrl+g to generate your video.")
	default:
		return ""
	}
}

func (m Model) composerView() string {
	if m.mode == modeEditing {
		return editorStyle.Width(m.width - 2).Render(m.editor.View())
	}
	return inputStyle.Width(m.width - 2).Render(m.input.View())
}

func (m Model) helpLine() string {
	switch m.mode {
	case modeEditing:
		return "ctrl+s save • esc cancel • ctrl+c quit"
	case modeEmail:
		return "enter confirm • esc back • ctrl+c quit"
	}
	parts := []string{"enter send"}
	if sb, ok := m.state.Storyboard(); ok && sb.IsEditable {
		parts = append(parts, "ctrl+e edit storyboard")
	}
	if m.state.ShowGenerateButton {
		parts = append(parts, "ctrl+g generate video")
	}
	parts = append(parts, "ctrl+n new story", "ctrl+c quit")
	return strings.Join(parts, " • ")
}

// refreshTranscript re-renders all messages into the viewport and
// rebuilds the line index used for scroll targeting. When keepScroll
// is set the current scroll offset is restored after the rebuild.
func (m *Model) refreshTranscript(keepScroll bool) {
	offset := m.vp.YOffset

	var b strings.Builder
	index := make(map[string]int, len(m.state.Messages))
	line := 0
	for i, msg := range m.state.Messages {
		if i > 0 {
			b.WriteString("\n")
			line++
		}
		index[msg.ID] = line
		rendered := m.renderMessage(msg)
		b.WriteString(rendered)
		b.WriteString("\n")
		line += strings.Count(rendered, "\n") + 1
	}

	m.lineIndex = index
	m.vp.SetContent(b.String())
	if keepScroll {
		m.vp.SetYOffset(offset)
	}
}

func (m Model) renderMessage(msg chat.Message) string {
	label := assistantStyle.Render("Interviewer")
	if msg.Role == chat.RoleUser {
		label = userStyle.Render("You")
	}

	body := m.renderBody(msg)
	if msg.IsLoading {
		body = m.spin.View() + " " + body
	}
	if msg.IsError {
		body = errorStyle.Render(body)
	}
	if msg.Kind == chat.KindVideo && !msg.IsLoading && !msg.IsError {
		body = videoStyle.Render(body)
	}
	return label + "\n" + body
}

func (m Model) renderBody(msg chat.Message) string {
	text := msg.Text

	// Completed videos show the playback link under the caption.
	if msg.Kind == chat.KindVideo && msg.VideoURL != "" && !msg.HasPendingVideo() {
		text = text + "\n" + msg.VideoURL
	}

	// Storyboards are markdown; everything else is plain text.
	if msg.Kind == chat.KindStoryboard && !msg.IsLoading && !msg.IsError && m.renderer != nil {
		if out, err := m.renderer.Render(text); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}

	wrap := m.width - 4
	if wrap < 20 {
		wrap = 20
	}
	out := wordwrap.String(text, wrap)

	if len(msg.Images) > 0 {
		var imgs []string
		for _, u := range msg.Images {
			imgs = append(imgs, statusStyle.Render("[image] "+u))
		}
		out = out + "\n" + strings.Join(imgs, "\n")
	}
	return out
}
