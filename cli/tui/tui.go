package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/accord/export"
)

// keyMap defines key bindings beyond the viewport's own scrolling keys.
type keyMap struct {
	Quit   key.Binding
	Top    key.Binding
	Bottom key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Top: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
}

// PreviewModel is a scrollable pager over a consolidated preview.
type PreviewModel struct {
	title    string
	notice   string
	content  string
	viewport viewport.Model
	ready    bool
	quitting bool
}

// NewPreviewModel creates a pager for p.
func NewPreviewModel(title string, p *export.Preview) PreviewModel {
	return PreviewModel{
		title:   title,
		notice:  p.Notice,
		content: p.Text,
	}
}

// Init implements tea.Model.
func (m PreviewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-m.chromeHeight(), 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Top):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m PreviewModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading preview..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.header(), m.viewport.View(), m.footer())
}

func (m PreviewModel) header() string {
	lines := []string{TitleStyle.Render(m.title)}
	if m.notice != "" {
		lines = append(lines, NoticeStyle.Render(m.notice))
	}
	lines = append(lines, RuleStyle.Render(strings.Repeat("─", max(m.viewport.Width, 1))))
	return strings.Join(lines, "\n")
}

func (m PreviewModel) footer() string {
	rule := RuleStyle.Render(strings.Repeat("─", max(m.viewport.Width, 1)))
	help := HelpStyle.Render(fmt.Sprintf("%3.f%%  ↑/↓ scroll • g/G top/bottom • q quit", m.viewport.ScrollPercent()*100))
	return rule + "\n" + help
}

// chromeHeight is the number of lines taken by header and footer.
func (m PreviewModel) chromeHeight() int {
	h := 4 // title, header rule, footer rule, help
	if m.notice != "" {
		h++
	}
	return h
}

// Run opens the pager in the alternate screen and blocks until it quits.
func Run(title string, p *export.Preview) error {
	model := NewPreviewModel(title, p)
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := prog.Run()
	return err
}
