// Package pager shows rendered text in a scrollable full-screen terminal
// view.
package pager

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("4"))
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("8"))
)

// RenderFunc renders the page body for the given terminal width.
type RenderFunc func(width int) string

// Model is the bubbletea model for the pager.
type Model struct {
	title    string
	render   RenderFunc
	viewport viewport.Model
	ready    bool
	width    int
	height   int
}

// New returns a pager model. The body is rendered on the first window
// size message and again whenever the width changes.
func New(title string, render RenderFunc) Model {
	return Model{title: title, render: render}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "g", "home":
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			return m, nil
		}

	case tea.WindowSizeMsg:
		widthChanged := msg.Width != m.width
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - 2 // header and footer
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
			m.viewport.SetContent(m.render(m.width))
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
			if widthChanged {
				m.viewport.SetContent(m.render(m.width))
			}
		}
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := headerStyle.Render(padOrTrunc(" "+m.title+" ", m.width))

	left := " q quit  g/G top/bottom  pgup/pgdn scroll"
	right := fmt.Sprintf("%.0f%% ", m.viewport.ScrollPercent()*100)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	footer := footerStyle.Render(padOrTrunc(left+strings.Repeat(" ", gap)+right, m.width))

	return header + "\n" + m.viewport.View() + "\n" + footer
}

// padOrTrunc pads s with spaces or truncates it to exactly width cells.
func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return ""
	}
	n := ansi.StringWidth(s)
	if n >= width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-n)
}

// Run shows the pager full screen until the user quits.
func Run(title string, render RenderFunc) error {
	p := tea.NewProgram(
		New(title, render),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
