package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// pickerModel is the Bubble Tea model for the roadmap picker. Typing
// filters the list by substring; a number selects that entry.
type pickerModel struct {
	names    []string
	visible  []int // indexes into names matching the filter
	cursor   int   // position in visible
	filter   textinput.Model
	width    int
	height   int
	scroll   int
	selected string

	confirmed bool
	cancelled bool
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89b4fa"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#89b4fa"))

	nameStyle = lipgloss.NewStyle().
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Faint(true)

	helpStyle = lipgloss.NewStyle().
			Faint(true)
)

func newPickerModel(names []string, initial string) pickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter, or a number"
	ti.Prompt = ""
	ti.CharLimit = 100
	ti.Focus()

	m := pickerModel{
		names:  names,
		filter: ti,
		width:  80,
		height: 20,
	}
	m.applyFilter()
	for i, idx := range m.visible {
		if names[idx] == initial {
			m.cursor = i
		}
	}
	m.updateScroll()
	return m
}

func (m pickerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateScroll()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit

		case tea.KeyEnter:
			if name, ok := m.current(); ok {
				m.selected = name
				m.confirmed = true
				return m, tea.Quit
			}
			return m, nil

		case tea.KeyUp, tea.KeyCtrlP:
			if m.cursor > 0 {
				m.cursor--
				m.updateScroll()
			}
			return m, nil

		case tea.KeyDown, tea.KeyCtrlN:
			if m.cursor < len(m.visible)-1 {
				m.cursor++
				m.updateScroll()
			}
			return m, nil
		}

		var cmd tea.Cmd
		prev := m.filter.Value()
		m.filter, cmd = m.filter.Update(msg)
		if m.filter.Value() != prev {
			m.applyFilter()
		}
		return m, cmd
	}

	return m, nil
}

// applyFilter recomputes the visible entries. A filter that parses as a
// 1-based index in range selects exactly that entry.
func (m *pickerModel) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]

	if n, err := strconv.Atoi(q); err == nil && n >= 1 && n <= len(m.names) {
		m.visible = append(m.visible, n-1)
	} else {
		for i, name := range m.names {
			if q == "" || strings.Contains(strings.ToLower(name), q) {
				m.visible = append(m.visible, i)
			}
		}
	}
	m.cursor = 0
	m.scroll = 0
}

func (m pickerModel) current() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return "", false
	}
	return m.names[m.visible[m.cursor]], true
}

func (m *pickerModel) updateScroll() {
	rows := m.visibleRows()
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	} else if m.cursor >= m.scroll+rows {
		m.scroll = m.cursor - rows + 1
	}
}

func (m pickerModel) visibleRows() int {
	// title (2) + filter (2) + scroll info (1) + help (2) + margins (2)
	return max(1, m.height-9)
}

func (m pickerModel) View() string {
	var b strings.Builder

	b.WriteString("\n  ")
	b.WriteString(titleStyle.Render(fmt.Sprintf("Select a roadmap (%d available)", len(m.names))))
	b.WriteString("\n\n")

	b.WriteString(dimStyle.Render("  Filter:"))
	b.WriteString(" ")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	end := min(m.scroll+m.visibleRows(), len(m.visible))
	for i := m.scroll; i < end; i++ {
		idx := m.visible[i]
		if i == m.cursor {
			b.WriteString("  ")
			b.WriteString(selectedStyle.Render(">"))
			b.WriteString(" ")
		} else {
			b.WriteString("    ")
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("%3d.", idx+1)))
		b.WriteString(" ")
		b.WriteString(nameStyle.Render(m.names[idx]))
		b.WriteString("\n")
	}
	if len(m.visible) == 0 {
		b.WriteString(dimStyle.Render("    no match"))
		b.WriteString("\n")
	} else if len(m.visible) > m.visibleRows() {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d", m.scroll+1, end, len(m.visible))))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(helpStyle.Render("↑/↓ select  Enter confirm  Esc cancel"))
	b.WriteString("\n")

	return b.String()
}

// pickRoadmap shows the picker and returns the chosen name, or "" when
// the user cancels.
func pickRoadmap(names []string, initial string) (string, error) {
	if len(names) == 0 {
		return "", errors.New("no roadmaps available")
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return "", errors.New("--interactive needs a terminal; use --roadmap instead")
	}

	p := tea.NewProgram(newPickerModel(names, initial), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("run picker: %w", err)
	}

	result := final.(pickerModel)
	if result.cancelled || !result.confirmed {
		return "", nil
	}
	return result.selected, nil
}
