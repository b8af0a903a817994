// SPDX-License-Identifier: MIT
//
// Package tui is the interactive preset picker: a list of age presets plus a
// custom cutoff the user adjusts in fixed steps.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hearsim/internal/presets"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// ErrCancelled is returned by Pick when the user quits without choosing.
var ErrCancelled = errors.New("tui: selection cancelled")

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	CustomScreen
)

type keyMap struct {
	Quit, Up, Down, Select, Back, Coarse, CoarseDown key.Binding
}

var keys = keyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Up:         key.NewBinding(key.WithKeys("up", "k")),
	Down:       key.NewBinding(key.WithKeys("down", "j")),
	Select:     key.NewBinding(key.WithKeys("enter")),
	Back:       key.NewBinding(key.WithKeys("esc")),
	Coarse:     key.NewBinding(key.WithKeys("right", "l")),
	CoarseDown: key.NewBinding(key.WithKeys("left", "h")),
}

// coarseSteps is how many CustomSteps left/right move the custom cutoff.
const coarseSteps = 10

// PickerModel is the Bubble Tea model for choosing a hearing-loss preset.
// The last list row is the custom cutoff.
type PickerModel struct {
	options       []presets.Preset
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	activeScreen  ScreenType

	customCutoff float64
	chosen       *presets.Preset
}

// NewPickerModel creates a picker with the cursor on the first preset.
func NewPickerModel() PickerModel {
	return PickerModel{
		options:      presets.All(),
		activeScreen: ListScreen,
		customCutoff: presets.DefaultCustomCutoff,
	}
}

// Init initializes the Bubble Tea model
func (m PickerModel) Init() tea.Cmd {
	return nil
}

// Chosen returns the confirmed preset, if any.
func (m PickerModel) Chosen() (presets.Preset, bool) {
	if m.chosen == nil {
		return presets.Preset{}, false
	}
	return *m.chosen, true
}

// customRow is the list index of the custom entry.
func (m PickerModel) customRow() int { return len(m.options) }

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, keys.Up):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, keys.Down):
				if m.selectedIndex < m.customRow() {
					m.selectedIndex++
				}
			case key.Matches(msg, keys.Select):
				if m.selectedIndex == m.customRow() {
					m.activeScreen = CustomScreen
					break
				}
				p := m.options[m.selectedIndex]
				m.chosen = &p
				return m, tea.Quit
			}

		case CustomScreen:
			switch {
			case key.Matches(msg, keys.Back):
				m.activeScreen = ListScreen
			case key.Matches(msg, keys.Up):
				m.adjust(1)
			case key.Matches(msg, keys.Down):
				m.adjust(-1)
			case key.Matches(msg, keys.Coarse):
				m.adjust(coarseSteps)
			case key.Matches(msg, keys.CoarseDown):
				m.adjust(-coarseSteps)
			case key.Matches(msg, keys.Select):
				p, err := presets.Custom(m.customCutoff)
				if err != nil {
					// adjust keeps the cutoff in range; nothing to confirm.
					break
				}
				m.chosen = &p
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// adjust moves the custom cutoff by steps*CustomStep within the allowed range.
func (m *PickerModel) adjust(steps int) {
	v := m.customCutoff + float64(steps)*presets.CustomStep
	m.customCutoff = min(max(v, presets.MinCustomCutoff), presets.MaxCustomCutoff)
}

func (m *PickerModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ListScreen {
		m.viewport.SetContent(m.renderList())
	} else {
		m.viewport.SetContent(m.renderCustom())
	}
}

// View renders the UI
func (m PickerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Simulated Hearing Loss")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Select • q: Quit")
	} else {
		title = titleStyle.Render("Custom Cutoff")
		help = infoStyle.Render(fmt.Sprintf("↑/↓: ±%.0f Hz • ←/→: ±%.0f Hz • Enter: Use • Esc: Back • q: Quit",
			presets.CustomStep, coarseSteps*presets.CustomStep))
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func cursor(selected bool) string {
	if selected {
		return "▶"
	}
	return " "
}

// renderList formats the preset list
func (m PickerModel) renderList() string {
	var sb strings.Builder

	for i, p := range m.options {
		line := fmt.Sprintf("%s %-6s %6.0f Hz  %s\n", cursor(i == m.selectedIndex), p.Key, p.Cutoff, p.Description)
		if i == m.selectedIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}

	line := fmt.Sprintf("%s %-6s %6.0f Hz  choose your own (%.0f-%.0f Hz)\n",
		cursor(m.selectedIndex == m.customRow()), presets.CustomKey, m.customCutoff,
		presets.MinCustomCutoff, presets.MaxCustomCutoff)
	if m.selectedIndex == m.customRow() {
		line = highlightStyle.Render(line)
	}
	sb.WriteString(line)

	return sb.String()
}

// renderCustom formats the custom cutoff screen
func (m PickerModel) renderCustom() string {
	var sb strings.Builder

	sb.WriteString("Cutoff frequency:\n\n")
	sb.WriteString(highlightStyle.Render(fmt.Sprintf("  ▶ %.0f Hz", m.customCutoff)))
	sb.WriteString("\n\n")

	// Bar showing where the cutoff sits in the allowed range.
	const width = 40
	span := presets.MaxCustomCutoff - presets.MinCustomCutoff
	filled := int((m.customCutoff - presets.MinCustomCutoff) / span * width)
	sb.WriteString(fmt.Sprintf("  %.0f [%s%s] %.0f\n",
		presets.MinCustomCutoff, strings.Repeat("=", filled), strings.Repeat(" ", width-filled),
		presets.MaxCustomCutoff))

	return sb.String()
}

// Pick runs the picker on the terminal and returns the chosen preset, or
// ErrCancelled when the user quits.
func Pick() (presets.Preset, error) {
	p := tea.NewProgram(
		NewPickerModel(),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return presets.Preset{}, err
	}
	if chosen, ok := final.(PickerModel).Chosen(); ok {
		return chosen, nil
	}
	return presets.Preset{}, ErrCancelled
}
