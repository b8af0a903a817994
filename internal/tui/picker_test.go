// SPDX-License-Identifier: MIT
package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"hearsim/internal/presets"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds keys to m and returns the final model and the last command.
func press(m PickerModel, ks ...string) (PickerModel, tea.Cmd) {
	var cmd tea.Cmd
	var next tea.Model = m
	next, _ = next.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	for _, k := range ks {
		next, cmd = next.Update(keyMsg(k))
	}
	return next.(PickerModel), cmd
}

func repeat(k string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = k
	}
	return out
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestPickPreset(t *testing.T) {
	t.Parallel()

	m, cmd := press(NewPickerModel(), "down", "j", "enter")
	got, ok := m.Chosen()
	if !ok {
		t.Fatal("no preset chosen")
	}
	if got.Key != "65y" || got.Cutoff != 3000 {
		t.Errorf("Chosen() = %+v, want 65y/3000", got)
	}
	if !isQuit(cmd) {
		t.Error("selection did not quit the program")
	}
}

func TestCursorStaysInBounds(t *testing.T) {
	t.Parallel()

	m, _ := press(NewPickerModel(), "up", "k")
	if m.selectedIndex != 0 {
		t.Errorf("selectedIndex = %d after moving up from the top", m.selectedIndex)
	}

	m, _ = press(NewPickerModel(), "down", "down", "down", "down", "down", "down", "down")
	if m.selectedIndex != m.customRow() {
		t.Errorf("selectedIndex = %d, want custom row %d", m.selectedIndex, m.customRow())
	}
}

func TestCustomCutoff(t *testing.T) {
	t.Parallel()

	// Move to the custom row, open it, raise by 3 fine steps and 1 coarse step.
	m, cmd := press(NewPickerModel(), "down", "down", "down", "down", "enter",
		"up", "up", "up", "right", "enter")

	got, ok := m.Chosen()
	if !ok {
		t.Fatal("no preset chosen")
	}
	want := presets.DefaultCustomCutoff + 3*presets.CustomStep + coarseSteps*presets.CustomStep
	if !got.Custom || got.Cutoff != want {
		t.Errorf("Chosen() = %+v, want custom %g Hz", got, want)
	}
	if !isQuit(cmd) {
		t.Error("selection did not quit the program")
	}
}

func TestCustomCutoffClampedToRange(t *testing.T) {
	t.Parallel()

	open := []string{"down", "down", "down", "down", "enter"}

	lower := append(append([]string{}, open...), repeat("left", 5)...)
	m, _ := press(NewPickerModel(), lower...)
	if m.customCutoff != presets.MinCustomCutoff {
		t.Errorf("customCutoff = %g, want %g", m.customCutoff, presets.MinCustomCutoff)
	}

	upper := append(append([]string{}, open...), repeat("right", 20)...)
	m, _ = press(NewPickerModel(), upper...)
	if m.customCutoff != presets.MaxCustomCutoff {
		t.Errorf("customCutoff = %g, want %g", m.customCutoff, presets.MaxCustomCutoff)
	}
}

func TestEscReturnsToList(t *testing.T) {
	t.Parallel()

	m, _ := press(NewPickerModel(), "down", "down", "down", "down", "enter", "esc")
	if m.activeScreen != ListScreen {
		t.Errorf("activeScreen = %v, want ListScreen", m.activeScreen)
	}
	if _, ok := m.Chosen(); ok {
		t.Error("esc chose a preset")
	}
}

func TestQuitWithoutChoice(t *testing.T) {
	t.Parallel()

	m, cmd := press(NewPickerModel(), "q")
	if _, ok := m.Chosen(); ok {
		t.Error("quit chose a preset")
	}
	if !isQuit(cmd) {
		t.Error("q did not quit")
	}
}

func TestView(t *testing.T) {
	t.Parallel()

	if v := NewPickerModel().View(); v != "Initializing..." {
		t.Errorf("View() before sizing = %q", v)
	}

	m, _ := press(NewPickerModel())
	v := m.View()
	for _, want := range []string{"Simulated Hearing Loss", "20y", "80y", "1500 Hz", "custom"} {
		if !strings.Contains(v, want) {
			t.Errorf("list view missing %q:\n%s", want, v)
		}
	}

	m, _ = press(NewPickerModel(), "down", "down", "down", "down", "enter")
	v = m.View()
	if !strings.Contains(v, "Custom Cutoff") || !strings.Contains(v, "2000 Hz") {
		t.Errorf("custom view:\n%s", v)
	}
}
