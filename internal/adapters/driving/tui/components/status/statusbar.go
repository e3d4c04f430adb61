// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady    State = "ready"
	StateAsking   State = "asking"
	StateAnswered State = "answered"
	StateError    State = "error"
)

// Bar displays the tenant, pipeline state and keybinding hints.
type Bar struct {
	styles      *styles.Styles
	keymap      *keymap.KeyMap
	tenant      string
	state       State
	message     string
	sourceCount int
	width       int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (b *Bar) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the bar is driven through its setters.
func (b *Bar) Update(tea.Msg) (*Bar, tea.Cmd) {
	return b, nil
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	// two columns of horizontal padding
	padding := max(b.width-2-lipgloss.Width(left)-lipgloss.Width(right), 1)

	return b.styles.StatusBar.Width(b.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (b *Bar) renderLeft() string {
	prefix := ""
	if b.tenant != "" {
		prefix = b.styles.Subtitle.Render(b.tenant) + " "
	}

	switch b.state {
	case StateAsking:
		return prefix + b.styles.Muted.Render("Thinking...")
	case StateError:
		if b.message != "" {
			return prefix + b.styles.Error.Render("Error: "+b.message)
		}
		return prefix + b.styles.Error.Render("Error")
	case StateAnswered:
		return prefix + b.styles.Normal.Render(fmt.Sprintf("Answered from %d sources", b.sourceCount))
	case StateReady:
	}
	if b.message != "" {
		return prefix + b.styles.Normal.Render(b.message)
	}
	return prefix + b.styles.Muted.Render("Ready")
}

func (b *Bar) renderRight() string {
	var bindings []key.Binding
	if b.state == StateAnswered && b.sourceCount > 0 {
		bindings = b.keymap.AnswerHelp()
	} else {
		bindings = b.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetTenant sets the tenant label.
func (b *Bar) SetTenant(tenant string) {
	b.tenant = tenant
}

// SetState sets the current state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets a custom message.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetSourceCount sets how many sources the current answer cites.
func (b *Bar) SetSourceCount(count int) {
	b.sourceCount = count
}

// SourceCount returns the current source count.
func (b *Bar) SourceCount() int {
	return b.sourceCount
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the current width.
func (b *Bar) Width() int {
	return b.width
}

// Clear resets the status bar to default state. The tenant label is kept.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.sourceCount = 0
}
