// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// SourceList displays the chunks an answer was grounded on.
type SourceList struct {
	sources  []domain.ScoredChunk
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates a new source list component.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *SourceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list.
func (l *SourceList) View() string {
	if len(l.sources) == 0 {
		return l.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(l.sources)+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(l.sources))), "")

	// Each source takes two lines.
	visible := max((l.height-2)/2, 1)
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.sources))

	for i := start; i < end; i++ {
		lines = append(lines, l.renderSource(i, &l.sources[i]))
	}

	return strings.Join(lines, "\n")
}

func (l *SourceList) renderSource(index int, src *domain.ScoredChunk) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	name := truncate(fmt.Sprintf("[%d] %s #%d", index+1, src.DocumentName, src.Position), max(l.width-16, 10))
	score := fmt.Sprintf("%.3f", src.Score)

	var head string
	if index == l.selected {
		head = l.styles.Selected.Render(indicator + name + "  " + score)
	} else {
		head = l.styles.Normal.Render(indicator+name+"  ") + l.styles.Score.Render(score)
	}

	preview := strings.Join(strings.Fields(src.Content), " ")
	preview = truncate(preview, max(l.width-6, 20))

	return head + "\n" + l.styles.Muted.Render("    "+preview)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// SetSources replaces the list and resets the selection.
func (l *SourceList) SetSources(sources []domain.ScoredChunk) {
	l.sources = sources
	l.selected = 0
}

// Sources returns the current sources.
func (l *SourceList) Sources() []domain.ScoredChunk {
	return l.sources
}

// Selected returns the index of the selected source.
func (l *SourceList) Selected() int {
	return l.selected
}

// SelectedSource returns the selected source, or nil if the list is empty.
func (l *SourceList) SelectedSource() *domain.ScoredChunk {
	if l.selected < 0 || l.selected >= len(l.sources) {
		return nil
	}
	return &l.sources[l.selected]
}

// MoveUp moves selection up.
func (l *SourceList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *SourceList) MoveDown() {
	if l.selected < len(l.sources)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *SourceList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of sources.
func (l *SourceList) Count() int {
	return len(l.sources)
}
