// Package chunk provides a scrollable view of one answer source.
package chunk

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// View shows the full text of a retrieved chunk.
type View struct {
	styles *styles.Styles

	chunk        *domain.ScoredChunk
	lines        []string
	scrollOffset int
	width        int
	height       int
}

// NewView creates a new chunk view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{styles: s, width: 80, height: 24}
}

// SetChunk replaces the displayed chunk and scrolls to the top.
func (v *View) SetChunk(c domain.ScoredChunk) {
	v.chunk = &c
	v.scrollOffset = 0
	v.wrapContent()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles scrolling and navigation.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		v.scrollTo(v.scrollOffset - 1)
	case "down", "j":
		v.scrollTo(v.scrollOffset + 1)
	case "pgup", "ctrl+u":
		v.scrollTo(v.scrollOffset - v.visibleLines())
	case "pgdown", "ctrl+d":
		v.scrollTo(v.scrollOffset + v.visibleLines())
	case "home", "g":
		v.scrollTo(0)
	case "end", "G":
		v.scrollTo(v.maxScrollOffset())
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewAsk}
		}
	}
	return v, nil
}

func (v *View) scrollTo(offset int) {
	v.scrollOffset = min(max(offset, 0), v.maxScrollOffset())
}

// wrapContent splits the chunk text into lines no wider than the view.
func (v *View) wrapContent() {
	v.lines = nil
	if v.chunk == nil || v.chunk.Content == "" {
		return
	}

	width := max(v.width-4, 20)
	for _, line := range strings.Split(v.chunk.Content, "\n") {
		runes := []rune(line)
		for len(runes) > width {
			v.lines = append(v.lines, string(runes[:width]))
			runes = runes[width:]
		}
		v.lines = append(v.lines, string(runes))
	}
}

func (v *View) visibleLines() int {
	// title, metadata, separator and help
	return max(v.height-7, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the chunk.
func (v *View) View() string {
	var b strings.Builder

	if v.chunk == nil {
		b.WriteString(v.styles.Muted.Render("(No source selected)"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	b.WriteString(v.styles.Title.Render(v.chunk.DocumentName))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("chunk %d  ", v.chunk.Position)))
	b.WriteString(v.styles.Score.Render(fmt.Sprintf("score %.3f", v.chunk.Score)))
	if v.chunk.Overlap > 0 {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  overlap %d", v.chunk.Overlap)))
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	if len(v.lines) == 0 {
		b.WriteString(v.styles.Muted.Render("(No content)"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(v.lines))
	for _, line := range v.lines[v.scrollOffset:end] {
		b.WriteString(v.styles.Normal.Render(line))
		b.WriteString("\n")
	}

	if len(v.lines) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  Line %d-%d of %d",
			v.scrollOffset+1, end, len(v.lines))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back")
}

// SetDimensions sets the view dimensions and rewraps the content.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.wrapContent()
}

// Chunk returns the displayed chunk, or nil.
func (v *View) Chunk() *domain.ScoredChunk {
	return v.chunk
}

// ScrollOffset returns the first visible line index.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}
