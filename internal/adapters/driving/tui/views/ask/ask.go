// Package ask provides the question and answer view for the TUI.
package ask

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
)

// ErrNoQueryService indicates that no query service was provided.
var ErrNoQueryService = errors.New("query service is required")

// View is the ask view: a question input, the answer and its sources.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	sources   *list.SourceList
	statusbar *status.Bar

	queryService driving.QueryService
	tenant       domain.TenantID
	ctx          context.Context

	answer *domain.Answer

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
}

// NewView creates a new ask view bound to one tenant.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	queryService driving.QueryService,
	tenant domain.TenantID,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetTenant(string(tenant))

	return &View{
		styles:       s,
		keymap:       km,
		input:        input.NewQuestionInput(s),
		sources:      list.NewSourceList(s),
		statusbar:    bar,
		queryService: queryService,
		tenant:       tenant,
		ctx:          context.Background(),
		width:        80,
		height:       24,
		focusInput:   true,
	}
}

// WithContext sets the context used for pipeline calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			question := v.input.Value()
			if question == "" {
				return v, nil
			}
			v.err = nil
			v.statusbar.SetState(status.StateAsking)
			v.input.Blur()
			v.focusInput = false
			return v, v.ask(question)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case msg.Type == tea.KeyEnter:
		if src := v.sources.SelectedSource(); src != nil {
			chunk := *src
			return v, func() tea.Msg {
				return messages.ChunkSelected{Chunk: chunk}
			}
		}
	case keymap.Matches(msg.String(), v.keymap.NewQuestion):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	default:
		v.sources, _ = v.sources.Update(msg)
	}
	return v, nil
}

// ask runs the pipeline off the update loop.
func (v *View) ask(question string) tea.Cmd {
	return func() tea.Msg {
		if v.queryService == nil {
			return messages.ErrorOccurred{Err: ErrNoQueryService}
		}
		answer, err := v.queryService.Ask(v.ctx, v.tenant, domain.AskRequest{Question: question})
		return messages.AnswerCompleted{Answer: answer, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.answer = msg.Answer
	v.focusInput = false
	v.input.Blur()
	v.sources.SetSources(msg.Answer.Sources)
	v.statusbar.SetState(status.StateAnswered)
	v.statusbar.SetSourceCount(len(msg.Answer.Sources))
}

func (v *View) setError(err error) {
	v.err = err
	v.answer = nil
	v.sources.SetSources(nil)
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(string(domain.KindOf(err)))
	// Let the user edit and retry.
	v.focusInput = true
	v.input.Focus()
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{
		v.styles.Title.Render("ragindex") + v.styles.Muted.Render("  "+string(v.tenant)),
		"",
		v.input.View(),
		"",
	}

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render(v.err.Error()), "")
	}

	if v.answer != nil {
		answer := v.styles.Answer.Width(max(v.width-4, 20)).Render(v.answer.Text)
		sections = append(sections, answer, "", v.sources.View())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	// header, input, answer block and status bar
	v.sources.SetDimensions(width, height/2)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Question returns the current input.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion sets the question input.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Answer returns the last answer, or nil.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the question input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// SelectedIndex returns the selected source index.
func (v *View) SelectedIndex() int {
	return v.sources.Selected()
}

// Reset returns the view to an empty question.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.sources.SetSources(nil)
	v.answer = nil
	v.err = nil
	v.statusbar.Clear()
}
