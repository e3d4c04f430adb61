package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/views/chunk"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/views/menu"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	menuView      *menu.View
	askView       *ask.View
	documentsView *documents.View
	chunkView     *chunk.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	tenant := ports.Principal.Tenant

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		menuView:      menu.NewView(s, fmt.Sprintf("Company: %s (%s)", tenant, ports.Principal.Role)),
		askView:       ask.NewView(s, km, ports.Query, tenant),
		documentsView: documents.NewView(s, km, ports.Tenants, ports.Index, tenant),
		chunkView:     chunk.NewView(s),
		currentView:   messages.ViewMenu,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.askView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle(fmt.Sprintf("ragindex - %s", a.ports.Principal.Tenant)),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(msg)

	case messages.ViewChanged:
		previous := a.currentView
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewAsk:
			// Coming back from a source keeps the answer on screen.
			if previous == messages.ViewChunk {
				return a, nil
			}
			a.askView.Reset()
			return a, a.askView.Init()
		case messages.ViewDocuments:
			return a, a.documentsView.Init()
		case messages.ViewMenu, messages.ViewChunk, messages.ViewHelp:
		}
		return a, nil

	case messages.AnswerCompleted:
		if msg.Err != nil {
			a.err = msg.Err
		}
		a.askView, cmd = a.askView.Update(msg)
		return a, cmd

	case messages.ChunkSelected:
		a.chunkView.SetChunk(msg.Chunk)
		a.currentView = messages.ViewChunk
		return a, nil

	case messages.DocumentsLoaded, messages.DocumentDeleted, messages.RebuildCompleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.forward(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// forward hands msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewChunk:
		a.chunkView, cmd = a.chunkView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewAsk:
		return a.askView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewChunk:
		return a.chunkView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Navigation:
  esc         Back
  ctrl+c      Quit

Ask:
  (type)      Enter a question
  enter       Ask
  j/k, ↑/↓    Move between sources
  enter       Open the selected source
  n           New question

Documents:
  d           Delete the selected document
  b           Rebuild the index now
  r           Reload the list

` + a.styles.Help.Render("[esc] back to menu")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.askView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.chunkView.SetDimensions(width, height)
}
