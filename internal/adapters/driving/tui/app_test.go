package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	ports := NewPorts(&MockQueryService{}, &MockIndexService{}, &MockTenantService{
		Docs: []domain.DocumentInfo{{Name: "paris.txt", Size: 31}},
	}, testPrincipal)
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.SetDimensions(100, 40)
	return app
}

// drain runs cmd and feeds app-level messages back into the app until the
// chain ends. Cursor blink ticks and other bubbles messages stop the chain.
func drain(app *App, cmd tea.Cmd) {
	for cmd != nil {
		switch msg := cmd().(type) {
		case messages.ViewChanged, messages.AnswerCompleted, messages.ChunkSelected,
			messages.DocumentsLoaded, messages.DocumentDeleted, messages.RebuildCompleted,
			messages.ErrorOccurred:
			_, cmd = app.Update(msg)
		default:
			return
		}
	}
}

func typeText(app *App, s string) {
	for _, r := range s {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.True(t, app.Ready())
	assert.NotNil(t, app.Init())
	assert.Contains(t, app.View(), "Company: acme (member)")
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Tenants: &MockTenantService{}, Principal: testPrincipal})

	assert.ErrorIs(t, err, ErrMissingQueryService)
	assert.Nil(t, app)
}

func TestApp_NotReady(t *testing.T) {
	app, err := NewApp(NewPorts(&MockQueryService{}, nil, &MockTenantService{}, testPrincipal))
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Same(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
}

func TestApp_AskRoundTrip(t *testing.T) {
	var seenTenant domain.TenantID
	ports := NewPorts(&MockQueryService{AskFunc: func(_ context.Context, tenant domain.TenantID, req domain.AskRequest) (*domain.Answer, error) {
		seenTenant = tenant
		return &domain.Answer{Question: req.Question, Text: "Paris.", Sources: []domain.ScoredChunk{
			{Chunk: domain.Chunk{ID: "paris.txt#0", DocumentName: "paris.txt", Content: "Paris is the capital of France."}, Score: 1},
		}}, nil
	}}, nil, &MockTenantService{}, testPrincipal)
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.SetDimensions(100, 40)

	// menu: first item is Ask
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(app, cmd)
	require.Equal(t, messages.ViewAsk, app.CurrentView())

	typeText(app, "What is the capital of France?")
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(app, cmd)

	assert.Equal(t, domain.TenantID("acme"), seenTenant)
	assert.Contains(t, app.View(), "Paris.")

	// open the source, then come back without losing the answer
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(app, cmd)
	require.Equal(t, messages.ViewChunk, app.CurrentView())
	assert.Contains(t, app.View(), "Paris is the capital of France.")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	drain(app, cmd)
	require.Equal(t, messages.ViewAsk, app.CurrentView())
	assert.Contains(t, app.View(), "Paris.")

	// esc to menu then back to ask starts fresh
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	drain(app, cmd)
	require.Equal(t, messages.ViewMenu, app.CurrentView())
	app.Update(messages.ViewChanged{View: messages.ViewAsk})
	assert.NotContains(t, app.View(), "Paris.")
}

func TestApp_AskErrorIsRecorded(t *testing.T) {
	app := newTestApp(t)
	app.Update(messages.ViewChanged{View: messages.ViewAsk})

	app.Update(messages.AnswerCompleted{Err: domain.ErrTenantNotIndexed})

	assert.ErrorIs(t, app.Err(), domain.ErrTenantNotIndexed)
	assert.Contains(t, app.View(), "tenant_not_indexed")
}

func TestApp_DocumentsView(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewDocuments})
	drain(app, cmd)

	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
	view := app.View()
	assert.Contains(t, view, "Documents - acme (1)")
	assert.Contains(t, view, "paris.txt")
}

func TestApp_HelpView(t *testing.T) {
	app := newTestApp(t)
	app.Update(messages.ViewChanged{View: messages.ViewHelp})

	assert.Contains(t, app.View(), "Rebuild the index now")

	// keys other than esc are ignored
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.Equal(t, messages.ViewHelp, app.CurrentView())

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_Quit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
	}{
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
		{"quit message", messages.Quit{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)

			_, cmd := app.Update(tt.msg)
			require.NotNil(t, cmd)

			assert.Equal(t, tea.Quit(), cmd())
		})
	}
}

func TestApp_WithContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	var seen context.Context
	ports := NewPorts(&MockQueryService{AskFunc: func(c context.Context, _ domain.TenantID, _ domain.AskRequest) (*domain.Answer, error) {
		seen = c
		return &domain.Answer{}, nil
	}}, nil, &MockTenantService{}, testPrincipal)
	app, err := NewApp(ports)
	require.NoError(t, err)

	assert.Same(t, app, app.WithContext(ctx))

	app.SetDimensions(80, 24)
	app.Update(messages.ViewChanged{View: messages.ViewAsk})
	typeText(app, "q")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(app, cmd)

	require.NotNil(t, seen)
	assert.Equal(t, "v", seen.Value(ctxKey{}))
}
