// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// AnswerCompleted carries the pipeline's answer back to the model.
type AnswerCompleted struct {
	Answer *domain.Answer
	Err    error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewAsk is the question input and answer view.
	ViewAsk
	// ViewDocuments lists the tenant's stored documents.
	ViewDocuments
	// ViewChunk shows the full text of one answer source.
	ViewChunk
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewAsk:
		return "ask"
	case ViewDocuments:
		return "documents"
	case ViewChunk:
		return "chunk"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// ChunkSelected opens a source chunk in the chunk view.
type ChunkSelected struct {
	Chunk domain.ScoredChunk
}

// DocumentsLoaded carries the tenant's documents and stats.
type DocumentsLoaded struct {
	Tenant    domain.TenantID
	Documents []domain.DocumentInfo
	Stats     *domain.TenantStats
	Err       error
}

// DocumentDeleted signals a document was removed.
type DocumentDeleted struct {
	Name string
	Err  error
}

// RebuildCompleted signals a user-triggered rebuild finished.
type RebuildCompleted struct {
	Status *domain.BuildStatus
	Err    error
}
