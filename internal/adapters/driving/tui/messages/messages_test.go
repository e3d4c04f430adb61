package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view ViewType
		want string
	}{
		{ViewMenu, "menu"},
		{ViewAsk, "ask"},
		{ViewDocuments, "documents"},
		{ViewChunk, "chunk"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.String())
		})
	}
}

func TestAnswerCompleted(t *testing.T) {
	t.Run("with answer", func(t *testing.T) {
		msg := AnswerCompleted{Answer: &domain.Answer{
			Question: "capital?",
			Text:     "Paris.",
			Sources:  []domain.ScoredChunk{{Chunk: domain.Chunk{ID: "paris.txt#0"}, Score: 1}},
		}}

		require.NotNil(t, msg.Answer)
		assert.Equal(t, "Paris.", msg.Answer.Text)
		assert.Len(t, msg.Answer.Sources, 1)
		assert.NoError(t, msg.Err)
	})

	t.Run("with error", func(t *testing.T) {
		msg := AnswerCompleted{Err: domain.ErrTenantNotIndexed}

		assert.Nil(t, msg.Answer)
		assert.True(t, errors.Is(msg.Err, domain.ErrTenantNotIndexed))
	})
}

func TestDocumentsLoaded(t *testing.T) {
	msg := DocumentsLoaded{
		Tenant:    "acme",
		Documents: []domain.DocumentInfo{{Name: "a.txt", Size: 3}},
		Stats:     &domain.TenantStats{Tenant: "acme", DocumentCount: 1},
	}

	assert.Equal(t, domain.TenantID("acme"), msg.Tenant)
	require.Len(t, msg.Documents, 1)
	assert.Equal(t, 1, msg.Stats.DocumentCount)
}

func TestRebuildCompleted(t *testing.T) {
	msg := RebuildCompleted{Status: &domain.BuildStatus{Tenant: "acme", Chunks: 4}}

	require.NotNil(t, msg.Status)
	assert.Equal(t, 4, msg.Status.Chunks)
}
