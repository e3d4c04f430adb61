package pdf

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error

	name    string
	args    []string
	content []byte
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	// The input file is the second to last argument.
	if len(args) >= 2 {
		m.content, _ = os.ReadFile(args[len(args)-2])
	}
	return m.output, m.err
}

var fakePDF = []byte("%PDF-1.4 fake pdf content")

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, execRunner{}, normaliser.runner)
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{"application/pdf"}, New().SupportedMIMETypes())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNewWithRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("test output")}
	normaliser := NewWithRunner(runner)
	require.NotNil(t, normaliser)
	assert.Equal(t, runner, normaliser.runner)
}

func TestNormalise_WithMockRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("PDF Title\n\nThis is the content of the PDF.  \n\fPage two\n")}
	normaliser := NewWithRunner(runner)

	text, err := normaliser.Normalise(context.Background(), "document.pdf", fakePDF)
	require.NoError(t, err)

	assert.Equal(t, "PDF Title\n\nThis is the content of the PDF.\n\nPage two", text)
	assert.Equal(t, ToolName, runner.name)
	assert.Equal(t, "-", runner.args[len(runner.args)-1])
	assert.Equal(t, fakePDF, runner.content)
}

func TestNormalise_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("pdftotext crashed")}

	_, err := NewWithRunner(runner).Normalise(context.Background(), "document.pdf", fakePDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Contains(t, err.Error(), "document.pdf")
}

func TestNormalise_ToolMissing(t *testing.T) {
	runner := &mockRunner{err: ErrPDFToolNotFound}

	_, err := NewWithRunner(runner).Normalise(context.Background(), "document.pdf", fakePDF)
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestNormalise_NotAPDF(t *testing.T) {
	runner := &mockRunner{}

	_, err := NewWithRunner(runner).Normalise(context.Background(), "fake.pdf", []byte("hello"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, runner.name, "runner must not be called")
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"form feeds", "one\ftwo\f", "one\n\ntwo"},
		{"trailing blanks", "a  \nb\t\n", "a\nb"},
		{"collapse blank lines", "a\n\n\n\n\nb", "a\n\nb"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, cleanOutput(tc.input))
		})
	}
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

// Integration test - only runs if pdftotext is available.
func TestNormalise_Integration(t *testing.T) {
	if err := CheckAvailable(); err != nil {
		t.Skip("pdftotext not available, skipping integration test")
	}

	_, err := New().Normalise(context.Background(), "broken.pdf", fakePDF)
	assert.Error(t, err, "a truncated pdf must fail extraction")
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
