package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptFileName is the YAML file holding user-editable templates.
const PromptFileName = "prompts.yaml"

// PromptStore loads LLM prompt templates from a YAML file mapping prompt
// names to templates. Names missing from the file fall back to the embedded
// defaults.
//
// The file is created lazily on first Load, never in the constructor.
type PromptStore struct {
	mu       sync.RWMutex
	path     string
	cache    map[string]string
	loaded   bool
	initOnce sync.Once
	initErr  error
}

// defaultPrompts contains the embedded templates, also written to the file
// the first time it is needed.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptAnswer: `You are a customer assistant answering questions about the company's documents.
Answer the question using *only* the context below.
If the information is not in the context, say so clearly and do not discuss anything unrelated to the context.
Be clear, concise and precise. Keep answers short.
Reply in {{language}}.

Context:
{{context}}

Question: {{question}}

Answer:`,

	driven.PromptRerank: `You rank passages by how well they answer a search query.

Query: {{query}}

Passages:
{{passages}}

Score every passage from 0 (irrelevant) to 10 (answers the query directly).
Return the {{count}} most relevant passages as JSON and nothing else:
{"ranked": [{"index": <passage number>, "score": <score>}]}`,
}

// DefaultPrompt returns the embedded template for name.
func DefaultPrompt(name string) (string, bool) {
	p, ok := defaultPrompts[name]
	return p, ok
}

// NewPromptStore creates a prompt store backed by <dir>/prompts.yaml.
// If dir is empty, defaults to ~/.ragindex.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	return &PromptStore{
		path:  filepath.Join(dir, PromptFileName),
		cache: make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)

	s.mu.RLock()
	if s.loaded {
		prompt, ok := s.cache[name]
		s.mu.RUnlock()
		return s.resolve(name, prompt, ok)
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		prompts, err := s.readFile()
		if err != nil {
			if p, ok := defaultPrompts[name]; ok {
				return p, nil
			}
			return "", err
		}
		s.cache = prompts
		s.loaded = true
	}

	prompt, ok := s.cache[name]
	return s.resolve(name, prompt, ok)
}

func (s *PromptStore) resolve(name, prompt string, ok bool) (string, error) {
	if ok && strings.TrimSpace(prompt) != "" {
		return prompt, nil
	}
	if p, ok := defaultPrompts[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
}

// Reload clears the prompt cache, forcing a fresh read of the file.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.loaded = false
	s.mu.Unlock()
}

// Path returns the prompt file path.
func (s *PromptStore) Path() string {
	return s.path
}

// initialise writes the default prompts if the file does not exist yet.
func (s *PromptStore) initialise() {
	if _, err := os.Stat(s.path); !errors.Is(err, os.ErrNotExist) {
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	data, err := yaml.Marshal(defaultPrompts)
	if err != nil {
		s.initErr = fmt.Errorf("encode default prompts: %w", err)
		return
	}
	header := "# Prompt templates. Placeholders like {{question}} are replaced verbatim.\n"
	if err := os.WriteFile(s.path, append([]byte(header), data...), 0600); err != nil {
		s.initErr = fmt.Errorf("write default prompts: %w", err)
	}
}

// readFile parses the YAML prompt file (caller must hold the write lock).
func (s *PromptStore) readFile() (map[string]string, error) {
	if s.initErr != nil {
		return nil, s.initErr
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	prompts := make(map[string]string)
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	for k, v := range prompts {
		prompts[k] = strings.TrimSpace(v)
	}
	return prompts, nil
}
