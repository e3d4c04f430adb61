package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Implementations fall back to a built-in default for well-known names.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// Templates use {{name}} placeholders, replaced verbatim.
const (
	// PromptAnswer builds the grounded answer prompt.
	// Placeholders: {{language}}, {{context}}, {{question}}.
	PromptAnswer = "answer"

	// PromptRerank asks the model to score candidate passages.
	// Placeholders: {{query}}, {{passages}}, {{count}}.
	PromptRerank = "rerank"
)
