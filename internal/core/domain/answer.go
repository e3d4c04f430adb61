package domain

// Answer is the output of the answer generator.
type Answer struct {
	// Question is the question as asked.
	Question string `json:"question"`

	// Text is the model's raw answer, trimmed.
	Text string `json:"answer"`

	// Language is the reply language the model was instructed to use.
	Language string `json:"language"`

	// Sources are the chunks given to the model, in rerank order.
	Sources []ScoredChunk `json:"sources"`
}

// AskRequest carries the per-call options of the query pipeline.
type AskRequest struct {
	// Question is the natural-language question.
	Question string

	// K is the retrieval breadth. Zero or less uses the configured default.
	K int

	// TopN is how many reranked chunks reach the generator.
	// Zero or less uses the configured default. Values above K are clamped.
	TopN int

	// Language overrides the configured reply language when set.
	Language string
}
