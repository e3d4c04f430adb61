package domain

import "errors"

// Domain errors represent business logic failures.
// Callers match them with errors.Is; adapters and services wrap them with %w.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// It is never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidQuestion indicates an empty or whitespace-only question.
	ErrInvalidQuestion = wrapKind(ErrInvalidInput, "invalid question")

	// ErrNoContent indicates a rebuild found no documents or no chunks.
	ErrNoContent = wrapKind(ErrInvalidInput, "no content")

	// ErrInvalidTenant indicates a tenant identifier that is empty or unsafe.
	ErrInvalidTenant = wrapKind(ErrInvalidInput, "invalid tenant")

	// ErrUnsupportedType indicates a document type no extractor handles.
	ErrUnsupportedType = wrapKind(ErrInvalidInput, "unsupported type")

	// External Service Errors.

	// ErrTransientExternal marks a failure of an external call that may
	// succeed on retry (network error, rate limit, 5xx).
	ErrTransientExternal = errors.New("transient external failure")

	// ErrEmbeddingFailed indicates embedding could not be completed.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrGenerationFailed indicates the language model call failed.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrRerankFailed indicates the reranker could not score the candidates.
	// Unranked candidates are never returned in its place.
	ErrRerankFailed = errors.New("rerank failed")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Pipeline Errors.

	// ErrTenantNotIndexed indicates neither the cache nor durable storage
	// holds an index for the tenant.
	ErrTenantNotIndexed = errors.New("tenant not indexed")

	// ErrBuildFailed indicates a rebuild stage failed.
	// The previously persisted index is left untouched.
	ErrBuildFailed = errors.New("build failed")

	// ErrQueryFailed indicates the retrieve-rerank-generate pipeline failed.
	ErrQueryFailed = errors.New("query failed")

	// ErrStorageFailure indicates a durable read or write failed.
	ErrStorageFailure = errors.New("storage failure")

	// Access Errors.

	// ErrUnauthorized indicates a missing or invalid bearer credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// kindError is a sentinel that also matches its parent kind.
type kindError struct {
	parent error
	msg    string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.parent }

func wrapKind(parent error, msg string) error {
	return &kindError{parent: parent, msg: msg}
}

// ErrorKind is the stable, transport-independent classification of an error.
type ErrorKind string

// Error kinds reported to callers.
const (
	KindInvalidInput     ErrorKind = "invalid_input"
	KindTransientFailure ErrorKind = "transient_external_failure"
	KindTenantNotIndexed ErrorKind = "tenant_not_indexed"
	KindBuildFailed      ErrorKind = "build_failed"
	KindQueryFailed      ErrorKind = "query_failed"
	KindStorageFailure   ErrorKind = "storage_failure"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindForbidden        ErrorKind = "forbidden"
	KindNotFound         ErrorKind = "not_found"
	KindInternal         ErrorKind = "internal"
)

// KindOf classifies err. Order matters: a build that failed because the
// embedding service was unreachable is reported as build_failed, while the
// wrapped cause stays available through errors.Is.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTenantNotIndexed):
		return KindTenantNotIndexed
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrBuildFailed):
		return KindBuildFailed
	case errors.Is(err, ErrQueryFailed):
		return KindQueryFailed
	case errors.Is(err, ErrStorageFailure):
		return KindStorageFailure
	case errors.Is(err, ErrTransientExternal),
		errors.Is(err, ErrEmbeddingFailed),
		errors.Is(err, ErrGenerationFailed),
		errors.Is(err, ErrRerankFailed):
		return KindTransientFailure
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
