// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentSource: Per-tenant document storage (upload, list, open, remove)
//   - Normaliser / NormaliserRegistry: Plain text extraction by MIME type
//   - Embedder: Text to vector, batched
//   - Generator: Prompt to text
//   - Reranker: Second-pass relevance scoring
//   - BlobStore: Byte-oriented durable storage
//   - IndexStore: Per-tenant index snapshot persistence
//   - ConfigStore / PromptStore: Application configuration and prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - CatalogueStore: Build history. Without it, stats omit the last build.
//   - IndexMirror: External search replica. Without it, nothing is mirrored.
//   - TokenVerifier: Bearer token verification. Without it, callers supply
//     the tenant directly.
//   - DocumentWatcher: Change notifications for automatic rebuilds.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
