// Package rerank provides the reranking strategies applied between
// retrieval and answer generation.
//
//   - LLM scores candidates with the generative model and fails closed
//   - Lexical scores candidates locally with BM25 over the candidate set
//   - None keeps retrieval order
//
// Every strategy returns at most topN of its inputs, best first, with the
// chunk content untouched and Score replaced by the strategy's own score.
// Equal scores keep their retrieval order.
package rerank
