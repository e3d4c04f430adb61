// Package vectorindex provides the in-process nearest-neighbour indexes that
// back tenant retrieval.
//
// Two topologies are available:
//   - Flat: exact inner-product scan over every stored vector
//   - HNSW: hierarchical navigable small world graph, approximate
//
// Indexes are built once from a full vector set and never mutated. Search
// is safe for concurrent use. Encode and Decode serialise an index with
// msgpack so it can be persisted next to the chunk list.
package vectorindex
