// Package embedstore holds the ordered (frame path, embedding vector) pairs that
// the clusterer consumes and persists them in three layouts.
//
// The faiss layout (embeddings.index plus metadata.json) is what the external
// embedding generator writes. SQLite (embeddings.db) and PostgreSQL with
// pgvector are alternative stores that the CLI can convert to and from.
package embedstore
