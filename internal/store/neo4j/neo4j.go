// Package neo4j stores chunks as a graph: (:File)-[:CONTAINS]->(:Chunk),
// with the embedding kept as a property of the chunk node.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
	"github.com/efebarandurmaz/sherpa/internal/embed"
	"github.com/efebarandurmaz/sherpa/internal/store"
)

// DefaultURI is the Bolt address used when none is configured.
const DefaultURI = "neo4j://localhost:7687"

// Chunk ids are only unique within a collection, so every MERGE is keyed
// on the collection too.
const mergeChunks = `
UNWIND $rows AS row
MERGE (f:File {collection: $collection, path: row.path})
SET f.language = row.language
MERGE (c:Chunk {collection: $collection, id: row.id})
SET c.kind       = row.kind,
    c.name       = row.name,
    c.start_byte = row.start_byte,
    c.end_byte   = row.end_byte,
    c.start_line = row.start_line,
    c.end_line   = row.end_line,
    c.content    = row.content,
    c.embedding  = row.embedding
MERGE (f)-[:CONTAINS]->(c)`

// Store implements store.Store using Neo4j.
type Store struct {
	driver     neo4j.DriverWithContext
	collection string
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, uri, username, password, collection string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	if collection == "" {
		collection = store.DefaultCollection
	}
	return &Store{driver: driver, collection: collection}, nil
}

// StoreChunks writes the batch in a single write transaction.
func (s *Store) StoreChunks(ctx context.Context, chunks []chunk.Chunk, embeddings []embed.Embedding) error {
	if err := store.CheckBatch(chunks, embeddings); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	params := Params(s.collection, chunks, embeddings)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, mergeChunks, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("store %d chunks: %w", len(chunks), err)
	}
	return nil
}

// Params builds the query parameters for a batch. Embeddings are passed
// as float64 lists, which is what the driver maps to Cypher lists of floats.
func Params(collection string, chunks []chunk.Chunk, embeddings []embed.Embedding) map[string]any {
	rows := make([]any, len(chunks))
	for i, c := range chunks {
		vec := make([]float64, len(embeddings[i]))
		for j, x := range embeddings[i] {
			vec[j] = float64(x)
		}
		rows[i] = map[string]any{
			"id":         store.PointID(c),
			"path":       c.Path,
			"language":   string(c.Language),
			"kind":       c.Kind,
			"name":       c.Name,
			"start_byte": int64(c.StartByte),
			"end_byte":   int64(c.EndByte),
			"start_line": int64(c.StartLine),
			"end_line":   int64(c.EndLine),
			"content":    c.Content,
			"embedding":  vec,
		}
	}
	return map[string]any{"collection": collection, "rows": rows}
}

func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

var _ store.Store = (*Store)(nil)
