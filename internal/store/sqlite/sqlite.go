// Package sqlite stores chunks and their embeddings in a local SQLite
// database. Vectors are little-endian float32 blobs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
	"github.com/efebarandurmaz/sherpa/internal/embed"
	"github.com/efebarandurmaz/sherpa/internal/lang"
	"github.com/efebarandurmaz/sherpa/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT NOT NULL,
	collection TEXT NOT NULL,
	path       TEXT NOT NULL,
	language   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	start_byte INTEGER NOT NULL,
	end_byte   INTEGER NOT NULL,
	start_line INTEGER NOT NULL,
	end_line   INTEGER NOT NULL,
	hash       TEXT NOT NULL,
	content    TEXT NOT NULL,
	dimension  INTEGER NOT NULL,
	embedding  BLOB NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_chunks_collection_path ON chunks(collection, path);
`

const upsert = `
INSERT INTO chunks (id, collection, path, language, kind, name, start_byte, end_byte,
	start_line, end_line, hash, content, dimension, embedding)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(collection, id) DO UPDATE SET
	language   = excluded.language,
	kind       = excluded.kind,
	name       = excluded.name,
	start_line = excluded.start_line,
	end_line   = excluded.end_line,
	dimension  = excluded.dimension,
	embedding  = excluded.embedding`

// Store implements store.Store on SQLite.
type Store struct {
	db         *sql.DB
	collection string
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path, collection string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite doesn't support multiple writers well.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if collection == "" {
		collection = store.DefaultCollection
	}
	return &Store{db: db, collection: collection}, nil
}

// StoreChunks writes the whole batch in one transaction.
func (s *Store) StoreChunks(ctx context.Context, chunks []chunk.Chunk, embeddings []embed.Embedding) error {
	if err := store.CheckBatch(chunks, embeddings); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			store.PointID(c), s.collection, c.Path, string(c.Language), c.Kind, c.Name,
			c.StartByte, c.EndByte, c.StartLine, c.EndLine, c.Hash(), c.Content,
			len(embeddings[i]), EncodeVector(embeddings[i]),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Count returns the number of chunks stored for the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, s.collection).Scan(&n)
	return n, err
}

// Load returns the stored chunk and vector for a point id.
func (s *Store) Load(ctx context.Context, id string) (chunk.Chunk, embed.Embedding, error) {
	var (
		c        chunk.Chunk
		language string
		blob     []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT path, language, kind, name, start_byte, end_byte, start_line, end_line, content, embedding
		FROM chunks WHERE collection = ? AND id = ?`, s.collection, id).
		Scan(&c.Path, &language, &c.Kind, &c.Name, &c.StartByte, &c.EndByte, &c.StartLine, &c.EndLine, &c.Content, &blob)
	if err != nil {
		return chunk.Chunk{}, nil, err
	}
	c.Language = lang.Language(language)
	return c, DecodeVector(blob), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EncodeVector converts a vector to a little-endian float32 blob.
func EncodeVector(v embed.Embedding) []byte {
	blob := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(x))
	}
	return blob
}

// DecodeVector converts a blob written by EncodeVector back to a vector.
func DecodeVector(blob []byte) embed.Embedding {
	v := make(embed.Embedding, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v
}

var _ store.Store = (*Store)(nil)
