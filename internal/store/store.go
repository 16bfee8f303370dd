// Package store persists chunks with their embeddings. Backends live in
// subpackages; Memory is an in-process implementation.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
	"github.com/efebarandurmaz/sherpa/internal/embed"
)

// DefaultCollection is used when no name can be derived from the root.
const DefaultCollection = "code-sherpa"

// Store persists one batch of chunks. embeddings[i] belongs to chunks[i].
// A failed call may have written part of the batch; callers treat it as
// fatal for the run.
type Store interface {
	StoreChunks(ctx context.Context, chunks []chunk.Chunk, embeddings []embed.Embedding) error
	Close() error
}

// ErrLengthMismatch is returned when chunks and embeddings differ in length.
var ErrLengthMismatch = errors.New("chunks and embeddings count mismatch")

// CheckBatch validates a batch before it is written.
func CheckBatch(chunks []chunk.Chunk, embeddings []embed.Embedding) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks, %d embeddings", ErrLengthMismatch, len(chunks), len(embeddings))
	}
	return nil
}

// pointNamespace scopes chunk ids so they never collide with other
// SHA-1 based UUIDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/efebarandurmaz/sherpa/chunk"))

// PointID returns a stable id for c: the same file range with the same
// content always maps to the same id, so repeated scans overwrite instead
// of duplicating.
func PointID(c chunk.Chunk) string {
	key := fmt.Sprintf("%s:%d:%d:%s", c.Path, c.StartByte, c.EndByte, c.Hash())
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

// CollectionName derives a collection name from the scan root: its base
// name, or DefaultCollection when that is empty or the filesystem root.
func CollectionName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	name := filepath.Base(filepath.Clean(abs))
	if name == "" || name == "." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		return DefaultCollection
	}
	return name
}
