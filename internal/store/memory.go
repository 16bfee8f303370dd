package store

import (
	"context"
	"sync"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
	"github.com/efebarandurmaz/sherpa/internal/embed"
)

// Record is one stored chunk.
type Record struct {
	ID        string
	Chunk     chunk.Chunk
	Embedding embed.Embedding
}

// Memory keeps records in process, keyed by PointID.
type Memory struct {
	mu      sync.Mutex
	records map[string]Record
	order   []string
	calls   int
	closed  bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) StoreChunks(ctx context.Context, chunks []chunk.Chunk, embeddings []embed.Embedding) error {
	if err := CheckBatch(chunks, embeddings); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for i, c := range chunks {
		id := PointID(c)
		if _, ok := m.records[id]; !ok {
			m.order = append(m.order, id)
		}
		m.records[id] = Record{ID: id, Chunk: c, Embedding: embeddings[i]}
	}
	return nil
}

// Records returns stored records in first-insertion order.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out
}

// Calls returns how many times StoreChunks succeeded.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
