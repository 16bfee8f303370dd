package neo4j

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
	"github.com/efebarandurmaz/sherpa/internal/embed"
	"github.com/efebarandurmaz/sherpa/internal/lang"
	"github.com/efebarandurmaz/sherpa/internal/store"
)

func TestParams(t *testing.T) {
	c := chunk.Chunk{Path: "a.go", Language: lang.Go, Kind: "function_declaration", Name: "A",
		StartByte: 3, EndByte: 14, StartLine: 2, EndLine: 2, Content: "func A() {}"}

	p := Params("proj", []chunk.Chunk{c}, []embed.Embedding{{0.5, 2}})
	assert.Equal(t, "proj", p["collection"])

	rows, ok := p["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	row, ok := rows[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, store.PointID(c), row["id"])
	assert.Equal(t, "go", row["language"])
	assert.Equal(t, int64(2), row["start_line"])
	assert.Equal(t, []float64{0.5, 2}, row["embedding"])
}

func TestMergeIsScopedToCollection(t *testing.T) {
	assert.Contains(t, mergeChunks, "MERGE (f:File {collection: $collection, path: row.path})")
	assert.Contains(t, mergeChunks, "MERGE (c:Chunk {collection: $collection, id: row.id})")
	assert.NotContains(t, mergeChunks, "MERGE (c:Chunk {id: row.id})")

	c := chunk.Chunk{Path: "a.go", StartByte: 0, EndByte: 11, Content: "func A() {}"}
	a := Params("alpha", []chunk.Chunk{c}, []embed.Embedding{{1}})
	b := Params("beta", []chunk.Chunk{c}, []embed.Embedding{{1}})
	assert.Equal(t, "alpha", a["collection"])
	assert.Equal(t, "beta", b["collection"])
}
