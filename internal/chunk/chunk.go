// Package chunk splits parsed source files into retrieval-sized pieces that
// follow syntactic boundaries.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/efebarandurmaz/sherpa/internal/lang"
)

// Chunk is one contiguous slice of a source file. Lines are 1-based and
// inclusive; byte offsets are half-open.
type Chunk struct {
	Path      string        `json:"path"`
	Language  lang.Language `json:"language"`
	Kind      string        `json:"kind"`
	Name      string        `json:"name,omitempty"`
	StartByte int           `json:"start_byte"`
	EndByte   int           `json:"end_byte"`
	StartLine int           `json:"start_line"`
	EndLine   int           `json:"end_line"`
	Content   string        `json:"content"`
}

// Len returns the chunk size in bytes.
func (c Chunk) Len() int { return c.EndByte - c.StartByte }

// Hash returns the hex SHA-256 of the chunk content.
func (c Chunk) Hash() string {
	sum := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(sum[:])
}

// Validate checks the chunk's structural invariants. maxSize <= 0 skips the
// size check.
func (c Chunk) Validate(maxSize int) error {
	switch {
	case c.StartByte < 0 || c.EndByte <= c.StartByte:
		return fmt.Errorf("chunk %s[%d:%d]: empty or inverted range", c.Path, c.StartByte, c.EndByte)
	case len(c.Content) != c.Len():
		return fmt.Errorf("chunk %s[%d:%d]: content length %d does not match range", c.Path, c.StartByte, c.EndByte, len(c.Content))
	case maxSize > 0 && c.Len() > maxSize:
		return fmt.Errorf("chunk %s[%d:%d]: %d bytes exceeds limit %d", c.Path, c.StartByte, c.EndByte, c.Len(), maxSize)
	case !utf8.ValidString(c.Content):
		return fmt.Errorf("chunk %s[%d:%d]: not valid UTF-8", c.Path, c.StartByte, c.EndByte)
	case strings.TrimSpace(c.Content) == "":
		return fmt.Errorf("chunk %s[%d:%d]: whitespace only", c.Path, c.StartByte, c.EndByte)
	case c.StartLine < 1 || c.EndLine < c.StartLine:
		return fmt.Errorf("chunk %s[%d:%d]: bad line range %d-%d", c.Path, c.StartByte, c.EndByte, c.StartLine, c.EndLine)
	}
	return nil
}

// String returns a short description used in logs.
func (c Chunk) String() string {
	if c.Name != "" {
		return fmt.Sprintf("%s:%d-%d %s:%s", c.Path, c.StartLine, c.EndLine, c.Kind, c.Name)
	}
	return fmt.Sprintf("%s:%d-%d %s", c.Path, c.StartLine, c.EndLine, c.Kind)
}
