package chunker

import (
	"fmt"
	"strings"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Chunker splits text into fixed-size, overlapping windows measured in runes.
// Boundaries are pure offsets; no tokenization or sentence detection.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) (Chunker, error) {
	if size <= 0 {
		return Chunker{}, fmt.Errorf("chunk size must be positive (got %d)", size)
	}
	if overlap < 0 || overlap >= size {
		return Chunker{}, fmt.Errorf("chunk overlap must be in [0, %d) (got %d)", size, overlap)
	}
	return Chunker{size: size, overlap: overlap}, nil
}

func (c Chunker) Size() int    { return c.size }
func (c Chunker) Overlap() int { return c.overlap }

// Split returns the windows of text. Every window but the last is exactly
// Size runes, consecutive windows share exactly Overlap runes, and a blank
// text yields no windows.
func (c Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	r := []rune(text)
	step := c.size - c.overlap

	out := make([]string, 0, Count(len(r), c.size, c.overlap))
	for start := 0; ; start += step {
		end := start + c.size
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[start:end]))
		if end == len(r) {
			break
		}
	}
	return out
}

// Count is the number of windows Split produces for a text of n runes.
func Count(n, size, overlap int) int {
	if n <= 0 {
		return 0
	}
	if n <= size {
		return 1
	}
	step := size - overlap
	return (n - overlap + step - 1) / step
}
