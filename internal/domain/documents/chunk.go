package documents

import "github.com/google/uuid"

// Chunk is a contiguous slice of one page's text with its embedding.
// Index is the position within the document and is the stable ordering key.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Page       int       `json:"page"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}

// ScoredChunk is a retrieval hit. Smaller Distance means more relevant.
type ScoredChunk struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float64 `json:"distance"`
}

type Answer struct {
	SummarizedAnswer string `json:"summarizedAnswer"`
	RecommendedPages []int  `json:"recommendedPages"`
}

// NoContentAnswer is returned verbatim when retrieval finds nothing to ground an answer on.
const NoContentAnswer = "No relevant content found in this document."
