package docqa

import "context"

// Embedder turns texts into vectors; out[i] belongs to inputs[i].
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	EmbedModel() string
}

// Synthesizer answers a question from an assembled prompt.
type Synthesizer interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

// QueryCache caches question embeddings. Implementations may be nil.
type QueryCache interface {
	Get(ctx context.Context, model, text string) ([]float32, bool, error)
	Set(ctx context.Context, model, text string, vec []float32) error
}
