package docqa

import (
	"fmt"

	"github.com/yungbote/docqa-backend/internal/data/repos/documents"
	"github.com/yungbote/docqa-backend/internal/data/repos/users"
	"github.com/yungbote/docqa-backend/internal/modules/docqa/chunker"
	"github.com/yungbote/docqa-backend/internal/modules/docqa/extractor"
	"github.com/yungbote/docqa-backend/internal/modules/docqa/fetch"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
	"github.com/yungbote/docqa-backend/internal/platform/vectorstore"
)

type Deps struct {
	Log       *logger.Logger
	Documents documents.DocumentRepo
	Owners    users.OwnerLookup
	Fetcher   fetch.Fetcher
	Extractor extractor.Extractor
	Embedder  Embedder
	Vectors   vectorstore.Store
	Synth     Synthesizer
	// optional
	Cache   QueryCache
	Prompts *Prompts
}

// Service runs ingestion and question answering for documents.
type Service struct {
	log     *logger.Logger
	cfg     Config
	docs    documents.DocumentRepo
	owners  users.OwnerLookup
	fetcher fetch.Fetcher
	extract extractor.Extractor
	embed   Embedder
	vectors vectorstore.Store
	synth   Synthesizer
	cache   QueryCache
	prompts *Prompts
	chunker chunker.Chunker
	pool    *embedPool
}

func New(deps Deps, cfg Config) (*Service, error) {
	switch {
	case deps.Log == nil:
		return nil, fmt.Errorf("docqa: logger required")
	case deps.Documents == nil:
		return nil, fmt.Errorf("docqa: document repo required")
	case deps.Owners == nil:
		return nil, fmt.Errorf("docqa: owner lookup required")
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("docqa: fetcher required")
	case deps.Extractor == nil:
		return nil, fmt.Errorf("docqa: extractor required")
	case deps.Embedder == nil:
		return nil, fmt.Errorf("docqa: embedder required")
	case deps.Vectors == nil:
		return nil, fmt.Errorf("docqa: vector store required")
	case deps.Synth == nil:
		return nil, fmt.Errorf("docqa: synthesizer required")
	}
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	prompts := deps.Prompts
	if prompts == nil {
		prompts, err = LoadPrompts("")
		if err != nil {
			return nil, err
		}
	}
	log := deps.Log.With("service", "DocQAService")
	return &Service{
		log:     log,
		cfg:     cfg,
		docs:    deps.Documents,
		owners:  deps.Owners,
		fetcher: deps.Fetcher,
		extract: deps.Extractor,
		embed:   deps.Embedder,
		vectors: deps.Vectors,
		synth:   deps.Synth,
		cache:   deps.Cache,
		prompts: prompts,
		chunker: ch,
		pool:    newEmbedPool(log, deps.Embedder, cfg),
	}, nil
}

func (s *Service) Config() Config { return s.cfg }
