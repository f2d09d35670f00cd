package app

import (
	"fmt"

	"github.com/yungbote/docqa-backend/internal/modules/docqa"
	"github.com/yungbote/docqa-backend/internal/modules/docqa/extractor"
	"github.com/yungbote/docqa-backend/internal/modules/docqa/fetch"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
	"github.com/yungbote/docqa-backend/internal/platform/vectorstore"
)

type Services struct {
	DocQA *docqa.Service
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, repos Repos, vectors vectorstore.Store) (Services, error) {
	log.Info("Wiring services...")

	mux := &fetch.Mux{HTTP: fetch.NewHTTP(log, cfg.Fetch)}
	if clients.Blob != nil {
		mux.GCS = fetch.NewGCS(clients.Blob, cfg.Fetch.MaxBytes)
	}

	var ocr extractor.OCR
	if clients.OCR != nil {
		ocr = clients.OCR
	}

	prompts, err := docqa.LoadPromptsFromEnv()
	if err != nil {
		return Services{}, fmt.Errorf("load prompts: %w", err)
	}

	deps := docqa.Deps{
		Log:       log,
		Documents: repos.Documents,
		Owners:    repos.Owners,
		Fetcher:   mux,
		Extractor: extractor.New(log, ocr),
		Embedder:  clients.OpenAI,
		Vectors:   vectors,
		Synth:     clients.OpenAI,
		Prompts:   prompts,
	}
	if clients.Cache != nil {
		deps.Cache = clients.Cache
	}

	svc, err := docqa.New(deps, cfg.DocQA)
	if err != nil {
		return Services{}, fmt.Errorf("init docqa service: %w", err)
	}
	return Services{DocQA: svc}, nil
}
