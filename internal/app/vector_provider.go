package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/docqa-backend/internal/data/db"
	"github.com/yungbote/docqa-backend/internal/observability"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
	"github.com/yungbote/docqa-backend/internal/platform/pgvector"
	"github.com/yungbote/docqa-backend/internal/platform/qdrant"
	"github.com/yungbote/docqa-backend/internal/platform/vectorstore"
)

const (
	VectorProviderMemory   = "memory"
	VectorProviderPgvector = "pgvector"
	VectorProviderQdrant   = "qdrant"
)

var (
	resolveQdrantConfig  = qdrant.ResolveConfigFromEnv
	newQdrantVectorStore = func(ctx context.Context, log *logger.Logger, cfg qdrant.Config) (vectorstore.Store, error) {
		return qdrant.NewVectorStore(ctx, log, cfg)
	}
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidProvider     VectorProviderBootstrapErrorCode = "invalid_provider"
	VectorProviderBootstrapErrorRequiresPostgres    VectorProviderBootstrapErrorCode = "pgvector_requires_postgres"
	VectorProviderBootstrapErrorMissingQdrantURL    VectorProviderBootstrapErrorCode = "missing_qdrant_url"
	VectorProviderBootstrapErrorInvalidQdrantURL    VectorProviderBootstrapErrorCode = "invalid_qdrant_url"
	VectorProviderBootstrapErrorMissingQdrantColl   VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorMissingQdrantVector VectorProviderBootstrapErrorCode = "missing_qdrant_vector_dim"
	VectorProviderBootstrapErrorInvalidQdrantVector VectorProviderBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderBootstrapErrorQdrantConfigFailed  VectorProviderBootstrapErrorCode = "qdrant_config_failed"
	VectorProviderBootstrapErrorDimensionMismatch   VectorProviderBootstrapErrorCode = "dimension_mismatch"
	VectorProviderBootstrapErrorCollectionMismatch  VectorProviderBootstrapErrorCode = "collection_mismatch"
	VectorProviderBootstrapErrorConnectFailed       VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed  VectorProviderBootstrapErrorCode = "provider_init_failed"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorStore builds the configured vector store, wrapped with metrics.
func resolveVectorStore(ctx context.Context, log *logger.Logger, cfg Config, gdb *gorm.DB, driver string) (vectorstore.Store, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.DocQA.VectorProvider))
	metrics := observability.Current()

	fail := func(err error) (vectorstore.Store, error) {
		classified := classifyVectorProviderBootstrapError(provider, err)
		code := vectorProviderBootstrapErrorCode(classified)
		metrics.ObserveVectorStoreBootstrap(provider, "error", string(code))
		log.Error(
			"Vector store provider bootstrap failed",
			"provider", provider,
			"error_code", code,
			"error", classified,
		)
		return nil, classified
	}

	log.Info("Selecting vector store provider", "provider", provider, "db_driver", driver)

	var store vectorstore.Store
	switch provider {
	case VectorProviderMemory:
		log.Warn("in-memory vector store selected; chunks are lost on restart")
		store = vectorstore.NewMemory()

	case VectorProviderPgvector:
		if driver != db.DriverPostgres || gdb == nil {
			return fail(&VectorProviderBootstrapError{
				Code:     VectorProviderBootstrapErrorRequiresPostgres,
				Provider: provider,
				Cause:    fmt.Errorf("pgvector needs DB_DRIVER=postgres (got %q)", driver),
			})
		}
		store = pgvector.New(gdb, log)

	case VectorProviderQdrant:
		qcfg, err := resolveQdrantConfig()
		if err != nil {
			return fail(err)
		}
		if dim := cfg.DocQA.EmbeddingDim; dim > 0 && dim != qcfg.VectorDim {
			return fail(&VectorProviderBootstrapError{
				Code:     VectorProviderBootstrapErrorDimensionMismatch,
				Provider: provider,
				Cause:    fmt.Errorf("EMBEDDING_DIM=%d but QDRANT_VECTOR_DIM=%d", dim, qcfg.VectorDim),
			})
		}
		log.Info(
			"Connecting to qdrant",
			"qdrant_url", qcfg.URL,
			"qdrant_collection", qcfg.Collection,
			"qdrant_vector_dim", qcfg.VectorDim,
		)
		vs, err := newQdrantVectorStore(ctx, log, qcfg)
		if err != nil {
			return fail(err)
		}
		store = vs

	default:
		return fail(&VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported vector provider %q (want memory, pgvector or qdrant)", provider),
		})
	}

	metrics.ObserveVectorStoreBootstrap(provider, "success", "none")
	return instrumentVectorStore(provider, store), nil
}

func classifyVectorProviderBootstrapError(provider string, err error) error {
	var already *VectorProviderBootstrapError
	if errors.As(err, &already) {
		return err
	}
	wrap := func(code VectorProviderBootstrapErrorCode) error {
		return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
	}

	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}

	var opErr *qdrant.OperationError
	if errors.As(err, &opErr) {
		switch opErr.Code {
		case qdrant.OperationErrorTransportFailed, qdrant.OperationErrorTimeout:
			return wrap(VectorProviderBootstrapErrorConnectFailed)
		case qdrant.OperationErrorValidation:
			return wrap(VectorProviderBootstrapErrorCollectionMismatch)
		}
	}

	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "ready check failed") || strings.Contains(errLower, "connection refused") {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(VectorProviderBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(VectorProviderBootstrapErrorMissingQdrantColl)
		case qdrant.ConfigErrorMissingVectorDim:
			return wrap(VectorProviderBootstrapErrorMissingQdrantVector)
		case qdrant.ConfigErrorInvalidVectorDim:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantVector)
		default:
			return wrap(VectorProviderBootstrapErrorQdrantConfigFailed)
		}
	}

	return wrap(VectorProviderBootstrapErrorProviderInitFailed)
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return VectorProviderBootstrapErrorConnectFailed
}
