package docqa

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	repos "github.com/yungbote/docqa-backend/internal/data/repos/documents"
	"github.com/yungbote/docqa-backend/internal/data/repos/testutil"
	"github.com/yungbote/docqa-backend/internal/data/repos/users"
	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/modules/docqa/extractor"
	"github.com/yungbote/docqa-backend/internal/platform/vectorstore"
)

type fakeFetcher struct {
	data  []byte
	err   error
	calls atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type fakeExtractor struct {
	pages []string
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) (extractor.Result, error) {
	if f.err != nil {
		return extractor.Result{}, f.err
	}
	return extractor.Result{Pages: f.pages, Source: extractor.SourcePDFText}, nil
}

// fakeEmbedder returns fixed vectors for known texts and a hash-derived vector otherwise.
type fakeEmbedder struct {
	mu     sync.Mutex
	dim    int
	fixed  map[string][]float32
	calls  int
	inputs [][]string
	// fail returns an error for a call; nil means success.
	fail func(call int, inputs []string) error
	// dimFor overrides the dimension per input.
	dimFor func(text string) int
	block  chan struct{}
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dim: dim, fixed: map[string][]float32{}}
}

func (f *fakeEmbedder) EmbedModel() string { return "fake-embed" }

func (f *fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.inputs = append(f.inputs, append([]string(nil), inputs...))
	fail := f.fail
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		if err := fail(call, inputs); err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		if v, ok := f.fixed[in]; ok {
			out[i] = v
			continue
		}
		dim := f.dim
		if f.dimFor != nil {
			dim = f.dimFor(in)
		}
		out[i] = hashVector(in, dim)
	}
	return out, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func hashVector(s string, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		h := fnv.New32a()
		fmt.Fprintf(h, "%d:%s", i, s)
		v[i] = float32(h.Sum32()%1000)/1000 + 0.001
	}
	return v
}

type fakeSynth struct {
	mu         sync.Mutex
	calls      int
	lastSystem string
	lastUser   string
	reply      string
	err        error
}

func (f *fakeSynth) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSystem, f.lastUser = system, user
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("upstream status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

// failingStore wraps Memory and fails writes on demand.
type failingStore struct {
	*vectorstore.Memory
	putErr     error
	deleteHits atomic.Int32
}

func (f *failingStore) Put(ctx context.Context, id uuid.UUID, chunks []documents.Chunk) error {
	if f.putErr != nil {
		// simulate a partially applied write before the failure surfaces
		_ = f.Memory.Put(ctx, id, chunks[:len(chunks)/2])
		return f.putErr
	}
	return f.Memory.Put(ctx, id, chunks)
}

func (f *failingStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	f.deleteHits.Add(1)
	return f.Memory.DeleteDocument(ctx, id)
}

type testEnv struct {
	db       *gorm.DB
	svc      *Service
	fetcher  *fakeFetcher
	extract  *fakeExtractor
	embedder *fakeEmbedder
	synth    *fakeSynth
	store    *failingStore
	repo     repos.DocumentRepo
	userID   uuid.UUID
	company  uuid.UUID
}

func newTestEnv(t *testing.T, cfg Config, pages ...string) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	company := uuid.New()
	user := testutil.SeedUser(t, context.Background(), db, &company)

	env := &testEnv{
		db:       db,
		fetcher:  &fakeFetcher{data: []byte("%PDF-1.4 fake")},
		extract:  &fakeExtractor{pages: pages},
		embedder: newFakeEmbedder(4),
		synth:    &fakeSynth{reply: "The torque is 12 Nm [Page 2]."},
		store:    &failingStore{Memory: vectorstore.NewMemory()},
		repo:     repos.NewDocumentRepo(db, log),
		userID:   user.ID,
		company:  company,
	}
	svc, err := New(Deps{
		Log:       log,
		Documents: env.repo,
		Owners:    users.NewOwnerLookup(db, log),
		Fetcher:   env.fetcher,
		Extractor: env.extract,
		Embedder:  env.embedder,
		Vectors:   env.store,
		Synth:     env.synth,
	}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc.pool.sleep = func(ctx context.Context, attempt int) error { return ctx.Err() }
	env.svc = svc
	return env
}

func (e *testEnv) request() IngestRequest {
	return IngestRequest{
		SourceURL:   "https://files.example.com/manual.pdf",
		Title:       "Pump manual",
		Category:    "manuals",
		OwnerUserID: e.userID,
	}
}

func (e *testEnv) countDocuments(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&documents.Document{}).Count(&n).Error; err != nil {
		t.Fatalf("count documents: %v", err)
	}
	return n
}

func (e *testEnv) reload(t *testing.T, id uuid.UUID) *documents.Document {
	t.Helper()
	var d documents.Document
	if err := e.db.Where("id = ?", id).First(&d).Error; err != nil {
		t.Fatalf("reload document: %v", err)
	}
	return &d
}

func smallConfig(size, overlap int) Config {
	cfg := DefaultConfig()
	cfg.ChunkSize = size
	cfg.ChunkOverlap = overlap
	cfg.EmbedBatchSize = 2
	cfg.EmbedConcurrency = 3
	cfg.VectorProvider = "memory"
	return cfg
}

func repeat(s string, n int) string { return strings.Repeat(s, n) }
