package qdrant

import (
	"errors"
	"testing"
	"time"
)

func TestResolveConfigFromEnvValid(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "manuals")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")
	t.Setenv("QDRANT_TIMEOUT_SECONDS", "4")
	t.Setenv("QDRANT_CREATE_COLLECTION", "off")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.URL != "http://qdrant:6333" {
		t.Fatalf("URL: want=%q got=%q", "http://qdrant:6333", cfg.URL)
	}
	if cfg.Collection != "manuals" {
		t.Fatalf("Collection: want=%q got=%q", "manuals", cfg.Collection)
	}
	if cfg.VectorDim != 1536 {
		t.Fatalf("VectorDim: want=%d got=%d", 1536, cfg.VectorDim)
	}
	if cfg.Timeout != 4*time.Second {
		t.Fatalf("Timeout: want=%v got=%v", 4*time.Second, cfg.Timeout)
	}
	if cfg.CreateCollection {
		t.Fatalf("CreateCollection: want=false")
	}
}

func TestResolveConfigFromEnvDefaultsCollection(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("QDRANT_VECTOR_DIM", "8")
	t.Setenv("QDRANT_CREATE_COLLECTION", "")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.Collection != "docqa_chunks" {
		t.Fatalf("Collection: want=%q got=%q", "docqa_chunks", cfg.Collection)
	}
	if !cfg.CreateCollection {
		t.Fatalf("CreateCollection: want=true")
	}
}

func TestResolveConfigFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		url  string
		dim  string
		want ConfigErrorCode
	}{
		{name: "missing url", url: "", dim: "3", want: ConfigErrorMissingURL},
		{name: "relative url", url: "qdrant:6333", dim: "3", want: ConfigErrorInvalidURL},
		{name: "missing dim", url: "http://qdrant:6333", dim: "", want: ConfigErrorMissingVectorDim},
		{name: "bad dim", url: "http://qdrant:6333", dim: "abc", want: ConfigErrorInvalidVectorDim},
		{name: "zero dim", url: "http://qdrant:6333", dim: "0", want: ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.url)
			t.Setenv("QDRANT_COLLECTION", "manuals")
			t.Setenv("QDRANT_VECTOR_DIM", tc.dim)

			_, err := ResolveConfigFromEnv()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
			}
			if cfgErr.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, cfgErr.Code)
			}
		})
	}
}
