package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/domain/users"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

func TestConfigFromEnvBuildsPostgresDSN(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "svc")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_NAME", "docs")
	t.Setenv("POSTGRES_SSLMODE", "")

	cfg := ConfigFromEnv()
	if cfg.Driver != DriverPostgres {
		t.Fatalf("driver: want=%s got=%s", DriverPostgres, cfg.Driver)
	}
	want := "postgres://svc:pw@db.internal:6543/docs?sslmode=disable"
	if cfg.DSN != want {
		t.Fatalf("dsn: want=%s got=%s", want, cfg.DSN)
	}
}

func TestConfigFromEnvPrefersDatabaseURL(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u@h/db")
	if got := ConfigFromEnv().DSN; got != "postgres://u@h/db" {
		t.Fatalf("dsn: got=%s", got)
	}
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	log, _ := logger.New("test")
	svc, err := Open(log, Config{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "docqa.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	if err := AutoMigrateAll(context.Background(), svc.DB(), MigrateOptions{IncludeUsers: true}); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	if !svc.DB().Migrator().HasTable(&documents.Document{}) {
		t.Fatalf("document table missing")
	}
	if !svc.DB().Migrator().HasTable(&users.User{}) {
		t.Fatalf("user table missing")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	log, _ := logger.New("test")
	_, err := Open(log, Config{Driver: "mysql"})
	if err == nil || !strings.Contains(err.Error(), "unsupported DB_DRIVER") {
		t.Fatalf("want unsupported driver error, got=%v", err)
	}
}
