package embedstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"slidesift/internal/embedstore"
)

func TestResolveLocation(t *testing.T) {
	faissDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(faissDir, embedstore.IndexFileName), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	sqliteDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(sqliteDir, embedstore.SQLiteFileName), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	emptyDir := t.TempDir()

	tests := []struct {
		name       string
		raw        string
		fallback   embedstore.Format
		wantFormat embedstore.Format
		wantPath   string
	}{
		{"faiss dir", faissDir, embedstore.FormatSQLite, embedstore.FormatFaiss, faissDir},
		{"sqlite dir", sqliteDir, embedstore.FormatFaiss, embedstore.FormatSQLite, filepath.Join(sqliteDir, embedstore.SQLiteFileName)},
		{"index file", filepath.Join(faissDir, "embeddings.index"), "", embedstore.FormatFaiss, faissDir},
		{"db file", "/tmp/x/store.db", "", embedstore.FormatSQLite, "/tmp/x/store.db"},
		{"empty dir default", emptyDir, "", embedstore.FormatFaiss, emptyDir},
		{"empty dir sqlite", emptyDir, embedstore.FormatSQLite, embedstore.FormatSQLite, filepath.Join(emptyDir, embedstore.SQLiteFileName)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			loc, err := embedstore.ResolveLocation(tc.raw, tc.fallback, "frame_embeddings")
			if err != nil {
				t.Fatalf("ResolveLocation: %v", err)
			}
			if loc.Format != tc.wantFormat || loc.Path != tc.wantPath {
				t.Fatalf("got %+v, want %s at %s", loc, tc.wantFormat, tc.wantPath)
			}
		})
	}
}

func TestResolvePostgresLocation(t *testing.T) {
	loc, err := embedstore.ResolveLocation("postgres://user:pw@db:5432/slides#keynote", "", "frame_embeddings")
	if err != nil {
		t.Fatalf("ResolveLocation: %v", err)
	}
	if loc.Format != embedstore.FormatPostgres {
		t.Fatalf("expected postgres format, got %s", loc.Format)
	}
	if loc.Postgres.Collection != "keynote" || loc.Postgres.DSN != "postgres://user:pw@db:5432/slides" {
		t.Fatalf("unexpected postgres location %+v", loc.Postgres)
	}

	loc, err = embedstore.ResolveLocation("postgresql://db/slides", "", "t")
	if err != nil {
		t.Fatalf("ResolveLocation: %v", err)
	}
	if loc.Postgres.Collection != embedstore.DefaultCollection {
		t.Fatalf("expected default collection, got %q", loc.Postgres.Collection)
	}

	if _, err := embedstore.ResolveLocation("/some/dir", embedstore.FormatPostgres, "t"); err == nil {
		t.Fatal("expected error for non-dsn postgres location")
	}
}

func TestLoadSaveDispatch(t *testing.T) {
	ctx := context.Background()
	store := &embedstore.Store{Paths: []string{"a.png", "b.png"}, Vectors: [][]float32{{1, 2}, {3, 4}}}

	faissLoc := embedstore.Location{Format: embedstore.FormatFaiss, Path: filepath.Join(t.TempDir(), "faiss")}
	sqliteLoc := embedstore.Location{Format: embedstore.FormatSQLite, Path: filepath.Join(t.TempDir(), "e.db")}

	if err := embedstore.Save(ctx, faissLoc, store); err != nil {
		t.Fatalf("Save faiss: %v", err)
	}
	fromFaiss, err := embedstore.Load(ctx, faissLoc)
	if err != nil {
		t.Fatalf("Load faiss: %v", err)
	}
	if err := embedstore.Save(ctx, sqliteLoc, fromFaiss); err != nil {
		t.Fatalf("Save sqlite: %v", err)
	}
	fromSQLite, err := embedstore.Load(ctx, sqliteLoc)
	if err != nil {
		t.Fatalf("Load sqlite: %v", err)
	}
	if fromSQLite.Len() != 2 || fromSQLite.Vectors[1][1] != 4 {
		t.Fatalf("conversion lost data: %+v", fromSQLite)
	}

	if _, err := embedstore.Load(ctx, embedstore.Location{Format: "parquet"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("SLIDESIFT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("SLIDESIFT_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	loc, err := embedstore.ResolveLocation(dsn+"#test_"+filepath.Base(t.TempDir()), "", "slidesift_test_embeddings")
	if err != nil {
		t.Fatalf("ResolveLocation: %v", err)
	}
	store := &embedstore.Store{Paths: []string{"a.png", "b.png"}, Vectors: [][]float32{{1, 0, 0}, {0, 1, 0}}}
	if err := embedstore.Save(ctx, loc, store); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := embedstore.Load(ctx, loc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 2 || loaded.Paths[1] != "b.png" || loaded.Vectors[1][1] != 1 {
		t.Fatalf("unexpected store %+v", loaded)
	}
}
