package embedstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"slidesift/internal/embedstore"
)

func TestSQLiteSaveReplacesContents(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store", embedstore.SQLiteFileName)

	first := &embedstore.Store{Paths: []string{"a.png", "b.png", "c.png"}, Vectors: [][]float32{{1, 0}, {0, 1}, {1, 1}}}
	if err := embedstore.SaveSQLite(ctx, path, first); err != nil {
		t.Fatalf("SaveSQLite: %v", err)
	}
	second := &embedstore.Store{Paths: []string{"d.png"}, Vectors: [][]float32{{0.25, -0.5}}}
	if err := embedstore.SaveSQLite(ctx, path, second); err != nil {
		t.Fatalf("SaveSQLite second: %v", err)
	}

	loaded, err := embedstore.LoadSQLite(ctx, path)
	if err != nil {
		t.Fatalf("LoadSQLite: %v", err)
	}
	if loaded.Len() != 1 || loaded.Paths[0] != "d.png" || loaded.Vectors[0][1] != -0.5 {
		t.Fatalf("unexpected store %+v", loaded)
	}
}

func TestLoadSQLiteMissingFile(t *testing.T) {
	if _, err := embedstore.LoadSQLite(context.Background(), filepath.Join(t.TempDir(), "nope.db")); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestSQLitePreservesRowOrder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "order.db")
	store := &embedstore.Store{Paths: []string{"z.png", "a.png", "m.png"}, Vectors: [][]float32{{1}, {2}, {3}}}
	if err := embedstore.SaveSQLite(ctx, path, store); err != nil {
		t.Fatalf("SaveSQLite: %v", err)
	}
	loaded, err := embedstore.LoadSQLite(ctx, path)
	if err != nil {
		t.Fatalf("LoadSQLite: %v", err)
	}
	for i, want := range store.Paths {
		if loaded.Paths[i] != want {
			t.Fatalf("row %d = %q, want %q", i, loaded.Paths[i], want)
		}
	}
}
