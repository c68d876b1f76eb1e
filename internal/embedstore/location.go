package embedstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format selects a persistence layout.
type Format string

const (
	FormatFaiss    Format = "faiss"
	FormatSQLite   Format = "sqlite"
	FormatPostgres Format = "postgres"
)

// Location is a resolved store address.
type Location struct {
	Format Format
	// Path is the faiss directory or the SQLite database file.
	Path     string
	Postgres PostgresLocation
}

func (l Location) String() string {
	if l.Format == FormatPostgres {
		return fmt.Sprintf("postgres:%s#%s", l.Postgres.Table, l.Postgres.Collection)
	}
	return fmt.Sprintf("%s:%s", l.Format, l.Path)
}

// ResolveLocation interprets raw as a store address. Postgres DSNs, *.db files,
// and *.index files are recognised by shape; a directory is inspected for an
// existing layout. Otherwise fallback decides, defaulting to faiss.
func ResolveLocation(raw string, fallback Format, table string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("embedstore: empty location")
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		pg, err := parsePostgresLocation(raw, table)
		if err != nil {
			return Location{}, err
		}
		return Location{Format: FormatPostgres, Postgres: pg}, nil
	}

	switch strings.ToLower(filepath.Ext(raw)) {
	case ".db", ".sqlite", ".sqlite3":
		return Location{Format: FormatSQLite, Path: raw}, nil
	case ".index":
		return Location{Format: FormatFaiss, Path: filepath.Dir(raw)}, nil
	}

	if info, err := os.Stat(raw); err == nil && info.IsDir() {
		if fileExists(filepath.Join(raw, IndexFileName)) {
			return Location{Format: FormatFaiss, Path: raw}, nil
		}
		if fileExists(filepath.Join(raw, SQLiteFileName)) {
			return Location{Format: FormatSQLite, Path: filepath.Join(raw, SQLiteFileName)}, nil
		}
	}

	switch fallback {
	case FormatSQLite:
		return Location{Format: FormatSQLite, Path: filepath.Join(raw, SQLiteFileName)}, nil
	case FormatPostgres:
		return Location{}, fmt.Errorf("embedstore: %q is not a postgres dsn", raw)
	default:
		return Location{Format: FormatFaiss, Path: raw}, nil
	}
}

// Load reads the store at loc.
func Load(ctx context.Context, loc Location) (*Store, error) {
	switch loc.Format {
	case FormatFaiss:
		return LoadFaiss(loc.Path)
	case FormatSQLite:
		return LoadSQLite(ctx, loc.Path)
	case FormatPostgres:
		return LoadPostgres(ctx, loc.Postgres)
	default:
		return nil, fmt.Errorf("embedstore: unknown format %q", loc.Format)
	}
}

// Save writes the store to loc, replacing previous contents.
func Save(ctx context.Context, loc Location, store *Store) error {
	switch loc.Format {
	case FormatFaiss:
		return SaveFaiss(loc.Path, store)
	case FormatSQLite:
		return SaveSQLite(ctx, loc.Path, store)
	case FormatPostgres:
		return SavePostgres(ctx, loc.Postgres, store)
	default:
		return fmt.Errorf("embedstore: unknown format %q", loc.Format)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
