package embedstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteFileName is the database created when a directory is given as a SQLite location.
const SQLiteFileName = "embeddings.db"

const sqliteSchema = `CREATE TABLE IF NOT EXISTS frame_embeddings (
    row_index INTEGER PRIMARY KEY,
    path      TEXT NOT NULL UNIQUE,
    dim       INTEGER NOT NULL,
    embedding BLOB NOT NULL
)`

func openSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return db, nil
}

// LoadSQLite reads every row of the database at path in row order.
func LoadSQLite(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat sqlite store: %w", err)
	}
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT path, dim, embedding FROM frame_embeddings ORDER BY row_index`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	store := &Store{Paths: []string{}}
	for rows.Next() {
		var (
			framePath string
			dim       int
			blob      []byte
		)
		if err := rows.Scan(&framePath, &dim, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", framePath, err)
		}
		if len(vec) != dim {
			return nil, fmt.Errorf("decode %s: blob holds %d values, row says %d", framePath, len(vec), dim)
		}
		store.Append(framePath, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	if err := store.Validate(); err != nil {
		return nil, err
	}
	return store, nil
}

// SaveSQLite replaces the contents of the database at path with the store.
func SaveSQLite(ctx context.Context, path string, store *Store) error {
	if err := store.Validate(); err != nil {
		return err
	}
	db, err := openSQLite(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM frame_embeddings`); err != nil {
		return fmt.Errorf("clear embeddings: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO frame_embeddings (row_index, path, dim, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, framePath := range store.Paths {
		if _, err := stmt.ExecContext(ctx, i, framePath, len(store.Vectors[i]), encodeVector(store.Vectors[i])); err != nil {
			return fmt.Errorf("insert %s: %w", framePath, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit embeddings: %w", err)
	}
	return nil
}

// encodeVector stores float32 values little-endian without a length prefix.
func encodeVector(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
