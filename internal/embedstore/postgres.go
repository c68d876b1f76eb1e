package embedstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DefaultCollection names the rows written when a DSN has no #fragment.
const DefaultCollection = "default"

// PostgresLocation addresses one collection of rows in a pgvector table.
type PostgresLocation struct {
	DSN        string
	Table      string
	Collection string
}

// parsePostgresLocation splits "postgres://...#collection" into DSN and collection.
func parsePostgresLocation(raw, table string) (PostgresLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return PostgresLocation{}, fmt.Errorf("parse postgres dsn: %w", err)
	}
	collection := strings.TrimSpace(u.Fragment)
	if collection == "" {
		collection = DefaultCollection
	}
	u.Fragment = ""
	table = strings.TrimSpace(table)
	if table == "" {
		return PostgresLocation{}, errors.New("postgres table name is empty")
	}
	return PostgresLocation{DSN: u.String(), Table: table, Collection: collection}, nil
}

func connectPostgres(ctx context.Context, loc PostgresLocation) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, loc.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func ensurePostgresSchema(ctx context.Context, pool *pgxpool.Pool, table string) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            collection TEXT NOT NULL,
            row_index  INTEGER NOT NULL,
            path       TEXT NOT NULL,
            embedding  vector NOT NULL,
            PRIMARY KEY (collection, row_index),
            UNIQUE (collection, path)
        )`, pgx.Identifier{table}.Sanitize()),
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
	}
	return nil
}

// LoadPostgres reads one collection in row order.
func LoadPostgres(ctx context.Context, loc PostgresLocation) (*Store, error) {
	pool, err := connectPostgres(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	query := fmt.Sprintf(`SELECT path, embedding FROM %s WHERE collection = $1 ORDER BY row_index`, pgx.Identifier{loc.Table}.Sanitize())
	rows, err := pool.Query(ctx, query, loc.Collection)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	store := &Store{Paths: []string{}}
	for rows.Next() {
		var (
			framePath string
			vec       pgvector.Vector
		)
		if err := rows.Scan(&framePath, &vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		store.Append(framePath, vec.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	if err := store.Validate(); err != nil {
		return nil, err
	}
	return store, nil
}

// SavePostgres replaces the collection with the store contents in one transaction.
func SavePostgres(ctx context.Context, loc PostgresLocation, store *Store) error {
	if err := store.Validate(); err != nil {
		return err
	}
	pool, err := connectPostgres(ctx, loc)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := ensurePostgresSchema(ctx, pool, loc.Table); err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	table := pgx.Identifier{loc.Table}.Sanitize()
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE collection = $1`, table), loc.Collection); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}

	batch := &pgx.Batch{}
	insert := fmt.Sprintf(`INSERT INTO %s (collection, row_index, path, embedding) VALUES ($1, $2, $3, $4)`, table)
	for i, framePath := range store.Paths {
		batch.Queue(insert, loc.Collection, i, framePath, pgvector.NewVector(store.Vectors[i]))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert embeddings: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit embeddings: %w", err)
	}
	return nil
}

// PingPostgres verifies that the database behind loc accepts connections.
func PingPostgres(ctx context.Context, loc PostgresLocation) error {
	pool, err := connectPostgres(ctx, loc)
	if err != nil {
		return err
	}
	pool.Close()
	return nil
}
