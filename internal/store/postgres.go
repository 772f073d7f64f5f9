package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS dogs (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT      NOT NULL,
		name_key    TEXT      NOT NULL,
		breed       TEXT      NOT NULL DEFAULT '',
		image_ref   TEXT      NOT NULL DEFAULT '',
		is_favorite BOOLEAN   NOT NULL DEFAULT FALSE,
		created_at  BIGINT    NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dogs_name_key_idx ON dogs (name_key)`,
}

// NewPostgresStore opens a Postgres-backed store using pgx through database/sql
// and applies the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("open postgres: empty dsn")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s, err := newSQLStore(ctx, db, dialect{
		name:              "postgres",
		schema:            postgresSchema,
		numberedParams:    true,
		isUniqueViolation: isPostgresUniqueViolation,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func isPostgresUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation
}
