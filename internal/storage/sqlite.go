package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/security"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const (
	sqliteGetQuery    = `SELECT value FROM session WHERE key = ?;`
	sqliteUpsertQuery = `INSERT INTO session (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`
	sqliteDeleteQuery = `DELETE FROM session WHERE key = ?;`
)

// SQLite implements the Storage interface using a local SQLite file.
type SQLite struct {
	sqlStore
}

// NewSQLite opens (creating if needed) the SQLite file at dsn and applies migrations.
func NewSQLite(dsn string, sealer *security.Sealer, l *logger.Logger) (*SQLite, error) {
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			l.Sugar().Errorf("Failed to create session directory: %s", err)
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return nil, err
	}
	// a single connection serializes writers and keeps ":memory:" databases alive
	db.SetMaxOpenConns(1)

	const defaultTimeout = 10 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := migrate(ctx, db, goose.DialectSQLite3, "migrations/sqlite"); err != nil {
		l.Sugar().Errorf("Database migration failed: %s", err)
		db.Close()
		return nil, err
	}

	return &SQLite{sqlStore{
		db:      db,
		q:       queries{get: sqliteGetQuery, upsert: sqliteUpsertQuery, delete: sqliteDeleteQuery},
		sealer:  sealer,
		log:     l,
		classer: func(err error) error { return err },
	}}, nil
}
