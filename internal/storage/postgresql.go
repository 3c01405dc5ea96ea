package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/security"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	getQuery    = `SELECT value FROM reciclo.session WHERE profile = $1 AND key = $2;`
	upsertQuery = `INSERT INTO reciclo.session (profile, key, value, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();`
	deleteQuery = `DELETE FROM reciclo.session WHERE profile = $1 AND key = $2;`
)

// DefaultProfile names the session row set when none is configured.
const DefaultProfile = "default"

// PostgreSQL implements the Storage interface using a PostgreSQL database.
type PostgreSQL struct {
	sqlStore
}

// NewPostgreSQL creates a new PostgreSQL instance with the provided connection string and logger.
// It opens the connection, pings the database to ensure connectivity and applies migrations.
// Sessions are stored under profile, so several clients can share one database.
func NewPostgreSQL(configDBString, profile string, sealer *security.Sealer, l *logger.Logger) (*PostgreSQL, error) {
	db, err := sql.Open("pgx", configDBString)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return nil, err
	}

	const defaultTimeout = 10 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		l.Sugar().Errorf("Database ping failed: %s", err)
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := migrate(ctx, db, goose.DialectPostgres, "migrations/postgres"); err != nil {
		l.Sugar().Errorf("Database migration failed: %s", err)
		db.Close()
		return nil, classifyPgError(err)
	}

	if profile == "" {
		profile = DefaultProfile
	}
	return &PostgreSQL{sqlStore{
		db:      db,
		q:       queries{get: getQuery, upsert: upsertQuery, delete: deleteQuery},
		args:    []any{profile},
		sealer:  sealer,
		log:     l,
		classer: classifyPgError,
	}}, nil
}

// classifyPgError maps server error codes to the package's sentinel errors.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgerrcode.UndefinedTable:
		return fmt.Errorf("%w: %v", ErrNotMigrated, err)
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgErr.Code == pgerrcode.CannotConnectNow,
		pgErr.Code == pgerrcode.AdminShutdown,
		pgErr.Code == pgerrcode.TooManyConnections:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
