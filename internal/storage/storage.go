// Package storage persists the client session between runs: the authentication token and the
// cached profile of the signed-in user. Both live under fixed keys and are written and cleared
// together. A local SQLite file is the default backend; a PostgreSQL database can be shared by
// several machines, each using its own profile name.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/security"

	"github.com/pressly/goose/v3"
)

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks reciclo/internal/storage Storage

// Persisted keys.
const (
	KeyAuthToken = "authToken"
	KeyUser      = "user"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

var (
	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = errors.New("storage: backend unavailable")
	// ErrNotMigrated indicates the session table is missing.
	ErrNotMigrated = errors.New("storage: session table does not exist")
)

// Session is the persisted client state. User holds the cached profile as JSON and may be nil.
type Session struct {
	Token string
	User  []byte
}

// Storage defines the methods required to persist the client session.
type Storage interface {
	// Close closes the database connection.
	Close()

	// LoadSession returns the persisted session, or nil when no token is stored.
	LoadSession(ctx context.Context) (*Session, error)
	// SaveToken stores the token, replacing any previous one.
	SaveToken(ctx context.Context, token string) error
	// SaveUser stores the cached profile.
	SaveUser(ctx context.Context, user []byte) error
	// ClearSession removes the token and the cached profile in one transaction.
	ClearSession(ctx context.Context) error
}

// queries holds the dialect specific statements of a sqlStore.
type queries struct {
	get    string
	upsert string
	delete string
}

// sqlStore implements Storage on top of database/sql.
type sqlStore struct {
	db      *sql.DB
	q       queries
	args    []any // leading arguments of every statement
	sealer  *security.Sealer
	log     *logger.Logger
	classer func(error) error
}

// Close closes the database connection if it is open.
func (s *sqlStore) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *sqlStore) with(args ...any) []any {
	return append(append([]any{}, s.args...), args...)
}

func (s *sqlStore) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.q.get, s.with(key)...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.log.Sugar().Errorf("Failed to read session key %s: %s", key, err)
		return nil, s.classer(err)
	}
	return value, nil
}

func (s *sqlStore) set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.q.upsert, s.with(key, value)...); err != nil {
		s.log.Sugar().Errorf("Failed to write session key %s: %s", key, err)
		return s.classer(err)
	}
	return nil
}

// LoadSession reads both keys. A token that cannot be opened is treated as absent.
func (s *sqlStore) LoadSession(ctx context.Context) (*Session, error) {
	stored, err := s.get(ctx, KeyAuthToken)
	if err != nil {
		if errors.Is(err, ErrNotMigrated) {
			return nil, nil
		}
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}

	token, err := s.sealer.Open(stored)
	if err != nil {
		s.log.Sugar().Warnf("Discarding unreadable session token: %s", err)
		return nil, nil
	}
	if len(token) == 0 {
		return nil, nil
	}

	user, err := s.get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	return &Session{Token: string(token), User: user}, nil
}

// SaveToken seals and stores the token.
func (s *sqlStore) SaveToken(ctx context.Context, token string) error {
	sealed, err := s.sealer.Seal([]byte(token))
	if err != nil {
		return err
	}
	return s.set(ctx, KeyAuthToken, sealed)
}

// SaveUser stores the cached profile.
func (s *sqlStore) SaveUser(ctx context.Context, user []byte) error {
	return s.set(ctx, KeyUser, user)
}

// ClearSession deletes both keys within a transaction so that neither outlives the other.
func (s *sqlStore) ClearSession(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.classer(err)
	}
	defer tx.Rollback()

	for _, key := range []string{KeyAuthToken, KeyUser} {
		if _, err := tx.ExecContext(ctx, s.q.delete, s.with(key)...); err != nil {
			s.log.Sugar().Errorf("Failed to delete session key %s: %s", key, err)
			return s.classer(err)
		}
	}

	if err = tx.Commit(); err != nil {
		return s.classer(err)
	}
	return nil
}

// migrate applies the embedded migrations of one dialect.
func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("storage: migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}
