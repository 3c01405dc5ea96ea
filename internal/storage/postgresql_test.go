package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/security"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPgError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "undefined table", err: &pgconn.PgError{Code: pgerrcode.UndefinedTable}, expected: ErrNotMigrated},
		{name: "connection failure", err: &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, expected: ErrUnavailable},
		{name: "shutdown", err: &pgconn.PgError{Code: pgerrcode.AdminShutdown}, expected: ErrUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyPgError(tc.err), tc.expected)
		})
	}

	other := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	assert.Same(t, other, classifyPgError(other))

	plain := errors.New("plain")
	assert.Equal(t, plain, classifyPgError(plain))
}

// TestPostgreSQL_Session runs against a real server when DATABASE_URI is set.
func TestPostgreSQL_Session(t *testing.T) {
	dsn := os.Getenv("DATABASE_URI")
	if dsn == "" {
		t.Skip("DATABASE_URI is not set")
	}
	ctx := context.Background()

	a, err := NewPostgreSQL(dsn, "test-a", security.NewSealer("secret"), logger.Nop())
	require.NoError(t, err)
	defer a.Close()
	b, err := NewPostgreSQL(dsn, "test-b", security.NewSealer("secret"), logger.Nop())
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.ClearSession(ctx))
	require.NoError(t, b.ClearSession(ctx))

	require.NoError(t, a.SaveToken(ctx, "token-a"))
	require.NoError(t, a.SaveUser(ctx, []byte(`{"id":1}`)))

	sess, err := a.LoadSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "token-a", sess.Token)

	sess, err = b.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)

	require.NoError(t, a.ClearSession(ctx))
	sess, err = a.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}
