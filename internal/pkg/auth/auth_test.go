package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	token, err := issuer.GenerateToken(42)
	require.NoError(t, err)

	claims, err := issuer.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)

	_, err = NewIssuer("other", time.Hour).ParseToken(token)
	assert.Error(t, err)
}

func TestCheckExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	issuer := NewIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return now.Add(-2 * time.Hour) }
	expired, err := issuer.GenerateToken(1)
	require.NoError(t, err)

	issuer.now = func() time.Time { return now }
	live, err := issuer.GenerateToken(1)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 1}).SignedString([]byte("k"))
	require.NoError(t, err)

	assert.ErrorIs(t, CheckExpiry(expired, now), ErrExpired)
	assert.NoError(t, CheckExpiry(live, now))
	assert.NoError(t, CheckExpiry(noExp, now))
	assert.NoError(t, CheckExpiry("9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b", now))
}

func TestCheckTokenMiddleware(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, err := issuer.GenerateToken(7)
	require.NoError(t, err)

	handler := func(w http.ResponseWriter, r *http.Request) {
		if id, ok := UserIDFromContext(r.Context()); ok {
			assert.Equal(t, int64(7), id)
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	testCases := []struct {
		name     string
		required bool
		header   string
		expected int
	}{
		{name: "valid token", required: true, header: "Token " + token, expected: http.StatusOK},
		{name: "missing header", required: true, header: "", expected: http.StatusUnauthorized},
		{name: "bearer scheme", required: true, header: "Bearer " + token, expected: http.StatusUnauthorized},
		{name: "garbage token", required: true, header: "Token abc", expected: http.StatusUnauthorized},
		{name: "optional anonymous", required: false, header: "", expected: http.StatusNoContent},
		{name: "optional with token", required: false, header: "Token " + token, expected: http.StatusOK},
		{name: "optional invalid token", required: false, header: "Token abc", expected: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/user/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			issuer.CheckTokenMiddleware(tc.required)(http.HandlerFunc(handler)).ServeHTTP(rec, req)
			assert.Equal(t, tc.expected, rec.Code)
		})
	}
}
