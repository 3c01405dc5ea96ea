package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// contextKey is a custom type used for storing values in a context without risking collisions.
type contextKey string

// ContextUserID is the key used to store and retrieve the user ID from the request context.
const ContextUserID contextKey = "contextUserID"

// Scheme is the Authorization scheme of the API: "Authorization: Token <value>".
const Scheme = "Token"

// detailResponse mirrors the error body of the real API's authentication layer.
type detailResponse struct {
	Detail string `json:"detail"`
}

// UserIDFromContext returns the authenticated user ID stored by the middleware.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextUserID).(int64)
	return id, ok
}

// CheckTokenMiddleware is an HTTP middleware function that validates the Authorization header of incoming requests.
// It parses the token to extract the user ID and stores it in the request context.
// When required is false, requests without the header pass through anonymously; a header that
// is present must still be valid.
func (i *Issuer) CheckTokenMiddleware(required bool) func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")

			if authHeader == "" {
				if !required {
					h.ServeHTTP(w, r)
					return
				}
				writeErrorResponse(w, "Authentication credentials were not provided.", http.StatusUnauthorized)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != Scheme {
				writeErrorResponse(w, "Invalid token header.", http.StatusUnauthorized)
				return
			}

			claims, err := i.ParseToken(parts[1])
			if err != nil {
				writeErrorResponse(w, "Invalid token.", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextUserID, claims.UserID)
			h.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

// writeErrorResponse writes a JSON-formatted error response to the HTTP response writer.
func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(detailResponse{Detail: errorInfo})
}
