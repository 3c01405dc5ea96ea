// Package auth provides functionality for generating and parsing JSON Web Tokens (JWT)
// for user authentication. The stub API signs tokens with an Issuer; the client only peeks at
// the expiry of a stored token to avoid sending one that is known to be dead.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenTTL defines the token expiration duration.
const TokenTTL = time.Hour * 24

// Claims represents the custom JWT claims that include the user ID and standard claims.
// It embeds jwt.RegisteredClaims for standard fields like expiration time.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with an HS256 secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. A non-positive ttl means TokenTTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = TokenTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken creates a new JWT token for a given userID.
// It sets the expiration time based on the issuer's TTL and includes the userID in the claims.
func (i *Issuer) GenerateToken(userID int64) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		UserID: userID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// ParseToken validates the provided JWT token string and parses its claims.
// It returns the Claims if the token is valid, or an error otherwise.
func (i *Issuer) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// ErrExpired is returned by CheckExpiry for a JWT whose exp claim is in the past.
var ErrExpired = errors.New("auth: token expired")

// CheckExpiry inspects token without verifying its signature. Opaque tokens, and JWTs without
// an exp claim, cannot be judged and pass; only a JWT that carries a past exp fails.
func CheckExpiry(token string, now time.Time) error {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return ErrExpired
	}
	return nil
}
