package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/unipodhq/unipod/internal/store"
)

// userIDKey is the gin context key under which the authenticated user's ID is
// stored by the auth middleware.
const userIDKey = "user_id"

// sessionClaims are the JWT claims issued at login.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// authenticator issues and verifies the HS256 session tokens guarding the API.
type authenticator struct {
	secret []byte
	ttl    time.Duration
}

func newAuthenticator(secret string, ttl time.Duration) *authenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authenticator{secret: []byte(secret), ttl: ttl}
}

// issue signs a session token for u and returns it alongside its expiry.
func (a *authenticator) issue(u *store.User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(a.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: u.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("server: sign token: %w", err)
	}
	return signed, exp, nil
}

// parse validates tokenString and returns its claims.
func (a *authenticator) parse(tokenString string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("server: parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("server: invalid token")
	}
	return claims, nil
}

// middleware rejects requests without a valid bearer token and records the
// caller's user ID in the gin context.
func (a *authenticator) middleware() gin.HandlerFunc {
	const prefix = "Bearer "
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := a.parse(strings.TrimPrefix(header, prefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}
