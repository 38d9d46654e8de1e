// Package auth provides authentication middleware for API key and JWT-based
// access to the HTTP API.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// APIKeyHeader is the request header carrying a static API key.
const APIKeyHeader = "X-API-Key"

// Middleware validates requests with either a static API key or an HS256
// bearer token. An empty key or secret disables that scheme; if both are
// empty, all requests pass.
type Middleware struct {
	apiKey    string
	jwtSecret []byte
}

// New creates the middleware. apiKey and jwtSecret may each be empty.
func New(apiKey, jwtSecret string) *Middleware {
	m := &Middleware{apiKey: apiKey}
	if jwtSecret != "" {
		m.jwtSecret = []byte(jwtSecret)
	}
	return m
}

// Handler wraps next with authentication.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.apiKey == "" && m.jwtSecret == nil {
			next.ServeHTTP(w, r)
			return
		}

		if m.apiKey != "" {
			if key := r.Header.Get(APIKeyHeader); key != "" {
				if subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}
		}

		if m.jwtSecret != nil {
			if token, ok := bearerToken(r); ok {
				if err := m.validateJWT(token); err != nil {
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
		}

		http.Error(w, "authentication required", http.StatusUnauthorized)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

func (m *Middleware) validateJWT(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return err
	}
	if !token.Valid {
		return fmt.Errorf("token invalid")
	}
	return nil
}
