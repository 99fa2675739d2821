package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// The /internal endpoints handle text containing real personal data, so
// they sit behind HS256 bearer tokens even on trusted networks. The
// public /api/v1 surface only ever carries pseudonymized text.

var errInvalidToken = errors.New("invalid token")

// extractBearerToken extracts the token from a Bearer Authorization header.
// Returns the token string and true if successful, or empty string and false if not.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

// validateToken verifies an HS256 token against the shared secret,
// including expiry when an exp claim is present.
func validateToken(tokenString, secret string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if !token.Valid {
		return errInvalidToken
	}
	return nil
}

// jwtAuth is a middleware that validates Bearer tokens in the
// Authorization header. If invalid or missing, returns 401.
func jwtAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "Authorization header required")
				return
			}

			if err := validateToken(tokenString, secret); err != nil {
				WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
