package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify the acting user. The subject is the actor id used for every
// action; tokens are minted elsewhere (the Discord login flow is not part of
// this service).
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// IssueToken signs an HS256 token for actorID.
func IssueToken(secret []byte, actorID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}
	return token, nil
}

// Middleware
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
			return
		}

		// Extract bearer token
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "invalid authorization header")
			return
		}

		// Only HMAC tokens signed with our secret are accepted
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return a.jwtSecret, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actorFrom returns the authenticated actor id.
func actorFrom(r *http.Request) string {
	if claims, ok := r.Context().Value(claimsKey{}).(*Claims); ok {
		return claims.Subject
	}
	return ""
}
