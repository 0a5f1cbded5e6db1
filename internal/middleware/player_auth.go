package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const ctxPlayerKey contextKey = "player"

// PlayerAuth resolves the player id from a Bearer token. Tokens are issued
// by the external account service; this middleware only verifies the HMAC
// signature and reads the subject claim.
func PlayerAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			playerID, err := parsePlayerToken(raw, secret)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxPlayerKey, playerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parsePlayerToken(raw string, secret []byte) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

// PlayerFromCtx returns the authenticated player id, or uuid.Nil.
func PlayerFromCtx(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxPlayerKey).(uuid.UUID)
	return id
}

// WithPlayer returns a context carrying the given player id.
func WithPlayer(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxPlayerKey, id)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
