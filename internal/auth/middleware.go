// Package auth resolves the caller's identity from bearer tokens.
package auth

import (
	"context"
	"net/http"
	"strings"

	"moodchat/infrastructure"
	"moodchat/pkg/jwt"
)

type ctxKey struct{}

// WithUserID returns ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user id, or "" when the request was not
// authenticated.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type Middleware struct {
	tokens *jwt.JWT
}

func NewMiddleware(tokens *jwt.JWT) *Middleware {
	return &Middleware{tokens: tokens}
}

// Authenticate validates the request token. Browsers cannot set headers on
// websocket upgrades, so a token query parameter is accepted as well.
func (m *Middleware) Authenticate(r *http.Request) (string, error) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return "", infrastructure.ErrMissingToken
	}
	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		return "", infrastructure.ErrInvalidToken
	}
	return claims.UserID, nil
}

// Handler rejects requests without a valid token and stores the user id in
// the request context.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.Authenticate(r)
		if err != nil {
			infrastructure.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// ActingUser reconciles the user named in a request with the authenticated
// one. Without authentication the claimed user is trusted.
func ActingUser(ctx context.Context, claimed string) (string, error) {
	identity := UserID(ctx)
	switch {
	case identity == "":
		return claimed, nil
	case claimed == "":
		return identity, nil
	case claimed != identity:
		return "", infrastructure.ErrUnauthorized
	}
	return claimed, nil
}
