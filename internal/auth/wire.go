package auth

import (
	"time"

	"github.com/google/wire"

	"moodchat/config"
	"moodchat/pkg/jwt"
)

const tokenTTL = 24 * time.Hour

// ProvideMiddleware is a Wire provider function that returns nil when no
// JWT secret is configured.
func ProvideMiddleware(cfg *config.Config) *Middleware {
	if !cfg.AuthEnabled() {
		return nil
	}
	return NewMiddleware(jwt.NewJWT(cfg.JWTSecret, tokenTTL))
}

var Set = wire.NewSet(ProvideMiddleware)
