package socket

import (
	"github.com/google/wire"
	"golang.org/x/time/rate"

	"moodchat/config"
)

// ProvideOptions is a Wire provider function that reads transport limits from config
func ProvideOptions(cfg *config.Config) Options {
	return Options{
		AllowedOrigins: cfg.AllowedOrigins,
		EventRate:      rate.Limit(cfg.EventRate),
		EventBurst:     cfg.EventBurst,
	}
}

var Set = wire.NewSet(ProvideOptions, NewHandler)
