package health

import (
	"log/slog"

	"github.com/google/wire"

	"moodchat/internal/cache"
	"moodchat/internal/chat"
)

// ProvideMonitor is a Wire provider function that checks the message store
// through the chat service and, when configured, the profile cache.
func ProvideMonitor(svc *chat.ChatService, redis *cache.RedisCache, logger *slog.Logger) *Monitor {
	checks := []Check{{Name: "store", Ping: svc.Ping}}
	if redis != nil {
		checks = append(checks, Check{Name: "cache", Ping: redis.Ping})
	}
	return NewMonitor(logger, checks...)
}

var Set = wire.NewSet(ProvideMonitor, NewGRPCServer)
