package chat

import (
	"log/slog"

	"github.com/google/wire"
	"gorm.io/gorm"

	"moodchat/config"
	"moodchat/internal/presence"
	"moodchat/internal/user"
)

// ProvideOptions is a Wire provider function that reads pipeline options from config
func ProvideOptions(cfg *config.Config) Options {
	return Options{DeliverOnFetch: cfg.DeliverOnFetch}
}

// ProvideRepository is a Wire provider function that selects the message store.
// db is nil when the memory driver is configured.
func ProvideRepository(cfg *config.Config, db *gorm.DB, logger *slog.Logger) (Repository, error) {
	if cfg.StoreDriver == config.StoreDriverMemory || db == nil {
		return NewMemoryRepository(), nil
	}
	repo := NewGormRepository(db, logger)
	if err := repo.Migrate(); err != nil {
		return nil, err
	}
	return repo, nil
}

// ProvideChatService is a Wire provider function that creates a ChatService
func ProvideChatService(repo Repository, registry *presence.Registry, profiles user.Directory, logger *slog.Logger, opts Options) *ChatService {
	return NewChatService(repo, registry, profiles, logger, opts)
}

var Set = wire.NewSet(
	ProvideOptions,
	ProvideRepository,
	ProvideChatService,
	NewSocketHandler,
	NewJSONChatHandler,
)
