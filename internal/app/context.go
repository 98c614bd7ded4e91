package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/match-engine/internal/cache"
	"github.com/oggyb/match-engine/internal/config"
	"github.com/oggyb/match-engine/internal/notify"
)

// AppContext holds shared dependencies (config, DB, Redis, notifier, logger)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Notifier   notify.Notifier
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, notifier notify.Notifier, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Notifier:   notifier,
		Logger:     logger,
	}
}
