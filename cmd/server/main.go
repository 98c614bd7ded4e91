package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/match-engine/internal/app"
	"github.com/oggyb/match-engine/internal/cache"
	"github.com/oggyb/match-engine/internal/config"
	"github.com/oggyb/match-engine/internal/db"
	"github.com/oggyb/match-engine/internal/logger"
	"github.com/oggyb/match-engine/internal/notify"
	"github.com/oggyb/match-engine/internal/server"
	"github.com/oggyb/match-engine/internal/service/matchapi"
)

func main() {
	cfg := config.MustLoad()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}
	defer redisCache.Close()

	// Notifications leave the request path through the dispatcher
	var sink notify.Notifier = notify.NewRedisNotifier(redisCache.Client)
	if cfg.Notify.Sink == "log" {
		sink = notify.NewLogNotifier(log)
	}
	dispatcher := notify.NewDispatcher(sink, cfg.Notify.QueueSize, log)
	stopDispatcher := dispatcher.Start(cfg.Notify.Workers)

	// Inject logger into app context
	appCtx := app.New(cfg, database, redisCache, dispatcher, log)

	registrars := []server.Registrar{
		matchapi.NewRegistrar(appCtx),
	}

	if cfg.IsDevelopment() {
		if err := db.SeedTestData(database, 50, log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	if err := server.StartGRPCServer(ctx, cfg, log, registrars...); err != nil {
		log.Error("failed to start gRPC server", "err", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stopDispatcher(drainCtx); err != nil {
		log.Warn("notification queue not drained", "err", err, "pending", dispatcher.QueueLen())
	}
}
