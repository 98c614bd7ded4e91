package main

import (
	"flag"
	"os"

	"github.com/oggyb/match-engine/internal/config"
	"github.com/oggyb/match-engine/internal/db"
	"github.com/oggyb/match-engine/internal/logger"
)

func main() {
	users := flag.Int("users", 50, "number of demo users to create")
	flag.Parse()

	// Load configuration
	cfg := config.MustLoad()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database, *users, log); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	log.Info("seeding completed", "users", *users)
}
