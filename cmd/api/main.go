package main

import (
	"context"
	"log"

	"github.com/crowdvault/escrow-backend/config"
	"github.com/crowdvault/escrow-backend/internal/bootstrap"
	"github.com/crowdvault/escrow-backend/internal/escrow/repository"
	"github.com/crowdvault/escrow-backend/internal/escrow/service"
	"github.com/crowdvault/escrow-backend/internal/storage/postgres"
	"github.com/crowdvault/escrow-backend/internal/treasury"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()
	dsn := postgres.DSN(&cfg.Database)

	// pgx pool backs health checks; the journal writes through database/sql.
	// Either store being down degrades auditing, never fund custody.
	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: dsn})
	if err != nil {
		log.Printf("db unavailable, health checks degraded: %v", err)
	}

	var journal service.Recorder
	sqlDB, err := bootstrap.OpenSQL(dsn)
	if err != nil {
		log.Printf("journal disabled: %v", err)
	} else {
		defer sqlDB.Close()
		journal = repository.NewJournalRepository(sqlDB)
	}

	var events service.Recorder
	redisClient, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Printf("event publishing disabled: %v", err)
	} else {
		defer redisClient.Close()
		events = repository.NewEventPublisher(redisClient)
	}

	var vault treasury.Treasury
	if cfg.Treasury.BaseURL != "" {
		vault = treasury.NewClient(cfg.Treasury.BaseURL, cfg.Treasury.RateLimit)
	} else {
		log.Println("TREASURY_URL not set, using in-memory vault")
		vault = treasury.NewMemoryVault()
	}

	escrow := service.NewEscrowService(vault, journal, events)

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "escrow-backend",
		Version:     cfg.App.Version,
		Escrow:      escrow,
		DB:          pool,
		RateLimit:   10,
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
