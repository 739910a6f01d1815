package main

import (
	"context"
	"log"

	"github.com/crowdvault/escrow-backend/config"
	"github.com/crowdvault/escrow-backend/internal/bootstrap"
	cronjob "github.com/crowdvault/escrow-backend/internal/escrow/cron"
	"github.com/crowdvault/escrow-backend/internal/escrow/repository"
	"github.com/crowdvault/escrow-backend/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	sqlDB, err := bootstrap.OpenSQL(postgres.DSN(&cfg.Database))
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	journal := repository.NewJournalRepository(sqlDB)
	reconciler := cronjob.NewReconciler(journal)

	// Audit once at startup, then nightly.
	reconciler.RunOnce(context.Background())
	reconciler.Start()

	select {}
}
