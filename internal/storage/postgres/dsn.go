package postgres

import (
	"fmt"

	"github.com/crowdvault/escrow-backend/config"
)

// DSN builds the connection string both database handles share.
func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name,
	)
}
