package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/crowdvault/escrow-backend/internal/escrow/domain"
	"github.com/google/uuid"
)

// JournalRepository appends escrow events to PostgreSQL. The journal is an
// audit side channel: the engine never reads it to answer commands.
type JournalRepository struct {
	db *sql.DB
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Record appends one event row.
func (r *JournalRepository) Record(ctx context.Context, ev domain.Event) error {
	query := `
		INSERT INTO escrow_events (
			id, kind, campaign_id, milestone_id, caller, amount, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var milestoneID sql.NullInt64
	if ev.MilestoneID > 0 {
		milestoneID = sql.NullInt64{Int64: int64(ev.MilestoneID), Valid: true}
	}

	var caller sql.NullString
	if ev.Caller != "" {
		caller = sql.NullString{String: ev.Caller, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		uuid.New().String(),
		ev.Kind,
		ev.CampaignID,
		milestoneID,
		caller,
		ev.Amount,
		ev.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append escrow event: %w", err)
	}
	return nil
}

// CampaignTotals holds per-kind amount sums for one campaign, as recorded in
// the journal. The reconciler compares these against the engine's snapshot.
type CampaignTotals struct {
	CampaignID int64
	Raised     int64
	Released   int64
	Refunded   int64
}

// SumByCampaign aggregates journaled amounts per campaign.
func (r *JournalRepository) SumByCampaign(ctx context.Context) ([]CampaignTotals, error) {
	query := `
		SELECT
			campaign_id,
			COALESCE(SUM(amount) FILTER (WHERE kind = $1), 0) AS raised,
			COALESCE(SUM(amount) FILTER (WHERE kind = $2), 0) AS released,
			COALESCE(SUM(amount) FILTER (WHERE kind = $3), 0) AS refunded
		FROM escrow_events
		GROUP BY campaign_id
		ORDER BY campaign_id
	`

	rows, err := r.db.QueryContext(ctx, query,
		domain.EventContributionReceived,
		domain.EventFundsReleased,
		domain.EventRefundClaimed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate escrow events: %w", err)
	}
	defer rows.Close()

	out := make([]CampaignTotals, 0, 16)
	for rows.Next() {
		var t CampaignTotals
		if err := rows.Scan(&t.CampaignID, &t.Raised, &t.Released, &t.Refunded); err != nil {
			return nil, fmt.Errorf("failed to scan totals: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
