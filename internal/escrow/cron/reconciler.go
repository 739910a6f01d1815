package cronjob

import (
	"context"
	"log"
	"time"

	"github.com/crowdvault/escrow-backend/internal/escrow/domain"
	"github.com/crowdvault/escrow-backend/internal/escrow/repository"
	"github.com/robfig/cron/v3"
)

// Reconciler audits the journaled money flow per campaign. It never mutates
// engine state and plays no part in deadline handling; it only reports drift
// so a broken invariant shows up in logs before it shows up in a dispute.
type Reconciler struct {
	journal *repository.JournalRepository
}

func NewReconciler(journal *repository.JournalRepository) *Reconciler {
	return &Reconciler{journal: journal}
}

// Start schedules the nightly audit (12:00 AM).
func (r *Reconciler) Start() {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc("0 0 0 * * *", func() {
		r.RunOnce(context.Background())
	})
	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return
	}

	log.Println("Reconciliation scheduler started (running nightly at 12:00AM)")
	c.Start()
}

// RunOnce audits every campaign recorded in the journal and returns the
// number of campaigns whose totals do not reconcile.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	started := time.Now()
	totals, err := r.journal.SumByCampaign(ctx)
	if err != nil {
		log.Printf("reconcile: aggregate failed: %v", err)
		return 0
	}

	drifted := 0
	for _, t := range totals {
		available := domain.AvailableBalance(t.Raised, t.Released, t.Refunded)
		if available < 0 {
			drifted++
			log.Printf("reconcile: campaign %d out of balance: raised=%d released=%d refunded=%d",
				t.CampaignID, t.Raised, t.Released, t.Refunded)
		}
	}

	log.Printf("reconcile: checked %d campaigns, %d out of balance (%s)",
		len(totals), drifted, time.Since(started).Round(time.Millisecond))
	return drifted
}
