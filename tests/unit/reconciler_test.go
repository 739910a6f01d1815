package unit

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	cronjob "github.com/crowdvault/escrow-backend/internal/escrow/cron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_RunOnce(t *testing.T) {
	t.Run("balanced campaigns report no drift", func(t *testing.T) {
		repo, mock, db := setupJournalRepo(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT`).WillReturnRows(
			sqlmock.NewRows([]string{"campaign_id", "raised", "released", "refunded"}).
				AddRow(1, 120, 50, 0).
				AddRow(2, 30, 0, 30),
		)

		drifted := cronjob.NewReconciler(repo).RunOnce(context.Background())
		assert.Zero(t, drifted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("overspent campaigns are flagged", func(t *testing.T) {
		repo, mock, db := setupJournalRepo(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT`).WillReturnRows(
			sqlmock.NewRows([]string{"campaign_id", "raised", "released", "refunded"}).
				AddRow(1, 30, 30, 30),
		)

		drifted := cronjob.NewReconciler(repo).RunOnce(context.Background())
		assert.Equal(t, 1, drifted)
	})
}
