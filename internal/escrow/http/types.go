package http

import (
	"errors"
	"net/http"

	"github.com/crowdvault/escrow-backend/internal/escrow/domain"
)

type createCampaignReq struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	FundingGoal  int64  `json:"funding_goal"`
	DurationDays int    `json:"duration_days"`
}

type addMilestoneReq struct {
	Description  string `json:"description"`
	TargetAmount int64  `json:"target_amount"`
}

type contributeReq struct {
	Amount int64 `json:"amount"`
}

type voteReq struct {
	Approve *bool `json:"approve"`
}

// statusForError maps domain failures to HTTP statuses in one place so every
// handler reports the same way.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidParameters):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrCampaignClosed),
		errors.Is(err, domain.ErrCampaignStillOpen),
		errors.Is(err, domain.ErrMilestoneNotApproved),
		errors.Is(err, domain.ErrAlreadyReleased),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrGoalWasMet),
		errors.Is(err, domain.ErrNothingToRefund),
		errors.Is(err, domain.ErrCampaignNotEmpty):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
