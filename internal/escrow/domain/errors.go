package domain

import "errors"

// Every failed command is a no-op on the store; these are the only reasons a
// command or query refuses to take effect.
var (
	ErrInvalidParameters    = errors.New("invalid parameters")
	ErrNotFound             = errors.New("campaign or milestone not found")
	ErrUnauthorized         = errors.New("caller is not allowed to perform this action")
	ErrCampaignClosed       = errors.New("campaign is closed")
	ErrCampaignStillOpen    = errors.New("campaign is still open")
	ErrMilestoneNotApproved = errors.New("milestone has not been approved by contributors")
	ErrAlreadyReleased      = errors.New("milestone funds already released")
	ErrInsufficientFunds    = errors.New("campaign balance is below the milestone target")
	ErrGoalWasMet           = errors.New("funding goal was met, refunds are not available")
	ErrNothingToRefund      = errors.New("caller has no live contribution to refund")
	ErrCampaignNotEmpty     = errors.New("campaign still holds funds with no refund path")
)
