package domain

import "time"

// Event kinds recorded by the journal and published to subscribers.
const (
	EventCampaignCreated      = "campaign_created"
	EventCampaignDeleted      = "campaign_deleted"
	EventMilestoneAdded       = "milestone_added"
	EventContributionReceived = "contribution_received"
	EventVoteCast             = "vote_cast"
	EventMilestoneApproved    = "milestone_approved"
	EventFundsReleased        = "funds_released"
	EventRefundClaimed        = "refund_claimed"
)

// Event describes one state change that already took effect on the engine.
// MilestoneID is zero for campaign-level events, Amount for non-monetary ones.
type Event struct {
	Kind        string    `json:"kind"`
	CampaignID  int64     `json:"campaign_id"`
	MilestoneID int       `json:"milestone_id,omitempty"`
	Caller      string    `json:"caller,omitempty"`
	Amount      int64     `json:"amount,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
