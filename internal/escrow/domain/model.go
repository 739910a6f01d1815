package domain

import "time"

// All monetary amounts are integer smallest units. Amounts never go through
// floating point anywhere in the engine.

// Campaign is a snapshot of a single fundraising effort.
type Campaign struct {
	ID             int64     `json:"id"`
	Owner          string    `json:"owner"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	FundingGoal    int64     `json:"funding_goal"`
	Deadline       time.Time `json:"deadline"`
	TotalRaised    int64     `json:"total_raised"`
	TotalReleased  int64     `json:"total_released"`
	TotalRefunded  int64     `json:"total_refunded"`
	IsOpen         bool      `json:"is_open"`
	MilestoneCount int       `json:"milestone_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Milestone is a snapshot of one approval-gated portion of a campaign's funds.
// Milestone IDs are sequential within their campaign, starting at 1.
type Milestone struct {
	CampaignID    int64  `json:"campaign_id"`
	ID            int    `json:"id"`
	Description   string `json:"description"`
	TargetAmount  int64  `json:"target_amount"`
	IsCompleted   bool   `json:"is_completed"`
	FundsReleased bool   `json:"funds_released"`
	VotesFor      int    `json:"votes_for"`
	VotesAgainst  int    `json:"votes_against"`
}

// Contribution is one ledger entry. Repeat contributions from the same
// address accumulate into the address's live balance.
type Contribution struct {
	CampaignID  int64     `json:"campaign_id"`
	Contributor string    `json:"contributor"`
	Amount      int64     `json:"amount"`
	Refunded    bool      `json:"refunded"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateCampaignRequest carries the immutable attributes of a new campaign.
type CreateCampaignRequest struct {
	Owner        string
	Title        string
	Description  string
	FundingGoal  int64
	DurationDays int
}

// AddMilestoneRequest carries the immutable attributes of a new milestone.
type AddMilestoneRequest struct {
	Caller       string
	Description  string
	TargetAmount int64
}
