package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/crowdvault/escrow-backend/internal/escrow/domain"
	"github.com/crowdvault/escrow-backend/internal/escrow/service"
	"github.com/crowdvault/escrow-backend/internal/treasury"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newEngine(t *testing.T) (*service.EscrowService, *treasury.MemoryVault, *testClock) {
	t.Helper()
	clock := newTestClock()
	vault := treasury.NewMemoryVault()
	escrow := service.NewEscrowService(vault, nil, nil, service.WithClock(clock.Now))
	return escrow, vault, clock
}

func createCampaign(t *testing.T, escrow *service.EscrowService, owner string, goal int64, days int) int64 {
	t.Helper()
	id, err := escrow.CreateCampaign(context.Background(), &domain.CreateCampaignRequest{
		Owner:        owner,
		Title:        "Solar microgrid",
		Description:  "Village microgrid build-out",
		FundingGoal:  goal,
		DurationDays: days,
	})
	require.NoError(t, err)
	return id
}

func TestCreateCampaign_Validation(t *testing.T) {
	escrow, _, _ := newEngine(t)
	ctx := context.Background()

	t.Run("assigns sequential ids starting at 1", func(t *testing.T) {
		first := createCampaign(t, escrow, "owner", 100, 1)
		second := createCampaign(t, escrow, "owner", 100, 1)
		assert.Equal(t, int64(1), first)
		assert.Equal(t, int64(2), second)
		assert.Equal(t, int64(2), escrow.CampaignCount(ctx))
	})

	t.Run("rejects bad parameters", func(t *testing.T) {
		cases := []domain.CreateCampaignRequest{
			{Owner: "o", Title: "", Description: "d", FundingGoal: 100, DurationDays: 1},
			{Owner: "o", Title: "t", Description: "", FundingGoal: 100, DurationDays: 1},
			{Owner: "o", Title: "t", Description: "d", FundingGoal: 0, DurationDays: 1},
			{Owner: "o", Title: "t", Description: "d", FundingGoal: -5, DurationDays: 1},
			{Owner: "o", Title: "t", Description: "d", FundingGoal: 100, DurationDays: 0},
			{Owner: "", Title: "t", Description: "d", FundingGoal: 100, DurationDays: 1},
		}
		for _, req := range cases {
			_, err := escrow.CreateCampaign(ctx, &req)
			assert.ErrorIs(t, err, domain.ErrInvalidParameters)
		}
	})

	t.Run("unknown campaign is not found", func(t *testing.T) {
		_, err := escrow.GetCampaign(ctx, 99)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestContribute_Accounting(t *testing.T) {
	escrow, vault, clock := newEngine(t)
	ctx := context.Background()
	id := createCampaign(t, escrow, "owner", 100, 1)

	t.Run("total raised tracks the sum of all contributions", func(t *testing.T) {
		require.NoError(t, escrow.Contribute(ctx, id, "alice", 10))
		require.NoError(t, escrow.Contribute(ctx, id, "bob", 25))
		require.NoError(t, escrow.Contribute(ctx, id, "alice", 5))

		c, err := escrow.GetCampaign(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(40), c.TotalRaised)
		assert.Equal(t, int64(40), vault.Held(id))

		balance, err := escrow.LiveBalance(ctx, id, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(15), balance)
	})

	t.Run("contributor count is distinct live addresses", func(t *testing.T) {
		count, err := escrow.ContributorCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("over-funding past the goal is allowed", func(t *testing.T) {
		require.NoError(t, escrow.Contribute(ctx, id, "carol", 500))
		c, err := escrow.GetCampaign(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(540), c.TotalRaised)
		assert.True(t, c.IsOpen)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		assert.ErrorIs(t, escrow.Contribute(ctx, id, "alice", 0), domain.ErrInvalidParameters)
		assert.ErrorIs(t, escrow.Contribute(ctx, id, "alice", -1), domain.ErrInvalidParameters)
	})

	t.Run("closes lazily at the deadline", func(t *testing.T) {
		clock.Advance(24*time.Hour + time.Second)
		assert.ErrorIs(t, escrow.Contribute(ctx, id, "alice", 10), domain.ErrCampaignClosed)

		c, err := escrow.GetCampaign(ctx, id)
		require.NoError(t, err)
		assert.False(t, c.IsOpen)
	})
}

func TestMilestone_Lifecycle(t *testing.T) {
	escrow, vault, _ := newEngine(t)
	ctx := context.Background()

	// Campaign with goal 100, two contributors of 60 each.
	id := createCampaign(t, escrow, "owner", 100, 1)
	require.NoError(t, escrow.Contribute(ctx, id, "alice", 60))
	require.NoError(t, escrow.Contribute(ctx, id, "bob", 60))

	t.Run("only the owner may add milestones", func(t *testing.T) {
		_, err := escrow.AddMilestone(ctx, id, &domain.AddMilestoneRequest{
			Caller: "alice", Description: "phase one", TargetAmount: 50,
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("milestone ids start at 1", func(t *testing.T) {
		mid, err := escrow.AddMilestone(ctx, id, &domain.AddMilestoneRequest{
			Caller: "owner", Description: "phase one", TargetAmount: 50,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, mid)
	})

	t.Run("milestone targets may not exceed the funding goal", func(t *testing.T) {
		_, err := escrow.AddMilestone(ctx, id, &domain.AddMilestoneRequest{
			Caller: "owner", Description: "phase two", TargetAmount: 51,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidParameters)
	})

	t.Run("non-contributors may not vote", func(t *testing.T) {
		err := escrow.VoteMilestone(ctx, id, 1, "mallory", true)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("release before approval fails", func(t *testing.T) {
		err := escrow.ReleaseFunds(ctx, id, 1, "owner")
		assert.ErrorIs(t, err, domain.ErrMilestoneNotApproved)
	})

	t.Run("approval counts a majority of voters", func(t *testing.T) {
		// A lone approving voter is a majority of everyone who voted so far.
		require.NoError(t, escrow.VoteMilestone(ctx, id, 1, "alice", true))

		m, err := escrow.GetMilestone(ctx, id, 1)
		require.NoError(t, err)
		assert.True(t, m.IsCompleted)

		require.NoError(t, escrow.VoteMilestone(ctx, id, 1, "bob", true))
		m, err = escrow.GetMilestone(ctx, id, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, m.VotesFor)
		assert.Equal(t, 0, m.VotesAgainst)
		assert.True(t, m.IsCompleted)
	})

	t.Run("approval is monotonic under later re-votes", func(t *testing.T) {
		require.NoError(t, escrow.VoteMilestone(ctx, id, 1, "bob", false))

		m, err := escrow.GetMilestone(ctx, id, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, m.VotesFor)
		assert.Equal(t, 1, m.VotesAgainst)
		assert.True(t, m.IsCompleted, "crossing the threshold is irreversible")
	})

	t.Run("only the owner releases, exactly once", func(t *testing.T) {
		assert.ErrorIs(t, escrow.ReleaseFunds(ctx, id, 1, "alice"), domain.ErrUnauthorized)

		require.NoError(t, escrow.ReleaseFunds(ctx, id, 1, "owner"))
		assert.Equal(t, int64(50), vault.PaidTo("owner"))

		c, err := escrow.GetCampaign(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(120), c.TotalRaised)
		assert.Equal(t, int64(50), c.TotalReleased)
		assert.Equal(t, int64(70), c.TotalRaised-c.TotalReleased-c.TotalRefunded)

		assert.ErrorIs(t, escrow.ReleaseFunds(ctx, id, 1, "owner"), domain.ErrAlreadyReleased)
		assert.Equal(t, int64(50), vault.PaidTo("owner"), "second release must not double-pay")
	})

	t.Run("voting on a released milestone fails", func(t *testing.T) {
		err := escrow.VoteMilestone(ctx, id, 1, "alice", false)
		assert.ErrorIs(t, err, domain.ErrAlreadyReleased)
	})

	t.Run("unknown milestone is not found", func(t *testing.T) {
		_, err := escrow.GetMilestone(ctx, id, 7)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestVote_OverwritePolicy(t *testing.T) {
	escrow, _, _ := newEngine(t)
	ctx := context.Background()

	id := createCampaign(t, escrow, "owner", 100, 1)
	require.NoError(t, escrow.Contribute(ctx, id, "alice", 10))
	require.NoError(t, escrow.Contribute(ctx, id, "bob", 10))
	require.NoError(t, escrow.Contribute(ctx, id, "carol", 10))

	mid, err := escrow.AddMilestone(ctx, id, &domain.AddMilestoneRequest{
		Caller: "owner", Description: "phase one", TargetAmount: 40,
	})
	require.NoError(t, err)

	require.NoError(t, escrow.VoteMilestone(ctx, id, mid, "alice", false))
	require.NoError(t, escrow.VoteMilestone(ctx, id, mid, "bob", false))

	// Alice flips; the old bucket must shrink as the new one grows.
	require.NoError(t, escrow.VoteMilestone(ctx, id, mid, "alice", true))

	m, err := escrow.GetMilestone(ctx, id, mid)
	require.NoError(t, err)
	assert.Equal(t, 1, m.VotesFor)
	assert.Equal(t, 1, m.VotesAgainst)
	assert.False(t, m.IsCompleted)

	// Carol joins, bob flips: 3 for, 0 against out of 3 voters.
	require.NoError(t, escrow.VoteMilestone(ctx, id, mid, "carol", true))
	require.NoError(t, escrow.VoteMilestone(ctx, id, mid, "bob", true))

	m, err = escrow.GetMilestone(ctx, id, mid)
	require.NoError(t, err)
	assert.Equal(t, 3, m.VotesFor)
	assert.Equal(t, 0, m.VotesAgainst)
	assert.True(t, m.IsCompleted)
}

func TestClaimRefund_GoalFailure(t *testing.T) {
	escrow, vault, clock := newEngine(t)
	ctx := context.Background()

	// Goal 100, only 30 raised.
	id := createCampaign(t, escrow, "owner", 100, 1)
	require.NoError(t, escrow.Contribute(ctx, id, "alice", 30))

	mid, err := escrow.AddMilestone(ctx, id, &domain.AddMilestoneRequest{
		Caller: "owner", Description: "phase one", TargetAmount: 30,
	})
	require.NoError(t, err)

	t.Run("refund while open fails", func(t *testing.T) {
		_, err := escrow.ClaimRefund(ctx, id, "alice")
		assert.ErrorIs(t, err, domain.ErrCampaignStillOpen)
	})

	clock.Advance(25 * time.Hour)

	t.Run("unapproved milestone still cannot release after close", func(t *testing.T) {
		err := escrow.ReleaseFunds(ctx, id, mid, "owner")
		assert.ErrorIs(t, err, domain.ErrMilestoneNotApproved)
	})

	t.Run("refund pays the live balance exactly once", func(t *testing.T) {
		amount, err := escrow.ClaimRefund(ctx, id, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(30), amount)
		assert.Equal(t, int64(30), vault.PaidTo("alice"))

		_, err = escrow.ClaimRefund(ctx, id, "alice")
		assert.ErrorIs(t, err, domain.ErrNothingToRefund)
		assert.Equal(t, int64(30), vault.PaidTo("alice"), "second claim must not double-pay")
	})

	t.Run("refunded contributors drop out of the live count", func(t *testing.T) {
		count, err := escrow.ContributorCount(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, count)

		c, err := escrow.GetCampaign(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(30), c.TotalRaised)
		assert.Equal(t, int64(30), c.TotalRefunded)
	})

	t.Run("strangers have nothing to refund", func(t *testing.T) {
		_, err := escrow.ClaimRefund(ctx, id, "mallory")
		assert.ErrorIs(t, err, domain.ErrNothingToRefund)
	})
}

func TestClaimRefund_GoalMet(t *testing.T) {
	escrow, _, clock := newEngine(t)
	ctx := context.Background()

	id := createCampaign(t, escrow, "owner", 100, 1)
	require.NoError(t, escrow.Contribute(ctx, id, "alice", 120))
	clock.Advance(25 * time.Hour)

	_, err := escrow.ClaimRefund(ctx, id, "alice")
	assert.ErrorIs(t, err, domain.ErrGoalWasMet)
}

func TestDeleteCampaign(t *testing.T) {
	ctx := context.Background()

	t.Run("owner only", func(t *testing.T) {
		escrow, _, _ := newEngine(t)
		id := createCampaign(t, escrow, "owner", 100, 1)
		assert.ErrorIs(t, escrow.DeleteCampaign(ctx, id, "mallory"), domain.ErrUnauthorized)
	})

	t.Run("deletion with met goal and undistributed funds is refused", func(t *testing.T) {
		escrow, _, _ := newEngine(t)
		id := createCampaign(t, escrow, "owner", 100, 1)
		require.NoError(t, escrow.Contribute(ctx, id, "alice", 100))

		assert.ErrorIs(t, escrow.DeleteCampaign(ctx, id, "owner"), domain.ErrCampaignNotEmpty)
	})

	t.Run("deletion closes the campaign and keeps refunds claimable", func(t *testing.T) {
		escrow, vault, _ := newEngine(t)
		id := createCampaign(t, escrow, "owner", 100, 1)
		require.NoError(t, escrow.Contribute(ctx, id, "alice", 30))

		require.NoError(t, escrow.DeleteCampaign(ctx, id, "owner"))

		c, err := escrow.GetCampaign(ctx, id)
		require.NoError(t, err)
		assert.False(t, c.IsOpen)

		assert.ErrorIs(t, escrow.Contribute(ctx, id, "bob", 10), domain.ErrCampaignClosed)
		assert.ErrorIs(t, escrow.DeleteCampaign(ctx, id, "owner"), domain.ErrCampaignClosed)

		amount, err := escrow.ClaimRefund(ctx, id, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(30), amount)
		assert.Equal(t, int64(30), vault.PaidTo("alice"))
	})
}

func TestReleaseFunds_InsufficientBalance(t *testing.T) {
	escrow, _, clock := newEngine(t)
	ctx := context.Background()

	// Goal 100, raised 60 split between two contributors. The milestone
	// target fits the goal, but not what is left once a refund drains the
	// pool below it.
	id := createCampaign(t, escrow, "owner", 100, 1)
	require.NoError(t, escrow.Contribute(ctx, id, "alice", 30))
	require.NoError(t, escrow.Contribute(ctx, id, "bob", 30))

	first, err := escrow.AddMilestone(ctx, id, &domain.AddMilestoneRequest{
		Caller: "owner", Description: "phase one", TargetAmount: 40,
	})
	require.NoError(t, err)
	require.NoError(t, escrow.VoteMilestone(ctx, id, first, "alice", true))
	require.NoError(t, escrow.VoteMilestone(ctx, id, first, "bob", true))

	clock.Advance(25 * time.Hour)

	_, err = escrow.ClaimRefund(ctx, id, "alice")
	require.NoError(t, err)

	// 60 raised, 30 refunded: the approved 40 no longer fits.
	err = escrow.ReleaseFunds(ctx, id, first, "owner")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestTransferFailure_LeavesStateUntouched(t *testing.T) {
	escrow, vault, _ := newEngine(t)
	ctx := context.Background()

	id := createCampaign(t, escrow, "owner", 100, 1)
	require.NoError(t, escrow.Contribute(ctx, id, "alice", 60))
	require.NoError(t, escrow.Contribute(ctx, id, "bob", 60))

	mid, err := escrow.AddMilestone(ctx, id, &domain.AddMilestoneRequest{
		Caller: "owner", Description: "phase one", TargetAmount: 100,
	})
	require.NoError(t, err)
	require.NoError(t, escrow.VoteMilestone(ctx, id, mid, "alice", true))
	require.NoError(t, escrow.VoteMilestone(ctx, id, mid, "bob", true))

	// Drain the vault behind the engine's back so the payout fails.
	require.NoError(t, vault.PayOut(ctx, "drain", 120))

	err = escrow.ReleaseFunds(ctx, id, mid, "owner")
	require.Error(t, err)

	m, err := escrow.GetMilestone(ctx, id, mid)
	require.NoError(t, err)
	assert.False(t, m.FundsReleased, "failed transfer must not mark the milestone released")

	c, err := escrow.GetCampaign(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, c.TotalReleased)
}
