package service

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/crowdvault/escrow-backend/internal/escrow/domain"
	"github.com/crowdvault/escrow-backend/internal/treasury"
)

// Recorder receives events for state changes that already took effect.
// Recording is best-effort: a recorder failure never rolls the engine back.
type Recorder interface {
	Record(ctx context.Context, ev domain.Event) error
}

// EscrowService is the authoritative store of campaigns, milestones,
// contributions and votes. Every command runs to completion under a single
// mutex, so the compound check-then-write sequences (threshold check +
// release, balance check + refund) are indivisible and a released-twice or
// refunded-twice outcome cannot occur.
type EscrowService struct {
	mu        sync.Mutex
	campaigns map[int64]*campaignState
	nextID    int64

	treasury treasury.Treasury
	journal  Recorder
	events   Recorder

	now func() time.Time
}

type campaignState struct {
	id          int64
	owner       string
	title       string
	description string
	fundingGoal int64
	deadline    time.Time
	createdAt   time.Time
	deleted     bool

	totalRaised   int64
	totalReleased int64
	totalRefunded int64

	milestones    []*milestoneState
	balances      map[string]int64 // live (non-refunded) balance per contributor
	contributions []domain.Contribution
}

type milestoneState struct {
	description string
	target      int64
	completed   bool
	released    bool
	votes       map[string]bool // last choice per voter
}

// Option tweaks service construction; used by tests to pin the clock.
type Option func(*EscrowService)

// WithClock replaces the wall clock. Deadlines are always evaluated against
// this clock at command/query time.
func WithClock(now func() time.Time) Option {
	return func(s *EscrowService) { s.now = now }
}

// NewEscrowService creates the engine. journal and events may be nil; both
// are side channels, never consulted for state.
func NewEscrowService(t treasury.Treasury, journal, events Recorder, opts ...Option) *EscrowService {
	s := &EscrowService{
		campaigns: make(map[int64]*campaignState),
		treasury:  t,
		journal:   journal,
		events:    events,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCampaign registers a new open campaign and returns its id. IDs are
// sequential and never reused.
func (s *EscrowService) CreateCampaign(ctx context.Context, req *domain.CreateCampaignRequest) (int64, error) {
	if strings.TrimSpace(req.Owner) == "" ||
		strings.TrimSpace(req.Title) == "" ||
		strings.TrimSpace(req.Description) == "" ||
		req.FundingGoal <= 0 || req.DurationDays <= 0 {
		return 0, domain.ErrInvalidParameters
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	s.nextID++
	cs := &campaignState{
		id:          s.nextID,
		owner:       req.Owner,
		title:       strings.TrimSpace(req.Title),
		description: req.Description,
		fundingGoal: req.FundingGoal,
		deadline:    now.Add(time.Duration(req.DurationDays) * 24 * time.Hour),
		createdAt:   now,
		balances:    make(map[string]int64),
	}
	s.campaigns[cs.id] = cs

	s.record(ctx, domain.Event{
		Kind:       domain.EventCampaignCreated,
		CampaignID: cs.id,
		Caller:     cs.owner,
		Amount:     cs.fundingGoal,
		OccurredAt: now,
	})
	return cs.id, nil
}

// GetCampaign returns a snapshot with is_open recomputed against the clock.
func (s *EscrowService) GetCampaign(_ context.Context, id int64) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := cs.snapshot(s.now().UTC())
	return &c, nil
}

// ListCampaigns returns snapshots of every campaign, oldest first.
func (s *EscrowService) ListCampaigns(_ context.Context) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	out := make([]domain.Campaign, 0, len(s.campaigns))
	for id := int64(1); id <= s.nextID; id++ {
		if cs, ok := s.campaigns[id]; ok {
			out = append(out, cs.snapshot(now))
		}
	}
	return out, nil
}

// CampaignCount returns the number of campaigns ever created, which is also
// the highest campaign id.
func (s *EscrowService) CampaignCount(_ context.Context) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}

// DeleteCampaign closes a campaign ahead of its deadline. Only the owner may
// delete, and never in a way that strands funds: if value remains in escrow
// and the goal was met, the contributors have no refund path and deletion is
// refused. Contribution records survive so remaining funds stay refundable.
func (s *EscrowService) DeleteCampaign(ctx context.Context, id int64, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.campaigns[id]
	if !ok {
		return domain.ErrNotFound
	}
	if caller != cs.owner {
		return domain.ErrUnauthorized
	}
	if cs.deleted {
		return domain.ErrCampaignClosed
	}
	available := domain.AvailableBalance(cs.totalRaised, cs.totalReleased, cs.totalRefunded)
	if available > 0 && cs.totalRaised >= cs.fundingGoal {
		return domain.ErrCampaignNotEmpty
	}

	cs.deleted = true

	s.record(ctx, domain.Event{
		Kind:       domain.EventCampaignDeleted,
		CampaignID: id,
		Caller:     caller,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// AddMilestone appends a milestone to an open campaign. The sum of all
// milestone targets may never exceed the funding goal, so the owner cannot
// commit funds that were never pledged.
func (s *EscrowService) AddMilestone(ctx context.Context, campaignID int64, req *domain.AddMilestoneRequest) (int, error) {
	if strings.TrimSpace(req.Description) == "" || req.TargetAmount <= 0 {
		return 0, domain.ErrInvalidParameters
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.campaigns[campaignID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if req.Caller != cs.owner {
		return 0, domain.ErrUnauthorized
	}
	now := s.now().UTC()
	if !domain.OpenAt(cs.deadline, cs.deleted, now) {
		return 0, domain.ErrCampaignClosed
	}

	var committed int64
	for _, ms := range cs.milestones {
		committed += ms.target
	}
	if committed+req.TargetAmount > cs.fundingGoal {
		return 0, domain.ErrInvalidParameters
	}

	cs.milestones = append(cs.milestones, &milestoneState{
		description: strings.TrimSpace(req.Description),
		target:      req.TargetAmount,
		votes:       make(map[string]bool),
	})
	milestoneID := len(cs.milestones)

	s.record(ctx, domain.Event{
		Kind:        domain.EventMilestoneAdded,
		CampaignID:  campaignID,
		MilestoneID: milestoneID,
		Caller:      req.Caller,
		Amount:      req.TargetAmount,
		OccurredAt:  now,
	})
	return milestoneID, nil
}

// GetMilestone returns a snapshot of one milestone.
func (s *EscrowService) GetMilestone(_ context.Context, campaignID int64, milestoneID int) (*domain.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ms, err := s.lookupMilestone(campaignID, milestoneID)
	if err != nil {
		return nil, err
	}
	m := ms.snapshot(cs.id, milestoneID)
	return &m, nil
}

// ListMilestones returns every milestone of a campaign in order.
func (s *EscrowService) ListMilestones(_ context.Context, campaignID int64) ([]domain.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.campaigns[campaignID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.Milestone, 0, len(cs.milestones))
	for i, ms := range cs.milestones {
		out = append(out, ms.snapshot(cs.id, i+1))
	}
	return out, nil
}

// Contribute records value the substrate already moved into escrow. The
// caller's live balance and the campaign total grow together; over-funding
// past the goal is allowed.
func (s *EscrowService) Contribute(ctx context.Context, campaignID int64, caller string, amount int64) error {
	if strings.TrimSpace(caller) == "" || amount <= 0 {
		return domain.ErrInvalidParameters
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.campaigns[campaignID]
	if !ok {
		return domain.ErrNotFound
	}
	now := s.now().UTC()
	if !domain.OpenAt(cs.deadline, cs.deleted, now) {
		return domain.ErrCampaignClosed
	}

	if err := s.treasury.EscrowIn(ctx, campaignID, amount); err != nil {
		return err
	}

	cs.totalRaised += amount
	cs.balances[caller] += amount
	cs.contributions = append(cs.contributions, domain.Contribution{
		CampaignID:  campaignID,
		Contributor: caller,
		Amount:      amount,
		CreatedAt:   now,
	})

	s.record(ctx, domain.Event{
		Kind:       domain.EventContributionReceived,
		CampaignID: campaignID,
		Caller:     caller,
		Amount:     amount,
		OccurredAt: now,
	})
	return nil
}

// ContributorCount returns the number of distinct addresses with a nonzero
// live contribution.
func (s *EscrowService) ContributorCount(_ context.Context, campaignID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.campaigns[campaignID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	count := 0
	for _, balance := range cs.balances {
		if balance > 0 {
			count++
		}
	}
	return count, nil
}

// LiveBalance returns the caller's non-refunded contribution balance.
func (s *EscrowService) LiveBalance(_ context.Context, campaignID int64, caller string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.campaigns[campaignID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return cs.balances[caller], nil
}

// VoteMilestone records or overwrites the caller's vote on a milestone.
// Tallies are recomputed from the per-voter choice map, and approval is
// monotonic: once the threshold is crossed the milestone stays approved even
// if later votes would un-cross it.
func (s *EscrowService) VoteMilestone(ctx context.Context, campaignID int64, milestoneID int, caller string, approve bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ms, err := s.lookupMilestone(campaignID, milestoneID)
	if err != nil {
		return err
	}
	if cs.balances[caller] <= 0 {
		return domain.ErrUnauthorized
	}
	if ms.released {
		return domain.ErrAlreadyReleased
	}

	ms.votes[caller] = approve
	votesFor, votesAgainst := domain.Tally(ms.votes)

	now := s.now().UTC()
	s.record(ctx, domain.Event{
		Kind:        domain.EventVoteCast,
		CampaignID:  campaignID,
		MilestoneID: milestoneID,
		Caller:      caller,
		OccurredAt:  now,
	})

	if !ms.completed && domain.ApprovalReached(votesFor, votesAgainst) {
		ms.completed = true
		s.record(ctx, domain.Event{
			Kind:        domain.EventMilestoneApproved,
			CampaignID:  campaignID,
			MilestoneID: milestoneID,
			OccurredAt:  now,
		})
	}
	return nil
}

// ReleaseFunds pays a completed milestone's target to the owner. The released
// flag is checked and set under the same lock that performs the payout, so a
// second release attempt fails instead of double-paying. A transfer failure
// leaves the milestone unreleased.
func (s *EscrowService) ReleaseFunds(ctx context.Context, campaignID int64, milestoneID int, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ms, err := s.lookupMilestone(campaignID, milestoneID)
	if err != nil {
		return err
	}
	if caller != cs.owner {
		return domain.ErrUnauthorized
	}
	if !ms.completed {
		return domain.ErrMilestoneNotApproved
	}
	if ms.released {
		return domain.ErrAlreadyReleased
	}
	if domain.AvailableBalance(cs.totalRaised, cs.totalReleased, cs.totalRefunded) < ms.target {
		return domain.ErrInsufficientFunds
	}

	if err := s.treasury.PayOut(ctx, cs.owner, ms.target); err != nil {
		return err
	}

	ms.released = true
	cs.totalReleased += ms.target

	s.record(ctx, domain.Event{
		Kind:        domain.EventFundsReleased,
		CampaignID:  campaignID,
		MilestoneID: milestoneID,
		Caller:      caller,
		Amount:      ms.target,
		OccurredAt:  s.now().UTC(),
	})
	return nil
}

// ClaimRefund returns the caller's live balance after a campaign closed short
// of its goal. Zeroing the balance is the double-refund guard: the second
// attempt finds nothing left to refund.
func (s *EscrowService) ClaimRefund(ctx context.Context, campaignID int64, caller string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.campaigns[campaignID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	now := s.now().UTC()
	if domain.OpenAt(cs.deadline, cs.deleted, now) {
		return 0, domain.ErrCampaignStillOpen
	}
	if cs.totalRaised >= cs.fundingGoal {
		return 0, domain.ErrGoalWasMet
	}
	amount := cs.balances[caller]
	if amount <= 0 {
		return 0, domain.ErrNothingToRefund
	}

	if err := s.treasury.PayOut(ctx, caller, amount); err != nil {
		return 0, err
	}

	cs.balances[caller] = 0
	cs.totalRefunded += amount
	for i := range cs.contributions {
		if cs.contributions[i].Contributor == caller {
			cs.contributions[i].Refunded = true
		}
	}

	s.record(ctx, domain.Event{
		Kind:       domain.EventRefundClaimed,
		CampaignID: campaignID,
		Caller:     caller,
		Amount:     amount,
		OccurredAt: now,
	})
	return amount, nil
}

func (s *EscrowService) lookupMilestone(campaignID int64, milestoneID int) (*campaignState, *milestoneState, error) {
	cs, ok := s.campaigns[campaignID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	if milestoneID < 1 || milestoneID > len(cs.milestones) {
		return nil, nil, domain.ErrNotFound
	}
	return cs, cs.milestones[milestoneID-1], nil
}

// record fans an event out to the journal and the publisher. Both are side
// channels; failures are logged and the command still counts as committed.
func (s *EscrowService) record(ctx context.Context, ev domain.Event) {
	if s.journal != nil {
		if err := s.journal.Record(ctx, ev); err != nil {
			log.Printf("escrow: journal %s for campaign %d failed: %v", ev.Kind, ev.CampaignID, err)
		}
	}
	if s.events != nil {
		if err := s.events.Record(ctx, ev); err != nil {
			log.Printf("escrow: publish %s for campaign %d failed: %v", ev.Kind, ev.CampaignID, err)
		}
	}
}

func (cs *campaignState) snapshot(now time.Time) domain.Campaign {
	return domain.Campaign{
		ID:             cs.id,
		Owner:          cs.owner,
		Title:          cs.title,
		Description:    cs.description,
		FundingGoal:    cs.fundingGoal,
		Deadline:       cs.deadline,
		TotalRaised:    cs.totalRaised,
		TotalReleased:  cs.totalReleased,
		TotalRefunded:  cs.totalRefunded,
		IsOpen:         domain.OpenAt(cs.deadline, cs.deleted, now),
		MilestoneCount: len(cs.milestones),
		CreatedAt:      cs.createdAt,
	}
}

func (ms *milestoneState) snapshot(campaignID int64, milestoneID int) domain.Milestone {
	votesFor, votesAgainst := domain.Tally(ms.votes)
	return domain.Milestone{
		CampaignID:    campaignID,
		ID:            milestoneID,
		Description:   ms.description,
		TargetAmount:  ms.target,
		IsCompleted:   ms.completed,
		FundsReleased: ms.released,
		VotesFor:      votesFor,
		VotesAgainst:  votesAgainst,
	}
}
