package http

import (
	"net/http"
	"strconv"

	"github.com/crowdvault/escrow-backend/internal/auth"
	"github.com/crowdvault/escrow-backend/internal/escrow/domain"
	"github.com/crowdvault/escrow-backend/internal/escrow/service"
	"github.com/gin-gonic/gin"
)

// Handler exposes the escrow engine's command/query surface over HTTP.
type Handler struct {
	escrow *service.EscrowService
}

// NewHandler creates a new Handler.
func NewHandler(escrow *service.EscrowService) *Handler {
	return &Handler{escrow: escrow}
}

// CreateCampaign opens a new campaign owned by the caller.
func (h *Handler) CreateCampaign(c *gin.Context) {
	var body createCampaignReq
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := h.escrow.CreateCampaign(c.Request.Context(), &domain.CreateCampaignRequest{
		Owner:        auth.CallerAddress(c),
		Title:        body.Title,
		Description:  body.Description,
		FundingGoal:  body.FundingGoal,
		DurationDays: body.DurationDays,
	})
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	campaign, err := h.escrow.GetCampaign(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"campaign": campaign})
}

// GetCampaign returns one campaign snapshot.
func (h *Handler) GetCampaign(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	campaign, err := h.escrow.GetCampaign(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": campaign})
}

// ListCampaigns returns every campaign snapshot.
func (h *Handler) ListCampaigns(c *gin.Context) {
	campaigns, err := h.escrow.ListCampaigns(c.Request.Context())
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// CampaignCount returns the number of campaigns ever created.
func (h *Handler) CampaignCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.escrow.CampaignCount(c.Request.Context())})
}

// DeleteCampaign closes a campaign; owner only.
func (h *Handler) DeleteCampaign(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	if err := h.escrow.DeleteCampaign(c.Request.Context(), id, auth.CallerAddress(c)); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// AddMilestone appends a milestone to the caller's campaign.
func (h *Handler) AddMilestone(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	var body addMilestoneReq
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	milestoneID, err := h.escrow.AddMilestone(c.Request.Context(), id, &domain.AddMilestoneRequest{
		Caller:       auth.CallerAddress(c),
		Description:  body.Description,
		TargetAmount: body.TargetAmount,
	})
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	milestone, err := h.escrow.GetMilestone(c.Request.Context(), id, milestoneID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"milestone": milestone})
}

// GetMilestone returns one milestone snapshot.
func (h *Handler) GetMilestone(c *gin.Context) {
	id, milestoneID, ok := milestoneIDs(c)
	if !ok {
		return
	}

	milestone, err := h.escrow.GetMilestone(c.Request.Context(), id, milestoneID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestone": milestone})
}

// ListMilestones returns every milestone of a campaign.
func (h *Handler) ListMilestones(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	milestones, err := h.escrow.ListMilestones(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestones": milestones})
}

// Contribute records the caller's contribution to an open campaign.
func (h *Handler) Contribute(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	var body contributeReq
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	caller := auth.CallerAddress(c)
	if err := h.escrow.Contribute(c.Request.Context(), id, caller, body.Amount); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	balance, err := h.escrow.LiveBalance(c.Request.Context(), id, caller)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"live_balance": balance})
}

// LiveBalance returns the caller's non-refunded balance for a campaign.
func (h *Handler) LiveBalance(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	balance, err := h.escrow.LiveBalance(c.Request.Context(), id, auth.CallerAddress(c))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"live_balance": balance})
}

// ContributorCount returns the number of distinct live contributors.
func (h *Handler) ContributorCount(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	count, err := h.escrow.ContributorCount(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// VoteMilestone records or overwrites the caller's vote.
func (h *Handler) VoteMilestone(c *gin.Context) {
	id, milestoneID, ok := milestoneIDs(c)
	if !ok {
		return
	}

	var body voteReq
	if err := c.ShouldBindJSON(&body); err != nil || body.Approve == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.escrow.VoteMilestone(c.Request.Context(), id, milestoneID, auth.CallerAddress(c), *body.Approve)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	milestone, err := h.escrow.GetMilestone(c.Request.Context(), id, milestoneID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestone": milestone})
}

// ReleaseFunds pays an approved milestone's target to the owner.
func (h *Handler) ReleaseFunds(c *gin.Context) {
	id, milestoneID, ok := milestoneIDs(c)
	if !ok {
		return
	}

	err := h.escrow.ReleaseFunds(c.Request.Context(), id, milestoneID, auth.CallerAddress(c))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	milestone, err := h.escrow.GetMilestone(c.Request.Context(), id, milestoneID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestone": milestone})
}

// ClaimRefund returns the caller's live balance after a failed campaign.
func (h *Handler) ClaimRefund(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	amount, err := h.escrow.ClaimRefund(c.Request.Context(), id, auth.CallerAddress(c))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refunded": amount})
}

func campaignID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
		return 0, false
	}
	return id, true
}

func milestoneIDs(c *gin.Context) (int64, int, bool) {
	id, ok := campaignID(c)
	if !ok {
		return 0, 0, false
	}
	milestoneID, err := strconv.Atoi(c.Param("milestone_id"))
	if err != nil || milestoneID < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid milestone id"})
		return 0, 0, false
	}
	return id, milestoneID, true
}
