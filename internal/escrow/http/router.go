package http

import "github.com/gin-gonic/gin"

// Register registers the escrow routes.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/campaigns", h.CreateCampaign)
	rg.GET("/campaigns", h.ListCampaigns)
	rg.GET("/campaigns/count", h.CampaignCount)
	rg.GET("/campaigns/:id", h.GetCampaign)
	rg.DELETE("/campaigns/:id", h.DeleteCampaign)

	rg.POST("/campaigns/:id/milestones", h.AddMilestone)
	rg.GET("/campaigns/:id/milestones", h.ListMilestones)
	rg.GET("/campaigns/:id/milestones/:milestone_id", h.GetMilestone)
	rg.POST("/campaigns/:id/milestones/:milestone_id/votes", h.VoteMilestone)
	rg.POST("/campaigns/:id/milestones/:milestone_id/release", h.ReleaseFunds)

	rg.POST("/campaigns/:id/contributions", h.Contribute)
	rg.GET("/campaigns/:id/contributions/me", h.LiveBalance)
	rg.GET("/campaigns/:id/contributors/count", h.ContributorCount)
	rg.POST("/campaigns/:id/refund", h.ClaimRefund)
}
