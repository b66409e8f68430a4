package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"socialpulse/internal/models"
	"socialpulse/internal/services"
	"socialpulse/internal/utils"
)

// AdminHandler 人工审核队列
type AdminHandler struct {
	pipeline *services.Pipeline
	story    *StoryHandler
	log      *zap.Logger
}

func NewAdminHandler(pipeline *services.Pipeline, story *StoryHandler, log *zap.Logger) *AdminHandler {
	return &AdminHandler{pipeline: pipeline, story: story, log: log}
}

// ListReviews GET /api/reviews?status=pending&page=
func (h *AdminHandler) ListReviews(c *gin.Context) {
	status := models.ReviewStatus(c.DefaultQuery("status", string(models.ReviewPending)))
	switch status {
	case models.ReviewPending, models.ReviewApproved, models.ReviewRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown review status"})
		return
	}
	page := utils.ParsePage(c.Query("page"))

	items, err := h.pipeline.ListReviews(c.Request.Context(), status, page, perPage)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": items, "status": status, "page": page})
}

// ApproveReview POST /api/reviews/:id/approve
func (h *AdminHandler) ApproveReview(c *gin.Context) {
	item, err := h.pipeline.ApproveReview(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": h.story.view(item)})
}

// RejectReview POST /api/reviews/:id/reject
func (h *AdminHandler) RejectReview(c *gin.Context) {
	if err := h.pipeline.RejectReview(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
