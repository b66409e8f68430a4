package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"socialpulse/internal/middleware"
	"socialpulse/internal/models"
	"socialpulse/internal/services"
	"socialpulse/internal/thread"
)

const perPage = 30

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// respondError 把服务层错误映射为 HTTP 响应
// 审核拦截只返回类别和严重程度，不返回原始分数
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var (
		rejected *services.SubmissionRejected
		failed   *services.SubmissionFailed
		pending  *services.PendingReview
		depth    *thread.DepthExceededError
	)
	switch {
	case errors.As(err, &rejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "content_blocked",
			"category": rejected.Explanation.Category,
			"severity": rejected.Explanation.Severity,
			"reason":   rejected.Explanation.Reason,
		})
	case errors.As(err, &failed):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  "analysis_unavailable",
			"reason": failed.Reason,
		})
	case errors.As(err, &pending):
		c.JSON(http.StatusAccepted, gin.H{
			"status":    "pending_review",
			"review_id": pending.ReviewID,
		})
	case errors.As(err, &depth):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "depth_exceeded",
			"max_depth": depth.Max,
		})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
