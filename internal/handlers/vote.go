package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"socialpulse/internal/models"
	"socialpulse/internal/services"
)

type VoteHandler struct {
	ledger *services.VoteLedger
	log    *zap.Logger
}

func NewVoteHandler(ledger *services.VoteLedger, log *zap.Logger) *VoteHandler {
	return &VoteHandler{ledger: ledger, log: log}
}

// Vote POST /api/votes，返回投票后的汇总
func (h *VoteHandler) Vote(c *gin.Context) {
	var in services.VoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	in.UserID = currentUser(c).ID

	summary, err := h.ledger.CastAndSummarize(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Summary GET /api/votes/:type/:id
func (h *VoteHandler) Summary(c *gin.Context) {
	kind := models.ContentKind(c.Param("type"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown target type"})
		return
	}
	summary, err := h.ledger.Summary(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Retract DELETE /api/votes/:type/:id/:dimension
func (h *VoteHandler) Retract(c *gin.Context) {
	kind := models.ContentKind(c.Param("type"))
	dim := models.Dimension(c.Param("dimension"))
	if !kind.Valid() || !dim.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown target type or dimension"})
		return
	}
	err := h.ledger.Retract(c.Request.Context(), currentUser(c).ID, c.Param("id"), kind, dim)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	summary, err := h.ledger.Summary(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
