package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/server/middleware"
)

// DashboardSummary returns weather, soil mood, activity and score tiles.
func (h *Handler) DashboardSummary(c *gin.Context) {
	summary, err := h.svc.Dashboard.Summary(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err, "Internal Server Error")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// AssistantQuery answers a free-text farming question.
func (h *Handler) AssistantQuery(c *gin.Context) {
	var req models.AssistantQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err, "Query text is required")
		return
	}

	answer, err := h.svc.Assistant.Ask(c.Request.Context(), middleware.UserID(c), req.QueryText)
	if err != nil {
		h.fail(c, err, "Failed to process query")
		return
	}

	c.JSON(http.StatusOK, answer)
}
