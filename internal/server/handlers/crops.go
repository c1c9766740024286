package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/agriscore/internal/server/middleware"
)

type compareRequest struct {
	Crops []string `json:"crops"`
}

// SwitchSuggestion advises whether the field's current crop should change.
func (h *Handler) SwitchSuggestion(c *gin.Context) {
	suggestion, err := h.svc.Crops.SwitchSuggestion(c.Request.Context(), middleware.UserID(c), c.Query("fieldId"))
	if err != nil {
		h.fail(c, err, "Suggestion failed")
		return
	}

	c.JSON(http.StatusOK, suggestion)
}

// CompareCrops compares profit, risk and soil suitability of named crops.
func (h *Handler) CompareCrops(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err, "Crops array is required")
		return
	}

	results, err := h.svc.Crops.CompareCrops(c.Request.Context(), middleware.UserID(c), req.Crops)
	if err != nil {
		h.fail(c, err, "Comparison failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"crops": results})
}
