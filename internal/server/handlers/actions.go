package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/server/middleware"
)

// LogAction records a field action and returns its derived scores and alerts.
func (h *Handler) LogAction(c *gin.Context) {
	var req models.LogActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err, bindMessage(err))
		return
	}

	result, err := h.svc.Actions.LogAction(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.fail(c, err, "Failed to log action")
		return
	}

	c.JSON(http.StatusOK, result)
}

// WeedRisk returns the caller's latest weed-risk status and trend.
func (h *Handler) WeedRisk(c *gin.Context) {
	status, err := h.svc.Actions.WeedRiskStatus(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err, "Failed to get weed risk")
		return
	}

	c.JSON(http.StatusOK, status)
}

// Alerts lists the caller's open alerts, newest first.
func (h *Handler) Alerts(c *gin.Context) {
	alerts, err := h.svc.Alerts.ListOpen(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err, "Failed to fetch alerts")
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// bindMessage names the missing action type; any other decode failure is a
// malformed body.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "ActionType" {
				return "Invalid action type"
			}
		}
	}
	return "Invalid request body"
}
