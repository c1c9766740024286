package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/server/middleware"
)

// ActionService logs field actions and reports weed-risk status.
type ActionService interface {
	LogAction(ctx context.Context, userID string, req models.LogActionRequest) (models.LogActionResult, error)
	WeedRiskStatus(ctx context.Context, userID string) (models.WeedRiskStatus, error)
}

// CropService advises on crop choice.
type CropService interface {
	SwitchSuggestion(ctx context.Context, userID, fieldID string) (models.SwitchSuggestion, error)
	CompareCrops(ctx context.Context, userID string, names []string) ([]models.CropComparison, error)
}

// ReportService serves monthly roll-ups.
type ReportService interface {
	MonthlyReport(ctx context.Context, userID, month string) (models.MonthlyReport, error)
	Regenerate(ctx context.Context, userID, month string) (models.MonthlyReport, error)
}

// DashboardService composes the dashboard read model.
type DashboardService interface {
	Summary(ctx context.Context, userID string) (models.DashboardSummary, error)
}

// AlertService lists unacknowledged alerts.
type AlertService interface {
	ListOpen(ctx context.Context, userID string) ([]models.Alert, error)
}

// AssistantService answers free-text questions.
type AssistantService interface {
	Ask(ctx context.Context, userID, query string) (models.AssistantAnswer, error)
}

// Services groups the engine entry points exposed over HTTP.
type Services struct {
	Actions   ActionService
	Crops     CropService
	Reports   ReportService
	Dashboard DashboardService
	Alerts    AlertService
	Assistant AssistantService
}

// Handler adapts the engine services to gin.
type Handler struct {
	svc    Services
	logger *zap.Logger
}

// New constructs the HTTP handler adapter.
func New(svc Services, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// fail writes the error response for err. Internal causes are logged, never
// returned to the caller.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindValidation:
		status = http.StatusBadRequest
	}

	fields := []zap.Field{
		zap.String("path", c.FullPath()),
		zap.String("user_id", middleware.UserID(c)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}

	c.JSON(status, gin.H{"error": apperr.MessageOf(err, fallback)})
}

func (h *Handler) badRequest(c *gin.Context, err error, message string) {
	h.logger.Debug("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
