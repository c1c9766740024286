package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/agriscore/internal/server/middleware"
)

type generateReportRequest struct {
	Month string `json:"month"`
}

// MonthlyReport returns the cached report for ?month=YYYY-MM, generating it
// on first request. The current month is used when month is omitted.
func (h *Handler) MonthlyReport(c *gin.Context) {
	report, err := h.svc.Reports.MonthlyReport(c.Request.Context(), middleware.UserID(c), c.Query("month"))
	if err != nil {
		h.fail(c, err, "Failed to fetch report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GenerateReport recomputes and replaces the report for the requested month.
// An empty body targets the current month.
func (h *Handler) GenerateReport(c *gin.Context) {
	var req generateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, err, "Invalid month format. Use YYYY-MM")
		return
	}

	report, err := h.svc.Reports.Regenerate(c.Request.Context(), middleware.UserID(c), req.Month)
	if err != nil {
		h.fail(c, err, "Failed to generate report")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Report generated successfully",
		"reportId": report.ID,
		"report":   report,
	})
}
