package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/agriscore/internal/config"
	"github.com/mamadbah2/agriscore/internal/domain/models"
)

const (
	reportsRange = "MonthlyReports!A:J"
	keysRange    = "MonthlyReports!A:B"
)

// ReportExporter appends monthly reports to a Google Sheet, one row per
// (month, user). Rows already present are not written twice.
type ReportExporter struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewReportExporter builds an exporter from service-account credentials.
func NewReportExporter(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*ReportExporter, error) {
	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}
	return newReportExporter(service, cfg.SpreadsheetID, logger), nil
}

func newReportExporter(service *sheetsapi.Service, spreadsheetID string, logger *zap.Logger) *ReportExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportExporter{service: service, spreadsheetID: spreadsheetID, logger: logger}
}

// Export writes the reports not yet present in the sheet and returns how many
// rows were appended.
func (e *ReportExporter) Export(ctx context.Context, reports []models.MonthlyReport) (int, error) {
	if len(reports) == 0 {
		return 0, nil
	}

	existing, err := e.exportedKeys(ctx)
	if err != nil {
		return 0, err
	}

	rows := make([][]interface{}, 0, len(reports))
	for _, r := range reports {
		key := rowKey(r.Month, r.UserID)
		if existing[key] {
			continue
		}
		existing[key] = true
		rows = append(rows, reportRow(r))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	call := e.service.Spreadsheets.Values.Append(e.spreadsheetID, reportsRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)
	if _, err := call.Do(); err != nil {
		return 0, fmt.Errorf("append rows into range %s: %w", reportsRange, err)
	}

	e.logger.Debug("reports appended to sheet", zap.Int("rows", len(rows)))
	return len(rows), nil
}

func (e *ReportExporter) exportedKeys(ctx context.Context) (map[string]bool, error) {
	resp, err := e.service.Spreadsheets.Values.Get(e.spreadsheetID, keysRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", keysRange, err)
	}

	keys := make(map[string]bool, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) < 2 {
			continue
		}
		keys[rowKey(fmt.Sprint(row[0]), fmt.Sprint(row[1]))] = true
	}
	return keys, nil
}

func reportRow(r models.MonthlyReport) []interface{} {
	s := r.Summary
	return []interface{}{
		r.Month,
		r.UserID,
		s.TotalActions,
		s.AverageSoilHealth,
		s.AverageWeedRisk,
		s.AverageIrrigation,
		s.TotalIrrigatedArea,
		s.Unit,
		string(r.RewardsTier),
		r.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

func rowKey(month, userID string) string {
	return month + "|" + userID
}
