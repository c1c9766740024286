// Package alerting serves the open-alert list and forwards urgent alerts to
// WhatsApp.
package alerting

import (
	"context"

	"go.uber.org/zap"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/repository"
)

// Store reads alerts.
type Store interface {
	FindAlerts(ctx context.Context, f repository.AlertFilter, limit int) ([]models.Alert, error)
}

// Service lists alerts.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires an alerting service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("svc.alerting")}
}

// ListOpen returns the user's unacknowledged alerts, newest first.
func (s *Service) ListOpen(ctx context.Context, userID string) ([]models.Alert, error) {
	if userID == "" {
		return nil, apperr.Unauthorized()
	}
	alerts, err := s.store.FindAlerts(ctx, repository.AlertFilter{UserID: userID, OpenOnly: true}, 0)
	if err != nil {
		return nil, apperr.Persistence("Failed to fetch alerts", err)
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts, nil
}
