package actions

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agriscore/internal/observability"
)

const compensationTimeout = 5 * time.Second

type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// saga records the undo step of every completed write so a failed chain can
// be unwound newest first.
type saga struct {
	steps   []compensation
	metrics *observability.Metrics
	logger  *zap.Logger
}

func newSaga(metrics *observability.Metrics, logger *zap.Logger) *saga {
	return &saga{metrics: metrics, logger: logger}
}

func (s *saga) onRollback(step string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{step: step, undo: undo})
}

// rollback runs the compensations in reverse. It ignores the cancellation of
// ctx so a timed-out request still cleans up after itself.
func (s *saga) rollback(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if err := c.undo(ctx); err != nil {
			s.metrics.SagaCompensations.WithLabelValues(c.step, "error").Inc()
			s.logger.Error("compensation failed", zap.String("step", c.step), zap.Error(err))
			continue
		}
		s.metrics.SagaCompensations.WithLabelValues(c.step, "ok").Inc()
		s.logger.Warn("compensation applied", zap.String("step", c.step))
	}
	s.steps = nil
}
