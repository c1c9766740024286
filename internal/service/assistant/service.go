// Package assistant answers farmers' free-text questions.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/pkg/clients/anthropic"
)

const (
	answerIrrigation    = "Based on current soil moisture levels, I recommend irrigating within the next 24 hours. Average water requirement is 25mm per week."
	answerWeeds         = "Current weed risk is low. Monitor fields weekly and schedule weeding if you notice increased weed pressure."
	answerFertilization = "For optimal growth, apply nitrogen-rich fertilizer during the vegetative stage. Recommended: 40kg/hectare."
	answerDefault       = "I'm here to help! Ask me about irrigation, weeds, or crop management."
)

// Summarizer provides the farm context the LLM is primed with.
type Summarizer interface {
	Summary(ctx context.Context, userID string) (models.DashboardSummary, error)
}

// Service answers assistant queries.
type Service struct {
	llm        anthropic.Client
	summarizer Summarizer
	clock      clockwork.Clock
	logger     *zap.Logger
}

// NewService wires the assistant. llm and summarizer may be nil, in which
// case answers come from the keyword table.
func NewService(llm anthropic.Client, summarizer Summarizer, clock clockwork.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{llm: llm, summarizer: summarizer, clock: clock, logger: logger.Named("svc.assistant")}
}

// Ask answers query for userID.
func (s *Service) Ask(ctx context.Context, userID, query string) (models.AssistantAnswer, error) {
	if userID == "" {
		return models.AssistantAnswer{}, apperr.Unauthorized()
	}
	if strings.TrimSpace(query) == "" {
		return models.AssistantAnswer{}, apperr.Validation("Query text is required")
	}

	answer := s.askLLM(ctx, userID, query)
	if answer == "" {
		answer = KeywordAnswer(query)
	}

	return models.AssistantAnswer{Query: query, Answer: answer, Timestamp: s.clock.Now()}, nil
}

// askLLM returns "" whenever the model is unavailable or fails.
func (s *Service) askLLM(ctx context.Context, userID, query string) string {
	if s.llm == nil {
		return ""
	}

	system := "You are an agronomy assistant for a smallholder farmer. Answer in at most three sentences."
	if s.summarizer != nil {
		if summary, err := s.summarizer.Summary(ctx, userID); err == nil {
			system += fmt.Sprintf(" Current month averages: soil health %d/100, irrigation efficiency %d/100, weed risk %d/100. Soil mood: %s. Open alerts: %d.",
				summary.Scores.SoilHealth, summary.Scores.Irrigation, summary.Scores.WeedRisk, summary.SoilMood.Label, len(summary.Alerts))
		} else {
			s.logger.Debug("assistant context unavailable", zap.String("user_id", userID), zap.Error(err))
		}
	}

	answer, err := s.llm.Ask(ctx, system, query)
	if err != nil {
		s.logger.Warn("llm answer failed, using keyword fallback", zap.String("user_id", userID), zap.Error(err))
		return ""
	}
	return answer
}

// KeywordAnswer matches the query against a fixed set of topics.
func KeywordAnswer(query string) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "irrigat"):
		return answerIrrigation
	case strings.Contains(q, "weed"):
		return answerWeeds
	case strings.Contains(q, "fertiliz"):
		return answerFertilization
	default:
		return answerDefault
	}
}
