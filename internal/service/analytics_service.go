package service

import (
	"context"
	"time"

	"github.com/lucra-chat/internal/models"
)

const maxAnalyticsDays = 90

// AnalyticsService aggregates classified intents
type AnalyticsService struct {
	events IntentEventStore
	now    func() time.Time
}

// NewAnalyticsService creates an analytics service. events may be nil when
// ClickHouse is not configured.
func NewAnalyticsService(events IntentEventStore) *AnalyticsService {
	return &AnalyticsService{events: events, now: time.Now}
}

// IntentCounts returns per-intent counts over the last days days
func (s *AnalyticsService) IntentCounts(ctx context.Context, days int) ([]*models.IntentCount, error) {
	if s.events == nil {
		return nil, unavailable("intent analytics")
	}
	if days <= 0 || days > maxAnalyticsDays {
		return nil, invalidInput("days", "must be between 1 and 90")
	}

	counts, err := s.events.CountByIntent(ctx, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []*models.IntentCount{}
	}
	return counts, nil
}
