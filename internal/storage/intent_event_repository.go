package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lucra-chat/internal/models"
)

// IntentEventRepository appends classified intents to ClickHouse and aggregates them
type IntentEventRepository struct {
	db *ClickHouseDB
}

// NewIntentEventRepository creates a new intent event repository
func NewIntentEventRepository(db *ClickHouseDB) *IntentEventRepository {
	return &IntentEventRepository{db: db}
}

// Insert appends one event
func (r *IntentEventRepository) Insert(ctx context.Context, event *models.IntentEvent) error {
	return r.db.insertRow(ctx, "intent_events",
		event.EventTime,
		event.WalletAddress,
		event.ConversationID,
		event.Intent,
		string(event.Source),
		event.Amount,
		event.Token,
		event.RecipientCount,
	)
}

// CountByIntent returns per-intent, per-source counts for events newer than since
func (r *IntentEventRepository) CountByIntent(ctx context.Context, since time.Time) ([]*models.IntentCount, error) {
	rows, err := r.db.query(ctx, `
		SELECT intent, source, count() AS count
		FROM intent_events
		WHERE event_time >= ?
		GROUP BY intent, source
		ORDER BY count DESC, intent ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query intent counts: %w", err)
	}
	defer rows.Close()

	counts := make([]*models.IntentCount, 0)
	for rows.Next() {
		var c models.IntentCount
		if err := rows.Scan(&c.Intent, &c.Source, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan intent count: %w", err)
		}
		counts = append(counts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intent counts: %w", err)
	}
	return counts, nil
}
