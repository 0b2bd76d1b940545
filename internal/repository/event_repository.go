package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// EventRepository is the append-only audit log of committed ledger events.
type EventRepository struct {
	DB *sql.DB
}

// Record inserts e unless an event with the same ID was already recorded.
// It reports whether a row was written.
func (r *EventRepository) Record(ctx context.Context, e *model.LedgerEvent) (bool, error) {
	query := `
        INSERT INTO ledger_events (id, type, campaign, actor, amount, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING
    `
	res, err := r.DB.ExecContext(ctx, query,
		e.ID,
		string(e.Type),
		e.Campaign,
		e.Actor,
		u64(e.Amount),
		e.OccurredAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("record event %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByCampaign returns the events of a campaign in the order they happened.
func (r *EventRepository) ListByCampaign(ctx context.Context, campaign string) ([]*model.LedgerEvent, error) {
	query := `
        SELECT id, type, campaign, actor, amount, occurred_at
        FROM ledger_events
        WHERE campaign=$1
        ORDER BY occurred_at ASC, id ASC
    `
	rows, err := r.DB.QueryContext(ctx, query, campaign)
	if err != nil {
		return nil, fmt.Errorf("list events of %s: %w", campaign, err)
	}
	defer rows.Close()

	events := []*model.LedgerEvent{}
	for rows.Next() {
		var e model.LedgerEvent
		var eventType string
		if err := rows.Scan(&e.ID, &eventType, &e.Campaign, &e.Actor, &e.Amount, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Type = model.EventType(eventType)
		events = append(events, &e)
	}
	return events, rows.Err()
}
