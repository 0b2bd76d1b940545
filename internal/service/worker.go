package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// EventRecorder defines what the worker needs to store events
type EventRecorder interface {
	Record(ctx context.Context, e *model.LedgerEvent) (bool, error)
}

// Deduplicator claims event IDs so a redelivered event is recorded once.
type Deduplicator interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// EventWorker records committed ledger events into the audit log. It is fed
// by a queue subscription through Handle.
type EventWorker struct {
	Recorder EventRecorder
	Dedup    Deduplicator
	Logger   *slog.Logger
}

// Constructor
func NewEventWorker(recorder EventRecorder, dedup Deduplicator, logger *slog.Logger) *EventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventWorker{
		Recorder: recorder,
		Dedup:    dedup,
		Logger:   logger,
	}
}

// Handle records e once. When recording fails the claim is released so a
// redelivery can try again.
func (w *EventWorker) Handle(ctx context.Context, e *model.LedgerEvent) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("ledger event without id")
	}

	if w.Dedup != nil {
		first, err := w.Dedup.FirstSeen(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("dedup event %s: %w", e.ID, err)
		}
		if !first {
			w.Logger.Debug("skipping duplicate ledger event", "event", e.ID)
			return nil
		}
	}

	written, err := w.Recorder.Record(ctx, e)
	if err != nil {
		if w.Dedup != nil {
			if ferr := w.Dedup.Forget(ctx, e.ID); ferr != nil {
				w.Logger.Warn("failed to release dedup claim", "event", e.ID, "error", ferr)
			}
		}
		return err
	}

	w.Logger.Info("✅ ledger event recorded",
		"event", e.ID, "type", e.Type, "campaign", e.Campaign, "actor", e.Actor,
		"amount", e.Amount, "new", written)
	return nil
}

// LogRecorder journals events to the log when no event table is configured.
type LogRecorder struct {
	Logger *slog.Logger
}

func (r LogRecorder) Record(ctx context.Context, e *model.LedgerEvent) (bool, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "📒 ledger event",
		"event", e.ID, "type", e.Type, "campaign", e.Campaign, "actor", e.Actor, "amount", e.Amount)
	return true, nil
}
