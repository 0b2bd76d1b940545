package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

// MockEventRepo stores events in memory
type MockEventRepo struct {
	events map[string]*model.LedgerEvent
	calls  int
	fail   bool
	mu     sync.Mutex
}

func (m *MockEventRepo) Record(ctx context.Context, e *model.LedgerEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return false, errors.New("db down")
	}
	if _, ok := m.events[e.ID]; ok {
		return false, nil
	}
	m.events[e.ID] = e
	return true, nil
}

func TestWorker(t *testing.T) {
	repo := &MockEventRepo{events: map[string]*model.LedgerEvent{}}
	worker := service.NewEventWorker(repo, queue.NewMemoryDedup(), nil)

	events := []*model.LedgerEvent{
		{ID: "e1", Type: model.EventCampaignFunded, Amount: 5},
		{ID: "e1", Type: model.EventCampaignFunded, Amount: 5}, // redelivery
		{ID: "e2", Type: model.EventCampaignWithdrawn, Amount: 5},
	}
	for _, e := range events {
		if err := worker.Handle(context.Background(), e); err != nil {
			t.Fatalf("handle %s: %v", e.ID, err)
		}
	}

	if len(repo.events) != 2 {
		t.Errorf("expected 2 recorded events, got %d", len(repo.events))
	}
	if repo.calls != 2 {
		t.Errorf("duplicate reached the recorder: %d calls", repo.calls)
	}
}

func TestWorkerOverInMemoryQueue(t *testing.T) {
	repo := &MockEventRepo{events: map[string]*model.LedgerEvent{}}
	worker := service.NewEventWorker(repo, queue.NewMemoryDedup(), nil)
	q := queue.NewInMemoryQueue(nil)
	if err := queue.StartLedgerEventSubscriber(q, "ledger_events", worker.Handle, nil); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for _, id := range []string{"e1", "e1", "e2"} {
		if err := q.Publish("ledger_events", model.LedgerEvent{ID: id, Type: model.EventCampaignFunded}); err != nil {
			t.Fatalf("publish: %v", err)
		}
		q.Drain()
	}

	if len(repo.events) != 2 || repo.calls != 2 {
		t.Errorf("expected 2 events over 2 calls, got %d over %d", len(repo.events), repo.calls)
	}
}

func TestWorkerReleasesClaimOnFailure(t *testing.T) {
	repo := &MockEventRepo{events: map[string]*model.LedgerEvent{}, fail: true}
	worker := service.NewEventWorker(repo, queue.NewMemoryDedup(), nil)
	e := &model.LedgerEvent{ID: "e1"}

	if err := worker.Handle(context.Background(), e); err == nil {
		t.Fatal("expected record failure")
	}

	repo.fail = false
	if err := worker.Handle(context.Background(), e); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if _, ok := repo.events["e1"]; !ok {
		t.Error("event not recorded on retry")
	}
}

func TestWorkerRejectsEventWithoutID(t *testing.T) {
	worker := service.NewEventWorker(&MockEventRepo{events: map[string]*model.LedgerEvent{}}, nil, nil)
	if err := worker.Handle(context.Background(), &model.LedgerEvent{}); err == nil {
		t.Fatal("expected error for event without id")
	}
}

func TestDeduplicatorFallsBackToMemory(t *testing.T) {
	d := newDeduplicator(context.Background(), config.Config{}, nil)
	if _, ok := d.(*queue.MemoryDedup); !ok {
		t.Fatalf("expected memory dedup without REDIS_ADDR, got %T", d)
	}
}
