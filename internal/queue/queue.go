package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers to in-process subscribers with retry
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	wg       sync.WaitGroup

	Logger     *slog.Logger
	MaxRetries int
	Backoff    time.Duration
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(logger *slog.Logger) *InMemoryQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		Logger:     logger,
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		job := JobPayload{Payload: payload, MaxRetries: q.MaxRetries}
		q.wg.Add(1)
		go q.processJob(topic, handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(topic string, handler func(payload any) error, job JobPayload) {
	defer q.wg.Done()
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return
		}

		job.RetryCount++
		q.Logger.Warn("job failed", "topic", topic, "attempt", job.RetryCount, "max_retries", job.MaxRetries, "error", err)

		if job.RetryCount > job.MaxRetries {
			q.Logger.Error("job permanently failed", "topic", topic, "attempts", job.RetryCount)
			return
		}

		// Linear backoff before retry
		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Drain waits for every in-flight delivery, retries included.
func (q *InMemoryQueue) Drain() {
	q.wg.Wait()
}

// DecodeLedgerEvent accepts the payload shapes the transports deliver: the
// event value itself from InMemoryQueue, raw JSON from AMQPQueue.
func DecodeLedgerEvent(payload any) (*model.LedgerEvent, error) {
	switch p := payload.(type) {
	case model.LedgerEvent:
		return &p, nil
	case *model.LedgerEvent:
		return p, nil
	case []byte:
		return unmarshalEvent(p)
	case json.RawMessage:
		return unmarshalEvent(p)
	default:
		return nil, fmt.Errorf("unexpected ledger event payload %T", payload)
	}
}

func unmarshalEvent(raw []byte) (*model.LedgerEvent, error) {
	var e model.LedgerEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode ledger event: %w", err)
	}
	return &e, nil
}

// StartLedgerEventSubscriber routes ledger events on topic to handle. Bad
// payloads are dropped; handler errors are returned so the transport retries.
func StartLedgerEventSubscriber(q Queue, topic string, handle func(ctx context.Context, e *model.LedgerEvent) error, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	err := q.Subscribe(topic, func(payload any) error {
		e, err := DecodeLedgerEvent(payload)
		if err != nil {
			logger.Warn("⚠️ dropping invalid ledger event", "topic", topic, "error", err)
			return nil
		}

		logger.Debug("📩 processing ledger event", "event", e.ID, "type", e.Type)
		return handle(context.Background(), e)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return nil
}
