package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"
)

// Channel is the subset of *amqp.Channel the queue uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPQueue publishes JSON payloads to durable RabbitMQ queues named after
// the topic. A failed delivery is requeued once and then dropped.
type AMQPQueue struct {
	conn   *amqp.Connection
	ch     Channel
	mu     sync.Mutex
	queues map[string]bool
	Logger *slog.Logger
}

var _ Queue = (*AMQPQueue)(nil)

func DialAMQP(url string, logger *slog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	q := NewAMQPQueue(ch, logger)
	q.conn = conn
	return q, nil
}

func NewAMQPQueue(ch Channel, logger *slog.Logger) *AMQPQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPQueue{ch: ch, queues: map[string]bool{}, Logger: logger}
}

func (q *AMQPQueue) declare(topic string) error {
	if q.queues[topic] {
		return nil
	}
	_, err := q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	q.queues[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", topic, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.declare(topic); err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if err := q.ch.Publish("", topic, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe consumes topic in the background, handing each body to handler
// as json.RawMessage.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	err := q.declare(topic)
	var msgs <-chan amqp.Delivery
	if err == nil {
		msgs, err = q.ch.Consume(
			topic,
			"",
			false, // autoAck = false for reliability
			false,
			false,
			false,
			nil,
		)
	}
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("consume %s: %w", topic, err)
	}

	go func() {
		for d := range msgs {
			q.deliver(topic, d, handler)
		}
		q.Logger.Info("rabbitmq consumer stopped", "topic", topic)
	}()
	return nil
}

// acknowledger is the part of amqp.Delivery that settles a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (q *AMQPQueue) deliver(topic string, d amqp.Delivery, handler func(payload any) error) {
	q.settle(topic, d, d.Redelivered, json.RawMessage(d.Body), handler)
}

func (q *AMQPQueue) settle(topic string, ack acknowledger, redelivered bool, body json.RawMessage, handler func(payload any) error) {
	err := handler(body)
	if err == nil {
		if aerr := ack.Ack(false); aerr != nil {
			q.Logger.Warn("failed to ack delivery", "topic", topic, "error", aerr)
		}
		return
	}

	requeue := !redelivered
	q.Logger.Warn("delivery failed", "topic", topic, "requeue", requeue, "error", err)
	if nerr := ack.Nack(false, requeue); nerr != nil {
		q.Logger.Warn("failed to nack delivery", "topic", topic, "error", nerr)
	}
}

func (q *AMQPQueue) Close() error {
	err := q.ch.Close()
	if q.conn != nil {
		if cerr := q.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
