package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/room-booking/internal/application"
)

// DefaultQueue is the queue reservation events are routed to.
const DefaultQueue = "reservation.events"

// Channel is the subset of *amqp.Channel used by the publisher.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a channel and returns it with the connection that owns it.
type Dialer func(url string) (Channel, io.Closer, error)

// DialAMQP connects to a RabbitMQ broker.
func DialAMQP(url string) (Channel, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, conn, nil
}

// Publisher implements application.Notifier on top of RabbitMQ. The
// connection is opened on first use and re-opened after a failed publish.
type Publisher struct {
	url     string
	queue   string
	dial    Dialer
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	channel Channel
	conn    io.Closer
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithDialer replaces the broker dialer.
func WithDialer(dial Dialer) Option {
	return func(p *Publisher) {
		if dial != nil {
			p.dial = dial
		}
	}
}

// WithTimeout bounds each publish call.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Publisher) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithLogger sets the logger used for connection lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher constructs a publisher for url. An empty queue selects DefaultQueue.
func NewPublisher(url, queue string, opts ...Option) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	p := &Publisher{
		url:     url,
		queue:   queue,
		dial:    DialAMQP,
		timeout: 5 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends event as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, event application.ReservationEvent) error {
	if p == nil {
		return fmt.Errorf("notify: publisher is nil")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: encode %s: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt.UTC(),
		Type:         string(event.Type),
		MessageId:    messageID(event),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("notify: publish %s: %w", event.Type, err)
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resetLocked()
}

func (p *Publisher) channelLocked() (Channel, error) {
	if p.channel != nil {
		return p.channel, nil
	}

	ch, conn, err := p.dial(p.url)
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if conn != nil {
			_ = conn.Close()
		}
		return nil, fmt.Errorf("declare queue %s: %w", p.queue, err)
	}

	p.channel = ch
	p.conn = conn
	p.logger.Info("connected to message broker", "queue", p.queue)
	return ch, nil
}

func (p *Publisher) resetLocked() error {
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}

func messageID(event application.ReservationEvent) string {
	id := event.ReservationID
	if id == "" {
		id = event.SeriesID
	}
	return string(event.Type) + ":" + id + ":" + event.OccurredAt.UTC().Format(time.RFC3339Nano)
}
