package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/dishrated/internal/helpers"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "dishrated.events"

	RoutingEventCreated  = "event.created"
	RoutingEventApproved = "event.approved"
	RoutingEventRejected = "event.rejected"
	RoutingEventDeleted  = "event.deleted"

	// how long to wait for a broker confirm before giving up on it
	confirmWait   = 250 * time.Millisecond
	confirmBuffer = 64
)

// Message is the envelope written to the exchange.
type Message struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// Publisher publishes JSON messages to a durable topic exchange with
// publisher confirms enabled. A dropped connection is re-dialed on the
// next Publish.
type Publisher struct {
	url      string
	exchange string

	mu        sync.Mutex
	closed    bool
	conn      *amqp.Connection
	ch        *amqp.Channel
	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable confirms: %w", err)
	}

	p.conn = conn
	p.ch = ch
	// late confirms must never fill the buffer: amqp091 blocks the
	// connection reader on a full notify channel
	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, confirmBuffer))
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.closed {
		return errors.New("publisher is closed")
	}
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.resetConn()
	return p.connect()
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	p.confirmCh = nil
	p.returnCh = nil
}

// drainStale discards confirms and returns left over from earlier
// publishes whose wait timed out.
func (p *Publisher) drainStale() {
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			return
		}
	}
}

func (p *Publisher) Exchange() string {
	return p.exchange
}

// Publish wraps data in a Message and publishes it under routingKey.
// Unroutable messages are not an error: nobody may be subscribed yet.
func (p *Publisher) Publish(ctx context.Context, routingKey string, data any) error {
	msg := Message{
		ID:         uuid.NewString(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	headers := amqp.Table{}
	if requestID := helpers.RequestIDFromContext(ctx); requestID != "" {
		headers["X-Request-ID"] = requestID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}
	p.drainStale()

	tag := p.ch.GetNextPublishSeqNo()
	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    msg.ID,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    msg.OccurredAt,
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		p.resetConn()
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	timeout := time.NewTimer(confirmWait)
	defer timeout.Stop()
	for {
		select {
		case <-p.returnCh:
			// a return precedes the ack for the same message
			continue
		case conf, ok := <-p.confirmCh:
			if !ok {
				p.resetConn()
				return fmt.Errorf("channel closed before %s was confirmed", routingKey)
			}
			if conf.DeliveryTag < tag {
				continue
			}
			if !conf.Ack {
				return fmt.Errorf("broker nacked %s", routingKey)
			}
			return nil
		case <-timeout.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var err error
	if p.conn != nil {
		err = p.conn.Close()
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	p.ch = nil
	p.conn = nil
	return err
}

// NoopPublisher drops every message. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
