// Package dispatch publishes finished order reports to the downstream response
// generator over AMQP.
//
// Messages are persistent JSON published to a durable topic exchange. When
// the broker supports publisher confirms, [Publisher.Publish] waits for the
// broker's ack before returning.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/observe"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/order"
)

// ErrNacked is returned by [Publisher.Publish] when the broker rejects a
// message.
var ErrNacked = errors.New("dispatch: publish nacked by broker")

// ErrClosed is returned by [Publisher.Ping] once the connection is gone.
var ErrClosed = errors.New("dispatch: connection closed")

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

var _ Channel = (*amqp.Channel)(nil)

// Config configures [Dial].
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// Message is the JSON body of a published report.
type Message struct {
	Items     []order.LineItem `json:"items"`
	Questions []order.LineItem `json:"questions"`
	Text      string           `json:"text"`
	Partial   bool             `json:"partial"`
}

// Publisher publishes order reports. It is safe for concurrent use; publishes
// are serialised so confirmations pair with their messages.
type Publisher struct {
	conn       *amqp.Connection
	amqpCh     *amqp.Channel
	ch         Channel
	acks       <-chan amqp.Confirmation
	exchange   string
	routingKey string
	mu         sync.Mutex
}

// Dial connects to the broker, declares the exchange as a durable topic
// exchange, and enables publisher confirms.
func Dial(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("dispatch: url is required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dispatch: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("dispatch: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("dispatch: declare exchange %q: %w", cfg.Exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("dispatch: enable confirms: %w", err)
	}

	p := New(ch, cfg.Exchange, cfg.RoutingKey)
	p.conn = conn
	p.amqpCh = ch
	p.acks = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return p, nil
}

// New returns a Publisher that publishes on ch without waiting for confirms.
func New(ch Channel, exchange, routingKey string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, routingKey: routingKey}
}

// Publish sends report and its flattened text as one persistent message. The
// message ID and correlation ID are the trace ID of ctx when one is present.
func (p *Publisher) Publish(ctx context.Context, report *order.OrderReport, text string) error {
	body, err := json.Marshal(Message{
		Items:     report.Items,
		Questions: report.Questions,
		Text:      text,
		Partial:   report.Partial,
	})
	if err != nil {
		return fmt.Errorf("dispatch: marshal report: %w", err)
	}

	now := time.Now().UTC()
	id := observe.CorrelationID(ctx)
	if id == "" {
		id = strconv.FormatInt(now.UnixNano(), 10)
	}
	cid := observe.RequestID(ctx)
	if cid == "" {
		cid = id
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     id,
		CorrelationId: cid,
		Timestamp:     now,
		Headers:       amqp.Table{"x-source": "beanhub"},
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("dispatch: publish: %w", err)
	}
	if p.acks == nil {
		return nil
	}

	select {
	case conf, ok := <-p.acks:
		if !ok {
			return fmt.Errorf("dispatch: publish: %w", ErrClosed)
		}
		if !conf.Ack {
			return ErrNacked
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatch: await confirm: %w", ctx.Err())
	}
}

// Ping reports whether the broker connection is still open. Publishers built
// with [New] have no connection and always pass.
func (p *Publisher) Ping(_ context.Context) error {
	if p.conn != nil && p.conn.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close closes the channel and connection opened by [Dial].
func (p *Publisher) Close() error {
	var errs []error
	if p.amqpCh != nil {
		errs = append(errs, p.amqpCh.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
