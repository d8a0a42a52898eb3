package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrBrokerUnavailable is returned without contacting the broker while
// a recent dial failure is cooling down.
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

const (
	defaultDialTimeout = 5 * time.Second
	defaultRedialDelay = 5 * time.Second
)

// Publisher sends BookingEvents to a durable queue on the default
// exchange.  The connection is opened on first use and reopened after
// any failure.  Dialling honours the caller's context and never holds
// the mutex, so a stalled broker only delays the publishes waiting on
// it.
type Publisher struct {
	url   string
	queue string

	redialDelay time.Duration
	now         func() time.Time

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	nextDial time.Time
}

func NewPublisher(url, queue string) *Publisher {
	return &Publisher{
		url:         url,
		queue:       queue,
		redialDelay: defaultRedialDelay,
		now:         time.Now,
	}
}

// channel returns an open channel with the queue declared, dialling a
// new connection when needed.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	if p.ch != nil && !p.ch.IsClosed() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	if p.now().Before(p.nextDial) {
		p.mu.Unlock()
		return nil, ErrBrokerUnavailable
	}
	p.mu.Unlock()

	conn, ch, err := p.dial(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.nextDial = p.now().Add(p.redialDelay)
		return nil, err
	}
	if p.ch != nil && !p.ch.IsClosed() {
		// a concurrent publish connected first
		_ = ch.Close()
		_ = conn.Close()
		return p.ch, nil
	}
	p.closeLocked()
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial: func(network, addr string) (net.Conn, error) {
			var d net.Dialer
			c, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// bounds the AMQP handshake; cleared once it completes
			deadline, ok := ctx.Deadline()
			if !ok {
				deadline = time.Now().Add(defaultDialTimeout)
			}
			if err := c.SetDeadline(deadline); err != nil {
				_ = c.Close()
				return nil, err
			}
			return c, nil
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: queue declare: %w", err)
	}
	return conn, ch, nil
}

// Publish marshals ev and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.drop(ch)
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

// drop closes the connection behind ch unless it was already replaced.
func (p *Publisher) drop(ch *amqp.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		p.closeLocked()
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
