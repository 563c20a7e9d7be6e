package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
)

// QueueName is the durable queue reservation events are routed to.
const QueueName = "reservation.events"

const publishTimeout = 5 * time.Second

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// RabbitPublisher keeps one connection and channel open and redials after a failure.
type RabbitPublisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitPublisher(url string) *RabbitPublisher {
	return &RabbitPublisher{url: url, queue: QueueName}
}

// Connect dials the broker and declares the queue. Publish calls it lazily as well.
func (p *RabbitPublisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked()
}

func (p *RabbitPublisher) connectLocked() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.closeLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel open failed: %w", err)
	}

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq queue declare failed: %w", err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connectLocked(); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.OccurredAt,
		Type:         e.Type,
		MessageId:    e.ReservationID + ":" + e.Status,
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		// drop the channel so the next publish redials
		p.closeLocked()
		return fmt.Errorf("rabbitmq publish failed: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *RabbitPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

// Hook adapts a Publisher to a scheduler status hook.
func Hook(pub Publisher, now func() time.Time) reservation.StatusHook {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, r reservation.Reservation, from reservation.Status) error {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		e := NewEvent(r, from, now())
		if err := pub.Publish(ctx, e); err != nil {
			return err
		}
		log.Ctx(ctx).Debug().Str("type", e.Type).Str("reservation_id", e.ReservationID).Msg("event published")
		return nil
	}
}
