package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/amodallal/fishing-backend/internal/model"
)

// Publisher emits notification events to RabbitMQ. Each publish dials
// its own short-lived connection, declares the target queue (durable,
// idempotent) and sends a persistent message. Errors are logged and
// returned so the caller can ignore failures without interrupting the
// request flow.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

func (p *Publisher) PublishReservationCreated(ctx context.Context, d *model.ReservationDetail) error {
	return p.publish(ctx, ReservationCreatedQueue, newReservationCreatedEvent(d))
}

func (p *Publisher) PublishReservationCancelled(ctx context.Context, d *model.ReservationDetail) error {
	return p.publish(ctx, ReservationCancelledQueue, newReservationCancelledEvent(d))
}

func (p *Publisher) PublishTripCancelled(ctx context.Context, trip *model.TripSnapshot, reason string, affected *model.ReservationDetail) error {
	return p.publish(ctx, TripCancelledQueue, newTripCancelledEvent(trip, reason, affected))
}

func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare %s failed: %v", queueName, err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish to %s failed: %v", queueName, err)
		return err
	}
	return nil
}
