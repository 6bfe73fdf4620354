package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notifier turns consumed events into outbound notifications. The
// email mailer is the production implementation.
type Notifier interface {
	ReservationCreated(ev ReservationCreatedEvent) error
	ReservationCancelled(ev ReservationCancelledEvent) error
	TripCancelled(ev TripCancelledEvent) error
}

// StartNotificationConsumer connects to RabbitMQ, declares the three
// notification queues (durable) and consumes them. It runs a reconnect
// loop with exponential backoff and never returns under normal
// operation; processing errors are logged and the offending message is
// rejected without requeue to avoid tight redelivery loops.
func StartNotificationConsumer(url string, n Notifier) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("notify-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeAll(conn, n); err != nil {
			log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeAll(conn *amqp.Connection, n Notifier) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notify-consumer: set QoS failed: %v", err)
	}

	handlers := map[string]func([]byte) error{
		ReservationCreatedQueue:   func(b []byte) error { return decodeAnd(b, n.ReservationCreated) },
		ReservationCancelledQueue: func(b []byte) error { return decodeAnd(b, n.ReservationCancelled) },
		TripCancelledQueue:        func(b []byte) error { return decodeAnd(b, n.TripCancelled) },
	}

	var wg sync.WaitGroup
	done := make(chan error, len(handlers))
	for name, handle := range handlers {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		wg.Add(1)
		go func(name string, msgs <-chan amqp.Delivery, handle func([]byte) error) {
			defer wg.Done()
			for d := range msgs {
				if err := handle(d.Body); err != nil {
					log.Printf("notify-consumer: handle %s failed: %v", name, err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
			done <- errors.New(name + ": deliveries channel closed")
		}(name, msgs, handle)
	}

	err = <-done
	_ = ch.Close()
	wg.Wait()
	return err
}

func decodeAnd[E any](body []byte, handle func(E) error) error {
	var ev E
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return handle(ev)
}
