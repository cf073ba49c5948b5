package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher keeps one broker connection and reopens its channel when the
// broker closes it.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	const op = "queue.NewPublisher"

	p := &Publisher{url: url}
	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// connect must be called with p.mu held, or before p is shared.
func (p *Publisher) connect() error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		p.conn = conn
		p.ch = nil
	}

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.conn.Channel()
		if err != nil {
			return fmt.Errorf("channel open: %w", err)
		}
		if err := declare(ch); err != nil {
			_ = ch.Close()
			return err
		}
		p.ch = ch
	}

	return nil
}

func declare(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(
		BookingQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}

// PublishBooking publishes msg as a persistent message on BookingQueue.
func (p *Publisher) PublishBooking(ctx context.Context, msg BookingMessage) error {
	const op = "queue.Publisher.PublishBooking"

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.PublishWithContext(ctx,
		"",           // default exchange
		BookingQueue, // routing key = queue name
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         string(msg.Type),
			MessageId:    msg.Reference + ":" + string(msg.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
