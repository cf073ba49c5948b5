package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one booking message. A returned error rejects the
// delivery without requeueing it.
type Handler func(ctx context.Context, msg BookingMessage) error

// Consume reads BookingQueue until ctx is done, reconnecting with
// exponential backoff whenever the broker goes away.
func Consume(ctx context.Context, url string, logger *slog.Logger, h Handler) error {
	backoff := time.Second
	for {
		err := consumeOnce(ctx, url, h)
		if ctx.Err() != nil {
			return nil
		}

		logger.Warn("booking consumer stopped, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func consumeOnce(ctx context.Context, url string, h Handler) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if err := declare(ch); err != nil {
		return err
	}

	deliveries, err := ch.ConsumeWithContext(ctx, BookingQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for d := range deliveries {
		if err := handle(ctx, d.Body, h); err != nil {
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}

	return errors.New("deliveries channel closed")
}

func handle(ctx context.Context, body []byte, h Handler) error {
	var msg BookingMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return h(ctx, msg)
}
