package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// TripsPubSub announces seat changes to other instances and to any
// listener interested in fresh availability.
type TripsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewTripsPubSub(rdb *redis.Client) *TripsPubSub {
	return &TripsPubSub{
		rdb:     rdb,
		channel: ChannelTripsChanged(),
	}
}

type TripChanged struct {
	Type           string `json:"type"`
	TripID         int64  `json:"trip_id"`
	SeatsAvailable int    `json:"seats_available"`
	TsUnix         int64  `json:"ts_unix"`
}

func (p *TripsPubSub) PublishTripChanged(ctx context.Context, tripID int64, seatsAvailable int) error {
	b, err := json.Marshal(TripChanged{
		Type:           "trip_changed",
		TripID:         tripID,
		SeatsAvailable: seatsAvailable,
		TsUnix:         time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe delivers trip changes to handler until ctx is done.
func (p *TripsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, msg TripChanged)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg TripChanged
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil && msg.TripID != 0 {
				handler(ctx, msg)
			}
		}
	}
}
