package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/evercare/livepoll/internal/domain"
)

// Broadcaster publishes result envelopes on a per-poll Redis channel. Any
// process interested in a poll's feed subscribes to that channel; delivery is
// at-most-once, which matches the feed contract (a missed snapshot is
// superseded by the next one).
type Broadcaster struct {
	client *redis.Client
	prefix string
}

func NewBroadcaster(client *redis.Client, prefix string) *Broadcaster {
	return &Broadcaster{
		client: client,
		prefix: prefix,
	}
}

func (b *Broadcaster) Broadcast(ctx context.Context, pollCode string, payload []byte) error {
	if err := b.client.Publish(ctx, b.channel(pollCode), payload).Err(); err != nil {
		return fmt.Errorf("redis broadcast: publish %s: %w", pollCode, err)
	}
	return nil
}

// Subscribe consumes every envelope published for pollCode until ctx ends,
// invoking handler per message. Used by the relay binary.
func (b *Broadcaster) Subscribe(ctx context.Context, pollCode string, handler func(context.Context, []byte)) error {
	sub := b.client.Subscribe(ctx, b.channel(pollCode))
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis broadcast: subscription closed for %s", pollCode)
			}
			handler(ctx, []byte(msg.Payload))
		}
	}
}

// SubscribeAll consumes envelopes for every poll via pattern subscription,
// handing each to handler along with the poll code parsed from the channel.
func (b *Broadcaster) SubscribeAll(ctx context.Context, handler func(ctx context.Context, pollCode string, payload []byte)) error {
	sub := b.client.PSubscribe(ctx, b.channel("*"))
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis broadcast: pattern subscription closed")
			}
			handler(ctx, b.pollCode(msg.Channel), []byte(msg.Payload))
		}
	}
}

func (b *Broadcaster) channel(pollCode string) string {
	if b.prefix == "" {
		return pollCode
	}
	return fmt.Sprintf("%s:%s", b.prefix, pollCode)
}

func (b *Broadcaster) pollCode(channel string) string {
	if b.prefix == "" {
		return channel
	}
	prefixLen := len(b.prefix) + 1
	if len(channel) <= prefixLen {
		return channel
	}
	return channel[prefixLen:]
}

var _ domain.Broadcaster = (*Broadcaster)(nil)
