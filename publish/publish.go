// Package publish emits finished simulations to an external channel.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PayloadField is the stream entry field holding the JSON body.
const PayloadField = "payload"

// Publisher sends values out and owns whatever connection it needs.
type Publisher interface {
	Publish(ctx context.Context, v any) error
	Close() error
}

// Options configures New. An empty Addr disables publishing.
type Options struct {
	Addr        string
	Stream      string
	MaxLen      int64
	DialTimeout time.Duration
}

// New returns a Redis stream publisher, or Nop when o.Addr is empty.
func New(o Options) Publisher {
	if o.Addr == "" {
		return Nop{}
	}
	return NewRedis(o)
}

// Nop drops everything.
type Nop struct{}

func (Nop) Publish(context.Context, any) error { return nil }
func (Nop) Close() error                       { return nil }

// Redis appends each value as JSON to a capped stream with XADD.
type Redis struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedis(o Options) *Redis {
	dial := o.DialTimeout
	if dial <= 0 {
		dial = 2 * time.Second
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:        o.Addr,
			DialTimeout: dial,
			MaxRetries:  -1,
		}),
		stream: o.Stream,
		maxLen: o.MaxLen,
	}
}

func (r *Redis) Publish(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{PayloadField: string(body)},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
