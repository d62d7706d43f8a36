package publish

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutAddressIsNop(t *testing.T) {
	p := New(Options{Stream: "simulations"})
	_, ok := p.(Nop)
	require.True(t, ok)

	assert.NoError(t, p.Publish(context.Background(), map[string]int{"a": 1}))
	assert.NoError(t, p.Close())
}

func TestNewWithAddressIsRedis(t *testing.T) {
	p := New(Options{Addr: "127.0.0.1:6379", Stream: "simulations", MaxLen: 100})
	r, ok := p.(*Redis)
	require.True(t, ok)
	assert.Equal(t, "simulations", r.stream)
	assert.Equal(t, int64(100), r.maxLen)
	assert.NoError(t, p.Close())
}

func TestRedisPublishUnencodable(t *testing.T) {
	r := NewRedis(Options{Addr: "127.0.0.1:1", Stream: "simulations"})
	defer r.Close()

	err := r.Publish(context.Background(), make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode event")
}

func TestRedisPublishUnreachable(t *testing.T) {
	r := NewRedis(Options{Addr: "127.0.0.1:1", Stream: "simulations", DialTimeout: 200 * time.Millisecond})
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := r.Publish(ctx, map[string]string{"id": "01A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xadd simulations")
}
