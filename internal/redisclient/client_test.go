package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	c, err := NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestClientLoadSave(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	_, ok, err := c.Load(ctx, "store_cart")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Save(ctx, "store_cart", []byte(`[{"id":"1","quantity":1}]`)))

	value, ok, err := c.Load(ctx, "store_cart")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1","quantity":1}]`, string(value))

	raw, err := mr.Get("storefront:store_cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1","quantity":1}]`, raw)
}

func TestClientLoadError(t *testing.T) {
	c, mr := newTestClient(t)
	mr.SetError("LOADING")

	_, _, err := c.Load(context.Background(), "store_orders")
	assert.ErrorContains(t, err, "redis get store_orders failed")
}

func TestNewClientUnreachable(t *testing.T) {
	_, err := NewClient("127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func TestIdempotencyStore(t *testing.T) {
	c, mr := newTestClient(t)
	s := NewIdempotencyStore(c, time.Minute)
	ctx := context.Background()

	_, ok, err := s.Lookup(ctx, "checkout-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Remember(ctx, "checkout-1", "ORD-ABC-1234"))
	require.NoError(t, s.Remember(ctx, "checkout-1", "ORD-DEF-5678"))

	ref, ok, err := s.Lookup(ctx, "checkout-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ORD-ABC-1234", ref)

	mr.FastForward(2 * time.Minute)
	_, ok, err = s.Lookup(ctx, "checkout-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
