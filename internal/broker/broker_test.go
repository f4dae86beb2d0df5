package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader serves queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func paymentMessage(t *testing.T, reference string) kafka.Message {
	t.Helper()
	value, err := json.Marshal(models.PaymentReceivedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-1", EventType: models.EventTypePaymentReceived, Timestamp: time.Now()},
		Reference: reference,
		Network:   models.PaymentMTN,
		Amount:    345000,
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte("order-" + reference), Value: value}
}

func TestPublishOrderEventsKeyedByReference(t *testing.T) {
	w := &fakeWriter{}
	ep := NewEventPublisher(newProducer(w))

	err := ep.PublishOrderCreated(context.Background(), &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderCreated},
		Reference: "ORD-LOYW3V28-AB12",
		Total:     345000,
	})
	require.NoError(t, err)
	err = ep.PublishProductEvent(context.Background(), &models.ProductEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeProductRemoved},
		Product:   models.Product{ID: "3"},
	})
	require.NoError(t, err)

	require.Len(t, w.messages, 2)
	assert.Equal(t, "order-ORD-LOYW3V28-AB12", string(w.messages[0].Key))
	assert.Equal(t, "product-3", string(w.messages[1].Key))

	var decoded models.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, int64(345000), decoded.Total)
	assert.Equal(t, models.EventTypeOrderCreated, decoded.EventType)
}

func TestPublishWrapsWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	ep := NewEventPublisher(newProducer(w))

	err := ep.PublishOrderConfirmed(context.Background(), &models.OrderConfirmedEvent{Reference: "ORD-A-0000"})
	assert.ErrorContains(t, err, "leader not available")
}

func TestHandleMessageRoutesPaymentReceived(t *testing.T) {
	var got *models.PaymentReceivedEvent
	eh := NewEventHandler()
	eh.OnPaymentReceived(func(_ context.Context, e *models.PaymentReceivedEvent) error {
		got = e
		return nil
	})

	require.NoError(t, eh.HandleMessage(context.Background(), paymentMessage(t, "ORD-LOYW3V28-AB12")))
	require.NotNil(t, got)
	assert.Equal(t, "ORD-LOYW3V28-AB12", got.Reference)
	assert.Equal(t, models.PaymentMTN, got.Network)
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
	eh := NewEventHandler()
	eh.OnPaymentReceived(func(context.Context, *models.PaymentReceivedEvent) error { return nil })

	err := eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.ErrorIs(t, err, ErrMalformedEvent)

	err = eh.HandleMessage(context.Background(), paymentMessage(t, ""))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	unknown := kafka.Message{Value: []byte(`{"event_type":"SOMETHING_ELSE"}`)}
	assert.NoError(t, eh.HandleMessage(context.Background(), unknown))
}

func newTestConsumer(r messageReader) *Consumer {
	c := newConsumer(r, "payment-events")
	c.minBackoff = time.Millisecond
	c.maxBackoff = 4 * time.Millisecond
	return c
}

func offsetMessage(t *testing.T, reference string, offset int64) kafka.Message {
	t.Helper()
	msg := paymentMessage(t, reference)
	msg.Offset = offset
	return msg
}

func committedOffsets(r *fakeReader) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	offsets := make([]int64, 0, len(r.committed))
	for _, m := range r.committed {
		offsets = append(offsets, m.Offset)
	}
	return offsets
}

func TestStartConsumingRetriesFailedMessageBeforeMovingOn(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		offsetMessage(t, "ORD-FAIL-0001", 10),
		offsetMessage(t, "ORD-NEXT-0002", 11),
	}}
	c := newTestConsumer(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var handled []int64
	failures := 2
	err := c.StartConsuming(ctx, func(_ context.Context, msg kafka.Message) error {
		handled = append(handled, msg.Offset)
		if msg.Offset == 10 && failures > 0 {
			failures--
			return errors.New("failed to persist state")
		}
		if msg.Offset == 11 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{10, 10, 10, 11}, handled)
	assert.Equal(t, []int64{10, 11}, committedOffsets(r))
}

func TestStartConsumingStopsRetryingOnCancel(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		offsetMessage(t, "ORD-FAIL-0001", 10),
		offsetMessage(t, "ORD-NEXT-0002", 11),
	}}
	c := newTestConsumer(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	attempts := 0
	err := c.StartConsuming(ctx, func(_ context.Context, msg kafka.Message) error {
		attempts++
		if attempts == 3 {
			cancel()
		}
		return errors.New("connection refused")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, attempts)
	assert.Empty(t, committedOffsets(r))
}

func TestStartConsumingCommitsMalformedMessages(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		{Value: []byte("not json"), Offset: 10},
		offsetMessage(t, "ORD-NEXT-0002", 11),
	}}
	c := newTestConsumer(r)
	eh := NewEventHandler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var confirmed []string
	eh.OnPaymentReceived(func(_ context.Context, e *models.PaymentReceivedEvent) error {
		confirmed = append(confirmed, e.Reference)
		cancel()
		return nil
	})

	err := c.StartConsuming(ctx, eh.HandleMessage)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"ORD-NEXT-0002"}, confirmed)
	assert.Equal(t, []int64{10, 11}, committedOffsets(r))
}
