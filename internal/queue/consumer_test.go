package queue

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
)

type memStore struct {
    seen map[string]AuditEvent
    err  error
}

func (m *memStore) Insert(_ context.Context, ev AuditEvent) (bool, error) {
    if m.err != nil {
        return false, m.err
    }
    if _, ok := m.seen[ev.EventID]; ok {
        return false, nil
    }
    m.seen[ev.EventID] = ev
    return true, nil
}

type recordAck struct {
    acked   bool
    nacked  bool
    requeue bool
}

func (r *recordAck) Ack(bool) error { r.acked = true; return nil }

func (r *recordAck) Nack(_ bool, requeue bool) error {
    r.nacked, r.requeue = true, requeue
    return nil
}

func newTestConsumer(store AuditStore) *Consumer {
    return NewConsumer("amqp://unused", "hospitality.audit", store, zap.NewNop())
}

func TestSettle_StoresAndAcks(t *testing.T) {
    store := &memStore{seen: map[string]AuditEvent{}}
    c := newTestConsumer(store)

    body := []byte(`{"event_id":"e-1","operation":"guest_checkin","actor_id":42,"stadium_id":1,` +
        `"entity_type":"guest","entity_id":7,"metadata":{"room_id":5},"occurred_at":"2026-05-01T18:00:00Z"}`)
    ack := &recordAck{}
    c.settle(context.Background(), body, ack)

    assert.True(t, ack.acked)
    require.Contains(t, store.seen, "e-1")
    ev := store.seen["e-1"]
    assert.Equal(t, OpGuestCheckin, ev.Operation)
    assert.Equal(t, uint64(7), ev.EntityID)
    assert.Equal(t, time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC), ev.OccurredAt.UTC())

    // A redelivery is acknowledged and not stored twice.
    again := &recordAck{}
    c.settle(context.Background(), body, again)
    assert.True(t, again.acked)
    assert.Len(t, store.seen, 1)
}

func TestSettle_MalformedDropped(t *testing.T) {
    c := newTestConsumer(&memStore{seen: map[string]AuditEvent{}})

    for _, body := range []string{`not json`, `{"operation":"guest_checkin"}`} {
        ack := &recordAck{}
        c.settle(context.Background(), []byte(body), ack)
        assert.True(t, ack.nacked, body)
        assert.False(t, ack.requeue, body)
    }
}

func TestSettle_StoreFailureRequeuesAfterBackoff(t *testing.T) {
    store := &memStore{seen: map[string]AuditEvent{}, err: errors.New("db down")}
    c := newTestConsumer(store)
    var waits []time.Duration
    c.pause = func(_ context.Context, d time.Duration) bool {
        waits = append(waits, d)
        return true
    }
    body := []byte(`{"event_id":"e-2","operation":"guest_checkout"}`)

    for i := 0; i < 3; i++ {
        ack := &recordAck{}
        c.settle(context.Background(), body, ack)
        assert.True(t, ack.nacked)
        assert.True(t, ack.requeue)
    }
    assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}, waits)

    // Recovery resets the backoff.
    store.err = nil
    ack := &recordAck{}
    c.settle(context.Background(), body, ack)
    assert.True(t, ack.acked)
    store.err = errors.New("db down again")
    c.settle(context.Background(), []byte(`{"event_id":"e-3","operation":"guest_checkout"}`), &recordAck{})
    assert.Equal(t, 500*time.Millisecond, waits[len(waits)-1])
}

func TestStoreBackoff_Capped(t *testing.T) {
    assert.Equal(t, storeRetryBase, storeBackoff(1))
    assert.Equal(t, 4*storeRetryBase, storeBackoff(3))
    assert.Equal(t, storeRetryMax, storeBackoff(20))
}

func TestSettle_BackoffEndsOnCancel(t *testing.T) {
    c := newTestConsumer(&memStore{err: errors.New("db down")})
    ctx, cancel := context.WithCancel(context.Background())
    cancel()

    started := time.Now()
    ack := &recordAck{}
    c.settle(ctx, []byte(`{"event_id":"e-4","operation":"guest_checkin"}`), ack)
    assert.Less(t, time.Since(started), storeRetryBase)
    assert.True(t, ack.requeue)
}

func TestRun_StopsOnCancel(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    err := newTestConsumer(&memStore{}).Run(ctx)
    assert.ErrorIs(t, err, context.Canceled)
}
