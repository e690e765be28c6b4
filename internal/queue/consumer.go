package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// AuditStore persists audit events.  Insert reports false for an event id
// that was already stored.
type AuditStore interface {
    Insert(ctx context.Context, ev AuditEvent) (bool, error)
}

// Store failures hold the delivery back before requeueing it: storeRetryBase
// after the first failure, doubling up to storeRetryMax.
const (
    storeRetryBase = 500 * time.Millisecond
    storeRetryMax  = 30 * time.Second
)

// Consumer drains the audit queue into an AuditStore.  Deliveries are
// handled one at a time on the Run goroutine.
type Consumer struct {
    url   string
    queue string
    store AuditStore
    log   *zap.Logger

    storeFailures int                                    // consecutive, reset by a successful insert
    pause         func(context.Context, time.Duration) bool // sleep, replaced in tests
}

func NewConsumer(url, queueName string, store AuditStore, log *zap.Logger) *Consumer {
    return &Consumer{url: url, queue: queueName, store: store, log: log, pause: sleep}
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes until
// ctx is cancelled.  Broken connections are retried with exponential backoff
// capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("audit consumer: consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("audit consumer: set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            c.deliver(ctx, d)
        }
    }
}

// ackNacker is the part of amqp.Delivery the consumer needs.
type ackNacker interface {
    Ack(multiple bool) error
    Nack(multiple, requeue bool) error
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
    c.settle(ctx, d.Body, d)
}

// settle handles one message.  Malformed payloads are rejected without
// requeue.  Store failures are requeued so the event is not lost, after a
// backoff that grows while the store keeps failing; with prefetch the
// broker cannot hand the message straight back in a tight loop.
func (c *Consumer) settle(ctx context.Context, body []byte, ack ackNacker) {
    err := c.handle(ctx, body)
    switch {
    case err == nil:
        c.storeFailures = 0
        _ = ack.Ack(false)
    case errors.Is(err, errMalformed):
        c.log.Warn("audit consumer: dropping malformed message", zap.Error(err))
        _ = ack.Nack(false, false)
    default:
        c.storeFailures++
        wait := storeBackoff(c.storeFailures)
        c.log.Error("audit consumer: store failed, requeueing",
            zap.Error(err), zap.Int("failures", c.storeFailures), zap.Duration("requeue_in", wait))
        c.pause(ctx, wait)
        _ = ack.Nack(false, true)
    }
}

// storeBackoff is the hold-back before the n-th consecutive requeue.
func storeBackoff(n int) time.Duration {
    d := storeRetryBase
    for i := 1; i < n && d < storeRetryMax; i++ {
        d *= 2
    }
    if d > storeRetryMax {
        d = storeRetryMax
    }
    return d
}

var errMalformed = errors.New("malformed audit event")

func (c *Consumer) handle(ctx context.Context, body []byte) error {
    var ev AuditEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("%w: %v", errMalformed, err)
    }
    if ev.EventID == "" || ev.Operation == "" {
        return fmt.Errorf("%w: missing event_id or operation", errMalformed)
    }
    if ev.OccurredAt.IsZero() {
        ev.OccurredAt = time.Now().UTC()
    }
    stored, err := c.store.Insert(ctx, ev)
    if err != nil {
        return err
    }
    if !stored {
        c.log.Debug("audit consumer: duplicate delivery", zap.String("event_id", ev.EventID))
    }
    return nil
}
