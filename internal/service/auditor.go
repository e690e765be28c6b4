package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/stadium-hospitality/internal/queue"
)

// AuditSink receives one event per state-changing operation.  Emit must
// never block the caller or report failure.
type AuditSink interface {
	Emit(ev queue.AuditEvent)
}

// DiscardAudit drops every event; it is used when auditing is disabled.
type DiscardAudit struct{}

func (DiscardAudit) Emit(queue.AuditEvent) {}

// AuditPublisher delivers audit events to the broker.
type AuditPublisher interface {
	Publish(ctx context.Context, ev queue.AuditEvent) error
}

// Auditor is a best-effort side channel: Emit enqueues into a bounded buffer
// and a single goroutine publishes.  A full buffer or a failed publish is
// logged and the event dropped; the business operation is unaffected.
type Auditor struct {
	pub     AuditPublisher
	log     *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	ch     chan queue.AuditEvent
	done   chan struct{}
}

// NewAuditor starts the publishing goroutine.  Call Close to drain it.
func NewAuditor(pub AuditPublisher, buffer int, timeout time.Duration, log *zap.Logger) *Auditor {
	if buffer < 1 {
		buffer = 1
	}
	a := &Auditor{
		pub:     pub,
		log:     log,
		timeout: timeout,
		ch:      make(chan queue.AuditEvent, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Emit stamps ev with an id and time when missing and enqueues it without
// blocking.
func (a *Auditor) Emit(ev queue.AuditEvent) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.log.Warn("audit event dropped after close", zap.String("operation", ev.Operation), zap.String("event_id", ev.EventID))
		return
	}
	select {
	case a.ch <- ev:
	default:
		a.log.Warn("audit buffer full, event dropped",
			zap.String("operation", ev.Operation),
			zap.String("event_id", ev.EventID),
			zap.Uint64("stadium_id", ev.StadiumID),
		)
	}
}

func (a *Auditor) run() {
	defer close(a.done)
	for ev := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.pub.Publish(ctx, ev)
		cancel()
		if err != nil {
			a.log.Warn("audit publish failed",
				zap.String("operation", ev.Operation),
				zap.String("event_id", ev.EventID),
				zap.Error(err),
			)
		}
	}
}

// Close stops accepting events and waits until the buffer is drained or
// ctx expires.
func (a *Auditor) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
