// Package queue defines the audit payload exchanged over the message broker
// and the consumer that persists it.
package queue

import "time"

// Audit operations emitted by the access core.
const (
    OpGuestCheckin  = "guest_checkin"
    OpGuestCheckout = "guest_checkout"
)

// AuditEvent is published once per state-changing operation.  It carries
// enough context for the consumer to store it without querying guests or
// the ledger.  EventID is a UUID assigned by the publisher; the consumer
// uses it to drop redeliveries.
type AuditEvent struct {
    EventID    string         `json:"event_id"`
    Operation  string         `json:"operation"`
    ActorID    uint64         `json:"actor_id"`
    StadiumID  uint64         `json:"stadium_id"`
    EntityType string         `json:"entity_type"`
    EntityID   uint64         `json:"entity_id"`
    Metadata   map[string]any `json:"metadata,omitempty"`
    OccurredAt time.Time      `json:"occurred_at"`
}
