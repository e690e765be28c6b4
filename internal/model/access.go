package model

import "time"

// AccessType is the kind of ledger row: a guest entering or leaving.
type AccessType string

const (
    AccessEntry AccessType = "entry"
    AccessExit  AccessType = "exit"
)

// Valid reports whether t is entry or exit.
func (t AccessType) Valid() bool { return t == AccessEntry || t == AccessExit }

// PresenceStatus is the derived state of a guest.  It is never stored.
type PresenceStatus string

const (
    StatusNeverAccessed PresenceStatus = "never_accessed"
    StatusCheckedIn     PresenceStatus = "checked_in"
    StatusCheckedOut    PresenceStatus = "checked_out"
)

// StatusFor maps the type of a guest's latest access to a presence status.
func StatusFor(t AccessType) PresenceStatus {
    switch t {
    case AccessEntry:
        return StatusCheckedIn
    case AccessExit:
        return StatusCheckedOut
    }
    return StatusNeverAccessed
}

// AccessEvent is an immutable row of the `guest_accesses` ledger.  IDs are
// assigned by the database at insert time and grow monotonically, so the
// highest ID is the latest event regardless of AccessTime.
//
// Fields:
//  ID         – auto-increment primary key.
//  GuestID    – guest the event belongs to.
//  HostessID  – user who recorded the event.
//  StadiumID  – tenant.
//  RoomID     – room where the event happened (authoritative for occupancy).
//  EventID    – event the guest attended.
//  AccessType – entry or exit.
//  AccessTime – server clock at write time.
//  DeviceType – client device label (optional).
//  Companions – number of companions admitted with the guest.
//  Notes      – free-form hostess note (optional).
type AccessEvent struct {
    ID         uint64     `json:"id"`          // guest_accesses.id
    GuestID    uint64     `json:"guest_id"`    // guest_accesses.guest_id
    HostessID  uint64     `json:"hostess_id"`  // guest_accesses.hostess_id
    StadiumID  uint64     `json:"stadium_id"`  // guest_accesses.stadium_id
    RoomID     uint64     `json:"room_id"`     // guest_accesses.room_id
    EventID    uint64     `json:"event_id"`    // guest_accesses.event_id
    AccessType AccessType `json:"access_type"` // guest_accesses.access_type
    AccessTime time.Time  `json:"access_time"` // guest_accesses.access_time
    DeviceType string     `json:"device_type,omitempty"` // guest_accesses.device_type
    Companions uint8      `json:"companions"`  // guest_accesses.companions
    Notes      string     `json:"notes,omitempty"` // guest_accesses.notes
}

// Presence is the current status of a guest plus metadata of the event it
// was derived from.  LastEvent is nil for never_accessed guests.
type Presence struct {
    GuestID   uint64         `json:"guest_id"`
    Status    PresenceStatus `json:"status"`
    LastEvent *AccessEvent   `json:"last_event,omitempty"`
}

// ResolvePresence derives the presence of guestID from its events.  The
// event with the highest ID wins; order of the input slice is irrelevant.
// Events that belong to other guests are ignored.
func ResolvePresence(guestID uint64, events []AccessEvent) Presence {
    p := Presence{GuestID: guestID, Status: StatusNeverAccessed}
    for i := range events {
        ev := events[i]
        if ev.GuestID != guestID {
            continue
        }
        if p.LastEvent == nil || ev.ID > p.LastEvent.ID {
            p.LastEvent = &ev
        }
    }
    if p.LastEvent != nil {
        p.Status = StatusFor(p.LastEvent.AccessType)
    }
    return p
}

// CanTransition reports whether an access of type t is allowed from state s.
//
//  never_accessed --entry--> checked_in
//  checked_in     --exit---> checked_out
//  checked_out    --entry--> checked_in
func CanTransition(s PresenceStatus, t AccessType) bool {
    switch t {
    case AccessEntry:
        return s == StatusNeverAccessed || s == StatusCheckedOut
    case AccessExit:
        return s == StatusCheckedIn
    }
    return false
}
