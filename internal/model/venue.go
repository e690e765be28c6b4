package model

import "time"

// Stadium is the tenant: every room, event, guest and ledger row carries
// its ID.
type Stadium struct {
    ID       uint64 // stadiums.id
    Name     string // stadiums.name
    IsActive bool   // stadiums.is_active
}

// Room is a hospitality room (skybox, lounge) inside a stadium.
type Room struct {
    ID        uint64 // rooms.id
    StadiumID uint64 // rooms.stadium_id
    Name      string // rooms.name
    Capacity  uint32 // rooms.capacity
    IsActive  bool   // rooms.is_active
}

// Event is a match or show hosted by a stadium.
type Event struct {
    ID        uint64    // events.id
    StadiumID uint64    // events.stadium_id
    Name      string    // events.name
    EventDate time.Time // events.event_date
    IsActive  bool      // events.is_active
}

// RoomAssignment links a hostess to a room.  Rows are toggled rather than
// deleted so that history of who worked where is kept.
type RoomAssignment struct {
    ID       uint64 // hostess_rooms.id
    UserID   uint64 // hostess_rooms.user_id
    RoomID   uint64 // hostess_rooms.room_id
    IsActive bool   // hostess_rooms.is_active
}
