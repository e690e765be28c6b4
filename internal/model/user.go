package model

// Role is the name stored in users.role and carried in the JWT "role" claim.
type Role string

const (
    RoleSuperAdmin   Role = "super_admin"
    RoleStadiumAdmin Role = "stadium_admin"
    RoleHostess      Role = "hostess"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
    switch r {
    case RoleSuperAdmin, RoleStadiumAdmin, RoleHostess:
        return true
    }
    return false
}

// User represents an application user record as stored in the `users`
// table.  Hostesses are bound to rooms through hostess_rooms; admins are
// bound to a stadium through StadiumID (zero for super admins).
//
// Fields:
//  ID        – primary key identifier of the user.
//  StadiumID – tenant the user belongs to (0 for super_admin).
//  Username  – unique login name.
//  FullName  – display name used in audit trails.
//  Role      – one of super_admin, stadium_admin, hostess.
//  IsActive  – whether the account is active.
type User struct {
    ID        uint64 // users.id
    StadiumID uint64 // users.stadium_id
    Username  string // users.username
    FullName  string // users.full_name
    Role      Role   // users.role
    IsActive  bool   // users.is_active
}

// Actor is the request-scoped identity handed to the core by the
// authorization layer.  It replaces any process-wide "current user":
// every service call receives it explicitly.
//
// RoomIDs holds the active room assignments of a hostess.  It is ignored
// for admin roles.
type Actor struct {
    UserID    uint64
    StadiumID uint64
    Role      Role
    RoomIDs   []uint64
}

// IsSuperAdmin reports whether the actor may operate across tenants.
func (a Actor) IsSuperAdmin() bool { return a.Role == RoleSuperAdmin }

// IsHostess reports whether the actor is restricted to assigned rooms.
func (a Actor) IsHostess() bool { return a.Role == RoleHostess }

// CanAccessRoom reports whether the actor may see guests of roomID.
// Admins see every room of their tenant; hostesses only assigned rooms.
func (a Actor) CanAccessRoom(roomID uint64) bool {
    if !a.IsHostess() {
        return true
    }
    for _, id := range a.RoomIDs {
        if id == roomID {
            return true
        }
    }
    return false
}

// ScopeRooms intersects the requested room filter with the actor's
// assignments.  For admins the request is returned unchanged.  For a
// hostess an empty request means "all assigned rooms", and a result of
// length zero with ok=false means nothing is visible.
func (a Actor) ScopeRooms(requested []uint64) (rooms []uint64, ok bool) {
    if !a.IsHostess() {
        return requested, true
    }
    if len(requested) == 0 {
        out := append([]uint64(nil), a.RoomIDs...)
        return out, len(out) > 0
    }
    out := make([]uint64, 0, len(requested))
    for _, id := range requested {
        if a.CanAccessRoom(id) {
            out = append(out, id)
        }
    }
    return out, len(out) > 0
}
