package model

import (
    "fmt"
    "strings"
)

// VipLevel is the ordered guest classification
// standard < premium < vip < ultra_vip.
type VipLevel string

const (
    VipStandard VipLevel = "standard"
    VipPremium  VipLevel = "premium"
    VipVIP      VipLevel = "vip"
    VipUltra    VipLevel = "ultra_vip"
)

// VipLevels lists every tier in ascending order.
var VipLevels = []VipLevel{VipStandard, VipPremium, VipVIP, VipUltra}

// Rank returns the position of v in the tier order, or -1 when v is unknown.
func (v VipLevel) Rank() int {
    for i, l := range VipLevels {
        if l == v {
            return i
        }
    }
    return -1
}

// Valid reports whether v is a known tier.
func (v VipLevel) Valid() bool { return v.Rank() >= 0 }

// Less reports whether v ranks strictly below other.
func (v VipLevel) Less(other VipLevel) bool { return v.Rank() < other.Rank() }

// ParseVipLevel normalises user input into a VipLevel.
func ParseVipLevel(s string) (VipLevel, error) {
    v := VipLevel(strings.ToLower(strings.TrimSpace(s)))
    if !v.Valid() {
        return "", fmt.Errorf("unknown vip level %q", s)
    }
    return v, nil
}

// Guest represents a row in the `guests` table.  A guest belongs to one
// stadium (tenant), one event and one room at a time.  Guests are never
// hard-deleted while access history exists; IsActive=false hides them.
//
// Fields:
//  ID           – primary key identifier.
//  StadiumID    – owning tenant.
//  EventID      – event the guest is invited to.
//  RoomID       – hospitality room currently assigned.
//  FirstName    – given name.
//  LastName     – family name.
//  CompanyName  – optional company.
//  TableNumber  – optional table assignment.
//  SeatNumber   – optional seat assignment.
//  VipLevel     – tier.
//  ContactEmail – optional email.
//  ContactPhone – optional phone.
//  IsActive     – soft-delete flag.
type Guest struct {
    ID           uint64   // guests.id
    StadiumID    uint64   // guests.stadium_id
    EventID      uint64   // guests.event_id
    RoomID       uint64   // guests.room_id
    FirstName    string   // guests.first_name
    LastName     string   // guests.last_name
    CompanyName  string   // guests.company_name
    TableNumber  string   // guests.table_number
    SeatNumber   string   // guests.seat_number
    VipLevel     VipLevel // guests.vip_level
    ContactEmail string   // guests.contact_email
    ContactPhone string   // guests.contact_phone
    IsActive     bool     // guests.is_active
}

// DisplayName renders "Last First" as shown in hostess lists.
func (g Guest) DisplayName() string {
    return DisplayName(g.FirstName, g.LastName)
}

// DisplayName joins last and first name, skipping empty parts.
func DisplayName(first, last string) string {
    return strings.TrimSpace(strings.TrimSpace(last) + " " + strings.TrimSpace(first))
}
