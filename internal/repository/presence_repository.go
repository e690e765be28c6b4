package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/stadium-hospitality/internal/database"
	"github.com/iliyamo/stadium-hospitality/internal/model"
)

// bulkChunk bounds the IN (...) list of a single BulkStatus query.
const bulkChunk = 1000

// PresenceRepo derives presence from the ledger.  It never writes; every
// answer is computed from guest_accesses at query time.
type PresenceRepo struct {
	db      *sql.DB
	retries int
}

// NewPresenceRepo returns a PresenceRepo bound to db.
func NewPresenceRepo(db *sql.DB, retries int) *PresenceRepo {
	return &PresenceRepo{db: db, retries: retries}
}

// CurrentStatus returns the presence of guestID: the type of its highest-id
// ledger row, or never_accessed when it has none.
func (r *PresenceRepo) CurrentStatus(ctx context.Context, guestID uint64) (model.Presence, error) {
	q := `SELECT ` + accessColumns + `
          FROM guest_accesses
          WHERE guest_id = ?
          ORDER BY id DESC
          LIMIT 1`
	var ev *model.AccessEvent
	err := database.Retry(ctx, r.retries, func() error {
		var err error
		ev, err = scanAccess(r.db.QueryRowContext(ctx, q, guestID))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Presence{GuestID: guestID, Status: model.StatusNeverAccessed}, nil
	}
	if err != nil {
		return model.Presence{}, classify(err, "current status")
	}
	return model.Presence{GuestID: guestID, Status: model.StatusFor(ev.AccessType), LastEvent: ev}, nil
}

// BulkStatus resolves the presence of every id in guestIDs with one query
// per bulkChunk ids.  Guests without ledger rows map to never_accessed.  A
// non-zero stadiumID ignores ledger rows of other tenants.  A non-nil
// roomIDs keeps only guests currently seated in one of those rooms; the
// others report never_accessed.
func (r *PresenceRepo) BulkStatus(ctx context.Context, stadiumID uint64, roomIDs, guestIDs []uint64) (map[uint64]model.Presence, error) {
	ids := dedupeIDs(guestIDs)
	out := make(map[uint64]model.Presence, len(ids))
	for _, id := range ids {
		out[id] = model.Presence{GuestID: id, Status: model.StatusNeverAccessed}
	}
	for start := 0; start < len(ids); start += bulkChunk {
		end := start + bulkChunk
		if end > len(ids) {
			end = len(ids)
		}
		if err := r.resolveChunk(ctx, stadiumID, roomIDs, ids[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PresenceRepo) resolveChunk(ctx context.Context, stadiumID uint64, roomIDs, ids []uint64, out map[uint64]model.Presence) error {
	placeholders, args := inList(ids)
	tenant := ""
	if stadiumID > 0 {
		tenant = " AND stadium_id = ?"
		args = append(args, stadiumID)
	}
	if roomIDs != nil {
		if len(roomIDs) == 0 {
			return nil
		}
		roomPH, roomArgs := inList(roomIDs)
		tenant += " AND guest_id IN (SELECT id FROM guests WHERE room_id IN (" + roomPH + "))"
		args = append(args, roomArgs...)
	}
	// The derived table picks MAX(id) per guest over the (guest_id, id) index.
	q := `SELECT ga.id, ga.guest_id, ga.hostess_id, ga.stadium_id, ga.room_id, ga.event_id,
                 ga.access_type, ga.access_time, ga.device_type, ga.companions, ga.notes
          FROM guest_accesses ga
          JOIN (SELECT guest_id, MAX(id) AS max_id
                FROM guest_accesses
                WHERE guest_id IN (` + placeholders + `)` + tenant + `
                GROUP BY guest_id) last ON last.max_id = ga.id`
	found := make(map[uint64]model.Presence, len(ids))
	err := database.Retry(ctx, r.retries, func() error {
		clear(found)
		rows, err := r.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			ev, err := scanAccess(rows)
			if err != nil {
				return err
			}
			found[ev.GuestID] = model.Presence{GuestID: ev.GuestID, Status: model.StatusFor(ev.AccessType), LastEvent: ev}
		}
		return rows.Err()
	})
	if err != nil {
		return classify(err, "bulk status")
	}
	for id, p := range found {
		out[id] = p
	}
	return nil
}

// Occupant is a guest currently inside a room according to the ledger.
type Occupant struct {
	GuestID       uint64         `json:"guest_id"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	CompanyName   string         `json:"company_name"`
	VipLevel      model.VipLevel `json:"vip_level"`
	TableNumber   string         `json:"table_number"`
	CurrentRoomID uint64         `json:"current_room_id"`
	EntryID       uint64         `json:"entry_id"`
	HostessID     uint64         `json:"hostess_id"`
	CheckedInAt   time.Time      `json:"checked_in_at"`
}

// RoomOccupants lists guests whose latest ledger row is an entry recorded in
// roomID with no later exit.  The room written on the entry row is
// authoritative: a guest moved to another room after entering still counts
// here and not in the new room.
func (r *PresenceRepo) RoomOccupants(ctx context.Context, roomID uint64) ([]Occupant, error) {
	const q = `SELECT g.id, g.first_name, g.last_name, g.company_name, g.vip_level, g.table_number, g.room_id,
                      ga.id, ga.hostess_id, ga.access_time
               FROM guest_accesses ga
               JOIN guests g ON g.id = ga.guest_id
               WHERE ga.room_id = ?
                 AND g.is_active = 1
                 AND ga.access_type = 'entry'
                 AND ga.id = (SELECT MAX(x.id) FROM guest_accesses x WHERE x.guest_id = ga.guest_id)
                 AND NOT EXISTS (SELECT 1 FROM guest_accesses o
                                 WHERE o.guest_id = ga.guest_id AND o.id > ga.id AND o.access_type = 'exit')
               ORDER BY g.last_name, g.first_name, g.id`
	var out []Occupant
	err := database.Retry(ctx, r.retries, func() error {
		out = out[:0]
		rows, err := r.db.QueryContext(ctx, q, roomID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var o Occupant
			var vip string
			if err := rows.Scan(&o.GuestID, &o.FirstName, &o.LastName, &o.CompanyName, &vip, &o.TableNumber,
				&o.CurrentRoomID, &o.EntryID, &o.HostessID, &o.CheckedInAt); err != nil {
				return err
			}
			o.VipLevel = model.VipLevel(vip)
			o.CheckedInAt = o.CheckedInAt.UTC()
			out = append(out, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify(err, "room occupants")
	}
	if out == nil {
		out = []Occupant{}
	}
	return out, nil
}

func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// inList builds "?,?,?" and the matching argument slice.
func inList(ids []uint64) (string, []any) {
	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	return strings.Join(placeholders, ","), args
}
