package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/stadium-hospitality/internal/database"
	"github.com/iliyamo/stadium-hospitality/internal/model"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// accessColumns is the column list matching scanAccess.
const accessColumns = `id, guest_id, hostess_id, stadium_id, room_id, event_id,
       access_type, access_time, device_type, companions, notes`

// AccessRepo is the ledger: the only writer of guest_accesses.  Rows are
// inserted and read, never updated or deleted.
type AccessRepo struct {
	db      *sql.DB
	log     *zap.Logger
	retries int
}

// NewAccessRepo returns an AccessRepo bound to db.  retries is the number of
// extra attempts granted to read queries on transient store errors.
func NewAccessRepo(db *sql.DB, log *zap.Logger, retries int) *AccessRepo {
	return &AccessRepo{db: db, log: log, retries: retries}
}

// DB exposes the underlying pool so callers can begin transactions.
func (r *AccessRepo) DB() *sql.DB { return r.db }

// GuestRef is the slice of a guest row needed to record an access.
type GuestRef struct {
	ID        uint64
	StadiumID uint64
	EventID   uint64
	RoomID    uint64
	RoomName  string
	FirstName string
	LastName  string
}

// AppendRequest describes one ledger write.  RoomID and EventID default to
// the guest's current assignment when zero; an exit defaults to the room of
// the entry it closes.  AllowedRooms, when non-nil,
// restricts the write to guests whose room is listed (hostess scope).
type AppendRequest struct {
	GuestID      uint64
	HostessID    uint64
	StadiumID    uint64
	RoomID       uint64
	EventID      uint64
	Type         model.AccessType
	DeviceType   string
	Companions   uint8
	Notes        string
	AllowedRooms []uint64
}

// AppendResult is the outcome of a successful Append.  Previous is the
// event that defined the presence before the write (nil for first access).
type AppendResult struct {
	Event    model.AccessEvent
	Previous *model.AccessEvent
	Guest    GuestRef
}

// PreviousStatus is the presence the guest had before the write.
func (a AppendResult) PreviousStatus() model.PresenceStatus {
	if a.Previous == nil {
		return model.StatusNeverAccessed
	}
	return model.StatusFor(a.Previous.AccessType)
}

// Append validates the transition and inserts exactly one ledger row in a
// single transaction.  The guest row is locked with SELECT ... FOR UPDATE
// first, so concurrent appends for the same guest run one after the other
// and the second observes the first's row.  Append is never retried: a
// transient failure surfaces as ErrUnavailable and the caller must start
// again from a fresh read.
func (r *AccessRepo) Append(ctx context.Context, req AppendRequest) (*AppendResult, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: access type %q", ErrValidation, req.Type)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err, "begin")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	guest, err := r.LockGuestTx(ctx, tx, req.GuestID, req.StadiumID)
	if err != nil {
		return nil, err
	}
	if req.AllowedRooms != nil && !containsID(req.AllowedRooms, guest.RoomID) {
		return nil, fmt.Errorf("%w: guest %d is not in an assigned room", ErrNotFound, req.GuestID)
	}
	prev, err := r.LatestTx(ctx, tx, req.GuestID)
	if err != nil {
		return nil, err
	}
	current := model.StatusNeverAccessed
	if prev != nil {
		current = model.StatusFor(prev.AccessType)
	}
	if !model.CanTransition(current, req.Type) {
		r.log.Debug("access rejected",
			zap.Uint64("guest_id", req.GuestID),
			zap.String("type", string(req.Type)),
			zap.String("status", string(current)),
		)
		return nil, fmt.Errorf("%w: cannot record %s for guest %d while %s", ErrInvalidTransition, req.Type, req.GuestID, current)
	}

	ev := model.AccessEvent{
		GuestID:    guest.ID,
		HostessID:  req.HostessID,
		StadiumID:  guest.StadiumID,
		RoomID:     req.RoomID,
		EventID:    req.EventID,
		AccessType: req.Type,
		DeviceType: req.DeviceType,
		Companions: req.Companions,
		Notes:      req.Notes,
	}
	if ev.RoomID == 0 {
		ev.RoomID = guest.RoomID
		if req.Type == model.AccessExit && prev != nil {
			ev.RoomID = prev.RoomID
		}
	}
	if ev.EventID == 0 {
		ev.EventID = guest.EventID
	}
	if err := r.AppendTx(ctx, tx, &ev); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(err, "commit")
	}
	committed = true
	return &AppendResult{Event: ev, Previous: prev, Guest: *guest}, nil
}

// LockGuestTx loads an active guest of stadiumID and locks its row until the
// transaction ends.  It returns ErrNotFound when the guest is missing,
// inactive or belongs to another stadium.
//
// Only the guest row is locked.  The room name comes from a nested
// subquery, which a locking read does not lock, so check-ins of different
// guests in the same room never wait on each other.
func (r *AccessRepo) LockGuestTx(ctx context.Context, tx *sql.Tx, guestID, stadiumID uint64) (*GuestRef, error) {
	const q = `SELECT g.id, g.stadium_id, g.event_id, g.room_id,
                      COALESCE((SELECT rm.name FROM rooms rm WHERE rm.id = g.room_id), ''),
                      g.first_name, g.last_name
               FROM guests g
               WHERE g.id = ? AND g.stadium_id = ? AND g.is_active = 1
               FOR UPDATE`
	var g GuestRef
	err := tx.QueryRowContext(ctx, q, guestID, stadiumID).Scan(
		&g.ID, &g.StadiumID, &g.EventID, &g.RoomID, &g.RoomName, &g.FirstName, &g.LastName,
	)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("guest %d", guestID))
	}
	return &g, nil
}

// LatestTx returns the ledger row with the highest id for guestID, or nil
// when the guest has never accessed.
func (r *AccessRepo) LatestTx(ctx context.Context, tx *sql.Tx, guestID uint64) (*model.AccessEvent, error) {
	q := `SELECT ` + accessColumns + `
          FROM guest_accesses
          WHERE guest_id = ?
          ORDER BY id DESC
          LIMIT 1`
	ev, err := scanAccess(tx.QueryRowContext(ctx, q, guestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "latest access")
	}
	return ev, nil
}

// AppendTx inserts ev inside tx and populates its id and server-assigned
// access_time.  It performs no validation; use Append for the checked path.
func (r *AccessRepo) AppendTx(ctx context.Context, tx *sql.Tx, ev *model.AccessEvent) error {
	const q = `INSERT INTO guest_accesses
               (guest_id, hostess_id, stadium_id, room_id, event_id, access_type, access_time, device_type, companions, notes)
               VALUES (?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(3), ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		ev.GuestID, ev.HostessID, ev.StadiumID, ev.RoomID, ev.EventID,
		string(ev.AccessType), ev.DeviceType, ev.Companions, ev.Notes,
	)
	if err != nil {
		return classify(err, "append access")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	// Query back the row to pick up the server clock.
	sel := `SELECT ` + accessColumns + ` FROM guest_accesses WHERE id = ?`
	stored, err := scanAccess(tx.QueryRowContext(ctx, sel, uint64(id)))
	if err != nil {
		return classify(err, "stored access")
	}
	*ev = *stored
	return nil
}

// History returns up to limit events of guestID, most recent first.  The
// slice is a snapshot taken at call time.
func (r *AccessRepo) History(ctx context.Context, guestID uint64, limit int) ([]model.AccessEvent, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	q := `SELECT ` + accessColumns + `
          FROM guest_accesses
          WHERE guest_id = ?
          ORDER BY id DESC
          LIMIT ?`
	var out []model.AccessEvent
	err := database.Retry(ctx, r.retries, func() error {
		out = out[:0]
		rows, err := r.db.QueryContext(ctx, q, guestID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			ev, err := scanAccess(rows)
			if err != nil {
				return err
			}
			out = append(out, *ev)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify(err, "history")
	}
	if out == nil {
		out = []model.AccessEvent{}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccess(s rowScanner) (*model.AccessEvent, error) {
	var ev model.AccessEvent
	var typ string
	if err := s.Scan(
		&ev.ID, &ev.GuestID, &ev.HostessID, &ev.StadiumID, &ev.RoomID, &ev.EventID,
		&typ, &ev.AccessTime, &ev.DeviceType, &ev.Companions, &ev.Notes,
	); err != nil {
		return nil, err
	}
	ev.AccessType = model.AccessType(typ)
	ev.AccessTime = ev.AccessTime.UTC()
	return &ev, nil
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
