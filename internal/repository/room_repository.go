package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/stadium-hospitality/internal/database"
	"github.com/iliyamo/stadium-hospitality/internal/model"
)

// RoomRepo looks up rooms, events and hostess room assignments.
type RoomRepo struct {
	db      *sql.DB
	retries int
}

func NewRoomRepo(db *sql.DB, retries int) *RoomRepo {
	return &RoomRepo{db: db, retries: retries}
}

// AssignedRoomIDs lists the active rooms userID is actively assigned to,
// in ascending id order.
func (r *RoomRepo) AssignedRoomIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	const q = `SELECT hr.room_id
               FROM hostess_rooms hr
               JOIN rooms rm ON rm.id = hr.room_id
               WHERE hr.user_id = ? AND hr.is_active = 1 AND rm.is_active = 1
               ORDER BY hr.room_id`
	var out []uint64
	err := database.Retry(ctx, r.retries, func() error {
		out = out[:0]
		rows, err := r.db.QueryContext(ctx, q, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id uint64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			out = append(out, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify(err, "room assignments")
	}
	if out == nil {
		out = []uint64{}
	}
	return out, nil
}

// RoomInStadium loads an active room.  A non-zero stadiumID additionally
// requires the room to belong to that tenant.
func (r *RoomRepo) RoomInStadium(ctx context.Context, roomID, stadiumID uint64) (*model.Room, error) {
	q := `SELECT id, stadium_id, name, capacity, is_active FROM rooms WHERE id = ? AND is_active = 1`
	args := []any{roomID}
	if stadiumID > 0 {
		q += ` AND stadium_id = ?`
		args = append(args, stadiumID)
	}
	var rm model.Room
	err := database.Retry(ctx, r.retries, func() error {
		return r.db.QueryRowContext(ctx, q, args...).Scan(&rm.ID, &rm.StadiumID, &rm.Name, &rm.Capacity, &rm.IsActive)
	})
	if err != nil {
		return nil, classify(err, fmt.Sprintf("room %d", roomID))
	}
	return &rm, nil
}

// EventInStadium loads an active event, with the same tenant rule as
// RoomInStadium.
func (r *RoomRepo) EventInStadium(ctx context.Context, eventID, stadiumID uint64) (*model.Event, error) {
	q := `SELECT id, stadium_id, name, event_date, is_active FROM events WHERE id = ? AND is_active = 1`
	args := []any{eventID}
	if stadiumID > 0 {
		q += ` AND stadium_id = ?`
		args = append(args, stadiumID)
	}
	var ev model.Event
	err := database.Retry(ctx, r.retries, func() error {
		return r.db.QueryRowContext(ctx, q, args...).Scan(&ev.ID, &ev.StadiumID, &ev.Name, &ev.EventDate, &ev.IsActive)
	})
	if err != nil {
		return nil, classify(err, fmt.Sprintf("event %d", eventID))
	}
	return &ev, nil
}
