package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/stadium-hospitality/internal/database"
	"github.com/iliyamo/stadium-hospitality/internal/model"
)

// RoomStats are the occupancy counters of one room.
type RoomStats struct {
	RoomID          uint64 `json:"room_id"`
	EventID         uint64 `json:"event_id,omitempty"`
	Total           int64  `json:"total"`
	CheckedIn       int64  `json:"checked_in"`
	NotCheckedIn    int64  `json:"not_checked_in"`
	HostessAssigned int64  `json:"hostess_assigned"`
}

// EventStats are the counters of one event.
type EventStats struct {
	EventID        uint64                   `json:"event_id"`
	TotalGuests    int64                    `json:"total_guests"`
	ByVipTier      map[model.VipLevel]int64 `json:"by_vip_tier"`
	CheckedInCount int64                    `json:"checked_in_count"`
	RoomsInUse     int64                    `json:"rooms_in_use"`
}

// StatsRepo computes counters from guests and the ledger on every call.
// Nothing is cached or stored, so there is nothing to invalidate.
type StatsRepo struct {
	db      *sql.DB
	retries int
}

func NewStatsRepo(db *sql.DB, retries int) *StatsRepo {
	return &StatsRepo{db: db, retries: retries}
}

// RoomStats counts the active guests assigned to roomID, optionally limited
// to eventID, split by presence.  HostessAssigned counts active hostesses
// with an active assignment to the room.
func (r *StatsRepo) RoomStats(ctx context.Context, roomID, eventID uint64) (*RoomStats, error) {
	q := `SELECT COUNT(*),
                 COALESCE(SUM(CASE WHEN la.access_type = 'entry' THEN 1 ELSE 0 END), 0)
          FROM guests g
          ` + latestAccessJoin + `
          WHERE g.room_id = ? AND g.is_active = 1`
	args := []any{roomID}
	if eventID > 0 {
		q += ` AND g.event_id = ?`
		args = append(args, eventID)
	}
	const hq = `SELECT COUNT(*)
                FROM hostess_rooms hr
                JOIN users u ON u.id = hr.user_id
                WHERE hr.room_id = ? AND hr.is_active = 1 AND u.is_active = 1 AND u.role = 'hostess'`

	st := RoomStats{RoomID: roomID, EventID: eventID}
	err := database.Retry(ctx, r.retries, func() error {
		if err := r.db.QueryRowContext(ctx, q, args...).Scan(&st.Total, &st.CheckedIn); err != nil {
			return err
		}
		return r.db.QueryRowContext(ctx, hq, roomID).Scan(&st.HostessAssigned)
	})
	if err != nil {
		return nil, classify(err, "room stats")
	}
	st.NotCheckedIn = st.Total - st.CheckedIn
	return &st, nil
}

// EventStats counts the active guests of eventID per VIP tier and presence.
// RoomsInUse is the number of distinct rooms holding at least one active
// guest of the event.
func (r *StatsRepo) EventStats(ctx context.Context, eventID uint64) (*EventStats, error) {
	q := `SELECT g.vip_level, COUNT(*),
                 COALESCE(SUM(CASE WHEN la.access_type = 'entry' THEN 1 ELSE 0 END), 0)
          FROM guests g
          ` + latestAccessJoin + `
          WHERE g.event_id = ? AND g.is_active = 1
          GROUP BY g.vip_level`
	const rq = `SELECT COUNT(DISTINCT g.room_id) FROM guests g WHERE g.event_id = ? AND g.is_active = 1`

	var st EventStats
	err := database.Retry(ctx, r.retries, func() error {
		st = EventStats{EventID: eventID, ByVipTier: make(map[model.VipLevel]int64, len(model.VipLevels))}
		for _, l := range model.VipLevels {
			st.ByVipTier[l] = 0
		}
		rows, err := r.db.QueryContext(ctx, q, eventID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var vip string
			var total, in int64
			if err := rows.Scan(&vip, &total, &in); err != nil {
				return err
			}
			st.ByVipTier[model.VipLevel(vip)] = total
			st.TotalGuests += total
			st.CheckedInCount += in
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return r.db.QueryRowContext(ctx, rq, eventID).Scan(&st.RoomsInUse)
	})
	if err != nil {
		return nil, classify(err, "event stats")
	}
	return &st, nil
}
