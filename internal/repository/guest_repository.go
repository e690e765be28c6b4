package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/stadium-hospitality/internal/database"
	"github.com/iliyamo/stadium-hospitality/internal/model"
)

type GuestRepo struct {
	db      *sql.DB
	retries int
}

func NewGuestRepo(db *sql.DB, retries int) *GuestRepo {
	return &GuestRepo{db: db, retries: retries}
}

// GetByID loads an active guest.  A non-zero stadiumID additionally requires
// the guest to belong to that tenant; otherwise ErrNotFound is returned so
// that foreign guests are indistinguishable from missing ones.
func (r *GuestRepo) GetByID(ctx context.Context, id, stadiumID uint64) (*model.Guest, error) {
	q := `SELECT id, stadium_id, event_id, room_id, first_name, last_name, company_name,
                 table_number, seat_number, vip_level, contact_email, contact_phone, is_active
          FROM guests
          WHERE id = ? AND is_active = 1`
	args := []any{id}
	if stadiumID > 0 {
		q += ` AND stadium_id = ?`
		args = append(args, stadiumID)
	}
	var g model.Guest
	var vip string
	err := database.Retry(ctx, r.retries, func() error {
		return r.db.QueryRowContext(ctx, q, args...).Scan(
			&g.ID, &g.StadiumID, &g.EventID, &g.RoomID, &g.FirstName, &g.LastName, &g.CompanyName,
			&g.TableNumber, &g.SeatNumber, &vip, &g.ContactEmail, &g.ContactPhone, &g.IsActive,
		)
	})
	if err != nil {
		return nil, classify(err, fmt.Sprintf("guest %d", id))
	}
	g.VipLevel = model.VipLevel(vip)
	return &g, nil
}
