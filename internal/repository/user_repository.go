package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/stadium-hospitality/internal/database"
	"github.com/iliyamo/stadium-hospitality/internal/model"
)

type UserRepo struct {
	db      *sql.DB
	retries int
}

func NewUserRepo(db *sql.DB, retries int) *UserRepo { return &UserRepo{db: db, retries: retries} }

// GetByID fetches a user by id, active or not.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT id, COALESCE(stadium_id, 0), username, full_name, role, is_active
               FROM users WHERE id = ? LIMIT 1`
	var u model.User
	var role string
	err := database.Retry(ctx, r.retries, func() error {
		return r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.StadiumID, &u.Username, &u.FullName, &role, &u.IsActive)
	})
	if err != nil {
		return nil, classify(err, fmt.Sprintf("user %d", id))
	}
	u.Role = model.Role(role)
	return &u, nil
}
