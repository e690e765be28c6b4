package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/stadium-hospitality/internal/repository"
)

func newStatsFixture(t *testing.T) (sqlmock.Sqlmock, *StatsService) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewStatsService(repository.NewStatsRepo(db, 2), repository.NewRoomRepo(db, 2), zap.NewNop(), time.Second)
}

func TestRoomStats_ChecksRoomAndEventTenant(t *testing.T) {
	mock, svc := newStatsFixture(t)

	mock.ExpectQuery(`FROM rooms`).WithArgs(5, 1).WillReturnRows(sqlmock.NewRows(roomCols).AddRow(5, 1, "Sky Lounge", 80, true))
	mock.ExpectQuery(`FROM events`).WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "stadium_id", "name", "event_date", "is_active"}).AddRow(3, 1, "Derby", time.Now(), true))
	mock.ExpectQuery(`g.room_id = \?`).WithArgs(5, 3).WillReturnRows(sqlmock.NewRows([]string{"total", "in"}).AddRow(10, 4))
	mock.ExpectQuery(`FROM hostess_rooms`).WithArgs(5).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	st, err := svc.RoomStats(context.Background(), admin, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(6), st.NotCheckedIn)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomStats_ForeignRoom(t *testing.T) {
	mock, svc := newStatsFixture(t)
	mock.ExpectQuery(`FROM rooms`).WithArgs(5, 1).WillReturnRows(sqlmock.NewRows(roomCols))

	_, err := svc.RoomStats(context.Background(), admin, 5, 0)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStats_SuperAdminAnyTenant(t *testing.T) {
	mock, svc := newStatsFixture(t)

	mock.ExpectQuery(`FROM events WHERE id = \? AND is_active = 1$`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "stadium_id", "name", "event_date", "is_active"}).AddRow(3, 2, "Derby", time.Now(), true))
	mock.ExpectQuery(`GROUP BY g.vip_level`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"vip_level", "total", "in"}).AddRow("premium", 7, 7))
	mock.ExpectQuery(`COUNT\(DISTINCT`).WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	st, err := svc.EventStats(context.Background(), root, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), st.CheckedInCount)
	assert.Equal(t, int64(2), st.RoomsInUse)
	require.NoError(t, mock.ExpectationsWereMet())
}
