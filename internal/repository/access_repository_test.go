package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/stadium-hospitality/internal/model"
)

var accessCols = []string{
	"id", "guest_id", "hostess_id", "stadium_id", "room_id", "event_id",
	"access_type", "access_time", "device_type", "companions", "notes",
}

var guestRefCols = []string{"id", "stadium_id", "event_id", "room_id", "name", "first_name", "last_name"}

func setupAccessRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *AccessRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewAccessRepo(db, zap.NewNop(), 2)
}

func guestRefRow(roomID uint64) *sqlmock.Rows {
	return sqlmock.NewRows(guestRefCols).AddRow(7, 1, 3, roomID, "Sky Lounge", "Ada", "Lovelace")
}

func TestAppend_FirstEntry(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	at := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(7, 1).WillReturnRows(guestRefRow(5))
	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs(7).WillReturnRows(sqlmock.NewRows(accessCols))
	mock.ExpectExec(`INSERT INTO guest_accesses`).
		WithArgs(7, 42, 1, 5, 3, "entry", "tablet", 2, "window table").
		WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectQuery(`WHERE id = \?`).WithArgs(100).WillReturnRows(
		sqlmock.NewRows(accessCols).AddRow(100, 7, 42, 1, 5, 3, "entry", at, "tablet", 2, "window table"))
	mock.ExpectCommit()

	res, err := repo.Append(context.Background(), AppendRequest{
		GuestID: 7, HostessID: 42, StadiumID: 1, Type: model.AccessEntry,
		DeviceType: "tablet", Companions: 2, Notes: "window table",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), res.Event.ID)
	assert.Equal(t, uint64(5), res.Event.RoomID)
	assert.Equal(t, at, res.Event.AccessTime)
	assert.Nil(t, res.Previous)
	assert.Equal(t, model.StatusNeverAccessed, res.PreviousStatus())
	assert.Equal(t, "Sky Lounge", res.Guest.RoomName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockGuestTx_LocksGuestRowOnly(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	// The room name is read by a nested subquery, outside the lock.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT rm\.name FROM rooms rm WHERE rm\.id = g\.room_id\), ''\), g\.first_name, g\.last_name FROM guests g WHERE g\.id = \? AND g\.stadium_id = \? AND g\.is_active = 1 FOR UPDATE`).
		WithArgs(7, 1).WillReturnRows(guestRefRow(5))
	mock.ExpectRollback()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	g, err := repo.LockGuestTx(context.Background(), tx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, "Sky Lounge", g.RoomName)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_DoubleCheckinRejected(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(7, 1).WillReturnRows(guestRefRow(5))
	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs(7).WillReturnRows(
		sqlmock.NewRows(accessCols).AddRow(99, 7, 42, 1, 5, 3, "entry", time.Now(), "", 0, ""))
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), AppendRequest{GuestID: 7, HostessID: 42, StadiumID: 1, Type: model.AccessEntry})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Contains(t, err.Error(), "checked_in")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_CheckoutWithoutEntryRejected(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(7, 1).WillReturnRows(guestRefRow(5))
	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs(7).WillReturnRows(sqlmock.NewRows(accessCols))
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), AppendRequest{GuestID: 7, StadiumID: 1, Type: model.AccessExit})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_GuestOutsideTenant(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(7, 2).WillReturnRows(sqlmock.NewRows(guestRefCols))
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), AppendRequest{GuestID: 7, StadiumID: 2, Type: model.AccessEntry})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_RoomNotAssigned(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(7, 1).WillReturnRows(guestRefRow(5))
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), AppendRequest{
		GuestID: 7, StadiumID: 1, Type: model.AccessEntry, AllowedRooms: []uint64{8, 9},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_InvalidType(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	_, err := repo.Append(context.Background(), AppendRequest{GuestID: 7, StadiumID: 1, Type: "teleport"})
	assert.ErrorIs(t, err, ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_InsertFailureIsNotRetried(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(7, 1).WillReturnRows(guestRefRow(5))
	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs(7).WillReturnRows(sqlmock.NewRows(accessCols))
	mock.ExpectExec(`INSERT INTO guest_accesses`).WillReturnError(mysql.ErrInvalidConn)
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), AppendRequest{GuestID: 7, StadiumID: 1, Type: model.AccessEntry})
	assert.ErrorIs(t, err, ErrUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_MostRecentFirst(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	t0 := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows(accessCols).
			AddRow(12, 7, 42, 1, 5, 3, "entry", t0.Add(2*time.Hour), "", 0, "").
			AddRow(11, 7, 42, 1, 5, 3, "exit", t0.Add(time.Hour), "", 0, "").
			AddRow(10, 7, 42, 1, 5, 3, "entry", t0, "", 1, "")
	}
	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs(7, defaultHistoryLimit).WillReturnRows(rows())
	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs(7, defaultHistoryLimit).WillReturnRows(rows())

	first, err := repo.History(context.Background(), 7, 0)
	require.NoError(t, err)
	second, err := repo.History(context.Background(), 7, 0)
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, []uint64{12, 11, 10}, []uint64{first[0].ID, first[1].ID, first[2].ID})
	assert.Equal(t, first, second)
	assert.Equal(t, model.StatusCheckedIn, model.ResolvePresence(7, first).Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_RetriesTransientRead(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs(7, maxHistoryLimit).WillReturnError(mysql.ErrInvalidConn)
	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs(7, maxHistoryLimit).WillReturnRows(sqlmock.NewRows(accessCols))

	out, err := repo.History(context.Background(), 7, 10_000)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_UnavailableAfterRetries(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	for i := 0; i < 3; i++ {
		mock.ExpectQuery(`ORDER BY id DESC`).WillReturnError(mysql.ErrInvalidConn)
	}
	_, err := repo.History(context.Background(), 7, 5)
	assert.ErrorIs(t, err, ErrUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_ExitRecordedInEntryRoom(t *testing.T) {
	db, mock, repo := setupAccessRepo(t)
	defer db.Close()

	t0 := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(7, 1).WillReturnRows(guestRefRow(5))
	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs(7).WillReturnRows(
		sqlmock.NewRows(accessCols).AddRow(99, 7, 42, 1, 4, 3, "entry", t0, "", 0, ""))
	mock.ExpectExec(`INSERT INTO guest_accesses`).
		WithArgs(7, 43, 1, 4, 3, "exit", "", 0, "").
		WillReturnResult(sqlmock.NewResult(101, 1))
	mock.ExpectQuery(`WHERE id = \?`).WithArgs(101).WillReturnRows(
		sqlmock.NewRows(accessCols).AddRow(101, 7, 43, 1, 4, 3, "exit", t0.Add(90*time.Minute), "", 0, ""))
	mock.ExpectCommit()

	res, err := repo.Append(context.Background(), AppendRequest{GuestID: 7, HostessID: 43, StadiumID: 1, Type: model.AccessExit})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), res.Event.RoomID)
	assert.Equal(t, model.StatusCheckedIn, res.PreviousStatus())
	require.NoError(t, mock.ExpectationsWereMet())
}
