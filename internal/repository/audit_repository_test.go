package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/stadium-hospitality/internal/queue"
)

func TestAuditInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewAuditRepo(db)

	at := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	ev := queue.AuditEvent{
		EventID:    "3f1c7a8e-1111-4c1e-9a55-7f1f2d3c4b5a",
		Operation:  queue.OpGuestCheckin,
		ActorID:    42,
		StadiumID:  1,
		EntityType: "guest",
		EntityID:   7,
		Metadata:   map[string]any{"room_id": 5},
		OccurredAt: at,
	}
	mock.ExpectExec(`INSERT IGNORE INTO audit_logs`).
		WithArgs(ev.EventID, "guest_checkin", 42, 1, "guest", 7, `{"room_id":5}`, at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT IGNORE INTO audit_logs`).
		WithArgs(ev.EventID, "guest_checkin", 42, 1, "guest", 7, `{"room_id":5}`, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	stored, err := repo.Insert(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = repo.Insert(context.Background(), ev)
	require.NoError(t, err)
	assert.False(t, stored)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditInsert_NoMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewAuditRepo(db)

	mock.ExpectExec(`INSERT IGNORE INTO audit_logs`).
		WithArgs("id-1", "guest_checkout", 42, 1, "guest", 7, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	_, err = repo.Insert(context.Background(), queue.AuditEvent{
		EventID: "id-1", Operation: queue.OpGuestCheckout, ActorID: 42, StadiumID: 1, EntityType: "guest", EntityID: 7,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
