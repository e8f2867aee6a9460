package postgres

import (
	"context"
	"testing"
	"time"

	"custodial-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepo_Enqueue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewNotificationRepo(mock)
	n := &domain.Notification{
		ID:     uuid.New(),
		Handle: "carol",
		Payload: domain.NotificationPayload{
			Type:      domain.NotificationPaymentReceived,
			Amount:    500_000_000,
			Asset:     "SOL",
			Timestamp: time.Now().UTC(),
		},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(n.ID, n.IdentityID, n.Handle, pgxmock.AnyArg(), n.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Enqueue(context.Background(), n)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepo_PendingForIdentity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewNotificationRepo(mock)
	identityID := int64(42)
	payload := []byte(`{"type":"PAYMENT_RECEIVED","amount":100,"asset":"SOL","timestamp":"2026-01-01T00:00:00Z"}`)

	mock.ExpectQuery("SELECT .+ FROM notifications WHERE identity_id").
		WithArgs(identityID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "identity_id", "handle", "payload", "created_at"}).
			AddRow(uuid.New(), &identityID, "", payload, time.Now().UTC()))

	out, err := repo.PendingForIdentity(context.Background(), identityID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, domain.NotificationPaymentReceived, out[0].Payload.Type)
	assert.Equal(t, int64(100), out[0].Payload.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepo_Reassign(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewNotificationRepo(mock)

	mock.ExpectExec("UPDATE notifications SET identity_id").
		WithArgs(int64(42), "carol").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	err = repo.Reassign(context.Background(), "carol", 42)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepo_Delete_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewNotificationRepo(mock)

	// No ids: no query issued.
	err = repo.Delete(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewNotificationRepo(mock)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectExec("DELETE FROM notifications WHERE id").
		WithArgs(ids).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	err = repo.Delete(context.Background(), ids)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
