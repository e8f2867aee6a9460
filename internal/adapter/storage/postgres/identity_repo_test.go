package postgres

import (
	"context"
	"testing"
	"time"

	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityColumns() []string {
	return []string{"id", "handle", "created_at", "last_active", "payments_sent", "payments_received", "volume_lamports"}
}

func identityRow(i *domain.Identity) *pgxmock.Rows {
	return pgxmock.NewRows(identityColumns()).AddRow(
		i.ID, i.Handle, i.CreatedAt, i.LastActive,
		i.PaymentsSent, i.PaymentsReceived, i.VolumeLamports,
	)
}

func newTestIdentity(id int64, handle string) *domain.Identity {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Identity{
		ID:         id,
		Handle:     handle,
		CreatedAt:  now,
		LastActive: now,
	}
}

func TestIdentityRepo_Ensure_NormalizesHandle(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdentityRepo(mock)
	ident := newTestIdentity(7, "alice")

	mock.ExpectQuery("INSERT INTO identities .+ ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(int64(7), "alice").
		WillReturnRows(identityRow(ident))

	got, err := repo.Ensure(context.Background(), 7, "@Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Handle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepo_Ensure_HandleTaken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdentityRepo(mock)

	mock.ExpectQuery("INSERT INTO identities .+ ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(int64(8), "alice").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "identities_handle_key"})

	_, err = repo.Ensure(context.Background(), 8, "alice")
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CNF_004", appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdentityRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM identities WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(identityColumns()))

	got, err := repo.GetByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepo_GetByHandle(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdentityRepo(mock)
	ident := newTestIdentity(7, "alice")

	mock.ExpectQuery("SELECT .+ FROM identities WHERE handle").
		WithArgs("alice").
		WillReturnRows(identityRow(ident))

	got, err := repo.GetByHandle(context.Background(), "@ALICE")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepo_BumpCounters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdentityRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE identities SET").
		WithArgs(int64(1), int64(0), int64(1000000000), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.BumpCounters(context.Background(), tx, 7, 1, 0, 1000000000)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepo_BumpCounters_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdentityRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE identities SET").
		WithArgs(int64(1), int64(0), int64(500), int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.BumpCounters(context.Background(), tx, 404, 1, 0, 500)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "identity not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
