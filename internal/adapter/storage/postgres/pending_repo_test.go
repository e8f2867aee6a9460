package postgres

import (
	"context"
	"testing"
	"time"

	"custodial-wallet-engine/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPending(handle string) *domain.PendingWalletRecord {
	return &domain.PendingWalletRecord{
		Handle:       handle,
		Address:      "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		EncryptedKey: "handle_cipher_b64",
		Claimed:      false,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func pendingColumns() []string {
	return []string{"handle", "address", "encrypted_key", "claimed", "created_at"}
}

func TestPendingWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPendingWalletRepo(mock)
	p := newTestPending("alice")

	mock.ExpectExec("INSERT INTO pending_wallets .+ ON CONFLICT \\(handle\\) DO NOTHING").
		WithArgs(p.Handle, p.Address, p.EncryptedKey, p.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingWalletRepo_Create_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPendingWalletRepo(mock)
	p := newTestPending("alice")

	mock.ExpectExec("INSERT INTO pending_wallets").
		WithArgs(p.Handle, p.Address, p.EncryptedKey, p.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingWalletRepo_Claim_Wins(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPendingWalletRepo(mock)
	p := newTestPending("bob")

	mock.ExpectQuery("UPDATE pending_wallets SET claimed = TRUE .+ AND NOT claimed\\s+RETURNING").
		WithArgs(p.Handle).
		WillReturnRows(pgxmock.NewRows(pendingColumns()).AddRow(
			p.Handle, p.Address, p.EncryptedKey, true, p.CreatedAt,
		))

	got, err := repo.Claim(context.Background(), p.Handle)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Claimed)
	assert.Equal(t, p.Address, got.Address)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingWalletRepo_Claim_Loses(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPendingWalletRepo(mock)

	// Already claimed: the conditional update matches no rows.
	mock.ExpectQuery("UPDATE pending_wallets SET claimed = TRUE").
		WithArgs("bob").
		WillReturnRows(pgxmock.NewRows(pendingColumns()))

	got, err := repo.Claim(context.Background(), "bob")
	require.NoError(t, err)
	assert.Nil(t, got, "losing claimer gets nil, not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingWalletRepo_Unclaim(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPendingWalletRepo(mock)

	mock.ExpectExec("UPDATE pending_wallets SET claimed = FALSE WHERE handle").
		WithArgs("bob").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Unclaim(context.Background(), "bob"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingWalletRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPendingWalletRepo(mock)

	mock.ExpectExec("DELETE FROM pending_wallets WHERE handle").
		WithArgs("bob").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), "bob"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
