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

func newTestWallet(identityID int64) *domain.WalletRecord {
	return &domain.WalletRecord{
		IdentityID:   identityID,
		Address:      "7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2",
		EncryptedKey: "gcm_ciphertext_b64",
		Mode:         domain.WalletModeGenerated,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func walletColumns() []string {
	return []string{"identity_id", "address", "encrypted_key", "mode", "created_at"}
}

func walletRow(w *domain.WalletRecord) *pgxmock.Rows {
	return pgxmock.NewRows(walletColumns()).AddRow(
		w.IdentityID, w.Address, w.EncryptedKey, w.Mode, w.CreatedAt,
	)
}

func TestWalletRepo_Create_Inserted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(42)

	mock.ExpectExec("INSERT INTO wallets .+ ON CONFLICT \\(identity_id\\) DO NOTHING").
		WithArgs(w.IdentityID, w.Address, w.EncryptedKey, w.Mode, w.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.Create(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_Create_AlreadyExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(42)

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.IdentityID, w.Address, w.EncryptedKey, w.Mode, w.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := repo.Create(context.Background(), w)
	require.NoError(t, err, "losing the insert race is not an error")
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByIdentityID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(42)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE identity_id").
		WithArgs(w.IdentityID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByIdentityID(context.Background(), w.IdentityID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.Address, result.Address)
	assert.Equal(t, w.EncryptedKey, result.EncryptedKey)
	assert.Equal(t, domain.WalletModeGenerated, result.Mode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByIdentityID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE identity_id").
		WithArgs(int64(999)).
		WillReturnRows(pgxmock.NewRows(walletColumns()))

	result, err := repo.GetByIdentityID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
