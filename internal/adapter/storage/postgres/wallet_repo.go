package postgres

import (
	"context"
	"errors"
	"fmt"

	"custodial-wallet-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts the wallet if the identity has none. The conditional insert
// makes concurrent creates safe: exactly one row wins and the rest observe
// created = false without an error.
func (r *WalletRepo) Create(ctx context.Context, w *domain.WalletRecord) (bool, error) {
	query := `INSERT INTO wallets (identity_id, address, encrypted_key, mode, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		w.IdentityID, w.Address, w.EncryptedKey, w.Mode, w.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert wallet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByIdentityID fetches an identity's wallet.
func (r *WalletRepo) GetByIdentityID(ctx context.Context, identityID int64) (*domain.WalletRecord, error) {
	query := `SELECT identity_id, address, encrypted_key, mode, created_at
		FROM wallets WHERE identity_id = $1`

	w := &domain.WalletRecord{}
	err := r.pool.QueryRow(ctx, query, identityID).Scan(
		&w.IdentityID, &w.Address, &w.EncryptedKey, &w.Mode, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by identity id: %w", err)
	}
	return w, nil
}
