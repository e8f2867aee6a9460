package postgres

import (
	"context"
	"errors"
	"fmt"

	"custodial-wallet-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PendingWalletRepo implements ports.PendingWalletRepository.
type PendingWalletRepo struct {
	pool Pool
}

// NewPendingWalletRepo creates a new PendingWalletRepo.
func NewPendingWalletRepo(pool Pool) *PendingWalletRepo {
	return &PendingWalletRepo{pool: pool}
}

// Create inserts the pending wallet if none exists for the handle. Returns
// false without error when a row already existed.
func (r *PendingWalletRepo) Create(ctx context.Context, p *domain.PendingWalletRecord) (bool, error) {
	query := `INSERT INTO pending_wallets (handle, address, encrypted_key, claimed, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		ON CONFLICT (handle) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		p.Handle, p.Address, p.EncryptedKey, p.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert pending wallet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByHandle fetches a pending wallet, claimed or not.
func (r *PendingWalletRepo) GetByHandle(ctx context.Context, handle string) (*domain.PendingWalletRecord, error) {
	query := `SELECT handle, address, encrypted_key, claimed, created_at
		FROM pending_wallets WHERE handle = $1`

	p := &domain.PendingWalletRecord{}
	err := r.pool.QueryRow(ctx, query, handle).Scan(
		&p.Handle, &p.Address, &p.EncryptedKey, &p.Claimed, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pending wallet: %w", err)
	}
	return p, nil
}

// Claim flips claimed to true iff it was false. The conditional update makes
// the claim single-winner under concurrency: exactly one caller gets the row
// back, every other concurrent caller gets nil.
func (r *PendingWalletRepo) Claim(ctx context.Context, handle string) (*domain.PendingWalletRecord, error) {
	query := `UPDATE pending_wallets SET claimed = TRUE
		WHERE handle = $1 AND NOT claimed
		RETURNING handle, address, encrypted_key, claimed, created_at`

	p := &domain.PendingWalletRecord{}
	err := r.pool.QueryRow(ctx, query, handle).Scan(
		&p.Handle, &p.Address, &p.EncryptedKey, &p.Claimed, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim pending wallet: %w", err)
	}
	return p, nil
}

// Unclaim restores the row after a migration that could not complete, so a
// later claim can pick it up again.
func (r *PendingWalletRepo) Unclaim(ctx context.Context, handle string) error {
	_, err := r.pool.Exec(ctx, `UPDATE pending_wallets SET claimed = FALSE WHERE handle = $1`, handle)
	if err != nil {
		return fmt.Errorf("unclaim pending wallet: %w", err)
	}
	return nil
}

// Delete removes the pending row after migration completes.
func (r *PendingWalletRepo) Delete(ctx context.Context, handle string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pending_wallets WHERE handle = $1`, handle)
	if err != nil {
		return fmt.Errorf("delete pending wallet: %w", err)
	}
	return nil
}
