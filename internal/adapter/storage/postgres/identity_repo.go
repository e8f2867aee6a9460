package postgres

import (
	"context"
	"errors"
	"fmt"

	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IdentityRepo implements ports.IdentityRepository.
type IdentityRepo struct {
	pool Pool
}

// NewIdentityRepo creates a new IdentityRepo.
func NewIdentityRepo(pool Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

// Ensure creates the identity row if absent, otherwise refreshes the handle
// and last_active. One round trip either way.
func (r *IdentityRepo) Ensure(ctx context.Context, id int64, handle string) (*domain.Identity, error) {
	query := `INSERT INTO identities (id, handle, created_at, last_active)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET handle = EXCLUDED.handle, last_active = NOW()
		RETURNING id, handle, created_at, last_active, payments_sent, payments_received, volume_lamports`

	ident := &domain.Identity{}
	err := r.pool.QueryRow(ctx, query, id, domain.NormalizeHandle(handle)).Scan(
		&ident.ID, &ident.Handle, &ident.CreatedAt, &ident.LastActive,
		&ident.PaymentsSent, &ident.PaymentsReceived, &ident.VolumeLamports,
	)
	if err != nil {
		// The upsert conflicts on id; a unique violation here means the
		// handle is already registered to a different identity.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperror.ErrHandleTaken()
		}
		return nil, fmt.Errorf("ensure identity: %w", err)
	}
	return ident, nil
}

// GetByID fetches an identity by its external id.
func (r *IdentityRepo) GetByID(ctx context.Context, id int64) (*domain.Identity, error) {
	query := `SELECT id, handle, created_at, last_active, payments_sent, payments_received, volume_lamports
		FROM identities WHERE id = $1`

	return r.scanIdentity(r.pool.QueryRow(ctx, query, id))
}

// GetByHandle fetches an identity by its normalized handle.
func (r *IdentityRepo) GetByHandle(ctx context.Context, handle string) (*domain.Identity, error) {
	query := `SELECT id, handle, created_at, last_active, payments_sent, payments_received, volume_lamports
		FROM identities WHERE handle = $1`

	return r.scanIdentity(r.pool.QueryRow(ctx, query, domain.NormalizeHandle(handle)))
}

// BumpCounters adjusts the aggregate counters within a database transaction.
func (r *IdentityRepo) BumpCounters(ctx context.Context, tx pgx.Tx, identityID int64, sentDelta, receivedDelta, volumeDelta int64) error {
	query := `UPDATE identities SET
		payments_sent = payments_sent + $1,
		payments_received = payments_received + $2,
		volume_lamports = volume_lamports + $3
		WHERE id = $4`

	tag, err := tx.Exec(ctx, query, sentDelta, receivedDelta, volumeDelta, identityID)
	if err != nil {
		return fmt.Errorf("bump identity counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("identity not found: %d", identityID)
	}
	return nil
}

func (r *IdentityRepo) scanIdentity(row pgx.Row) (*domain.Identity, error) {
	ident := &domain.Identity{}
	err := row.Scan(
		&ident.ID, &ident.Handle, &ident.CreatedAt, &ident.LastActive,
		&ident.PaymentsSent, &ident.PaymentsReceived, &ident.VolumeLamports,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	return ident, nil
}
