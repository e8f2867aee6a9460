package ports

import (
	"context"

	"custodial-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// IdentityRepository defines persistence operations for identities.
type IdentityRepository interface {
	// Ensure creates the identity row if absent, otherwise refreshes its
	// handle and last_active. Returns the current row either way.
	Ensure(ctx context.Context, id int64, handle string) (*domain.Identity, error)
	GetByID(ctx context.Context, id int64) (*domain.Identity, error)
	GetByHandle(ctx context.Context, handle string) (*domain.Identity, error)
	// BumpCounters adjusts the O(1) aggregates inside a ledger transaction.
	BumpCounters(ctx context.Context, tx pgx.Tx, identityID int64, sentDelta, receivedDelta, volumeDelta int64) error
}

// WalletRepository defines persistence operations for identity wallets.
type WalletRepository interface {
	// Create inserts the wallet if the identity has none. Returns false
	// without error when a row already existed (conditional insert; the
	// caller compares addresses to decide idempotent vs. conflict).
	Create(ctx context.Context, wallet *domain.WalletRecord) (bool, error)
	GetByIdentityID(ctx context.Context, identityID int64) (*domain.WalletRecord, error)
}

// PendingWalletRepository defines persistence for handle-keyed wallets whose
// owner has not registered yet.
type PendingWalletRepository interface {
	// Create inserts the pending wallet if none exists for the handle.
	// Returns false without error when a row already existed.
	Create(ctx context.Context, pending *domain.PendingWalletRecord) (bool, error)
	GetByHandle(ctx context.Context, handle string) (*domain.PendingWalletRecord, error)
	// Claim flips claimed to true iff it was false, returning the row.
	// Exactly one concurrent claimer receives it; losers get nil.
	Claim(ctx context.Context, handle string) (*domain.PendingWalletRecord, error)
	// Unclaim flips claimed back to false after a migration that could not
	// complete, so a later claim can still reach the funds.
	Unclaim(ctx context.Context, handle string) error
	// Delete removes the row after a completed migration.
	Delete(ctx context.Context, handle string) error
}

// LedgerRepository defines persistence for the append-only payment ledger.
// Append runs inside a transaction so entry rows and counter bumps commit
// together.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	List(ctx context.Context, identityID int64, filter domain.HistoryFilter) ([]domain.LedgerEntry, error)
}

// NotificationRepository defines persistence for queued notifications.
type NotificationRepository interface {
	Enqueue(ctx context.Context, n *domain.Notification) error
	PendingForIdentity(ctx context.Context, identityID int64) ([]domain.Notification, error)
	// Reassign moves handle-keyed rows to an identity at claim time.
	Reassign(ctx context.Context, handle string, identityID int64) error
	Delete(ctx context.Context, ids []uuid.UUID) error
}

// AuditRepository persists the custody audit trail.
type AuditRepository interface {
	Create(ctx context.Context, record *domain.AuditRecord) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
