package postgres

import (
	"context"
	"fmt"
	"strings"

	"custodial-wallet-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts a ledger entry within a database transaction. Entries are
// append-only; there is no update path.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, identity_id, tx_signature, direction, counterparty_handle,
		sender_address, recipient_address, asset, amount, fee, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.IdentityID, e.TxSignature, e.Direction, e.CounterpartyHandle,
		e.SenderAddress, e.RecipientAddress, e.Asset, e.Amount, e.Fee,
		e.Status, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// List fetches an identity's ledger entries with optional filters, newest
// first.
func (r *LedgerRepo) List(ctx context.Context, identityID int64, filter domain.HistoryFilter) ([]domain.LedgerEntry, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("identity_id = $%d", argIdx))
	args = append(args, identityID)
	argIdx++

	if filter.Asset != "" {
		conditions = append(conditions, fmt.Sprintf("asset = $%d", argIdx))
		args = append(args, filter.Asset)
		argIdx++
	}
	if filter.Direction != "" {
		conditions = append(conditions, fmt.Sprintf("direction = $%d", argIdx))
		args = append(args, filter.Direction)
		argIdx++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT id, identity_id, tx_signature, direction, counterparty_handle,
		sender_address, recipient_address, asset, amount, fee, status, created_at
		FROM ledger_entries WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		strings.Join(conditions, " AND "), argIdx)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		err := rows.Scan(
			&e.ID, &e.IdentityID, &e.TxSignature, &e.Direction, &e.CounterpartyHandle,
			&e.SenderAddress, &e.RecipientAddress, &e.Asset, &e.Amount, &e.Fee,
			&e.Status, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}
