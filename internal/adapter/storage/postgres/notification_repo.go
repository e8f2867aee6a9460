package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"custodial-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
)

// NotificationRepo implements ports.NotificationRepository.
type NotificationRepo struct {
	pool Pool
}

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(pool Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Enqueue stores a notification for later delivery.
func (r *NotificationRepo) Enqueue(ctx context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	query := `INSERT INTO notifications (id, identity_id, handle, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = r.pool.Exec(ctx, query, n.ID, n.IdentityID, n.Handle, payload, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// PendingForIdentity fetches everything queued for the identity, oldest first.
func (r *NotificationRepo) PendingForIdentity(ctx context.Context, identityID int64) ([]domain.Notification, error) {
	query := `SELECT id, identity_id, handle, payload, created_at
		FROM notifications WHERE identity_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var payload []byte
		if err := rows.Scan(&n.ID, &n.IdentityID, &n.Handle, &payload, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		if err := json.Unmarshal(payload, &n.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal notification payload: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}
	return out, nil
}

// Reassign moves handle-keyed rows to a claimed identity so the next flush
// picks them up.
func (r *NotificationRepo) Reassign(ctx context.Context, handle string, identityID int64) error {
	query := `UPDATE notifications SET identity_id = $1, handle = '' WHERE handle = $2 AND identity_id IS NULL`

	_, err := r.pool.Exec(ctx, query, identityID, handle)
	if err != nil {
		return fmt.Errorf("reassign notifications: %w", err)
	}
	return nil
}

// Delete removes delivered notifications.
func (r *NotificationRepo) Delete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}
