package service

import (
	"context"
	"fmt"
	"time"

	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NotificationServiceImpl implements ports.NotificationService. The queue
// rows are the source of truth; the deliverer is best-effort and optional,
// so a broker outage never blocks a settlement.
type NotificationServiceImpl struct {
	repo      ports.NotificationRepository
	deliverer ports.Deliverer // nil disables push delivery
	log       zerolog.Logger
}

// NewNotificationService creates a new NotificationServiceImpl.
func NewNotificationService(repo ports.NotificationRepository, deliverer ports.Deliverer, log zerolog.Logger) *NotificationServiceImpl {
	return &NotificationServiceImpl{repo: repo, deliverer: deliverer, log: log}
}

// Enqueue persists a notification and, for registered targets, attempts an
// immediate push. The row stays queued either way; duplicate delivery after
// a later flush is acceptable.
func (s *NotificationServiceImpl) Enqueue(ctx context.Context, target ports.NotificationTarget, payload domain.NotificationPayload) error {
	n := &domain.Notification{
		ID:         uuid.New(),
		IdentityID: target.IdentityID,
		Handle:     domain.NormalizeHandle(target.Handle),
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Enqueue(ctx, n); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("enqueue notification: %w", err))
	}

	if s.deliverer != nil && target.IdentityID != nil {
		if err := s.deliverer.Deliver(ctx, *n); err != nil {
			s.log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("push delivery failed, row stays queued")
		}
	}
	return nil
}

// Adopt moves handle-keyed notifications to the identity at claim time.
func (s *NotificationServiceImpl) Adopt(ctx context.Context, handle string, identityID int64) error {
	if err := s.repo.Reassign(ctx, domain.NormalizeHandle(handle), identityID); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("reassign notifications: %w", err))
	}
	return nil
}

// Flush delivers and clears everything queued for the identity, returning
// the delivered batch.
func (s *NotificationServiceImpl) Flush(ctx context.Context, identityID int64) ([]domain.Notification, error) {
	pending, err := s.repo.PendingForIdentity(ctx, identityID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load pending notifications: %w", err))
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(pending))
	for _, n := range pending {
		ids = append(ids, n.ID)
		if s.deliverer != nil {
			if err := s.deliverer.Deliver(ctx, n); err != nil {
				s.log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("push delivery failed during flush")
			}
		}
	}

	if err := s.repo.Delete(ctx, ids); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("clear notifications: %w", err))
	}
	return pending, nil
}
