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

// LedgerServiceImpl implements ports.LedgerService over the append-only
// ledger. Entry rows and per-identity counters commit in one transaction.
type LedgerServiceImpl struct {
	ledgerRepo   ports.LedgerRepository
	identityRepo ports.IdentityRepository
	walletRepo   ports.WalletRepository
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	ledgerRepo ports.LedgerRepository,
	identityRepo ports.IdentityRepository,
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		ledgerRepo:   ledgerRepo,
		identityRepo: identityRepo,
		walletRepo:   walletRepo,
		transactor:   transactor,
		log:          log,
	}
}

// RecordSettlement writes the sender's ledger row and, when the recipient
// identity is known, the mirrored recipient row. Counters bump only for
// confirmed settlements; failed rows are kept for history but never counted.
func (s *LedgerServiceImpl) RecordSettlement(ctx context.Context, intent *domain.PaymentIntent, senderHandle string, status domain.EntryStatus) error {
	senderWallet, err := s.walletRepo.GetByIdentityID(ctx, intent.SenderID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("load sender wallet: %w", err))
	}
	senderAddress := ""
	if senderWallet != nil {
		senderAddress = senderWallet.Address
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	senderEntry := &domain.LedgerEntry{
		ID:                 uuid.New(),
		IdentityID:         intent.SenderID,
		TxSignature:        intent.TxSignature,
		Direction:          domain.EntryDirectionSent,
		CounterpartyHandle: intent.Recipient.Handle,
		SenderAddress:      senderAddress,
		RecipientAddress:   intent.Recipient.Address,
		Asset:              intent.Asset.Symbol,
		Amount:             intent.Amount,
		Fee:                intent.Fee.Total,
		Status:             status,
		CreatedAt:          now,
	}
	if err := s.ledgerRepo.Append(ctx, dbTx, senderEntry); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("append sender entry: %w", err))
	}
	if status == domain.EntryStatusConfirmed {
		if err := s.identityRepo.BumpCounters(ctx, dbTx, intent.SenderID, 1, 0, intent.Amount); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("bump sender counters: %w", err))
		}
	}

	if intent.Recipient.IdentityID != nil {
		recipientID := *intent.Recipient.IdentityID
		recipientEntry := &domain.LedgerEntry{
			ID:                 uuid.New(),
			IdentityID:         recipientID,
			TxSignature:        intent.TxSignature,
			Direction:          domain.EntryDirectionReceived,
			CounterpartyHandle: domain.NormalizeHandle(senderHandle),
			SenderAddress:      senderAddress,
			RecipientAddress:   intent.Recipient.Address,
			Asset:              intent.Asset.Symbol,
			Amount:             intent.Amount,
			Status:             status,
			CreatedAt:          now,
		}
		if err := s.ledgerRepo.Append(ctx, dbTx, recipientEntry); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("append recipient entry: %w", err))
		}
		if status == domain.EntryStatusConfirmed {
			if err := s.identityRepo.BumpCounters(ctx, dbTx, recipientID, 0, 1, intent.Amount); err != nil {
				return apperror.ErrDatabaseError(fmt.Errorf("bump recipient counters: %w", err))
			}
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("signature", intent.TxSignature).
		Str("status", string(status)).
		Msg("settlement recorded")
	return nil
}

// RecordClaimedReceipts writes the recipient-side rows for payments that
// settled into a pending wallet before the owner registered. At settlement
// time there was no identity to attribute them to; the adopted notifications
// carry enough to reconstruct each entry. Rows and the counter bump commit in
// one transaction.
func (s *LedgerServiceImpl) RecordClaimedReceipts(ctx context.Context, identityID int64, walletAddress string, notifications []domain.Notification) error {
	var (
		entries []domain.LedgerEntry
		volume  int64
	)
	for _, n := range notifications {
		p := n.Payload
		if p.Type != domain.NotificationPaymentReceived || p.TxSignature == "" {
			continue
		}
		entries = append(entries, domain.LedgerEntry{
			ID:                 uuid.New(),
			IdentityID:         identityID,
			TxSignature:        p.TxSignature,
			Direction:          domain.EntryDirectionReceived,
			CounterpartyHandle: domain.NormalizeHandle(p.SenderHandle),
			SenderAddress:      p.SenderAddress,
			RecipientAddress:   walletAddress,
			Asset:              p.Asset,
			Amount:             p.Amount,
			Status:             domain.EntryStatusConfirmed,
			CreatedAt:          p.Timestamp,
		})
		volume += p.Amount
	}
	if len(entries) == 0 {
		return nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	for i := range entries {
		if err := s.ledgerRepo.Append(ctx, dbTx, &entries[i]); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("append claimed receipt: %w", err))
		}
	}
	if err := s.identityRepo.BumpCounters(ctx, dbTx, identityID, 0, int64(len(entries)), volume); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("bump claimed receipt counters: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Int64("identity_id", identityID).
		Int("entries", len(entries)).
		Msg("claimed receipts recorded")
	return nil
}

// History lists the identity's ledger entries, newest first.
func (s *LedgerServiceImpl) History(ctx context.Context, identityID int64, filter domain.HistoryFilter) ([]domain.LedgerEntry, error) {
	entries, err := s.ledgerRepo.List(ctx, identityID, filter)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list ledger: %w", err))
	}
	return entries, nil
}

// Stats serves the O(1) aggregates maintained on the identity row.
func (s *LedgerServiceImpl) Stats(ctx context.Context, identityID int64) (*domain.LedgerStats, error) {
	identity, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load identity: %w", err))
	}
	if identity == nil {
		return nil, apperror.ErrNotFound("Identity")
	}
	return &domain.LedgerStats{
		IdentityID:       identity.ID,
		PaymentsSent:     identity.PaymentsSent,
		PaymentsReceived: identity.PaymentsReceived,
		VolumeLamports:   identity.VolumeLamports,
	}, nil
}
