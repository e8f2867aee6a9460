package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"custodial-wallet-engine/config"
	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// previewTTL bounds how long a quoted intent stays confirmable.
	previewTTL = 2 * time.Minute
	// retentionTTL keeps terminal intents readable for status queries. The
	// execution guard shares this TTL and is never released earlier, so a
	// settled or timed-out intent cannot be re-executed.
	retentionTTL = 24 * time.Hour
)

// PaymentServiceImpl implements ports.PaymentService. It owns the intent
// state machine; resolution, pricing, validation, and settlement are
// delegated and their results threaded through the stored intent.
type PaymentServiceImpl struct {
	identityRepo ports.IdentityRepository
	walletSvc    ports.WalletService
	executor     ports.TransferExecutor
	fees         ports.FeeEstimator
	validator    ports.BalanceValidator
	intents      ports.IntentStore
	guard        ports.ExecutionGuard
	ledger       ports.LedgerService
	notifier     ports.NotificationService
	chainCfg     config.ChainConfig
	log          zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	identityRepo ports.IdentityRepository,
	walletSvc ports.WalletService,
	executor ports.TransferExecutor,
	fees ports.FeeEstimator,
	validator ports.BalanceValidator,
	intents ports.IntentStore,
	guard ports.ExecutionGuard,
	ledger ports.LedgerService,
	notifier ports.NotificationService,
	chainCfg config.ChainConfig,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		identityRepo: identityRepo,
		walletSvc:    walletSvc,
		executor:     executor,
		fees:         fees,
		validator:    validator,
		intents:      intents,
		guard:        guard,
		ledger:       ledger,
		notifier:     notifier,
		chainCfg:     chainCfg,
		log:          log,
	}
}

// Quote resolves the recipient, prices the transfer, and validates the
// sender's balance, all before anything touches the network's write path.
// The returned intent is previewed and confirmable until it expires.
func (s *PaymentServiceImpl) Quote(ctx context.Context, senderID int64, recipientHandle string, amount int64, assetSymbol string) (*domain.PaymentIntent, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	assetCfg, ok := s.chainCfg.Asset(assetSymbol)
	if !ok {
		return nil, apperror.ErrUnsupportedAsset(assetSymbol)
	}
	asset := domain.Asset{Symbol: assetCfg.Symbol, Mint: assetCfg.Mint, Decimals: assetCfg.Decimals}

	sender, err := s.identityRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load sender: %w", err))
	}
	if sender == nil {
		return nil, apperror.ErrNotFound("Sender identity")
	}

	senderWallet, err := s.walletSvc.Get(ctx, senderID)
	if err != nil {
		return nil, err
	}

	recipient, err := s.executor.Resolve(ctx, recipientHandle)
	if err != nil {
		return nil, err
	}
	if recipient.Handle == domain.NormalizeHandle(sender.Handle) {
		return nil, apperror.Validation("Cannot send a payment to yourself")
	}

	if err := s.validator.CheckRecipient(ctx, &recipient, asset, amount); err != nil {
		return nil, err
	}

	needsAccount := recipient.Kind == domain.RecipientUnregistered ||
		recipient.Kind == domain.RecipientRegisteredNoWallet ||
		recipient.NeedsRentFunding
	fee := s.fees.Estimate(needsAccount, recipient.NeedsTokenAccount, asset)

	if err := s.validator.ValidateSender(ctx, senderWallet.Address, asset, amount, fee.Total); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	intent := &domain.PaymentIntent{
		ID:        uuid.New(),
		SenderID:  senderID,
		Recipient: recipient,
		Asset:     asset,
		Amount:    amount,
		Fee:       fee,
		Status:    domain.PaymentStatusPreviewed,
		CreatedAt: now,
		ExpiresAt: now.Add(previewTTL),
	}
	if err := s.intents.Save(ctx, intent, previewTTL); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save intent: %w", err))
	}

	s.log.Info().
		Str("intent_id", intent.ID.String()).
		Int64("sender_id", senderID).
		Str("recipient", recipient.Handle).
		Str("recipient_kind", string(recipient.Kind)).
		Str("asset", asset.Symbol).
		Int64("amount", amount).
		Int64("fee_total", fee.Total).
		Msg("payment quoted")

	return intent, nil
}

// Confirm drives a previewed intent through execution to a terminal state.
// The execution guard admits exactly one confirmation per intent, ever:
// re-confirming a live, settled, or timed-out intent is always a conflict.
func (s *PaymentServiceImpl) Confirm(ctx context.Context, senderID int64, intentID uuid.UUID) (*domain.PaymentIntent, error) {
	intent, err := s.intents.Get(ctx, intentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load intent: %w", err))
	}
	if intent == nil {
		return nil, apperror.ErrIntentExpired()
	}
	if intent.SenderID != senderID {
		return nil, apperror.ErrNotIntentOwner()
	}
	if !intent.CanConfirm() {
		return nil, apperror.ErrIntentInFlight()
	}

	acquired, err := s.guard.Acquire(ctx, intent.ID.String(), retentionTTL)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("acquire execution slot: %w", err))
	}
	if !acquired {
		return nil, apperror.ErrIntentInFlight()
	}

	intent.Status = domain.PaymentStatusExecuting
	if err := s.intents.Save(ctx, intent, retentionTTL); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save executing intent: %w", err))
	}

	sender, err := s.identityRepo.GetByID(ctx, senderID)
	if err != nil {
		return s.failBeforeSubmit(ctx, intent, apperror.ErrDatabaseError(fmt.Errorf("load sender: %w", err)))
	}
	if sender == nil {
		return s.failBeforeSubmit(ctx, intent, apperror.ErrNotFound("Sender identity"))
	}
	senderWallet, err := s.walletSvc.Get(ctx, senderID)
	if err != nil {
		return s.failBeforeSubmit(ctx, intent, err)
	}

	result, execErr := s.executor.Execute(ctx, intent)
	if execErr != nil {
		// Nothing was submitted: the failure is pre-flight and no ledger
		// row is written.
		return s.failBeforeSubmit(ctx, intent, execErr)
	}

	intent.TxSignature = result.Signature
	intent.Status = result.Outcome

	switch result.Outcome {
	case domain.PaymentStatusSettled:
		s.saveTerminal(ctx, intent)
		s.recordAndNotify(ctx, intent, sender.Handle, senderWallet.Address)
		s.log.Info().
			Str("intent_id", intent.ID.String()).
			Str("signature", result.Signature).
			Msg("payment settled")
		return intent, nil

	case domain.PaymentStatusFailed:
		intent.FailureCode = "NET_003"
		s.saveTerminal(ctx, intent)
		if err := s.ledger.RecordSettlement(ctx, intent, sender.Handle, domain.EntryStatusFailed); err != nil {
			s.log.Error().Err(err).Str("intent_id", intent.ID.String()).Msg("failed to record failed settlement")
		}
		return intent, apperror.ErrTransferFailed()

	default:
		// Ambiguous: the transaction was submitted but never observed
		// terminal. No ledger row; the guard stays held so the intent can
		// never be re-executed.
		intent.Status = domain.PaymentStatusTimedOut
		intent.FailureCode = "NET_002"
		s.saveTerminal(ctx, intent)
		return intent, apperror.ErrConfirmationTimeout(result.Signature)
	}
}

// Cancel abandons an intent that has not started executing.
func (s *PaymentServiceImpl) Cancel(ctx context.Context, senderID int64, intentID uuid.UUID) error {
	intent, err := s.intents.Get(ctx, intentID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("load intent: %w", err))
	}
	if intent == nil {
		return apperror.ErrNotFound("Payment intent")
	}
	if intent.SenderID != senderID {
		return apperror.ErrNotIntentOwner()
	}
	if !intent.CanCancel() {
		return apperror.ErrIntentNotCancellable()
	}

	intent.Status = domain.PaymentStatusCancelled
	s.saveTerminal(ctx, intent)

	s.log.Info().Str("intent_id", intent.ID.String()).Msg("payment cancelled")
	return nil
}

// Get returns the intent to its owner.
func (s *PaymentServiceImpl) Get(ctx context.Context, senderID int64, intentID uuid.UUID) (*domain.PaymentIntent, error) {
	intent, err := s.intents.Get(ctx, intentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load intent: %w", err))
	}
	if intent == nil {
		return nil, apperror.ErrNotFound("Payment intent")
	}
	if intent.SenderID != senderID {
		return nil, apperror.ErrNotIntentOwner()
	}
	return intent, nil
}

// saveTerminal stores a terminal intent under the retention TTL. Best-effort:
// the settlement already happened, a failed save only shortens visibility.
func (s *PaymentServiceImpl) saveTerminal(ctx context.Context, intent *domain.PaymentIntent) {
	if err := s.intents.Save(ctx, intent, retentionTTL); err != nil {
		s.log.Error().Err(err).Str("intent_id", intent.ID.String()).Msg("failed to save terminal intent")
	}
}

// failBeforeSubmit marks an intent that acquired the execution slot but never
// reached the network as terminally failed. Leaving it EXECUTING would wedge
// it: the guard is never released, so nothing could ever drive it terminal.
func (s *PaymentServiceImpl) failBeforeSubmit(ctx context.Context, intent *domain.PaymentIntent, cause error) (*domain.PaymentIntent, error) {
	intent.Status = domain.PaymentStatusFailed
	var appErr *apperror.AppError
	if errors.As(cause, &appErr) {
		intent.FailureCode = appErr.Code
	}
	s.saveTerminal(ctx, intent)
	return intent, cause
}

// recordAndNotify writes the ledger rows and queues the recipient's
// notification after a settled payment. Both are best-effort relative to the
// settlement itself, which is already on the network.
func (s *PaymentServiceImpl) recordAndNotify(ctx context.Context, intent *domain.PaymentIntent, senderHandle, senderAddress string) {
	if err := s.ledger.RecordSettlement(ctx, intent, senderHandle, domain.EntryStatusConfirmed); err != nil {
		s.log.Error().Err(err).Str("intent_id", intent.ID.String()).Msg("failed to record settlement")
	}

	target := ports.NotificationTarget{Handle: intent.Recipient.Handle}
	if intent.Recipient.IdentityID != nil {
		target = ports.NotificationTarget{IdentityID: intent.Recipient.IdentityID}
	}
	payload := domain.NotificationPayload{
		Type:          domain.NotificationPaymentReceived,
		Amount:        intent.Amount,
		Asset:         intent.Asset.Symbol,
		SenderHandle:  senderHandle,
		SenderAddress: senderAddress,
		TxSignature:   intent.TxSignature,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.notifier.Enqueue(ctx, target, payload); err != nil {
		s.log.Warn().Err(err).Str("intent_id", intent.ID.String()).Msg("failed to queue recipient notification")
	}
}
