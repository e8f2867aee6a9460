package service

import (
	"context"
	"fmt"
	"time"

	"custodial-wallet-engine/config"
	"custodial-wallet-engine/internal/adapter/chain"
	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

// ChainTransferExecutor implements ports.TransferExecutor. Execution order is
// deliberate: recipient wallet creation commits before the transaction is
// submitted, so funds can never move toward an address nobody holds keys for.
type ChainTransferExecutor struct {
	identityRepo ports.IdentityRepository
	walletRepo   ports.WalletRepository
	pendingRepo  ports.PendingWalletRepository
	walletSvc    ports.WalletService
	cipher       ports.CipherService
	submitter    ports.ChainSubmitter
	pollInterval time.Duration
	pollAttempts int
	log          zerolog.Logger
}

// NewTransferExecutor creates a new ChainTransferExecutor.
func NewTransferExecutor(
	identityRepo ports.IdentityRepository,
	walletRepo ports.WalletRepository,
	pendingRepo ports.PendingWalletRepository,
	walletSvc ports.WalletService,
	cipher ports.CipherService,
	submitter ports.ChainSubmitter,
	cfg config.ChainConfig,
	log zerolog.Logger,
) *ChainTransferExecutor {
	return &ChainTransferExecutor{
		identityRepo: identityRepo,
		walletRepo:   walletRepo,
		pendingRepo:  pendingRepo,
		walletSvc:    walletSvc,
		cipher:       cipher,
		submitter:    submitter,
		pollInterval: cfg.PollInterval,
		pollAttempts: cfg.PollAttempts,
		log:          log,
	}
}

// Resolve classifies a recipient handle into exactly one of four states.
func (e *ChainTransferExecutor) Resolve(ctx context.Context, handle string) (domain.ResolvedRecipient, error) {
	normalized := domain.NormalizeHandle(handle)
	if normalized == "" {
		return domain.ResolvedRecipient{}, apperror.Validation("Recipient handle must not be empty")
	}

	identity, err := e.identityRepo.GetByHandle(ctx, normalized)
	if err != nil {
		return domain.ResolvedRecipient{}, apperror.ErrDatabaseError(fmt.Errorf("resolve handle: %w", err))
	}

	if identity == nil {
		pending, err := e.pendingRepo.GetByHandle(ctx, normalized)
		if err != nil {
			return domain.ResolvedRecipient{}, apperror.ErrDatabaseError(fmt.Errorf("check pending wallet: %w", err))
		}
		if pending != nil && !pending.Claimed {
			return domain.ResolvedRecipient{
				Kind:    domain.RecipientPendingWallet,
				Handle:  normalized,
				Address: pending.Address,
			}, nil
		}
		return domain.ResolvedRecipient{
			Kind:   domain.RecipientUnregistered,
			Handle: normalized,
		}, nil
	}

	wallet, err := e.walletRepo.GetByIdentityID(ctx, identity.ID)
	if err != nil {
		return domain.ResolvedRecipient{}, apperror.ErrDatabaseError(fmt.Errorf("resolve wallet: %w", err))
	}
	if wallet == nil {
		return domain.ResolvedRecipient{
			Kind:       domain.RecipientRegisteredNoWallet,
			Handle:     normalized,
			IdentityID: &identity.ID,
		}, nil
	}
	return domain.ResolvedRecipient{
		Kind:       domain.RecipientActive,
		Handle:     normalized,
		IdentityID: &identity.ID,
		Address:    wallet.Address,
	}, nil
}

// Execute settles the intent: provision the recipient wallet if needed,
// build and sign the transaction in memory, submit it, and poll the network
// to a terminal outcome.
func (e *ChainTransferExecutor) Execute(ctx context.Context, intent *domain.PaymentIntent) (*ports.ExecutionResult, error) {
	recipientAddr, err := e.provisionRecipient(ctx, intent)
	if err != nil {
		return nil, err
	}
	if !chain.ValidAddress(recipientAddr) {
		// A stored address that does not decode would send funds nowhere.
		return nil, apperror.ErrInvalidAddress()
	}
	intent.Recipient.Address = recipientAddr

	senderWallet, err := e.walletRepo.GetByIdentityID(ctx, intent.SenderID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load sender wallet: %w", err))
	}
	if senderWallet == nil {
		return nil, apperror.ErrNotFound("Sender wallet")
	}

	raw, err := e.cipher.DecryptForIdentity(intent.SenderID, senderWallet.EncryptedKey)
	if err != nil {
		return nil, apperror.ErrKeyDecryption(err)
	}
	sender, err := chain.KeypairFromPrivateKey(raw)
	if err != nil {
		return nil, apperror.ErrKeyDecryption(err)
	}

	instructions, err := e.buildInstructions(sender.Address, recipientAddr, intent)
	if err != nil {
		return nil, err
	}

	blockhash, err := e.submitter.LatestBlockhash(ctx)
	if err != nil {
		return nil, apperror.ErrSubmissionRejected(fmt.Errorf("fetch blockhash: %w", err))
	}

	signedTx, err := chain.BuildTransaction(sender, blockhash, instructions)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build transaction: %w", err))
	}

	signature, err := e.submitter.Submit(ctx, signedTx)
	if err != nil {
		return nil, apperror.ErrSubmissionRejected(err)
	}

	e.log.Info().
		Str("intent_id", intent.ID.String()).
		Str("signature", signature).
		Str("asset", intent.Asset.Symbol).
		Int64("amount", intent.Amount).
		Msg("transaction submitted")

	outcome := e.awaitConfirmation(ctx, signature)
	return &ports.ExecutionResult{Signature: signature, Outcome: outcome}, nil
}

// provisionRecipient creates the recipient-side wallet for recipients that do
// not have one yet, returning the address funds will move to.
func (e *ChainTransferExecutor) provisionRecipient(ctx context.Context, intent *domain.PaymentIntent) (string, error) {
	recipient := intent.Recipient
	switch recipient.Kind {
	case domain.RecipientUnregistered:
		pending, err := e.walletSvc.CreatePending(ctx, recipient.Handle)
		if err != nil {
			return "", err
		}
		return pending.Address, nil

	case domain.RecipientRegisteredNoWallet:
		if recipient.IdentityID == nil {
			return "", apperror.InternalError(fmt.Errorf("registered recipient %q has no identity id", recipient.Handle))
		}
		result, err := e.walletSvc.Create(ctx, *recipient.IdentityID, recipient.Handle, ports.CreateWalletRequest{
			Mode: domain.WalletModeGenerated,
		})
		if err != nil {
			return "", err
		}
		return result.Address, nil

	default:
		if recipient.Address == "" {
			return "", apperror.InternalError(fmt.Errorf("resolved recipient %q has no address", recipient.Handle))
		}
		return recipient.Address, nil
	}
}

// buildInstructions assembles the transfer instruction list for the intent.
func (e *ChainTransferExecutor) buildInstructions(senderAddr, recipientAddr string, intent *domain.PaymentIntent) ([]chain.Instruction, error) {
	if intent.Asset.IsNative() {
		return []chain.Instruction{
			chain.SystemTransfer(senderAddr, recipientAddr, intent.Amount),
		}, nil
	}

	sourceATA, err := chain.AssociatedTokenAddress(senderAddr, intent.Asset.Mint)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive source token account: %w", err))
	}
	destATA, err := chain.AssociatedTokenAddress(recipientAddr, intent.Asset.Mint)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive destination token account: %w", err))
	}

	var instructions []chain.Instruction
	if intent.Recipient.NeedsTokenAccount {
		instructions = append(instructions,
			chain.CreateAssociatedTokenAccount(senderAddr, destATA, recipientAddr, intent.Asset.Mint))
	}
	instructions = append(instructions,
		chain.TokenTransfer(sourceATA, destATA, senderAddr, intent.Amount))
	return instructions, nil
}

// awaitConfirmation polls the signature status until it is terminal or the
// polling window closes. A closed window is the ambiguous outcome: the
// transaction may still land, so it is reported as timed out, never retried.
func (e *ChainTransferExecutor) awaitConfirmation(ctx context.Context, signature string) domain.PaymentStatus {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < e.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			e.log.Warn().Str("signature", signature).Msg("confirmation polling cancelled")
			return domain.PaymentStatusTimedOut
		case <-ticker.C:
			status, err := e.submitter.SignatureStatus(ctx, signature)
			if err != nil {
				e.log.Warn().Err(err).Str("signature", signature).Msg("signature status poll failed")
				continue
			}
			switch status {
			case ports.TxStatusConfirmed:
				return domain.PaymentStatusSettled
			case ports.TxStatusFailed:
				return domain.PaymentStatusFailed
			}
		}
	}

	e.log.Warn().Str("signature", signature).Msg("confirmation window closed without a terminal status")
	return domain.PaymentStatusTimedOut
}
