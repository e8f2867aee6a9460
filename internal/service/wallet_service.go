package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"custodial-wallet-engine/internal/adapter/chain"
	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

// CustodialWalletService implements ports.WalletService. Key material exists
// in plaintext only inside a call: generated or decrypted, used, and dropped.
type CustodialWalletService struct {
	identityRepo ports.IdentityRepository
	walletRepo   ports.WalletRepository
	pendingRepo  ports.PendingWalletRepository
	cipher       ports.CipherService
	oracle       ports.BalanceOracle
	notifier     ports.NotificationService
	ledger       ports.LedgerService
	log          zerolog.Logger
}

// NewWalletService creates a new CustodialWalletService.
func NewWalletService(
	identityRepo ports.IdentityRepository,
	walletRepo ports.WalletRepository,
	pendingRepo ports.PendingWalletRepository,
	cipher ports.CipherService,
	oracle ports.BalanceOracle,
	notifier ports.NotificationService,
	ledger ports.LedgerService,
	log zerolog.Logger,
) *CustodialWalletService {
	return &CustodialWalletService{
		identityRepo: identityRepo,
		walletRepo:   walletRepo,
		pendingRepo:  pendingRepo,
		cipher:       cipher,
		oracle:       oracle,
		notifier:     notifier,
		ledger:       ledger,
		log:          log,
	}
}

// Create generates or imports a wallet for the identity. The insert is
// conditional: if another request won the race, re-creating the same address
// is idempotent and a different address is a conflict. Generated wallets
// return the plaintext key exactly once so the owner can take a backup.
func (s *CustodialWalletService) Create(ctx context.Context, identityID int64, handle string, req ports.CreateWalletRequest) (*ports.WalletCreateResult, error) {
	if _, err := s.identityRepo.Ensure(ctx, identityID, handle); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("ensure identity: %w", err))
	}

	var (
		kp   *chain.Keypair
		err  error
		mode = req.Mode
	)
	switch req.Mode {
	case domain.WalletModeImported:
		kp, err = chain.ImportKeypair(req.PrivateKey)
		if err != nil {
			return nil, apperror.ErrInvalidPrivateKey()
		}
	default:
		mode = domain.WalletModeGenerated
		kp, err = chain.GenerateKeypair()
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("generate keypair: %w", err))
		}
	}

	encrypted, err := s.cipher.EncryptForIdentity(identityID, kp.PrivateKey)
	if err != nil {
		return nil, apperror.ErrKeyDerivation(err)
	}

	created, err := s.walletRepo.Create(ctx, &domain.WalletRecord{
		IdentityID:   identityID,
		Address:      kp.Address,
		EncryptedKey: encrypted,
		Mode:         mode,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create wallet: %w", err))
	}

	if !created {
		existing, err := s.walletRepo.GetByIdentityID(ctx, identityID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("load existing wallet: %w", err))
		}
		if existing != nil && existing.Address == kp.Address {
			return &ports.WalletCreateResult{Address: existing.Address, Created: false}, nil
		}
		return nil, apperror.ErrWalletExists()
	}

	s.log.Info().
		Int64("identity_id", identityID).
		Str("address", kp.Address).
		Str("mode", string(mode)).
		Msg("wallet created")

	result := &ports.WalletCreateResult{Address: kp.Address, Created: true}
	if mode == domain.WalletModeGenerated {
		result.PlaintextKey = kp.ExportBase58()
	}
	return result, nil
}

// Get returns the identity's wallet record.
func (s *CustodialWalletService) Get(ctx context.Context, identityID int64) (*domain.WalletRecord, error) {
	wallet, err := s.walletRepo.GetByIdentityID(ctx, identityID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}
	return wallet, nil
}

// ExportKey decrypts the wallet key on demand and returns it base58-encoded.
func (s *CustodialWalletService) ExportKey(ctx context.Context, identityID int64) (string, error) {
	wallet, err := s.Get(ctx, identityID)
	if err != nil {
		return "", err
	}

	raw, err := s.cipher.DecryptForIdentity(identityID, wallet.EncryptedKey)
	if err != nil {
		return "", apperror.ErrKeyDecryption(err)
	}

	kp, err := chain.KeypairFromPrivateKey(raw)
	if err != nil {
		return "", apperror.ErrKeyDecryption(err)
	}

	s.log.Info().Int64("identity_id", identityID).Msg("wallet key exported")
	return kp.ExportBase58(), nil
}

// CreatePending provisions a handle-keyed wallet for a recipient who has not
// registered, or returns the existing one. The key is encrypted under the
// handle cipher; its plaintext is not returned here — the owner receives it
// once, at claim time.
func (s *CustodialWalletService) CreatePending(ctx context.Context, handle string) (*domain.PendingWalletRecord, error) {
	normalized := domain.NormalizeHandle(handle)
	if normalized == "" {
		return nil, apperror.Validation("Recipient handle must not be empty")
	}

	existing, err := s.pendingRepo.GetByHandle(ctx, normalized)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get pending wallet: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	kp, err := chain.GenerateKeypair()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate keypair: %w", err))
	}
	encrypted, err := s.cipher.EncryptForHandle(normalized, kp.PrivateKey)
	if err != nil {
		return nil, apperror.ErrKeyDerivation(err)
	}

	record := &domain.PendingWalletRecord{
		Handle:       normalized,
		Address:      kp.Address,
		EncryptedKey: encrypted,
		CreatedAt:    time.Now().UTC(),
	}
	created, err := s.pendingRepo.Create(ctx, record)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create pending wallet: %w", err))
	}
	if !created {
		// Lost the race: the winner's wallet is the one that counts.
		winner, err := s.pendingRepo.GetByHandle(ctx, normalized)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("get pending wallet after race: %w", err))
		}
		if winner == nil {
			return nil, apperror.InternalError(fmt.Errorf("pending wallet for %q vanished after conflict", normalized))
		}
		return winner, nil
	}

	s.log.Info().Str("handle", normalized).Str("address", kp.Address).Msg("pending wallet created")
	return record, nil
}

// Claim migrates a pending wallet to the claiming identity. The claim flip is
// atomic, so exactly one concurrent claimer proceeds; everyone else gets a
// conflict. The key is re-encrypted from the handle cipher to the identity
// cipher, queued notifications are adopted and flushed, and the plaintext key
// is returned once.
func (s *CustodialWalletService) Claim(ctx context.Context, identityID int64, handle string) (*ports.ClaimResult, error) {
	normalized := domain.NormalizeHandle(handle)

	pending, err := s.pendingRepo.Claim(ctx, normalized)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("claim pending wallet: %w", err))
	}
	if pending == nil {
		existing, err := s.pendingRepo.GetByHandle(ctx, normalized)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("get pending wallet: %w", err))
		}
		if existing != nil {
			return nil, apperror.ErrPendingAlreadyClaimed()
		}
		return nil, apperror.ErrNotFound("Pending wallet")
	}

	raw, err := s.cipher.DecryptForHandle(normalized, pending.EncryptedKey)
	if err != nil {
		return nil, apperror.ErrKeyDecryption(err)
	}
	kp, err := chain.KeypairFromPrivateKey(raw)
	if err != nil {
		return nil, apperror.ErrKeyDecryption(err)
	}

	encrypted, err := s.cipher.EncryptForIdentity(identityID, raw)
	if err != nil {
		return nil, apperror.ErrKeyDerivation(err)
	}

	created, err := s.walletRepo.Create(ctx, &domain.WalletRecord{
		IdentityID:   identityID,
		Address:      pending.Address,
		EncryptedKey: encrypted,
		Mode:         domain.WalletModeGenerated,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil || !created {
		// The migration did not complete. Put the row back, claimable, so
		// the funds parked at the pending address stay reachable.
		if uerr := s.pendingRepo.Unclaim(ctx, normalized); uerr != nil {
			s.log.Error().Err(uerr).Str("handle", normalized).Msg("failed to unclaim pending wallet after aborted migration")
		}
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("create wallet from pending: %w", err))
		}
		return nil, apperror.ErrWalletExists()
	}

	if err := s.pendingRepo.Delete(ctx, normalized); err != nil {
		s.log.Warn().Err(err).Str("handle", normalized).Msg("failed to delete claimed pending wallet row")
	}

	if err := s.notifier.Adopt(ctx, normalized, identityID); err != nil {
		s.log.Warn().Err(err).Str("handle", normalized).Msg("failed to adopt queued notifications")
	}
	notifications, err := s.notifier.Flush(ctx, identityID)
	if err != nil {
		s.log.Warn().Err(err).Int64("identity_id", identityID).Msg("failed to flush notifications after claim")
		notifications = nil
	}
	if len(notifications) > 0 {
		// Payments settled into this wallet before the owner existed; the
		// ledger owes the new identity its RECEIVED rows.
		if err := s.ledger.RecordClaimedReceipts(ctx, identityID, pending.Address, notifications); err != nil {
			s.log.Error().Err(err).Int64("identity_id", identityID).Msg("failed to record claimed receipts")
		}
	}

	s.log.Info().
		Int64("identity_id", identityID).
		Str("handle", normalized).
		Str("address", pending.Address).
		Msg("pending wallet claimed")

	return &ports.ClaimResult{
		Address:       pending.Address,
		PlaintextKey:  kp.ExportBase58(),
		Notifications: notifications,
	}, nil
}

// Balance reads the identity's live balance for the asset.
func (s *CustodialWalletService) Balance(ctx context.Context, identityID int64, asset domain.Asset) (int64, error) {
	wallet, err := s.Get(ctx, identityID)
	if err != nil {
		return 0, err
	}

	if asset.IsNative() {
		balance, err := s.oracle.NativeBalance(ctx, wallet.Address)
		if err != nil {
			return 0, apperror.InternalError(fmt.Errorf("read native balance: %w", err))
		}
		return balance, nil
	}

	balance, err := s.oracle.TokenBalance(ctx, wallet.Address, asset.Mint)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("read token balance: %w", err))
	}
	return balance, nil
}
