package service

import (
	"context"
	"fmt"

	"custodial-wallet-engine/config"
	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

// OracleBalanceValidator implements ports.BalanceValidator against live
// network reads. All checks run before anything is signed or submitted.
type OracleBalanceValidator struct {
	oracle ports.BalanceOracle
	cfg    config.ChainConfig
	log    zerolog.Logger
}

// NewBalanceValidator creates a validator backed by the balance oracle.
func NewBalanceValidator(oracle ports.BalanceOracle, cfg config.ChainConfig, log zerolog.Logger) *OracleBalanceValidator {
	return &OracleBalanceValidator{oracle: oracle, cfg: cfg, log: log}
}

// ValidateSender checks the sender covers amount + fee. For native transfers
// both come out of the same balance; for token transfers the amount comes out
// of the token balance and the fee out of the native balance.
func (v *OracleBalanceValidator) ValidateSender(ctx context.Context, senderAddress string, asset domain.Asset, amount int64, fee int64) error {
	native, err := v.oracle.NativeBalance(ctx, senderAddress)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("read native balance: %w", err))
	}

	if asset.IsNative() {
		required := amount + fee
		if native < required {
			return apperror.ErrInsufficientFunds(fmt.Sprintf(
				"Insufficient %s: balance %d, need %d (amount %d + fee %d)",
				asset.Symbol, native, required, amount, fee))
		}
		return nil
	}

	if native < fee {
		return apperror.ErrInsufficientFunds(fmt.Sprintf(
			"Insufficient native balance for fees: balance %d, need %d", native, fee))
	}

	tokens, err := v.oracle.TokenBalance(ctx, senderAddress, asset.Mint)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("read token balance: %w", err))
	}
	if tokens < amount {
		return apperror.ErrInsufficientFunds(fmt.Sprintf(
			"Insufficient %s: balance %d, need %d", asset.Symbol, tokens, amount))
	}
	return nil
}

// CheckRecipient inspects the recipient's live account state and marks the
// request-scoped creation flags. Recipients without a wallet yet always need
// account creation, which the payment coordinator prices separately.
func (v *OracleBalanceValidator) CheckRecipient(ctx context.Context, recipient *domain.ResolvedRecipient, asset domain.Asset, amount int64) error {
	switch recipient.Kind {
	case domain.RecipientUnregistered, domain.RecipientRegisteredNoWallet:
		// A fresh wallet will be created at execution time. Its token
		// sub-account cannot exist yet.
		if !asset.IsNative() {
			recipient.NeedsTokenAccount = true
		}
		if asset.IsNative() && amount < v.cfg.MinNewAccountSend {
			return apperror.ErrBelowAccountMinimum(fmt.Sprintf(
				"Sending to a new wallet requires at least %d lamports, got %d",
				v.cfg.MinNewAccountSend, amount))
		}
		return nil

	case domain.RecipientActive, domain.RecipientPendingWallet:
		if !asset.IsNative() {
			exists, err := v.oracle.TokenAccountExists(ctx, recipient.Address, asset.Mint)
			if err != nil {
				return apperror.InternalError(fmt.Errorf("check token account: %w", err))
			}
			recipient.NeedsTokenAccount = !exists
			return nil
		}

		// Live re-check: an "active" recipient may have drained below the
		// rent-exemption floor since its wallet was created.
		balance, err := v.oracle.NativeBalance(ctx, recipient.Address)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("read recipient balance: %w", err))
		}
		if balance < v.cfg.RentExemption {
			if amount < v.cfg.MinNewAccountSend {
				return apperror.ErrBelowAccountMinimum(fmt.Sprintf(
					"Recipient account is below rent exemption; sending requires at least %d lamports, got %d",
					v.cfg.MinNewAccountSend, amount))
			}
			recipient.NeedsRentFunding = true
			v.log.Debug().
				Str("recipient", recipient.Handle).
				Int64("balance", balance).
				Msg("recipient below rent exemption, pricing in rent funding")
		}
		return nil
	}

	return apperror.Validation(fmt.Sprintf("unknown recipient state: %s", recipient.Kind))
}
