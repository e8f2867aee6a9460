package service

import (
	"context"
	"errors"
	"testing"

	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports/mocks"
	"custodial-wallet-engine/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

type balanceTestDeps struct {
	validator *OracleBalanceValidator
	oracle    *mocks.MockBalanceOracle
	ctrl      *gomock.Controller
}

func setupBalanceValidator(t *testing.T) *balanceTestDeps {
	ctrl := gomock.NewController(t)
	d := &balanceTestDeps{
		oracle: mocks.NewMockBalanceOracle(ctrl),
		ctrl:   ctrl,
	}
	d.validator = NewBalanceValidator(d.oracle, testChainConfig(), zerolog.Nop())
	return d
}

func TestBalanceValidator_ValidateSender_Native(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.oracle.EXPECT().NativeBalance(ctx, "sender").Return(int64(2_000_000_000), nil)
	err := d.validator.ValidateSender(ctx, "sender", nativeAsset, 1_000_000_000, 5000)
	assert.NoError(t, err)
}

func TestBalanceValidator_ValidateSender_NativeInsufficient(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	// Balance covers the amount but not amount + fee.
	d.oracle.EXPECT().NativeBalance(ctx, "sender").Return(int64(1_000_000_000), nil)
	err := d.validator.ValidateSender(ctx, "sender", nativeAsset, 1_000_000_000, 5000)
	assertAppError(t, err, "FND_001")
}

func TestBalanceValidator_ValidateSender_Token(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.oracle.EXPECT().NativeBalance(ctx, "sender").Return(int64(10_000_000), nil)
	d.oracle.EXPECT().TokenBalance(ctx, "sender", tokenAsset.Mint).Return(int64(5_000_000), nil)
	err := d.validator.ValidateSender(ctx, "sender", tokenAsset, 1_500_000, 5000)
	assert.NoError(t, err)
}

func TestBalanceValidator_ValidateSender_TokenInsufficientNativeForFee(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.oracle.EXPECT().NativeBalance(ctx, "sender").Return(int64(100), nil)
	err := d.validator.ValidateSender(ctx, "sender", tokenAsset, 1_500_000, 5000)
	assertAppError(t, err, "FND_001")
}

func TestBalanceValidator_ValidateSender_TokenInsufficientTokens(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.oracle.EXPECT().NativeBalance(ctx, "sender").Return(int64(10_000_000), nil)
	d.oracle.EXPECT().TokenBalance(ctx, "sender", tokenAsset.Mint).Return(int64(1_000_000), nil)
	err := d.validator.ValidateSender(ctx, "sender", tokenAsset, 1_500_000, 5000)
	assertAppError(t, err, "FND_001")
}

func TestBalanceValidator_CheckRecipient_UnregisteredBelowFloor(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()

	// No network calls: the floor check rejects before any oracle read.
	recipient := &domain.ResolvedRecipient{Kind: domain.RecipientUnregistered, Handle: "bob"}
	err := d.validator.CheckRecipient(context.Background(), recipient, nativeAsset, 500_000)
	assertAppError(t, err, "FND_002")
}

func TestBalanceValidator_CheckRecipient_UnregisteredAboveFloor(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()

	recipient := &domain.ResolvedRecipient{Kind: domain.RecipientUnregistered, Handle: "bob"}
	err := d.validator.CheckRecipient(context.Background(), recipient, nativeAsset, 2_000_000)
	require.NoError(t, err)
	assert.False(t, recipient.NeedsRentFunding)
}

func TestBalanceValidator_CheckRecipient_UnregisteredToken(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()

	recipient := &domain.ResolvedRecipient{Kind: domain.RecipientUnregistered, Handle: "bob"}
	err := d.validator.CheckRecipient(context.Background(), recipient, tokenAsset, 100)
	require.NoError(t, err)
	assert.True(t, recipient.NeedsTokenAccount, "fresh wallet cannot have a sub-account yet")
}

func TestBalanceValidator_CheckRecipient_ActiveHealthy(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	id := int64(7)
	recipient := &domain.ResolvedRecipient{
		Kind: domain.RecipientActive, Handle: "bob", IdentityID: &id, Address: "addr",
	}
	d.oracle.EXPECT().NativeBalance(ctx, "addr").Return(int64(5_000_000), nil)

	err := d.validator.CheckRecipient(ctx, recipient, nativeAsset, 100_000)
	require.NoError(t, err)
	assert.False(t, recipient.NeedsRentFunding)
}

func TestBalanceValidator_CheckRecipient_ActiveDrainedBelowFloor(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	id := int64(7)
	recipient := &domain.ResolvedRecipient{
		Kind: domain.RecipientActive, Handle: "bob", IdentityID: &id, Address: "addr",
	}
	// Drained below rent exemption since its wallet was created.
	d.oracle.EXPECT().NativeBalance(ctx, "addr").Return(int64(1000), nil)

	err := d.validator.CheckRecipient(ctx, recipient, nativeAsset, 100_000)
	assertAppError(t, err, "FND_002")
}

func TestBalanceValidator_CheckRecipient_ActiveDrainedLargeSend(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	id := int64(7)
	recipient := &domain.ResolvedRecipient{
		Kind: domain.RecipientActive, Handle: "bob", IdentityID: &id, Address: "addr",
	}
	d.oracle.EXPECT().NativeBalance(ctx, "addr").Return(int64(1000), nil)

	err := d.validator.CheckRecipient(ctx, recipient, nativeAsset, 2_000_000)
	require.NoError(t, err)
	assert.True(t, recipient.NeedsRentFunding, "large sends revive the drained account")
}

func TestBalanceValidator_CheckRecipient_ActiveTokenSubAccount(t *testing.T) {
	d := setupBalanceValidator(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	id := int64(7)
	recipient := &domain.ResolvedRecipient{
		Kind: domain.RecipientActive, Handle: "bob", IdentityID: &id, Address: "addr",
	}
	d.oracle.EXPECT().TokenAccountExists(ctx, "addr", tokenAsset.Mint).Return(false, nil)

	err := d.validator.CheckRecipient(ctx, recipient, tokenAsset, 100)
	require.NoError(t, err)
	assert.True(t, recipient.NeedsTokenAccount)
}
