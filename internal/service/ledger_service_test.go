package service

import (
	"context"
	"testing"
	"time"

	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

type ledgerTestDeps struct {
	svc          *LedgerServiceImpl
	ledgerRepo   *mocks.MockLedgerRepository
	identityRepo *mocks.MockIdentityRepository
	walletRepo   *mocks.MockWalletRepository
	transactor   *mocks.MockDBTransactor
	ctrl         *gomock.Controller
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		ledgerRepo:   mocks.NewMockLedgerRepository(ctrl),
		identityRepo: mocks.NewMockIdentityRepository(ctrl),
		walletRepo:   mocks.NewMockWalletRepository(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewLedgerService(d.ledgerRepo, d.identityRepo, d.walletRepo, d.transactor, zerolog.Nop())
	return d
}

func settledIntent(senderID int64, recipientID *int64) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:       uuid.New(),
		SenderID: senderID,
		Recipient: domain.ResolvedRecipient{
			Kind: domain.RecipientActive, Handle: "bob", IdentityID: recipientID, Address: "bob-addr",
		},
		Asset:       domain.Asset{Symbol: "SOL", Decimals: 9},
		Amount:      2_000_000,
		Fee:         domain.FeeBreakdown{BaseFee: 5000, Total: 5000},
		Status:      domain.PaymentStatusSettled,
		TxSignature: "sig-ok",
	}
}

func TestLedgerService_RecordSettlement_BothSides(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	recipientID := int64(7)
	intent := settledIntent(1, &recipientID)

	d.walletRepo.EXPECT().GetByIdentityID(ctx, int64(1)).Return(&domain.WalletRecord{
		IdentityID: 1, Address: "alice-addr",
	}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)

	d.ledgerRepo.EXPECT().Append(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, int64(1), entry.IdentityID)
			assert.Equal(t, domain.EntryDirectionSent, entry.Direction)
			assert.Equal(t, "bob", entry.CounterpartyHandle)
			assert.Equal(t, "alice-addr", entry.SenderAddress)
			assert.Equal(t, "bob-addr", entry.RecipientAddress)
			assert.Equal(t, int64(5000), entry.Fee)
			assert.Equal(t, domain.EntryStatusConfirmed, entry.Status)
			return nil
		})
	d.identityRepo.EXPECT().BumpCounters(ctx, tx, int64(1), int64(1), int64(0), int64(2_000_000)).Return(nil)

	d.ledgerRepo.EXPECT().Append(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, int64(7), entry.IdentityID)
			assert.Equal(t, domain.EntryDirectionReceived, entry.Direction)
			assert.Equal(t, "alice", entry.CounterpartyHandle)
			assert.Zero(t, entry.Fee, "fee is recorded on the sender side only")
			return nil
		})
	d.identityRepo.EXPECT().BumpCounters(ctx, tx, int64(7), int64(0), int64(1), int64(2_000_000)).Return(nil)

	err := d.svc.RecordSettlement(ctx, intent, "alice", domain.EntryStatusConfirmed)
	require.NoError(t, err)
}

func TestLedgerService_RecordSettlement_UnknownRecipientIdentity(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	// Pending-wallet recipient: no identity yet, so only the sender row.
	intent := settledIntent(1, nil)
	intent.Recipient.Kind = domain.RecipientPendingWallet

	d.walletRepo.EXPECT().GetByIdentityID(ctx, int64(1)).Return(&domain.WalletRecord{
		IdentityID: 1, Address: "alice-addr",
	}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().Append(ctx, tx, gomock.Any()).Return(nil)
	d.identityRepo.EXPECT().BumpCounters(ctx, tx, int64(1), int64(1), int64(0), int64(2_000_000)).Return(nil)

	err := d.svc.RecordSettlement(ctx, intent, "alice", domain.EntryStatusConfirmed)
	require.NoError(t, err)
}

func TestLedgerService_RecordSettlement_FailedSkipsCounters(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	recipientID := int64(7)
	intent := settledIntent(1, &recipientID)
	intent.Status = domain.PaymentStatusFailed

	d.walletRepo.EXPECT().GetByIdentityID(ctx, int64(1)).Return(&domain.WalletRecord{
		IdentityID: 1, Address: "alice-addr",
	}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	// Rows written for history, but no counter bumps.
	d.ledgerRepo.EXPECT().Append(ctx, tx, gomock.Any()).Return(nil).Times(2)

	err := d.svc.RecordSettlement(ctx, intent, "alice", domain.EntryStatusFailed)
	require.NoError(t, err)
}

func TestLedgerService_RecordClaimedReceipts(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	now := time.Now().UTC()
	notifications := []domain.Notification{
		{Payload: domain.NotificationPayload{
			Type: domain.NotificationPaymentReceived, Amount: 1_000_000_000, Asset: "SOL",
			SenderHandle: "@Alice", SenderAddress: "alice-addr", TxSignature: "sig-1", Timestamp: now,
		}},
		{Payload: domain.NotificationPayload{
			Type: domain.NotificationPaymentReceived, Amount: 250_000_000, Asset: "SOL",
			SenderHandle: "carol", SenderAddress: "carol-addr", TxSignature: "sig-2", Timestamp: now,
		}},
		// Not a payment: no ledger row for it.
		{Payload: domain.NotificationPayload{Type: domain.NotificationWalletClaimed, Timestamp: now}},
	}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().Append(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, int64(9), entry.IdentityID)
			assert.Equal(t, domain.EntryDirectionReceived, entry.Direction)
			assert.Equal(t, "alice", entry.CounterpartyHandle)
			assert.Equal(t, "alice-addr", entry.SenderAddress)
			assert.Equal(t, "claimed-addr", entry.RecipientAddress)
			assert.Equal(t, "sig-1", entry.TxSignature)
			assert.Equal(t, int64(1_000_000_000), entry.Amount)
			assert.Equal(t, domain.EntryStatusConfirmed, entry.Status)
			return nil
		})
	d.ledgerRepo.EXPECT().Append(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, "carol", entry.CounterpartyHandle)
			assert.Equal(t, "sig-2", entry.TxSignature)
			return nil
		})
	d.identityRepo.EXPECT().BumpCounters(ctx, tx, int64(9), int64(0), int64(2), int64(1_250_000_000)).Return(nil)

	err := d.svc.RecordClaimedReceipts(ctx, 9, "claimed-addr", notifications)
	require.NoError(t, err)
}

func TestLedgerService_RecordClaimedReceipts_NothingToRecord(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	// No payment notifications means no transaction at all.
	err := d.svc.RecordClaimedReceipts(context.Background(), 9, "claimed-addr", []domain.Notification{
		{Payload: domain.NotificationPayload{Type: domain.NotificationWalletClaimed}},
	})
	require.NoError(t, err)
}

func TestLedgerService_History(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	filter := domain.HistoryFilter{Asset: "SOL", Limit: 10}
	entries := []domain.LedgerEntry{{IdentityID: 1, Asset: "SOL"}}
	d.ledgerRepo.EXPECT().List(ctx, int64(1), filter).Return(entries, nil)

	result, err := d.svc.History(ctx, 1, filter)
	require.NoError(t, err)
	assert.Equal(t, entries, result)
}

func TestLedgerService_Stats(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.identityRepo.EXPECT().GetByID(ctx, int64(1)).Return(&domain.Identity{
		ID: 1, PaymentsSent: 4, PaymentsReceived: 2, VolumeLamports: 9_000_000,
	}, nil)

	stats, err := d.svc.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.PaymentsSent)
	assert.Equal(t, int64(2), stats.PaymentsReceived)
	assert.Equal(t, int64(9_000_000), stats.VolumeLamports)
}

func TestLedgerService_Stats_UnknownIdentity(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.identityRepo.EXPECT().GetByID(ctx, int64(1)).Return(nil, nil)

	_, err := d.svc.Stats(ctx, 1)
	assertAppError(t, err, "VAL_006")
}
