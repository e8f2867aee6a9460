package ports

import (
	"context"
	"time"

	"custodial-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
)

// CipherService derives per-identity and per-handle AES-256-GCM ciphers from
// the master secret. Keys are derived on demand for every call and are never
// cached, persisted, or logged.
type CipherService interface {
	EncryptForIdentity(identityID int64, plaintext []byte) (string, error)
	DecryptForIdentity(identityID int64, ciphertext string) ([]byte, error)
	EncryptForHandle(handle string, plaintext []byte) (string, error)
	DecryptForHandle(handle string, ciphertext string) ([]byte, error)
}

// TokenService handles JWT session token operations.
type TokenService interface {
	Generate(identityID int64, handle string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	IdentityID int64
	Handle     string
}

// IntentStore persists payment intents under a TTL. Expired previews vanish
// with the TTL; no sweeper is needed.
type IntentStore interface {
	Save(ctx context.Context, intent *domain.PaymentIntent, ttl time.Duration) error
	// Get returns nil, nil when the intent is absent or expired.
	Get(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExecutionGuard grants at most one execution slot per intent id.
type ExecutionGuard interface {
	// Acquire atomically claims the slot. Returns true for the first
	// caller, false for everyone after — the guard is never released, so a
	// settled or timed-out intent can never be re-executed.
	Acquire(ctx context.Context, intentID string, ttl time.Duration) (bool, error)
}

// --- Chain ports ---

// BalanceOracle reads live account state from the ledger network.
type BalanceOracle interface {
	NativeBalance(ctx context.Context, address string) (int64, error)
	TokenBalance(ctx context.Context, owner string, mint string) (int64, error)
	AccountExists(ctx context.Context, address string) (bool, error)
	TokenAccountExists(ctx context.Context, owner string, mint string) (bool, error)
}

// TxStatus is the observed state of a submitted transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "PENDING"
	TxStatusConfirmed TxStatus = "CONFIRMED"
	TxStatusFailed    TxStatus = "FAILED"
)

// ChainSubmitter builds on the network's submission endpoints.
type ChainSubmitter interface {
	LatestBlockhash(ctx context.Context) (string, error)
	// Submit sends a fully signed transaction; returns its signature.
	Submit(ctx context.Context, signedTx []byte) (string, error)
	SignatureStatus(ctx context.Context, signature string) (TxStatus, error)
}

// --- Service ports (business logic) ---

// CreateWalletRequest holds validated input for wallet creation.
type CreateWalletRequest struct {
	Mode       domain.WalletMode
	PrivateKey string // base58 or hex; only for WalletModeImported
}

// WalletCreateResult is the creation outcome. PlaintextKey is set exactly
// once, for freshly generated wallets, so the owner can take a backup.
type WalletCreateResult struct {
	Address      string
	Created      bool // false when the identical wallet already existed
	PlaintextKey string
}

// ClaimResult is the pending-wallet migration outcome. PlaintextKey is the
// one-time backup copy; Notifications are the messages queued while the
// wallet waited.
type ClaimResult struct {
	Address       string
	PlaintextKey  string
	Notifications []domain.Notification
}

// WalletService manages custodial wallets and the pending-wallet registry.
type WalletService interface {
	Create(ctx context.Context, identityID int64, handle string, req CreateWalletRequest) (*WalletCreateResult, error)
	Get(ctx context.Context, identityID int64) (*domain.WalletRecord, error)
	// ExportKey decrypts the key on demand and returns it base58-encoded.
	ExportKey(ctx context.Context, identityID int64) (string, error)
	// CreatePending provisions a handle-keyed wallet for an unregistered
	// recipient, or returns the existing one.
	CreatePending(ctx context.Context, handle string) (*domain.PendingWalletRecord, error)
	// Claim migrates a pending wallet to the identity. Exactly one
	// concurrent claimer succeeds.
	Claim(ctx context.Context, identityID int64, handle string) (*ClaimResult, error)
	Balance(ctx context.Context, identityID int64, asset domain.Asset) (int64, error)
}

// FeeEstimator computes the settlement cost breakdown. Pure; all constants
// come from configuration.
type FeeEstimator interface {
	Estimate(needsAccountCreation bool, needsTokenAccount bool, asset domain.Asset) domain.FeeBreakdown
}

// BalanceValidator checks spendable balances before anything is submitted.
type BalanceValidator interface {
	// ValidateSender checks the sender covers amount + fee (native) or
	// amount in tokens plus fee in native units.
	ValidateSender(ctx context.Context, senderAddress string, asset domain.Asset, amount int64, fee int64) error
	// CheckRecipient re-checks an active recipient's live balance and may
	// set NeedsRentFunding on the resolved value for this request only.
	CheckRecipient(ctx context.Context, recipient *domain.ResolvedRecipient, asset domain.Asset, amount int64) error
}

// ExecutionResult is the terminal outcome of one settlement attempt.
type ExecutionResult struct {
	Signature string
	Outcome   domain.PaymentStatus // SETTLED, FAILED, or TIMED_OUT
}

// TransferExecutor resolves recipients and settles payments on the network.
type TransferExecutor interface {
	// Resolve classifies the recipient handle into exactly one state.
	// Called once per payment; the result is threaded through unchanged.
	Resolve(ctx context.Context, handle string) (domain.ResolvedRecipient, error)
	// Execute creates any required recipient wallet, then builds, signs,
	// submits, and polls the transfer to a terminal outcome.
	Execute(ctx context.Context, intent *domain.PaymentIntent) (*ExecutionResult, error)
}

// PaymentService is the payment coordinator state machine.
type PaymentService interface {
	Quote(ctx context.Context, senderID int64, recipientHandle string, amount int64, assetSymbol string) (*domain.PaymentIntent, error)
	Confirm(ctx context.Context, senderID int64, intentID uuid.UUID) (*domain.PaymentIntent, error)
	Cancel(ctx context.Context, senderID int64, intentID uuid.UUID) error
	Get(ctx context.Context, senderID int64, intentID uuid.UUID) (*domain.PaymentIntent, error)
}

// LedgerService records settlements and serves history and stats.
type LedgerService interface {
	// RecordSettlement writes the sender row and, when the recipient
	// identity is known, the mirrored recipient row, bumping counters in
	// the same transaction.
	RecordSettlement(ctx context.Context, intent *domain.PaymentIntent, senderHandle string, status domain.EntryStatus) error
	// RecordClaimedReceipts backfills RECEIVED rows for payments that
	// settled into a pending wallet before its owner claimed the handle.
	RecordClaimedReceipts(ctx context.Context, identityID int64, walletAddress string, notifications []domain.Notification) error
	History(ctx context.Context, identityID int64, filter domain.HistoryFilter) ([]domain.LedgerEntry, error)
	Stats(ctx context.Context, identityID int64) (*domain.LedgerStats, error)
}

// NotificationTarget addresses a notification to a registered identity or a
// not-yet-registered handle. Exactly one field is set.
type NotificationTarget struct {
	IdentityID *int64
	Handle     string
}

// NotificationService queues and flushes notifications. At-least-once:
// duplicate delivery is not an error.
type NotificationService interface {
	Enqueue(ctx context.Context, target NotificationTarget, payload domain.NotificationPayload) error
	// Adopt moves handle-keyed notifications to the identity at claim time.
	Adopt(ctx context.Context, handle string, identityID int64) error
	// Flush delivers and clears everything queued for the identity.
	Flush(ctx context.Context, identityID int64) ([]domain.Notification, error)
}

// Deliverer pushes a notification onto the delivery channel (best-effort).
type Deliverer interface {
	Deliver(ctx context.Context, n domain.Notification) error
}

// AuditService records custody operations (wallet creation, key export,
// payment confirmation). Fire-and-forget; never blocks the request path.
type AuditService interface {
	Log(ctx context.Context, record *domain.AuditRecord)
}
