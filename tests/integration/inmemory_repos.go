package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mr-tron/base58"
)

// --- In-Memory Identity Repo ---

type inMemoryIdentityRepo struct {
	mu         sync.RWMutex
	identities map[int64]*domain.Identity
}

func newInMemoryIdentityRepo() *inMemoryIdentityRepo {
	return &inMemoryIdentityRepo{identities: make(map[int64]*domain.Identity)}
}

func (r *inMemoryIdentityRepo) Ensure(ctx context.Context, id int64, handle string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalized := domain.NormalizeHandle(handle)
	now := time.Now().UTC()
	existing, ok := r.identities[id]
	if !ok {
		existing = &domain.Identity{
			ID:         id,
			Handle:     normalized,
			CreatedAt:  now,
			LastActive: now,
		}
		r.identities[id] = existing
	} else {
		existing.Handle = normalized
		existing.LastActive = now
	}
	out := *existing
	return &out, nil
}

func (r *inMemoryIdentityRepo) GetByID(ctx context.Context, id int64) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.identities[id]
	if !ok {
		return nil, nil
	}
	out := *identity
	return &out, nil
}

func (r *inMemoryIdentityRepo) GetByHandle(ctx context.Context, handle string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, identity := range r.identities {
		if identity.Handle == handle {
			out := *identity
			return &out, nil
		}
	}
	return nil, nil
}

func (r *inMemoryIdentityRepo) BumpCounters(ctx context.Context, tx pgx.Tx, identityID int64, sentDelta, receivedDelta, volumeDelta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[identityID]
	if !ok {
		return fmt.Errorf("identity %d not found", identityID)
	}
	identity.PaymentsSent += sentDelta
	identity.PaymentsReceived += receivedDelta
	identity.VolumeLamports += volumeDelta
	return nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[int64]*domain.WalletRecord
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[int64]*domain.WalletRecord)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, wallet *domain.WalletRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[wallet.IdentityID]; ok {
		return false, nil
	}
	stored := *wallet
	r.wallets[wallet.IdentityID] = &stored
	return true, nil
}

func (r *inMemoryWalletRepo) GetByIdentityID(ctx context.Context, identityID int64) (*domain.WalletRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.wallets[identityID]
	if !ok {
		return nil, nil
	}
	out := *wallet
	return &out, nil
}

// --- In-Memory Pending Wallet Repo ---

type inMemoryPendingWalletRepo struct {
	mu      sync.Mutex
	pending map[string]*domain.PendingWalletRecord
}

func newInMemoryPendingWalletRepo() *inMemoryPendingWalletRepo {
	return &inMemoryPendingWalletRepo{pending: make(map[string]*domain.PendingWalletRecord)}
}

func (r *inMemoryPendingWalletRepo) Create(ctx context.Context, record *domain.PendingWalletRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[record.Handle]; ok {
		return false, nil
	}
	stored := *record
	r.pending[record.Handle] = &stored
	return true, nil
}

func (r *inMemoryPendingWalletRepo) GetByHandle(ctx context.Context, handle string) (*domain.PendingWalletRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.pending[handle]
	if !ok {
		return nil, nil
	}
	out := *record
	return &out, nil
}

func (r *inMemoryPendingWalletRepo) Claim(ctx context.Context, handle string) (*domain.PendingWalletRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.pending[handle]
	if !ok || record.Claimed {
		return nil, nil
	}
	record.Claimed = true
	out := *record
	return &out, nil
}

func (r *inMemoryPendingWalletRepo) Unclaim(ctx context.Context, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.pending[handle]; ok {
		record.Claimed = false
	}
	return nil
}

func (r *inMemoryPendingWalletRepo) Delete(ctx context.Context, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, handle)
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

func (r *inMemoryLedgerRepo) Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryLedgerRepo) List(ctx context.Context, identityID int64, filter domain.HistoryFilter) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.LedgerEntry
	for _, e := range r.entries {
		if e.IdentityID != identityID {
			continue
		}
		if filter.Asset != "" && e.Asset != filter.Asset {
			continue
		}
		if filter.Direction != "" && e.Direction != filter.Direction {
			continue
		}
		result = append(result, e)
	}

	// Newest first, matching the SQL ORDER BY created_at DESC.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// --- In-Memory Notification Repo ---

type inMemoryNotificationRepo struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

func newInMemoryNotificationRepo() *inMemoryNotificationRepo {
	return &inMemoryNotificationRepo{}
}

func (r *inMemoryNotificationRepo) Enqueue(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *inMemoryNotificationRepo) PendingForIdentity(ctx context.Context, identityID int64) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Notification
	for _, n := range r.notifications {
		if n.IdentityID != nil && *n.IdentityID == identityID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (r *inMemoryNotificationRepo) Reassign(ctx context.Context, handle string, identityID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].Handle == handle {
			id := identityID
			r.notifications[i].IdentityID = &id
			r.notifications[i].Handle = ""
		}
	}
	return nil
}

func (r *inMemoryNotificationRepo) Delete(ctx context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := r.notifications[:0]
	for _, n := range r.notifications {
		if _, ok := drop[n.ID]; !ok {
			kept = append(kept, n)
		}
	}
	r.notifications = kept
	return nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, record *domain.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

// --- Fake Chain (balance oracle + submitter) ---

// fakeChain is a scripted stand-in for the RPC client. Balances are set by
// the test; submissions are recorded and resolve to a configurable status.
type fakeChain struct {
	mu     sync.RWMutex
	native map[string]int64
	tokens map[string]int64 // key: owner + "|" + mint

	status    ports.TxStatus
	submitted [][]byte
	sigSeq    atomic.Int64
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		native: make(map[string]int64),
		tokens: make(map[string]int64),
		status: ports.TxStatusConfirmed,
	}
}

func (f *fakeChain) fund(address string, lamports int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.native[address] = lamports
}

func (f *fakeChain) fundToken(owner, mint string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[owner+"|"+mint] = amount
}

// setOutcome scripts what SignatureStatus reports for every submission.
func (f *fakeChain) setOutcome(status ports.TxStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeChain) submittedCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.submitted)
}

func (f *fakeChain) NativeBalance(ctx context.Context, address string) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.native[address], nil
}

func (f *fakeChain) TokenBalance(ctx context.Context, owner string, mint string) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tokens[owner+"|"+mint], nil
}

func (f *fakeChain) AccountExists(ctx context.Context, address string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.native[address] > 0, nil
}

func (f *fakeChain) TokenAccountExists(ctx context.Context, owner string, mint string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.tokens[owner+"|"+mint]
	return ok, nil
}

func (f *fakeChain) LatestBlockhash(ctx context.Context) (string, error) {
	// Any well-formed 32-byte value works as a recent blockhash.
	hash := make([]byte, 32)
	for i := range hash {
		hash[i] = byte(i + 1)
	}
	return base58.Encode(hash), nil
}

func (f *fakeChain) Submit(ctx context.Context, signedTx []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, signedTx)
	return fmt.Sprintf("test-signature-%d", f.sigSeq.Add(1)), nil
}

func (f *fakeChain) SignatureStatus(ctx context.Context, signature string) (ports.TxStatus, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

var (
	_ ports.IdentityRepository      = (*inMemoryIdentityRepo)(nil)
	_ ports.WalletRepository        = (*inMemoryWalletRepo)(nil)
	_ ports.PendingWalletRepository = (*inMemoryPendingWalletRepo)(nil)
	_ ports.LedgerRepository        = (*inMemoryLedgerRepo)(nil)
	_ ports.NotificationRepository  = (*inMemoryNotificationRepo)(nil)
	_ ports.AuditRepository         = (*inMemoryAuditRepo)(nil)
	_ ports.DBTransactor            = (*inMemoryTransactor)(nil)
	_ ports.BalanceOracle           = (*fakeChain)(nil)
	_ ports.ChainSubmitter          = (*fakeChain)(nil)
)
