package domain

import (
	"time"
)

// WalletMode records how the key material entered custody.
type WalletMode string

const (
	WalletModeGenerated WalletMode = "GENERATED"
	WalletModeImported  WalletMode = "IMPORTED"
)

// WalletRecord is an identity's custodial wallet. At most one per identity;
// the address never changes once set. EncryptedKey is ciphertext under the
// identity-derived cipher — plaintext key material exists only transiently in
// memory during signing or export and is never persisted or logged.
type WalletRecord struct {
	IdentityID   int64      `json:"identity_id"`
	Address      string     `json:"address"`
	EncryptedKey string     `json:"-"`
	Mode         WalletMode `json:"mode"`
	CreatedAt    time.Time  `json:"created_at"`
}

// PendingWalletRecord holds funds sent to a handle whose owner has not
// registered yet. The key is encrypted under the handle-derived cipher; at
// claim time it is re-encrypted under the claimer's identity cipher and the
// row is removed. The claimed flag makes the claim a single-winner update.
type PendingWalletRecord struct {
	Handle       string    `json:"handle"` // Normalized, primary key
	Address      string    `json:"address"`
	EncryptedKey string    `json:"-"`
	Claimed      bool      `json:"claimed"`
	CreatedAt    time.Time `json:"created_at"`
}
