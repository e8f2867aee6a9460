package domain

import (
	"time"

	"github.com/google/uuid"
)

// Asset describes a transferable asset. Native assets have an empty mint.
type Asset struct {
	Symbol   string `json:"symbol"`
	Mint     string `json:"mint"`
	Decimals uint8  `json:"decimals"`
}

// IsNative reports whether the asset is the ledger's native unit.
func (a Asset) IsNative() bool {
	return a.Mint == ""
}

// FeeBreakdown itemizes the estimated settlement cost in lamports.
type FeeBreakdown struct {
	BaseFee          int64 `json:"base_fee"`
	RentExemption    int64 `json:"rent_exemption"`     // Nonzero when the recipient account must be created
	TokenAccountRent int64 `json:"token_account_rent"` // Nonzero when a token sub-account must be created
	Total            int64 `json:"total"`
}

// PaymentStatus represents the lifecycle state of a payment intent.
type PaymentStatus string

const (
	PaymentStatusQuoted               PaymentStatus = "QUOTED"
	PaymentStatusPreviewed            PaymentStatus = "PREVIEWED"
	PaymentStatusAwaitingConfirmation PaymentStatus = "AWAITING_CONFIRMATION"
	PaymentStatusExecuting            PaymentStatus = "EXECUTING"
	PaymentStatusSettled              PaymentStatus = "SETTLED"
	PaymentStatusFailed               PaymentStatus = "FAILED"
	PaymentStatusTimedOut             PaymentStatus = "TIMED_OUT"
	PaymentStatusCancelled            PaymentStatus = "CANCELLED"
)

// RecipientKind is the recipient's resolved state. A payment resolves its
// recipient exactly once and threads the result through every later step.
type RecipientKind string

const (
	// RecipientUnregistered: handle unknown to the system. Settlement first
	// creates a pending wallet keyed by the handle.
	RecipientUnregistered RecipientKind = "UNREGISTERED"
	// RecipientRegisteredNoWallet: identity exists but has never held a
	// wallet. Settlement first creates one under the identity's cipher.
	RecipientRegisteredNoWallet RecipientKind = "REGISTERED_NO_WALLET"
	// RecipientActive: identity exists and has a funded wallet address.
	RecipientActive RecipientKind = "ACTIVE"
	// RecipientPendingWallet: a prior payment already parked funds under
	// this handle; transfers go to the existing pending address.
	RecipientPendingWallet RecipientKind = "PENDING_WALLET"
)

// ResolvedRecipient is the tagged result of recipient resolution.
// Kind determines which of the remaining fields are meaningful.
type ResolvedRecipient struct {
	Kind       RecipientKind `json:"kind"`
	Handle     string        `json:"handle"`                // Normalized
	IdentityID *int64        `json:"identity_id,omitempty"` // Set unless Unregistered
	Address    string        `json:"address,omitempty"`     // Empty until a wallet exists

	// NeedsRentFunding is set when a live balance check found the active
	// recipient below the rent-exemption threshold. Request-scoped: it
	// adjusts this payment's fee only and is never written back.
	NeedsRentFunding bool `json:"needs_rent_funding,omitempty"`
	// NeedsTokenAccount is set when the recipient lacks a sub-account for
	// the asset being sent.
	NeedsTokenAccount bool `json:"needs_token_account,omitempty"`
}

// PaymentIntent is a quoted payment moving through the settlement state
// machine. Intents live in the intent store under a TTL; an expired preview
// simply vanishes.
type PaymentIntent struct {
	ID          uuid.UUID         `json:"id"`
	SenderID    int64             `json:"sender_id"`
	Recipient   ResolvedRecipient `json:"recipient"`
	Asset       Asset             `json:"asset"`
	Amount      int64             `json:"amount"` // Base units
	Fee         FeeBreakdown      `json:"fee"`
	Status      PaymentStatus     `json:"status"`
	TxSignature string            `json:"tx_signature,omitempty"` // Set once submitted
	FailureCode string            `json:"failure_code,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// IsTerminal returns true if the intent reached a final state.
func (p *PaymentIntent) IsTerminal() bool {
	return p.Status == PaymentStatusSettled ||
		p.Status == PaymentStatusFailed ||
		p.Status == PaymentStatusTimedOut ||
		p.Status == PaymentStatusCancelled
}

// CanConfirm returns true if the intent may enter execution.
func (p *PaymentIntent) CanConfirm() bool {
	return p.Status == PaymentStatusPreviewed ||
		p.Status == PaymentStatusAwaitingConfirmation
}

// CanCancel returns true while the intent has not started executing.
func (p *PaymentIntent) CanCancel() bool {
	return p.Status == PaymentStatusQuoted ||
		p.Status == PaymentStatusPreviewed ||
		p.Status == PaymentStatusAwaitingConfirmation
}
