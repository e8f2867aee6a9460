package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryDirection is the perspective of a ledger row's owning identity.
type EntryDirection string

const (
	EntryDirectionSent     EntryDirection = "SENT"
	EntryDirectionReceived EntryDirection = "RECEIVED"
)

// EntryStatus is the settlement outcome recorded on a ledger row.
// Timed-out payments never produce a row.
type EntryStatus string

const (
	EntryStatusConfirmed EntryStatus = "CONFIRMED"
	EntryStatusFailed    EntryStatus = "FAILED"
)

// LedgerEntry is an immutable record of one side of a settled payment.
type LedgerEntry struct {
	ID                 uuid.UUID      `json:"id"`
	IdentityID         int64          `json:"identity_id"`
	TxSignature        string         `json:"tx_signature"`
	Direction          EntryDirection `json:"direction"`
	CounterpartyHandle string         `json:"counterparty_handle"`
	SenderAddress      string         `json:"sender_address"`
	RecipientAddress   string         `json:"recipient_address"`
	Asset              string         `json:"asset"`
	Amount             int64          `json:"amount"` // Base units
	Fee                int64          `json:"fee"`    // Lamports, sender side only
	Status             EntryStatus    `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
}

// LedgerStats are the O(1) per-identity aggregates maintained alongside
// ledger appends.
type LedgerStats struct {
	IdentityID       int64 `json:"identity_id"`
	PaymentsSent     int64 `json:"payments_sent"`
	PaymentsReceived int64 `json:"payments_received"`
	VolumeLamports   int64 `json:"volume_lamports"`
}

// HistoryFilter narrows a ledger history scan.
type HistoryFilter struct {
	Asset     string         `json:"asset,omitempty"`
	Direction EntryDirection `json:"direction,omitempty"`
	Limit     int            `json:"limit,omitempty"`
}
