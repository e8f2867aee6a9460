package domain

import (
	"strings"
	"time"
)

// Identity represents a principal known to the session source. Identity ids
// are assigned externally; this engine only mirrors them. Lifecycle state is
// derived, never stored: no row means unregistered, a row without a wallet
// means registered, a row with a wallet means active.
type Identity struct {
	ID               int64     `json:"id"`
	Handle           string    `json:"handle"` // Stored normalized (lowercase, no @)
	CreatedAt        time.Time `json:"created_at"`
	LastActive       time.Time `json:"last_active"`
	PaymentsSent     int64     `json:"payments_sent"`
	PaymentsReceived int64     `json:"payments_received"`
	VolumeLamports   int64     `json:"volume_lamports"`
}

// NormalizeHandle lowercases a handle and strips a leading @.
// All handle keys (pending wallets, cipher salts, lookups) use this form.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}
