package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction classifies an audited custody operation.
type AuditAction string

const (
	AuditActionSessionIssue  AuditAction = "SESSION_ISSUE"
	AuditActionWalletCreate  AuditAction = "WALLET_CREATE"
	AuditActionWalletClaim   AuditAction = "WALLET_CLAIM"
	AuditActionKeyExport     AuditAction = "KEY_EXPORT"
	AuditActionPaymentQuote  AuditAction = "PAYMENT_QUOTE"
	AuditActionPaymentCommit AuditAction = "PAYMENT_COMMIT"
)

// AuditRecord is one row of the custody audit trail. Key material never
// appears here; the record says who touched what, not what the key was.
type AuditRecord struct {
	ID           uuid.UUID   `json:"id"`
	IdentityID   *int64      `json:"identity_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
