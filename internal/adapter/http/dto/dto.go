package dto

import (
	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports"
)

// SessionRequest is the request body the session source sends to exchange an
// identity for a bearer token.
type SessionRequest struct {
	IdentityID int64  `json:"identity_id" binding:"required,gt=0"`
	Handle     string `json:"handle" binding:"required,handle"`
}

// SessionResponse is the response body for a minted session.
type SessionResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp

	// ClaimedWallet is set when a pending wallet was migrated to this
	// identity during session bootstrap.
	ClaimedWallet *ClaimResponse `json:"claimed_wallet,omitempty"`
}

// CreateWalletRequest is the request body for wallet creation or import.
type CreateWalletRequest struct {
	Mode       string  `json:"mode" binding:"omitempty,oneof=GENERATED IMPORTED"`
	PrivateKey *string `json:"private_key,omitempty"` // Required for IMPORTED
}

// CreateWalletResponse is the creation outcome. PrivateKey appears exactly
// once, for freshly generated wallets.
type CreateWalletResponse struct {
	Address    string  `json:"address"`
	Created    bool    `json:"created"`
	PrivateKey *string `json:"private_key,omitempty"`
}

// WalletResponse describes the caller's wallet.
type WalletResponse struct {
	Address   string `json:"address"`
	Mode      string `json:"mode"`
	CreatedAt string `json:"created_at"`
}

// ClaimResponse is the pending-wallet migration outcome.
type ClaimResponse struct {
	Address       string                 `json:"address"`
	PrivateKey    string                 `json:"private_key"`
	Notifications []NotificationResponse `json:"notifications"`
}

// NotificationResponse is one queued message delivered at claim or flush time.
type NotificationResponse struct {
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	Asset        string `json:"asset"`
	SenderHandle string `json:"sender_handle,omitempty"`
	TxSignature  string `json:"tx_signature,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// ExportKeyResponse carries the decrypted key, base58-encoded. Served once
// per request; never cached.
type ExportKeyResponse struct {
	PrivateKey string `json:"private_key"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Asset    string `json:"asset"`
	Amount   int64  `json:"amount"` // Base units
	Decimals uint8  `json:"decimals"`
}

// QuoteRequest is the request body for a payment quote.
type QuoteRequest struct {
	Recipient string `json:"recipient" binding:"required,handle"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Asset     string `json:"asset" binding:"required,min=2,max=10"`
}

// FeeResponse itemizes the quoted settlement cost.
type FeeResponse struct {
	BaseFee          int64 `json:"base_fee"`
	RentExemption    int64 `json:"rent_exemption,omitempty"`
	TokenAccountRent int64 `json:"token_account_rent,omitempty"`
	Total            int64 `json:"total"`
}

// PaymentResponse is the wire form of a payment intent.
type PaymentResponse struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	Recipient     string      `json:"recipient"`
	RecipientKind string      `json:"recipient_kind"`
	Asset         string      `json:"asset"`
	Amount        int64       `json:"amount"`
	Fee           FeeResponse `json:"fee"`
	TxSignature   string      `json:"tx_signature,omitempty"`
	FailureCode   string      `json:"failure_code,omitempty"`
	CreatedAt     string      `json:"created_at"`
	ExpiresAt     string      `json:"expires_at"`
}

// LedgerEntryResponse is one row of payment history.
type LedgerEntryResponse struct {
	ID           string `json:"id"`
	Direction    string `json:"direction"`
	Counterparty string `json:"counterparty"`
	Asset        string `json:"asset"`
	Amount       int64  `json:"amount"`
	Fee          int64  `json:"fee,omitempty"`
	Status       string `json:"status"`
	TxSignature  string `json:"tx_signature"`
	CreatedAt    string `json:"created_at"`
}

// LedgerListResponse wraps a history scan.
type LedgerListResponse struct {
	Items []LedgerEntryResponse `json:"items"`
	Count int                   `json:"count"`
}

// LedgerStatsResponse carries the per-identity aggregates.
type LedgerStatsResponse struct {
	PaymentsSent     int64 `json:"payments_sent"`
	PaymentsReceived int64 `json:"payments_received"`
	VolumeLamports   int64 `json:"volume_lamports"`
}

// FromIntent converts a payment intent to its wire form.
func FromIntent(intent *domain.PaymentIntent) PaymentResponse {
	return PaymentResponse{
		ID:            intent.ID.String(),
		Status:        string(intent.Status),
		Recipient:     intent.Recipient.Handle,
		RecipientKind: string(intent.Recipient.Kind),
		Asset:         intent.Asset.Symbol,
		Amount:        intent.Amount,
		Fee: FeeResponse{
			BaseFee:          intent.Fee.BaseFee,
			RentExemption:    intent.Fee.RentExemption,
			TokenAccountRent: intent.Fee.TokenAccountRent,
			Total:            intent.Fee.Total,
		},
		TxSignature: intent.TxSignature,
		FailureCode: intent.FailureCode,
		CreatedAt:   intent.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		ExpiresAt:   intent.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// FromNotifications converts queued notifications to their wire form.
func FromNotifications(ns []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationResponse{
			Type:         string(n.Payload.Type),
			Amount:       n.Payload.Amount,
			Asset:        n.Payload.Asset,
			SenderHandle: n.Payload.SenderHandle,
			TxSignature:  n.Payload.TxSignature,
			Timestamp:    n.Payload.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}

// FromClaim converts a claim outcome to its wire form.
func FromClaim(result *ports.ClaimResult) ClaimResponse {
	return ClaimResponse{
		Address:       result.Address,
		PrivateKey:    result.PlaintextKey,
		Notifications: FromNotifications(result.Notifications),
	}
}
