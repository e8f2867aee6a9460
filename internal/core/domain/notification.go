package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies a queued notification.
type NotificationType string

const (
	NotificationPaymentReceived NotificationType = "PAYMENT_RECEIVED"
	NotificationWalletClaimed   NotificationType = "WALLET_CLAIMED"
)

// NotificationPayload is the message body handed to the delivery channel.
type NotificationPayload struct {
	Type          NotificationType `json:"type"`
	Amount        int64            `json:"amount"`
	Asset         string           `json:"asset"`
	SenderHandle  string           `json:"sender_handle,omitempty"`
	SenderAddress string           `json:"sender_address,omitempty"`
	TxSignature   string           `json:"tx_signature,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Notification is a queued message for an identity, or for a handle whose
// owner has not registered yet. Delivery is at-least-once; rows are cleared
// after a flush, and duplicate delivery is not an error.
type Notification struct {
	ID         uuid.UUID           `json:"id"`
	IdentityID *int64              `json:"identity_id,omitempty"` // Either this...
	Handle     string              `json:"handle,omitempty"`      // ...or this is set
	Payload    NotificationPayload `json:"payload"`
	CreatedAt  time.Time           `json:"created_at"`
}
