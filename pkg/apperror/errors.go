package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----
// Rejected before any state changes.

func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_002", "Amount must be a positive integer in base units", http.StatusBadRequest)
}

func ErrUnsupportedAsset(asset string) *AppError {
	return New("VAL_003", fmt.Sprintf("Unsupported asset: %s", asset), http.StatusBadRequest)
}

func ErrInvalidAddress() *AppError {
	return New("VAL_004", "Invalid address", http.StatusBadRequest)
}

func ErrInvalidPrivateKey() *AppError {
	return New("VAL_005", "Invalid private key format", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("VAL_006", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Funds (FND) ----
// Rejected before any transaction is submitted.

func ErrInsufficientFunds(message string) *AppError {
	return New("FND_001", message, http.StatusPaymentRequired)
}

func ErrBelowAccountMinimum(message string) *AppError {
	return New("FND_002", message, http.StatusPaymentRequired)
}

// ---- Key material (KEY) ----
// Derivation or decryption failures abort the operation and are never retried.

func ErrKeyDerivation(err error) *AppError {
	return Wrap("KEY_001", "Key derivation failure", http.StatusInternalServerError, err)
}

func ErrKeyDecryption(err error) *AppError {
	return Wrap("KEY_002", "Key decryption failure", http.StatusInternalServerError, err)
}

// ---- Network settlement (NET) ----

// ErrSubmissionRejected means the network refused the transaction.
// No funds moved; safe to retry with a fresh quote.
func ErrSubmissionRejected(err error) *AppError {
	return Wrap("NET_001", "Transaction rejected by the network", http.StatusBadGateway, err)
}

// ErrConfirmationTimeout is the ambiguous outcome: the transaction was
// submitted but confirmation was not observed within the polling window.
// Distinct from failure; never auto-resubmitted.
func ErrConfirmationTimeout(signature string) *AppError {
	return New("NET_002",
		fmt.Sprintf("Confirmation timeout for transaction %s: verify on the network before retrying", signature),
		http.StatusGatewayTimeout)
}

func ErrTransferFailed() *AppError {
	return New("NET_003", "Transaction failed on the network", http.StatusBadGateway)
}

// ---- Concurrency conflicts (CNF) ----
// Lost a create/claim race or re-submitted a live intent. No harm done.

func ErrWalletExists() *AppError {
	return New("CNF_001", "A wallet already exists for this identity", http.StatusConflict)
}

func ErrPendingAlreadyClaimed() *AppError {
	return New("CNF_002", "Pending wallet already claimed", http.StatusConflict)
}

func ErrIntentInFlight() *AppError {
	return New("CNF_003", "Payment is already executing or settled", http.StatusConflict)
}

func ErrHandleTaken() *AppError {
	return New("CNF_004", "Handle already registered to another identity", http.StatusConflict)
}

// ---- Payment intent lifecycle (PAY) ----

func ErrIntentExpired() *AppError {
	return New("PAY_001", "Payment preview expired, request a new quote", http.StatusGone)
}

func ErrIntentNotCancellable() *AppError {
	return New("PAY_002", "Payment can no longer be cancelled", http.StatusConflict)
}

func ErrNotIntentOwner() *AppError {
	return New("PAY_003", "Payment was requested by another identity", http.StatusForbidden)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidGatewayKey() *AppError {
	return New("AUTH_002", "Invalid gateway credentials", http.StatusUnauthorized)
}

func ErrRateLimitExceeded() *AppError {
	return New("AUTH_003", "Too many requests", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
