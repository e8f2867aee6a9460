package handler

import (
	"errors"

	"custodial-wallet-engine/internal/adapter/http/dto"
	"custodial-wallet-engine/internal/adapter/http/middleware"
	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/pkg/apperror"
	"custodial-wallet-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles the payment intent lifecycle endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
	metrics    *middleware.Metrics // nil = metrics disabled
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService, metrics *middleware.Metrics) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, metrics: metrics}
}

// Quote handles POST /api/v1/payments/quote.
func (h *PaymentHandler) Quote(c *gin.Context) {
	identityID, _, ok := callerIdentity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	intent, err := h.paymentSvc.Quote(c.Request.Context(), identityID, req.Recipient, req.Amount, req.Asset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromIntent(intent))
}

// Confirm handles POST /api/v1/payments/:id/confirm. Terminal intents come
// back alongside the error so the caller always sees the final state.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	identityID, _, ok := callerIdentity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	intentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	intent, err := h.paymentSvc.Confirm(c.Request.Context(), identityID, intentID)
	if intent != nil && intent.IsTerminal() {
		h.metrics.ObserveOutcome(string(intent.Status))
	}
	if err != nil {
		if intent != nil && intent.IsTerminal() {
			// Failed or timed out on-chain: surface the terminal intent
			// with the error's status code.
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				c.JSON(appErr.HTTPStatus, gin.H{
					"error_code": appErr.Code,
					"message":    appErr.Message,
					"data":       dto.FromIntent(intent),
				})
				return
			}
		}
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromIntent(intent))
}

// Cancel handles POST /api/v1/payments/:id/cancel.
func (h *PaymentHandler) Cancel(c *gin.Context) {
	identityID, _, ok := callerIdentity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	intentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	if err := h.paymentSvc.Cancel(c.Request.Context(), identityID, intentID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"cancelled": true})
}

// Get handles GET /api/v1/payments/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	identityID, _, ok := callerIdentity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	intentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	intent, err := h.paymentSvc.Get(c.Request.Context(), identityID, intentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromIntent(intent))
}
