package handler

import (
	"strconv"

	"custodial-wallet-engine/internal/adapter/http/dto"
	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/pkg/apperror"
	"custodial-wallet-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler serves payment history and aggregate stats.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// History handles GET /api/v1/ledger.
func (h *LedgerHandler) History(c *gin.Context) {
	identityID, _, ok := callerIdentity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := domain.HistoryFilter{Limit: limit}
	if a := c.Query("asset"); a != "" {
		filter.Asset = a
	}
	if d := c.Query("direction"); d != "" {
		dir := domain.EntryDirection(d)
		if dir != domain.EntryDirectionSent && dir != domain.EntryDirectionReceived {
			response.Error(c, apperror.Validation("direction must be SENT or RECEIVED"))
			return
		}
		filter.Direction = dir
	}

	entries, err := h.ledgerSvc.History(c.Request.Context(), identityID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toLedgerEntryResponse(&entries[i]))
	}

	response.OK(c, dto.LedgerListResponse{Items: items, Count: len(items)})
}

// Stats handles GET /api/v1/ledger/stats.
func (h *LedgerHandler) Stats(c *gin.Context) {
	identityID, _, ok := callerIdentity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	stats, err := h.ledgerSvc.Stats(c.Request.Context(), identityID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LedgerStatsResponse{
		PaymentsSent:     stats.PaymentsSent,
		PaymentsReceived: stats.PaymentsReceived,
		VolumeLamports:   stats.VolumeLamports,
	})
}

// toLedgerEntryResponse converts a ledger row to its wire form.
func toLedgerEntryResponse(e *domain.LedgerEntry) dto.LedgerEntryResponse {
	return dto.LedgerEntryResponse{
		ID:           e.ID.String(),
		Direction:    string(e.Direction),
		Counterparty: e.CounterpartyHandle,
		Asset:        e.Asset,
		Amount:       e.Amount,
		Fee:          e.Fee,
		Status:       string(e.Status),
		TxSignature:  e.TxSignature,
		CreatedAt:    e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
