package handler

import (
	"errors"
	"net/http"

	"custodial-wallet-engine/internal/adapter/http/dto"
	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/pkg/apperror"
	"custodial-wallet-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SessionHandler mints session tokens for the upstream session source.
type SessionHandler struct {
	identityRepo ports.IdentityRepository
	walletSvc    ports.WalletService
	tokenSvc     ports.TokenService
	log          zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(identityRepo ports.IdentityRepository, walletSvc ports.WalletService, tokenSvc ports.TokenService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		identityRepo: identityRepo,
		walletSvc:    walletSvc,
		tokenSvc:     tokenSvc,
		log:          log,
	}
}

// Create handles POST /api/v1/session. The session source exchanges an
// (identity id, handle) pair for a bearer token. First interaction also
// claims any pending wallet parked under the handle.
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	identity, err := h.identityRepo.Ensure(c.Request.Context(), req.IdentityID, req.Handle)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.SessionResponse{}

	// Claim-on-first-interaction: funds may have been parked under this
	// handle before the owner ever showed up.
	claim, err := h.walletSvc.Claim(c.Request.Context(), identity.ID, identity.Handle)
	switch {
	case err == nil:
		claimed := dto.FromClaim(claim)
		resp.ClaimedWallet = &claimed
	case isClaimSkippable(err):
		// Nothing pending, or the identity already holds a wallet.
	default:
		response.Error(c, err)
		return
	}

	token, expiry, err := h.tokenSvc.Generate(identity.ID, identity.Handle)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp.Token = token
	resp.Expiry = expiry.Unix()
	response.OK(c, resp)
}

// isClaimSkippable reports whether a claim failure just means there was
// nothing to migrate.
func isClaimSkippable(err error) bool {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == "VAL_006" || appErr.Code == "CNF_001" || appErr.Code == "CNF_002"
}

// HealthCheck handles GET /health — deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
