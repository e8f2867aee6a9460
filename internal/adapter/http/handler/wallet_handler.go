package handler

import (
	"custodial-wallet-engine/config"
	"custodial-wallet-engine/internal/adapter/http/dto"
	"custodial-wallet-engine/internal/adapter/http/middleware"
	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/pkg/apperror"
	"custodial-wallet-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet custody endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
	chainCfg  config.ChainConfig
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, chainCfg config.ChainConfig) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, chainCfg: chainCfg}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	identityID, handle, ok := callerIdentity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	mode := domain.WalletModeGenerated
	var privateKey string
	if req.Mode == string(domain.WalletModeImported) {
		if req.PrivateKey == nil || *req.PrivateKey == "" {
			response.Error(c, apperror.Validation("private_key is required for imported wallets"))
			return
		}
		mode = domain.WalletModeImported
		privateKey = *req.PrivateKey
	}

	result, err := h.walletSvc.Create(c.Request.Context(), identityID, handle, ports.CreateWalletRequest{
		Mode:       mode,
		PrivateKey: privateKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.CreateWalletResponse{
		Address: result.Address,
		Created: result.Created,
	}
	if result.PlaintextKey != "" {
		resp.PrivateKey = &result.PlaintextKey
	}

	if result.Created {
		response.Created(c, resp)
		return
	}
	response.OK(c, resp)
}

// Claim handles POST /api/v1/wallets/claim.
func (h *WalletHandler) Claim(c *gin.Context) {
	identityID, handle, ok := callerIdentity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	result, err := h.walletSvc.Claim(c.Request.Context(), identityID, handle)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromClaim(result))
}

// Get handles GET /api/v1/wallets.
func (h *WalletHandler) Get(c *gin.Context) {
	identityID, _, ok := callerIdentity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.walletSvc.Get(c.Request.Context(), identityID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletResponse{
		Address:   wallet.Address,
		Mode:      string(wallet.Mode),
		CreatedAt: wallet.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ExportKey handles GET /api/v1/wallets/export-key. The key is decrypted for
// this response only and never cached.
func (h *WalletHandler) ExportKey(c *gin.Context) {
	identityID, _, ok := callerIdentity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	key, err := h.walletSvc.ExportKey(c.Request.Context(), identityID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ExportKeyResponse{PrivateKey: key})
}

// Balance handles GET /api/v1/wallets/balance?asset=SOL.
func (h *WalletHandler) Balance(c *gin.Context) {
	identityID, _, ok := callerIdentity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	symbol := c.DefaultQuery("asset", "SOL")
	assetCfg, found := h.chainCfg.Asset(symbol)
	if !found {
		response.Error(c, apperror.ErrUnsupportedAsset(symbol))
		return
	}
	asset := domain.Asset{Symbol: assetCfg.Symbol, Mint: assetCfg.Mint, Decimals: assetCfg.Decimals}

	amount, err := h.walletSvc.Balance(c.Request.Context(), identityID, asset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Asset:    asset.Symbol,
		Amount:   amount,
		Decimals: asset.Decimals,
	})
}

// callerIdentity reads the authenticated identity off the request context.
func callerIdentity(c *gin.Context) (int64, string, bool) {
	rawID, ok := c.Get(middleware.CtxIdentityID)
	if !ok {
		return 0, "", false
	}
	id, ok := rawID.(int64)
	if !ok {
		return 0, "", false
	}
	handle, _ := c.Get(middleware.CtxHandle)
	h, _ := handle.(string)
	return id, h, true
}
