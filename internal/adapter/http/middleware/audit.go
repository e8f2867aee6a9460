package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditTrail creates a middleware that records successful custody operations.
// It maps HTTP methods and paths to audit actions.
func AuditTrail(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}

		action, resourceType := mapPathToAction(c.Request.URL.Path, c.Request.Method)
		if action == "" {
			return
		}

		var identityID *int64
		if raw, exists := c.Get(CtxIdentityID); exists {
			if id, ok := raw.(int64); ok {
				identityID = &id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditRecord{
			ID:           uuid.New(),
			IdentityID:   identityID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/session" && method == "POST":
		return domain.AuditActionSessionIssue, "session"
	case path == "/api/v1/wallets" && method == "POST":
		return domain.AuditActionWalletCreate, "wallet"
	case path == "/api/v1/wallets/claim" && method == "POST":
		return domain.AuditActionWalletClaim, "wallet"
	case path == "/api/v1/wallets/export-key" && method == "GET":
		return domain.AuditActionKeyExport, "wallet"
	case path == "/api/v1/payments/quote" && method == "POST":
		return domain.AuditActionPaymentQuote, "payment"
	case strings.HasPrefix(path, "/api/v1/payments/") && strings.HasSuffix(path, "/confirm") && method == "POST":
		return domain.AuditActionPaymentCommit, "payment"
	}
	return "", ""
}
