package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"custodial-wallet-engine/internal/core/domain"
	"custodial-wallet-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"context"
)

// capturingAuditService records entries synchronously so tests can assert on
// them without racing the fire-and-forget goroutine in the real service.
type capturingAuditService struct {
	mu      sync.Mutex
	records []*domain.AuditRecord
}

func (s *capturingAuditService) Log(_ context.Context, record *domain.AuditRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *capturingAuditService) all() []*domain.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.AuditRecord(nil), s.records...)
}

var _ ports.AuditService = (*capturingAuditService)(nil)

func auditedRouter(svc ports.AuditService, status int) *gin.Engine {
	router := gin.New()
	router.Use(AuditTrail(svc))
	handler := func(c *gin.Context) {
		c.Set(CtxIdentityID, int64(7))
		c.JSON(status, gin.H{})
	}
	router.POST("/api/v1/wallets", handler)
	router.GET("/api/v1/wallets/export-key", handler)
	router.POST("/api/v1/payments/:id/confirm", handler)
	router.GET("/api/v1/wallets/balance", handler)
	return router
}

func TestAuditTrail_WalletCreate(t *testing.T) {
	svc := &capturingAuditService{}
	router := auditedRouter(svc, http.StatusCreated)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/wallets", nil))

	records := svc.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.AuditActionWalletCreate, records[0].Action)
	assert.Equal(t, "wallet", records[0].ResourceType)
	require.NotNil(t, records[0].IdentityID)
	assert.Equal(t, int64(7), *records[0].IdentityID)
}

func TestAuditTrail_KeyExport(t *testing.T) {
	svc := &capturingAuditService{}
	router := auditedRouter(svc, http.StatusOK)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/wallets/export-key", nil))

	records := svc.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.AuditActionKeyExport, records[0].Action)
}

func TestAuditTrail_PaymentConfirmCarriesResourceID(t *testing.T) {
	svc := &capturingAuditService{}
	router := auditedRouter(svc, http.StatusOK)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/payments/abc-123/confirm", nil))

	records := svc.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.AuditActionPaymentCommit, records[0].Action)
	assert.Equal(t, "abc-123", records[0].ResourceID)
}

func TestAuditTrail_SkipsFailures(t *testing.T) {
	svc := &capturingAuditService{}
	router := auditedRouter(svc, http.StatusConflict)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/wallets", nil))

	assert.Empty(t, svc.all())
}

func TestAuditTrail_SkipsUnmappedPaths(t *testing.T) {
	svc := &capturingAuditService{}
	router := auditedRouter(svc, http.StatusOK)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/wallets/balance", nil))

	assert.Empty(t, svc.all())
}
