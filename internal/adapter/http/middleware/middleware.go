package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/pkg/apperror"
	"custodial-wallet-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// Header carrying the session source's shared key
	HeaderGatewayKey = "X-Gateway-Key"

	// Context keys
	CtxIdentityID = "identity_id"
	CtxHandle     = "handle"
)

// GatewayAuth verifies the shared key presented by the session source.
// Only the session bootstrap endpoint uses it; every other route carries a
// JWT minted there.
func GatewayAuth(gatewayKey string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if gatewayKey == "" {
			response.Error(c, apperror.ErrInvalidGatewayKey())
			c.Abort()
			return
		}

		presented := c.GetHeader(HeaderGatewayKey)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(gatewayKey)) != 1 {
			log.Warn().Str("client_ip", c.ClientIP()).Msg("gateway key rejected")
			response.Error(c, apperror.ErrInvalidGatewayKey())
			c.Abort()
			return
		}

		c.Next()
	}
}

// JWTAuth validates the session token and places the identity claims on the
// request context.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		tokenStr := authHeader[7:]
		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxIdentityID, claims.IdentityID)
		c.Set(CtxHandle, claims.Handle)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
