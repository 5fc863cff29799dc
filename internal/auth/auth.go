// Package auth guards the admin API with short-lived opaque session tokens.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"callsync/internal/config"

	"github.com/labstack/echo/v4"
)

const defaultSessionTTL = 24 * time.Hour

// Manager issues and validates admin session tokens. Tokens live in memory;
// a restart logs every admin out, which is acceptable for an internal tool.
type Manager struct {
	config      *config.Config
	mu          sync.RWMutex
	tokens      map[string]time.Time
	tokenExpiry time.Duration
}

// NewManager creates an authentication manager. Session lifetime comes from
// ADMIN_SESSION_TTL_HOURS when set.
func NewManager(cfg *config.Config) *Manager {
	expiry := defaultSessionTTL
	if cfg.AdminSessionTTLHours > 0 {
		expiry = time.Duration(cfg.AdminSessionTTLHours) * time.Hour
	}
	return &Manager{
		config:      cfg,
		tokens:      make(map[string]time.Time),
		tokenExpiry: expiry,
	}
}

// Authenticate checks admin credentials and mints a session token
func (am *Manager) Authenticate(username, password string) (string, error) {
	if am.config.AdminPassword == "" {
		return "", fmt.Errorf("admin authentication not configured")
	}
	if username != am.config.AdminUsername || password != am.config.AdminPassword {
		return "", fmt.Errorf("invalid credentials")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(raw)

	am.mu.Lock()
	am.pruneExpiredLocked()
	am.tokens[token] = time.Now().Add(am.tokenExpiry)
	am.mu.Unlock()

	return token, nil
}

// ValidateToken reports whether a token is known and unexpired
func (am *Manager) ValidateToken(token string) bool {
	am.mu.RLock()
	expiry, exists := am.tokens[token]
	am.mu.RUnlock()

	if !exists {
		return false
	}
	if time.Now().After(expiry) {
		am.Revoke(token)
		return false
	}
	return true
}

// Revoke invalidates a token immediately
func (am *Manager) Revoke(token string) {
	am.mu.Lock()
	delete(am.tokens, token)
	am.mu.Unlock()
}

// pruneExpiredLocked drops expired sessions. Callers hold the write lock.
func (am *Manager) pruneExpiredLocked() {
	now := time.Now()
	for token, expiry := range am.tokens {
		if now.After(expiry) {
			delete(am.tokens, token)
		}
	}
}

// Middleware rejects requests to admin routes that don't carry a valid
// session token as a Bearer header or a token query parameter
func Middleware(authManager *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if token == "" {
				token = c.QueryParam("token")
			}

			if token == "" || !authManager.ValidateToken(token) {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Unauthorized. Please login first.",
				})
			}

			c.Set("auth_token", token)
			return next(c)
		}
	}
}
