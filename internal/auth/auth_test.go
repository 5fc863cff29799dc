package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"callsync/internal/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(&config.Config{
		AdminUsername: "admin",
		AdminPassword: "secret",
	})
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{name: "valid credentials", username: "admin", password: "secret"},
		{name: "wrong password", username: "admin", password: "nope", wantErr: true},
		{name: "wrong username", username: "root", password: "secret", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := newTestManager()
			token, err := manager.Authenticate(tt.username, tt.password)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.True(t, manager.ValidateToken(token))
		})
	}
}

func TestAuthenticateUnconfigured(t *testing.T) {
	manager := NewManager(&config.Config{})
	_, err := manager.Authenticate("admin", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestValidateTokenExpiry(t *testing.T) {
	manager := newTestManager()
	manager.tokenExpiry = -time.Second

	token, err := manager.Authenticate("admin", "secret")
	require.NoError(t, err)
	assert.False(t, manager.ValidateToken(token))
}

func TestRevoke(t *testing.T) {
	manager := newTestManager()

	token, err := manager.Authenticate("admin", "secret")
	require.NoError(t, err)
	require.True(t, manager.ValidateToken(token))

	manager.Revoke(token)
	assert.False(t, manager.ValidateToken(token))

	// Revoking an unknown token must not panic
	manager.Revoke("bogus")
}

func TestMiddleware(t *testing.T) {
	manager := newTestManager()
	token, err := manager.Authenticate("admin", "secret")
	require.NoError(t, err)

	handler := Middleware(manager)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{name: "bearer token", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "query token", query: token, wantStatus: http.StatusOK},
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer garbage", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			target := "/api/admin/rules"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler(c)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, token, c.Get("auth_token"))
			}
		})
	}
}
