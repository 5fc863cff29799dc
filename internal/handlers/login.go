package handlers

import (
	"fmt"
	"net/http"

	"callsync/internal/auth"
	"callsync/internal/models"

	"github.com/labstack/echo/v4"
)

// AdminLoginHandler handles admin authentication
// @Summary Admin login
// @Description Authenticate admin user and receive auth token
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.AdminAuthRequest true "Login credentials"
// @Success 200 {object} models.AdminAuthResponse
// @Failure 401 {object} models.AdminAuthResponse
// @Router /api/admin/login [post]
func AdminLoginHandler(authManager *auth.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.AdminAuthRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.AdminAuthResponse{
				Success: false,
				Error:   fmt.Sprintf("Invalid request body: %v", err),
			})
		}

		token, err := authManager.Authenticate(req.Username, req.Password)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, models.AdminAuthResponse{
				Success: false,
				Error:   "Invalid username or password",
			})
		}

		return c.JSON(http.StatusOK, models.AdminAuthResponse{
			Success: true,
			Token:   token,
		})
	}
}

// AdminLogoutHandler revokes the session token that authorized the request
// @Summary Admin logout
// @Tags admin
// @Produce json
// @Success 200 {object} models.AdminAuthResponse
// @Router /api/admin/logout [post]
func AdminLogoutHandler(authManager *auth.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, ok := c.Get("auth_token").(string); ok && token != "" {
			authManager.Revoke(token)
		}
		return c.JSON(http.StatusOK, models.AdminAuthResponse{Success: true})
	}
}
