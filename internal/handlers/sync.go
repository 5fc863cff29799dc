package handlers

import (
	"net/http"
	"time"

	"callsync/internal/models"
	"callsync/internal/platform"
	"callsync/internal/stats"
	"callsync/internal/syncer"

	"github.com/labstack/echo/v4"
)

// SyncRequest represents an administrative sync trigger
type SyncRequest struct {
	Platform string `json:"platform"`
	DaysBack int    `json:"days_back"`
	Limit    int    `json:"limit"`
}

// SyncTriggerHandler runs a bulk sync inline and returns its summary
// @Summary Trigger a bulk sync
// @Description Lists calls on the platform for the past days_back days and ingests them
// @Tags admin
// @Accept json
// @Produce json
// @Param request body SyncRequest true "Sync parameters"
// @Success 200 {object} models.SyncSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/admin/sync [post]
func SyncTriggerHandler(engine *syncer.Engine, svc *stats.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req SyncRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		}
		if req.Platform == "" {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "platform is required"})
		}
		if req.DaysBack <= 0 {
			req.DaysBack = 7
		}
		if req.Limit <= 0 {
			req.Limit = 100
		}

		now := time.Now().UTC()
		window := platform.Window{
			Start: now.AddDate(0, 0, -req.DaysBack),
			End:   now,
		}

		summary, err := engine.SyncPlatform(c.Request().Context(), req.Platform, window, req.Limit)
		if err != nil {
			status := http.StatusBadGateway
			if platform.IsAuthConfig(err) {
				status = http.StatusUnprocessableEntity
			}
			return c.JSON(status, models.ErrorResponse{Error: err.Error()})
		}

		_ = svc.TrackEvent(c.Request().Context(), stats.EventSyncRun, 1, map[string]interface{}{"platform": req.Platform})
		_ = svc.TrackEvent(c.Request().Context(), stats.EventTranscriptIngested, summary.Processed, nil)

		return c.JSON(http.StatusOK, summary)
	}
}

// SingleCallSyncRequest represents a manual single-call sync trigger
type SingleCallSyncRequest struct {
	Platform string `json:"platform"`
	CallID   string `json:"call_id"`
}

// SingleCallSyncHandler runs the per-call pipeline for one call
// @Summary Sync one call
// @Tags admin
// @Accept json
// @Produce json
// @Param request body SingleCallSyncRequest true "Call reference"
// @Success 200 {object} models.SyncDetail
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/admin/sync/call [post]
func SingleCallSyncHandler(engine *syncer.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req SingleCallSyncRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		}
		if req.Platform == "" || req.CallID == "" {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "platform and call_id are required"})
		}

		detail, err := engine.SyncCall(c.Request().Context(), req.Platform, req.CallID)
		if err != nil {
			return c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: err.Error()})
		}

		return c.JSON(http.StatusOK, detail)
	}
}
