package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"callsync/internal/association"
	"callsync/internal/cache"
	"callsync/internal/database"
	"callsync/internal/models"
	"callsync/internal/stats"

	"github.com/labstack/echo/v4"
)

// ReassociateRequest repoints a transcript at a different account
type ReassociateRequest struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason"`
	Actor     string `json:"actor"`
}

// ReassociateHandler manually reassigns a transcript to an account,
// recording an audit trail entry
// @Summary Reassign a transcript to an account
// @Tags transcripts
// @Accept json
// @Produce json
// @Param id path int true "Transcript id"
// @Param request body ReassociateRequest true "New account and audit info"
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/transcripts/{id}/reassociate [post]
func ReassociateHandler(engine *association.Engine, svc *stats.Service, searchCache *cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		transcriptID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid transcript id"})
		}

		var req ReassociateRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		}
		if req.AccountID == "" || req.Actor == "" {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "account_id and actor are required"})
		}

		err = engine.ReassociateTranscript(c.Request().Context(), transcriptID, req.AccountID, req.Reason, req.Actor)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "transcript not found"})
			}
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		}

		_ = svc.TrackEvent(c.Request().Context(), stats.EventReassociation, 1, map[string]interface{}{"actor": req.Actor})

		// Cached search responses now carry a stale account assignment
		if searchCache != nil {
			searchCache.DeletePrefix(searchCachePrefix)
		}

		return c.JSON(http.StatusOK, WebhookResponse{Status: "reassociated"})
	}
}

// GetTranscriptHandler returns one transcript by id
// @Summary Get a transcript
// @Tags transcripts
// @Produce json
// @Param id path int true "Transcript id"
// @Success 200 {object} models.Transcript
// @Failure 404 {object} models.ErrorResponse
// @Router /api/transcripts/{id} [get]
func GetTranscriptHandler(store *database.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		transcriptID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid transcript id"})
		}

		transcript, err := store.GetTranscriptByID(c.Request().Context(), transcriptID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "transcript not found"})
			}
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		}

		return c.JSON(http.StatusOK, transcript)
	}
}
