package handlers

import (
	"errors"
	"io"
	"net/http"

	"callsync/internal/models"
	"callsync/internal/queue"
	"callsync/internal/stats"
	"callsync/internal/webhook"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// WebhookResponse acknowledges a vendor webhook delivery
type WebhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// WebhookHandler receives vendor webhooks, validates them, and enqueues
// single-call sync work. Non-"processing complete" events are acknowledged
// and dropped; malformed payloads are rejected and never enqueued.
// @Summary Receive a platform webhook
// @Tags webhooks
// @Accept json
// @Produce json
// @Param platform path string true "Platform identifier"
// @Success 200 {object} WebhookResponse
// @Success 202 {object} WebhookResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /webhooks/{platform} [post]
func WebhookHandler(q *queue.Queue, svc *stats.Service, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		platformName := c.Param("platform")

		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read body"})
		}

		msg, err := webhook.ParsePayload(platformName, body)
		if err != nil {
			var validationErr *webhook.ValidationError
			if errors.As(err, &validationErr) {
				logger.Warn().Str("platform", platformName).Str("reason", validationErr.Reason).Msg("Webhook rejected")
				return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: validationErr.Error()})
			}
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		}
		if msg == nil {
			// Well-formed but not a processing-complete event
			return c.JSON(http.StatusOK, WebhookResponse{Status: "ignored"})
		}

		enqueued, err := q.Enqueue(c.Request().Context(), msg)
		if err != nil {
			logger.Error().Err(err).Str("platform", platformName).Str("call_id", msg.CallID).Msg("Enqueue failed")
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to enqueue sync"})
		}
		if !enqueued {
			return c.JSON(http.StatusOK, WebhookResponse{Status: "duplicate", Message: "already enqueued"})
		}

		logger.Info().Str("platform", platformName).Str("call_id", msg.CallID).Msg("Webhook enqueued")
		_ = svc.TrackEvent(c.Request().Context(), stats.EventWebhookReceived, 1, map[string]interface{}{"platform": platformName})
		return c.JSON(http.StatusAccepted, WebhookResponse{Status: "enqueued"})
	}
}
