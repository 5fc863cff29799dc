package handlers

import (
	"net/http"

	"callsync/internal/models"
	"callsync/internal/stats"

	"github.com/labstack/echo/v4"
)

// StatsHandler reports ingestion activity for a reporting period
// @Summary Get ingestion stats
// @Description Returns sync, webhook, and association activity for the period
// @Tags admin
// @Produce json
// @Param period query string false "Reporting period" Enums(today, yesterday, last_7_days, last_30_days)
// @Success 200 {object} models.UsageSummary
// @Failure 500 {object} models.ErrorResponse
// @Router /api/admin/stats [get]
func StatsHandler(svc *stats.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		summary, err := svc.GetSummary(c.Request().Context(), c.QueryParam("period"))
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusOK, summary)
	}
}
