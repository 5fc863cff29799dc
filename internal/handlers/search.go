package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"callsync/internal/cache"
	"callsync/internal/database"
	"callsync/internal/models"

	"github.com/labstack/echo/v4"
)

const (
	searchCacheTTL = 30 * time.Second

	// searchCachePrefix namespaces search responses so association changes
	// can invalidate them without touching other cached values
	searchCachePrefix = "search:"
)

// SearchResponse wraps transcript search results
type SearchResponse struct {
	Results []*models.Transcript `json:"results"`
	Count   int                  `json:"count"`
}

// SearchHandler searches stored transcripts by text, platform and account.
// Results are cached briefly since webhook bursts tend to trigger
// repeated identical queries from the UI.
// @Summary Search transcripts
// @Tags transcripts
// @Produce json
// @Param q query string false "Full-text query"
// @Param platform query string false "Platform filter"
// @Param account_id query string false "Account filter"
// @Param limit query int false "Max results (default 25, cap 100)"
// @Success 200 {object} SearchResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/transcripts/search [get]
func SearchHandler(store *database.Store, searchCache *cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		filters := database.SearchFilters{
			Query:     c.QueryParam("q"),
			Platform:  c.QueryParam("platform"),
			AccountID: c.QueryParam("account_id"),
		}
		if raw := c.QueryParam("limit"); raw != "" {
			if limit, err := strconv.Atoi(raw); err == nil {
				filters.Limit = limit
			}
		}

		cacheKey := fmt.Sprintf("%s%s:%s:%s:%d", searchCachePrefix, filters.Query, filters.Platform, filters.AccountID, filters.Limit)
		if cached, found := searchCache.Get(cacheKey); found {
			if resp, ok := cached.(SearchResponse); ok {
				return c.JSON(http.StatusOK, resp)
			}
		}

		results, err := store.SearchTranscripts(c.Request().Context(), filters)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		}
		if results == nil {
			results = []*models.Transcript{}
		}

		resp := SearchResponse{Results: results, Count: len(results)}
		searchCache.Set(cacheKey, resp, searchCacheTTL)

		return c.JSON(http.StatusOK, resp)
	}
}
