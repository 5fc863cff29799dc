package handlers

import (
	"net/http"

	"callsync/internal/association"
	"callsync/internal/models"

	"github.com/labstack/echo/v4"
)

// AddRuleRequest creates a custom association rule
type AddRuleRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Pattern   string `json:"pattern"`
	AccountID string `json:"account_id"`
	Priority  int    `json:"priority"`
	Active    *bool  `json:"active"`
}

var validRuleTypes = map[string]bool{
	models.RuleTypeDomain:       true,
	models.RuleTypeEmailPattern: true,
	models.RuleTypeTitlePattern: true,
	models.RuleTypeManual:       true,
}

// AddRuleHandler creates a custom association rule
// @Summary Add an association rule
// @Tags admin
// @Accept json
// @Produce json
// @Param request body AddRuleRequest true "Rule definition"
// @Success 201 {object} models.AssociationRule
// @Failure 400 {object} models.ErrorResponse
// @Router /api/admin/rules [post]
func AddRuleHandler(engine *association.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req AddRuleRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		}
		if req.Name == "" {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "name is required"})
		}
		if !validRuleTypes[req.Type] {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "type must be one of domain, email_pattern, title_pattern, manual"})
		}
		if req.Type != models.RuleTypeManual && req.Pattern == "" {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "pattern is required"})
		}

		active := true
		if req.Active != nil {
			active = *req.Active
		}

		rule := engine.AddCustomRule(models.AssociationRule{
			Name:      req.Name,
			Type:      req.Type,
			Pattern:   req.Pattern,
			AccountID: req.AccountID,
			Priority:  req.Priority,
			Active:    active,
		})

		return c.JSON(http.StatusCreated, rule)
	}
}

// RemoveRuleHandler deletes a custom association rule by id
// @Summary Remove an association rule
// @Tags admin
// @Produce json
// @Param id path string true "Rule id"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /api/admin/rules/{id} [delete]
func RemoveRuleHandler(engine *association.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !engine.RemoveCustomRule(c.Param("id")) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "rule not found"})
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// ListRulesHandler returns the current rule set, highest priority first
// @Summary List association rules
// @Tags admin
// @Produce json
// @Success 200 {array} models.AssociationRule
// @Router /api/admin/rules [get]
func ListRulesHandler(engine *association.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		rules := engine.CustomRules()
		if rules == nil {
			rules = []models.AssociationRule{}
		}
		return c.JSON(http.StatusOK, rules)
	}
}
