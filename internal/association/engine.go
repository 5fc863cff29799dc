// Package association assigns each ingested call to a customer account using
// prioritized custom rules, attendee-domain heuristics, and a placeholder
// fallback, each with a confidence score.
package association

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"callsync/internal/database"
	"callsync/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// personalDomains are webmail providers that never identify a customer
// organization. Matched case-insensitively.
var personalDomains = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"icloud.com":     true,
	"me.com":         true,
	"aol.com":        true,
	"protonmail.com": true,
	"tutanota.com":   true,
}

// Store is the persistence surface the engine needs
type Store interface {
	GetAccountByDomain(ctx context.Context, domain string) (*models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)
	GetTranscriptByID(ctx context.Context, id int64) (*models.Transcript, error)
	UpdateTranscriptAccount(ctx context.Context, transcriptID int64, accountID string, confidence float64, ruleName string) error
	InsertReassociationAudit(ctx context.Context, audit *models.ReassociationAudit) error
}

// Engine determines account association for normalized calls
type Engine struct {
	store  Store
	logger zerolog.Logger

	// internalDomains are the seller's own domains, excluded from the
	// heuristic alongside the personal webmail list
	internalDomains map[string]bool

	mu    sync.RWMutex
	rules []models.AssociationRule
}

// NewEngine creates an association engine. internalDomains lists the
// seller's own email domains.
func NewEngine(store Store, internalDomains []string, logger zerolog.Logger) *Engine {
	internal := make(map[string]bool, len(internalDomains))
	for _, d := range internalDomains {
		internal[strings.ToLower(d)] = true
	}
	return &Engine{
		store:           store,
		logger:          logger,
		internalDomains: internal,
	}
}

// AddCustomRule adds a rule, keeping the rule set sorted by descending
// priority (ties by rule ID for determinism). A missing ID is filled in.
func (e *Engine) AddCustomRule(rule models.AssociationRule) models.AssociationRule {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
	sortRules(e.rules)
	return rule
}

// RemoveCustomRule deletes a rule by id, reporting whether it existed
func (e *Engine) RemoveCustomRule(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, rule := range e.rules {
		if rule.ID == id {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return true
		}
	}
	return false
}

// CustomRules returns a copy of the current rule set, highest priority first
func (e *Engine) CustomRules() []models.AssociationRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rules := make([]models.AssociationRule, len(e.rules))
	copy(rules, e.rules)
	return rules
}

func sortRules(rules []models.AssociationRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}

// DetermineAccountAssociation assigns the call to an account. Custom rules
// win first (in priority order), then the attendee-domain heuristic, then a
// placeholder fallback keyed by the call id.
func (e *Engine) DetermineAccountAssociation(ctx context.Context, call *models.Call) (*models.AssociationResult, error) {
	if result := e.evaluateRules(call); result != nil {
		return result, nil
	}

	if result, err := e.domainHeuristic(ctx, call); err != nil {
		return nil, err
	} else if result != nil {
		return result, nil
	}

	return e.fallback(ctx, call)
}

// evaluateRules returns the result of the first matching active rule, or nil
func (e *Engine) evaluateRules(call *models.Call) *models.AssociationResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, rule := range e.rules {
		if !rule.Active {
			continue
		}
		matched, confidence := matchRule(rule, call)
		if !matched {
			continue
		}
		return &models.AssociationResult{
			AccountID:  rule.AccountID,
			Confidence: confidence,
			RuleName:   rule.Name,
		}
	}
	return nil
}

// matchRule evaluates one rule against a call. Pattern interpretation
// depends on the rule type. A pattern that fails to compile never matches.
func matchRule(rule models.AssociationRule, call *models.Call) (bool, float64) {
	switch rule.Type {
	case models.RuleTypeDomain:
		pattern := strings.ToLower(rule.Pattern)
		for _, att := range call.Attendees {
			if att.EmailDomain() == pattern {
				return true, models.ConfidenceDomainRule
			}
		}
	case models.RuleTypeEmailPattern:
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return false, 0
		}
		for _, att := range call.Attendees {
			if re.MatchString(att.Email) {
				return true, models.ConfidenceEmailPattern
			}
		}
	case models.RuleTypeTitlePattern:
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return false, 0
		}
		if re.MatchString(call.Title) {
			return true, models.ConfidenceTitlePattern
		}
	case models.RuleTypeManual:
		// Pins a call to an account out-of-band; inert without a target
		if rule.AccountID != "" {
			return true, models.ConfidenceManualRule
		}
	}
	return false, 0
}

// domainHeuristic picks the most frequent external attendee domain and
// resolves or creates the account keyed by it. Returns nil when no usable
// external domain exists.
func (e *Engine) domainHeuristic(ctx context.Context, call *models.Call) (*models.AssociationResult, error) {
	var order []string
	counts := make(map[string]int)
	companies := make(map[string]string)
	totalExternal := 0

	for _, att := range call.Attendees {
		domain := att.EmailDomain()
		if domain == "" || personalDomains[domain] || e.internalDomains[domain] {
			continue
		}
		totalExternal++
		if counts[domain] == 0 {
			order = append(order, domain)
		}
		counts[domain]++
		if att.Company != "" && companies[domain] == "" {
			companies[domain] = att.Company
		}
	}

	if len(order) == 0 {
		return nil, nil
	}

	// Most frequent domain wins; ties break by first-seen order
	primary := order[0]
	for _, domain := range order[1:] {
		if counts[domain] > counts[primary] {
			primary = domain
		}
	}

	confidence := float64(counts[primary])/float64(totalExternal) + 0.3
	if confidence > 0.9 {
		confidence = 0.9
	}

	name := companies[primary]
	if name == "" {
		name = domainDisplayName(primary)
	}

	account, err := e.resolveAccount(ctx, primary, name, models.ProvenanceAutoCreated, call)
	if err != nil {
		return nil, err
	}

	var suggestions []string
	for _, domain := range order {
		if domain != primary {
			suggestions = append(suggestions, domain)
		}
	}

	return &models.AssociationResult{
		AccountID:   account.ID,
		Confidence:  confidence,
		RuleName:    "domain_heuristic",
		Suggestions: suggestions,
	}, nil
}

// fallback creates (or reuses) a placeholder account keyed by the call id
// and suggests candidates from company names and title words for later
// human review
func (e *Engine) fallback(ctx context.Context, call *models.Call) (*models.AssociationResult, error) {
	key := fmt.Sprintf("unassigned-%s-%s", call.Platform, call.VendorID)
	name := fmt.Sprintf("Unassigned (%s)", call.VendorID)

	account, err := e.resolveAccount(ctx, key, name, models.ProvenanceFallback, call)
	if err != nil {
		return nil, err
	}

	var suggestions []string
	seen := make(map[string]bool)
	for _, att := range call.Attendees {
		if att.Company != "" && !seen[att.Company] {
			seen[att.Company] = true
			suggestions = append(suggestions, att.Company)
		}
	}
	for _, word := range capitalizedWords(call.Title) {
		if !seen[word] {
			seen[word] = true
			suggestions = append(suggestions, word)
		}
	}

	return &models.AssociationResult{
		AccountID:   account.ID,
		Confidence:  models.ConfidenceFallback,
		RuleName:    "fallback",
		Suggestions: suggestions,
	}, nil
}

// resolveAccount reuses the account keyed by domain or creates it. Creation
// never duplicates: the store resolves concurrent inserts of the same
// domain to the existing row.
func (e *Engine) resolveAccount(ctx context.Context, domain, name, provenance string, call *models.Call) (*models.Account, error) {
	account, err := e.store.GetAccountByDomain(ctx, domain)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up account for %s: %w", domain, err)
	}

	account, err = e.store.CreateAccount(ctx, &models.Account{
		ID:                uuid.NewString(),
		Name:              name,
		Domain:            domain,
		Provenance:        provenance,
		CreatedFromCallID: call.VendorID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account for %s: %w", domain, err)
	}

	e.logger.Info().
		Str("account_id", account.ID).
		Str("domain", domain).
		Str("provenance", provenance).
		Msg("Account created")

	return account, nil
}

// ReassociateTranscript repoints a transcript at a new account and appends
// an audit record. The audit row is written first so the old account
// reference is never lost.
func (e *Engine) ReassociateTranscript(ctx context.Context, transcriptID int64, newAccountID, reason, actor string) error {
	transcript, err := e.store.GetTranscriptByID(ctx, transcriptID)
	if err != nil {
		return fmt.Errorf("failed to load transcript %d: %w", transcriptID, err)
	}

	audit := &models.ReassociationAudit{
		ID:           uuid.NewString(),
		TranscriptID: transcriptID,
		OldAccountID: transcript.AccountID,
		NewAccountID: newAccountID,
		Reason:       reason,
		Actor:        actor,
		Timestamp:    time.Now().UTC(),
	}
	if err := e.store.InsertReassociationAudit(ctx, audit); err != nil {
		return err
	}

	if err := e.store.UpdateTranscriptAccount(ctx, transcriptID, newAccountID, models.ConfidenceManualRule, "manual_reassignment"); err != nil {
		return err
	}

	e.logger.Info().
		Int64("transcript_id", transcriptID).
		Str("old_account_id", transcript.AccountID).
		Str("new_account_id", newAccountID).
		Str("actor", actor).
		Msg("Transcript reassociated")

	return nil
}

// domainDisplayName capitalizes the first label of a domain for use as an
// auto-created account name ("roundtrip.io" -> "Roundtrip")
func domainDisplayName(domain string) string {
	label := domain
	if dot := strings.Index(domain, "."); dot > 0 {
		label = domain[:dot]
	}
	return cases.Title(language.English).String(label)
}

// capitalizedWords pulls capitalized words of three or more letters out of a
// call title as weak account-name candidates
func capitalizedWords(title string) []string {
	var words []string
	for _, word := range strings.FieldsFunc(title, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) {
		if len(word) >= 3 && word[0] >= 'A' && word[0] <= 'Z' {
			words = append(words, word)
		}
	}
	return words
}
