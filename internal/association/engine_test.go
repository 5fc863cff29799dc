package association

import (
	"context"
	"testing"

	"callsync/internal/database"
	"callsync/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store for engine tests
type fakeStore struct {
	accountsByDomain map[string]*models.Account
	transcripts      map[int64]*models.Transcript
	audits           []*models.ReassociationAudit
	updates          []string
	createCalls      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accountsByDomain: make(map[string]*models.Account),
		transcripts:      make(map[int64]*models.Transcript),
	}
}

func (f *fakeStore) GetAccountByDomain(_ context.Context, domain string) (*models.Account, error) {
	if account, ok := f.accountsByDomain[domain]; ok {
		return account, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) CreateAccount(_ context.Context, account *models.Account) (*models.Account, error) {
	f.createCalls++
	if existing, ok := f.accountsByDomain[account.Domain]; ok {
		return existing, nil
	}
	f.accountsByDomain[account.Domain] = account
	return account, nil
}

func (f *fakeStore) GetTranscriptByID(_ context.Context, id int64) (*models.Transcript, error) {
	if t, ok := f.transcripts[id]; ok {
		return t, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) UpdateTranscriptAccount(_ context.Context, transcriptID int64, accountID string, confidence float64, ruleName string) error {
	f.updates = append(f.updates, accountID)
	if t, ok := f.transcripts[transcriptID]; ok {
		t.AccountID = accountID
		t.Confidence = confidence
		t.RuleName = ruleName
	}
	return nil
}

func (f *fakeStore) InsertReassociationAudit(_ context.Context, audit *models.ReassociationAudit) error {
	f.audits = append(f.audits, audit)
	return nil
}

func testCall(attendeeEmails ...string) *models.Call {
	call := &models.Call{
		VendorID: "call-1",
		Platform: "gong",
		Title:    "Q3 review",
	}
	for _, email := range attendeeEmails {
		call.Attendees = append(call.Attendees, models.Attendee{Email: email})
	}
	return call
}

func TestDomainHeuristicPicksDominantExternalDomain(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, []string{"seller.com"}, zerolog.Nop())

	call := testCall(
		"host@seller.com",
		"alice@roundtrip.io",
		"bob@roundtrip.io",
		"carol@roundtrip.io",
		"dave@gmail.com",
	)

	result, err := engine.DetermineAccountAssociation(context.Background(), call)
	require.NoError(t, err)

	account := store.accountsByDomain["roundtrip.io"]
	require.NotNil(t, account)
	assert.Equal(t, "Roundtrip", account.Name)
	assert.Equal(t, models.ProvenanceAutoCreated, account.Provenance)

	assert.Equal(t, account.ID, result.AccountID)
	assert.Equal(t, "domain_heuristic", result.RuleName)
	// 3 of 3 external attendees share the domain, capped at 0.9
	assert.InDelta(t, 0.9, result.Confidence, 0.0001)
}

func TestDomainHeuristicExcludesPersonalAndInternalDomains(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, []string{"seller.com"}, zerolog.Nop())

	call := testCall("host@seller.com", "buyer@gmail.com", "other@yahoo.com")

	result, err := engine.DetermineAccountAssociation(context.Background(), call)
	require.NoError(t, err)

	// No usable external domain, so the fallback placeholder kicks in
	assert.Equal(t, "fallback", result.RuleName)
	assert.InDelta(t, models.ConfidenceFallback, result.Confidence, 0.0001)
	assert.NotNil(t, store.accountsByDomain["unassigned-gong-call-1"])
}

func TestDomainHeuristicConfidenceReflectsMixedDomains(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, nil, zerolog.Nop())

	call := testCall("a@acme.com", "b@acme.com", "c@globex.com", "d@initech.com")

	result, err := engine.DetermineAccountAssociation(context.Background(), call)
	require.NoError(t, err)

	// 2 of 4 external attendees on the dominant domain: 0.5 + 0.3
	assert.InDelta(t, 0.8, result.Confidence, 0.0001)
	assert.ElementsMatch(t, []string{"globex.com", "initech.com"}, result.Suggestions)
}

func TestDomainHeuristicReusesExistingAccount(t *testing.T) {
	store := newFakeStore()
	store.accountsByDomain["acme.com"] = &models.Account{ID: "acct-1", Domain: "acme.com", Name: "Acme"}
	engine := NewEngine(store, nil, zerolog.Nop())

	call := testCall("a@acme.com")
	result, err := engine.DetermineAccountAssociation(context.Background(), call)
	require.NoError(t, err)

	assert.Equal(t, "acct-1", result.AccountID)
	assert.Equal(t, 0, store.createCalls)
}

func TestRepeatedAssociationCreatesNoDuplicateAccounts(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, nil, zerolog.Nop())

	call := testCall("a@acme.com")
	first, err := engine.DetermineAccountAssociation(context.Background(), call)
	require.NoError(t, err)
	second, err := engine.DetermineAccountAssociation(context.Background(), call)
	require.NoError(t, err)

	assert.Equal(t, first.AccountID, second.AccountID)
	assert.Len(t, store.accountsByDomain, 1)
}

func TestCustomRulesWinOverHeuristic(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, nil, zerolog.Nop())

	engine.AddCustomRule(models.AssociationRule{
		Name:      "acme pin",
		Type:      models.RuleTypeDomain,
		Pattern:   "acme.com",
		AccountID: "acct-pinned",
		Priority:  10,
		Active:    true,
	})

	call := testCall("a@acme.com", "b@acme.com")
	result, err := engine.DetermineAccountAssociation(context.Background(), call)
	require.NoError(t, err)

	assert.Equal(t, "acct-pinned", result.AccountID)
	assert.Equal(t, "acme pin", result.RuleName)
	assert.InDelta(t, models.ConfidenceDomainRule, result.Confidence, 0.0001)
	// The rule short-circuits before any account lookup
	assert.Equal(t, 0, store.createCalls)
}

func TestRulePriorityOrdering(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, nil, zerolog.Nop())

	engine.AddCustomRule(models.AssociationRule{
		ID:        "b-rule",
		Name:      "low priority",
		Type:      models.RuleTypeDomain,
		Pattern:   "acme.com",
		AccountID: "acct-low",
		Priority:  1,
		Active:    true,
	})
	engine.AddCustomRule(models.AssociationRule{
		ID:        "a-rule",
		Name:      "high priority",
		Type:      models.RuleTypeDomain,
		Pattern:   "acme.com",
		AccountID: "acct-high",
		Priority:  5,
		Active:    true,
	})

	result, err := engine.DetermineAccountAssociation(context.Background(), testCall("x@acme.com"))
	require.NoError(t, err)
	assert.Equal(t, "acct-high", result.AccountID)

	rules := engine.CustomRules()
	require.Len(t, rules, 2)
	assert.Equal(t, "a-rule", rules[0].ID)
}

func TestRulePriorityTieBreaksByID(t *testing.T) {
	engine := NewEngine(newFakeStore(), nil, zerolog.Nop())

	engine.AddCustomRule(models.AssociationRule{
		ID: "zz", Name: "second", Type: models.RuleTypeDomain, Pattern: "acme.com",
		AccountID: "acct-z", Priority: 3, Active: true,
	})
	engine.AddCustomRule(models.AssociationRule{
		ID: "aa", Name: "first", Type: models.RuleTypeDomain, Pattern: "acme.com",
		AccountID: "acct-a", Priority: 3, Active: true,
	})

	result, err := engine.DetermineAccountAssociation(context.Background(), testCall("x@acme.com"))
	require.NoError(t, err)
	assert.Equal(t, "acct-a", result.AccountID)
}

func TestInactiveRulesAreSkipped(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, nil, zerolog.Nop())

	engine.AddCustomRule(models.AssociationRule{
		Name:      "disabled",
		Type:      models.RuleTypeDomain,
		Pattern:   "acme.com",
		AccountID: "acct-disabled",
		Priority:  99,
		Active:    false,
	})

	result, err := engine.DetermineAccountAssociation(context.Background(), testCall("x@acme.com"))
	require.NoError(t, err)
	assert.NotEqual(t, "acct-disabled", result.AccountID)
	assert.Equal(t, "domain_heuristic", result.RuleName)
}

func TestRuleTypeMatching(t *testing.T) {
	tests := []struct {
		name       string
		rule       models.AssociationRule
		call       *models.Call
		matched    bool
		confidence float64
	}{
		{
			name: "email pattern match",
			rule: models.AssociationRule{Type: models.RuleTypeEmailPattern, Pattern: `@acme\.(com|io)$`, AccountID: "a"},
			call: testCall("buyer@acme.io"),

			matched:    true,
			confidence: models.ConfidenceEmailPattern,
		},
		{
			name:    "email pattern no match",
			rule:    models.AssociationRule{Type: models.RuleTypeEmailPattern, Pattern: `@acme\.com$`, AccountID: "a"},
			call:    testCall("buyer@globex.com"),
			matched: false,
		},
		{
			name: "title pattern match",
			rule: models.AssociationRule{Type: models.RuleTypeTitlePattern, Pattern: `(?i)q3 review`, AccountID: "a"},
			call: testCall("x@acme.com"),

			matched:    true,
			confidence: models.ConfidenceTitlePattern,
		},
		{
			name:    "invalid regexp never matches",
			rule:    models.AssociationRule{Type: models.RuleTypeEmailPattern, Pattern: `[unclosed`, AccountID: "a"},
			call:    testCall("x@acme.com"),
			matched: false,
		},
		{
			name: "manual rule with target",
			rule: models.AssociationRule{Type: models.RuleTypeManual, AccountID: "a"},
			call: testCall(),

			matched:    true,
			confidence: models.ConfidenceManualRule,
		},
		{
			name:    "manual rule without target is inert",
			rule:    models.AssociationRule{Type: models.RuleTypeManual},
			call:    testCall(),
			matched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, confidence := matchRule(tt.rule, tt.call)
			assert.Equal(t, tt.matched, matched)
			if tt.matched {
				assert.InDelta(t, tt.confidence, confidence, 0.0001)
			}
		})
	}
}

func TestRemoveCustomRule(t *testing.T) {
	engine := NewEngine(newFakeStore(), nil, zerolog.Nop())
	rule := engine.AddCustomRule(models.AssociationRule{
		Name: "temp", Type: models.RuleTypeDomain, Pattern: "acme.com", AccountID: "a", Active: true,
	})
	assert.NotEmpty(t, rule.ID)

	assert.True(t, engine.RemoveCustomRule(rule.ID))
	assert.False(t, engine.RemoveCustomRule(rule.ID))
	assert.Empty(t, engine.CustomRules())
}

func TestFallbackSuggestionsFromCompaniesAndTitle(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, nil, zerolog.Nop())

	call := &models.Call{
		VendorID: "call-9",
		Platform: "zoom",
		Title:    "Intro call with Globex team",
		Attendees: []models.Attendee{
			{Email: "buyer@gmail.com", Company: "Globex Corp"},
		},
	}

	result, err := engine.DetermineAccountAssociation(context.Background(), call)
	require.NoError(t, err)

	assert.Equal(t, "fallback", result.RuleName)
	assert.Contains(t, result.Suggestions, "Globex Corp")
	assert.Contains(t, result.Suggestions, "Globex")
	assert.Contains(t, result.Suggestions, "Intro")
}

func TestReassociateTranscriptWritesAuditFirst(t *testing.T) {
	store := newFakeStore()
	store.transcripts[42] = &models.Transcript{ID: 42, AccountID: "acct-old"}
	engine := NewEngine(store, nil, zerolog.Nop())

	err := engine.ReassociateTranscript(context.Background(), 42, "acct-new", "wrong account", "ops@seller.com")
	require.NoError(t, err)

	require.Len(t, store.audits, 1)
	audit := store.audits[0]
	assert.Equal(t, "acct-old", audit.OldAccountID)
	assert.Equal(t, "acct-new", audit.NewAccountID)
	assert.Equal(t, "ops@seller.com", audit.Actor)

	transcript := store.transcripts[42]
	assert.Equal(t, "acct-new", transcript.AccountID)
	assert.InDelta(t, models.ConfidenceManualRule, transcript.Confidence, 0.0001)
	assert.Equal(t, "manual_reassignment", transcript.RuleName)
}

func TestReassociateMissingTranscript(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, nil, zerolog.Nop())

	err := engine.ReassociateTranscript(context.Background(), 7, "acct-new", "", "ops")
	assert.Error(t, err)
	assert.Empty(t, store.audits)
}
