// Package database is the persistence gateway for transcripts, accounts,
// and reassociation audit records. All "not found" outcomes surface as
// ErrNotFound so callers can distinguish them from transport failures.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"callsync/internal/models"
	"callsync/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// Store provides transcript, account, and audit persistence over sqlx
type Store struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewStore creates a store over an open database connection
func NewStore(db *sqlx.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// transcriptRow is the flat database shape of a transcript
type transcriptRow struct {
	ID              int64          `db:"id"`
	Platform        string         `db:"platform"`
	CallID          string         `db:"call_id"`
	Title           sql.NullString `db:"title"`
	StartedAt       time.Time      `db:"started_at"`
	DurationSeconds int            `db:"duration_seconds"`
	CallData        []byte         `db:"call_data"`
	Segments        []byte         `db:"segments"`
	FullText        string         `db:"full_text"`
	AIContent       []byte         `db:"ai_content"`
	AccountID       sql.NullString `db:"account_id"`
	Confidence      float64        `db:"confidence"`
	RuleName        sql.NullString `db:"rule_name"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r transcriptRow) toModel() (*models.Transcript, error) {
	t := &models.Transcript{
		ID:         r.ID,
		Platform:   r.Platform,
		CallID:     r.CallID,
		FullText:   r.FullText,
		Confidence: r.Confidence,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.AccountID.Valid {
		t.AccountID = r.AccountID.String
	}
	if r.RuleName.Valid {
		t.RuleName = r.RuleName.String
	}
	if len(r.AIContent) > 0 {
		t.AIContent = json.RawMessage(r.AIContent)
	}
	if err := json.Unmarshal(r.CallData, &t.Call); err != nil {
		return nil, fmt.Errorf("failed to decode call data for transcript %d: %w", r.ID, err)
	}
	if len(r.Segments) > 0 {
		if err := json.Unmarshal(r.Segments, &t.Segments); err != nil {
			return nil, fmt.Errorf("failed to decode segments for transcript %d: %w", r.ID, err)
		}
	}
	return t, nil
}

const transcriptColumns = `id, platform, call_id, title, started_at, duration_seconds,
	call_data, segments, full_text, ai_content, account_id, confidence, rule_name,
	created_at, updated_at`

// CreateOrUpdateTranscript upserts a transcript on its (platform, call_id)
// natural key. The database-level upsert removes the insert/conflict race
// window entirely: concurrent syncs of the same call converge on one row.
// Returns true when a new row was created, false when an existing one was
// updated.
func (s *Store) CreateOrUpdateTranscript(ctx context.Context, t *models.Transcript) (bool, error) {
	callData, err := json.Marshal(t.Call)
	if err != nil {
		return false, fmt.Errorf("failed to encode call data: %w", err)
	}
	segments, err := json.Marshal(t.Segments)
	if err != nil {
		return false, fmt.Errorf("failed to encode segments: %w", err)
	}
	var aiContent interface{}
	if len(t.AIContent) > 0 {
		aiContent = []byte(t.AIContent)
	}
	var accountID interface{}
	if t.AccountID != "" {
		accountID = t.AccountID
	}

	query := `
		INSERT INTO transcripts
			(platform, call_id, title, started_at, duration_seconds,
			 call_data, segments, full_text, ai_content, account_id, confidence, rule_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (platform, call_id) DO UPDATE SET
			title = EXCLUDED.title,
			started_at = EXCLUDED.started_at,
			duration_seconds = EXCLUDED.duration_seconds,
			call_data = EXCLUDED.call_data,
			segments = EXCLUDED.segments,
			full_text = EXCLUDED.full_text,
			ai_content = EXCLUDED.ai_content,
			account_id = EXCLUDED.account_id,
			confidence = EXCLUDED.confidence,
			rule_name = EXCLUDED.rule_name,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, (xmax = 0) AS created
	`

	var result struct {
		ID      int64 `db:"id"`
		Created bool  `db:"created"`
	}
	err = s.db.GetContext(ctx, &result, query,
		t.Platform, t.CallID, t.Call.Title, t.Call.StartTime, t.Call.DurationSeconds,
		callData, segments, t.FullText, aiContent, accountID, t.Confidence, t.RuleName)
	if err != nil {
		return false, fmt.Errorf("failed to upsert transcript: %w", err)
	}

	t.ID = result.ID
	return result.Created, nil
}

// GetTranscriptByCallID looks a transcript up by its natural key
func (s *Store) GetTranscriptByCallID(ctx context.Context, platform, callID string) (*models.Transcript, error) {
	var row transcriptRow
	query := `SELECT ` + transcriptColumns + ` FROM transcripts WHERE platform = $1 AND call_id = $2`
	err := s.db.GetContext(ctx, &row, query, platform, callID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return row.toModel()
}

// GetTranscriptByID looks a transcript up by its row id
func (s *Store) GetTranscriptByID(ctx context.Context, id int64) (*models.Transcript, error) {
	var row transcriptRow
	query := `SELECT ` + transcriptColumns + ` FROM transcripts WHERE id = $1`
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return row.toModel()
}

// GetAccountByDomain returns the account keyed by domain, or ErrNotFound
func (s *Store) GetAccountByDomain(ctx context.Context, domain string) (*models.Account, error) {
	var account models.Account
	query := `SELECT id, name, domain, provenance, COALESCE(created_from_call_id, '') AS created_from_call_id, created_at
		FROM accounts WHERE domain = $1`
	err := s.db.GetContext(ctx, &account, query, domain)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by domain: %w", err)
	}
	return &account, nil
}

// GetAccountByID returns the account with the given id, or ErrNotFound
func (s *Store) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	query := `SELECT id, name, domain, provenance, COALESCE(created_from_call_id, '') AS created_from_call_id, created_at
		FROM accounts WHERE id = $1`
	err := s.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// CreateAccount inserts an account keyed by its domain. On a concurrent
// insert of the same domain the existing row wins and is returned, so the
// same domain never yields two accounts.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, name, domain, provenance, created_from_call_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (domain) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		account.ID, account.Name, account.Domain, account.Provenance, account.CreatedFromCallID)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		// Someone else created this domain first; reuse theirs
		s.logger.Debug().Str("domain", account.Domain).Msg("Account already exists, reusing")
		return s.GetAccountByDomain(ctx, account.Domain)
	}

	return s.GetAccountByDomain(ctx, account.Domain)
}

// UpdateTranscriptAccount repoints a transcript at a different account
func (s *Store) UpdateTranscriptAccount(ctx context.Context, transcriptID int64, accountID string, confidence float64, ruleName string) error {
	query := `
		UPDATE transcripts
		SET account_id = $1, confidence = $2, rule_name = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, accountID, confidence, ruleName, transcriptID)
	if err != nil {
		return fmt.Errorf("failed to update transcript account: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertReassociationAudit appends one reassignment audit record
func (s *Store) InsertReassociationAudit(ctx context.Context, audit *models.ReassociationAudit) error {
	query := `
		INSERT INTO reassociation_audit (id, transcript_id, old_account_id, new_account_id, reason, actor)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		audit.ID, audit.TranscriptID, audit.OldAccountID, audit.NewAccountID, audit.Reason, audit.Actor)
	if err != nil {
		return fmt.Errorf("failed to insert reassociation audit: %w", err)
	}
	return nil
}

// SearchFilters narrows a transcript search
type SearchFilters struct {
	Query     string
	Platform  string
	AccountID string
	Limit     int
}

// SearchTranscripts runs a keyword search over titles and full text. The
// query is tokenized with stopwords stripped; every token must appear in
// either the title or the transcript body.
func (s *Store) SearchTranscripts(ctx context.Context, filters SearchFilters) ([]*models.Transcript, error) {
	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	query := `SELECT ` + transcriptColumns + ` FROM transcripts
		WHERE ($1 = '' OR platform = $1)
		  AND ($2 = '' OR account_id = $2)`
	args := []interface{}{filters.Platform, filters.AccountID}

	for _, token := range utils.ExtractSearchTokens(filters.Query) {
		args = append(args, token)
		n := len(args)
		query += fmt.Sprintf(" AND (title ILIKE '%%' || $%d || '%%' OR full_text ILIKE '%%' || $%d || '%%')", n, n)
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", len(args))

	var rows []transcriptRow
	err := s.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search transcripts: %w", err)
	}

	transcripts := make([]*models.Transcript, 0, len(rows))
	for _, row := range rows {
		t, err := row.toModel()
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, nil
}
