// Package stats tracks ingestion activity counters. Events land in an
// append-only table plus a daily aggregate, so period summaries never scan
// the raw event stream.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"callsync/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Event types
const (
	EventSyncRun            = "sync_run"
	EventTranscriptIngested = "transcript_ingested"
	EventWebhookReceived    = "webhook_received"
	EventReassociation      = "reassociation"
)

// Reporting periods
const (
	PeriodToday      = "today"
	PeriodYesterday  = "yesterday"
	PeriodLast7Days  = "last_7_days"
	PeriodLast30Days = "last_30_days"
)

// Service records and summarizes ingestion events
type Service struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewService creates a stats service over an open database connection
func NewService(db *sqlx.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// CreateTables creates the stats tables if they don't exist
func (s *Service) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS ingest_events (
			id SERIAL PRIMARY KEY,
			event_type VARCHAR(50) NOT NULL,
			count INT DEFAULT 1,
			metadata JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ingest_events_type ON ingest_events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_ingest_events_created_at ON ingest_events(created_at)`,
		`CREATE TABLE IF NOT EXISTS ingest_daily (
			id SERIAL PRIMARY KEY,
			date DATE NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			total_count INT DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(date, event_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ingest_daily_date ON ingest_daily(date)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create stats tables: %w", err)
		}
	}
	return nil
}

// TrackEvent records one event and bumps its daily aggregate. A nil service
// is a no-op so callers don't guard every tracking site.
func (s *Service) TrackEvent(ctx context.Context, eventType string, count int, metadata map[string]interface{}) error {
	if s == nil || count <= 0 {
		return nil
	}

	var metadataJSON interface{}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			metadataJSON = raw
		}
	}

	query := `INSERT INTO ingest_events (event_type, count, metadata) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, eventType, count, metadataJSON); err != nil {
		return fmt.Errorf("failed to track event: %w", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	aggregate := `
		INSERT INTO ingest_daily (date, event_type, total_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (date, event_type) DO UPDATE SET
			total_count = ingest_daily.total_count + EXCLUDED.total_count,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, aggregate, today, eventType, count); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to update daily aggregate")
	}

	return nil
}

// GetSummary builds an activity summary for one reporting period. Event
// counters come from the daily aggregates; totals are live counts over the
// transcript and account tables.
func (s *Service) GetSummary(ctx context.Context, period string) (*models.UsageSummary, error) {
	now := time.Now().UTC()
	var startDate, endDate time.Time

	switch period {
	case PeriodYesterday:
		yesterday := now.AddDate(0, 0, -1)
		startDate = time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, time.UTC)
		endDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodLast7Days:
		startDate = now.AddDate(0, 0, -7)
		endDate = now
	case PeriodLast30Days:
		startDate = now.AddDate(0, 0, -30)
		endDate = now
	default:
		period = PeriodToday
		startDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		endDate = now
	}

	summary := &models.UsageSummary{
		Period:                period,
		StartDate:             startDate,
		EndDate:               endDate,
		TranscriptsByPlatform: make(map[string]int),
	}

	query := `
		SELECT event_type, COALESCE(SUM(total_count), 0) AS total
		FROM ingest_daily
		WHERE date >= $1 AND date <= $2
		GROUP BY event_type
	`
	rows, err := s.db.QueryContext(ctx, query, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to get stats summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var eventType string
		var total int
		if err := rows.Scan(&eventType, &total); err != nil {
			continue
		}
		switch eventType {
		case EventSyncRun:
			summary.SyncRuns = total
		case EventTranscriptIngested:
			summary.TranscriptsIngested = total
		case EventWebhookReceived:
			summary.WebhooksReceived = total
		case EventReassociation:
			summary.Reassociations = total
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stats summary: %w", err)
	}

	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&summary.TotalTranscripts)
	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&summary.TotalAccounts)

	platformRows, err := s.db.QueryContext(ctx, `SELECT platform, COUNT(*) FROM transcripts GROUP BY platform`)
	if err == nil {
		defer func() { _ = platformRows.Close() }()
		for platformRows.Next() {
			var platform string
			var total int
			if err := platformRows.Scan(&platform, &total); err != nil {
				continue
			}
			summary.TranscriptsByPlatform[platform] = total
		}
	}

	return summary, nil
}
