// Package syncer orchestrates call ingestion: list calls in a window, skip
// already-ingested ones, fetch transcripts, associate accounts, persist.
// Bulk sync and webhook-triggered single-call sync share the same per-call
// pipeline.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"callsync/internal/models"
	"callsync/internal/platform"

	"github.com/rs/zerolog"
)

const (
	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond
)

// Store is the persistence surface the sync engine needs
type Store interface {
	GetTranscriptByCallID(ctx context.Context, platform, callID string) (*models.Transcript, error)
	CreateOrUpdateTranscript(ctx context.Context, t *models.Transcript) (bool, error)
}

// Associator assigns a call to an account
type Associator interface {
	DetermineAccountAssociation(ctx context.Context, call *models.Call) (*models.AssociationResult, error)
}

// Summarizer generates fallback AI content when the vendor has none.
// Best-effort: failures are absorbed.
type Summarizer interface {
	Summarize(ctx context.Context, fullText string) (json.RawMessage, error)
}

// Notifier reports lossy bulk syncs. Best-effort: failures are absorbed.
type Notifier interface {
	SendSyncFailureDigest(platform string, summary *models.SyncSummary) error
}

// Engine runs sync invocations. Pagination within one platform is driven
// sequentially; different platforms may sync concurrently.
type Engine struct {
	registry   *platform.Registry
	store      Store
	assoc      Associator
	summarizer Summarizer // optional
	notifier   Notifier   // optional
	logger     zerolog.Logger

	// retryDelay is overridable in tests
	retryDelay time.Duration
}

// NewEngine creates a sync engine. Summarizer and notifier may be nil.
func NewEngine(registry *platform.Registry, store Store, assoc Associator, summarizer Summarizer, notifier Notifier, logger zerolog.Logger) *Engine {
	return &Engine{
		registry:   registry,
		store:      store,
		assoc:      assoc,
		summarizer: summarizer,
		notifier:   notifier,
		logger:     logger,
		retryDelay: retryBaseDelay,
	}
}

// SyncPlatform runs a bulk sync: list calls in the window, then run the
// per-call pipeline for each. Per-call failures are recorded and never
// abort the batch; the summary accounts for every discovered call.
func (e *Engine) SyncPlatform(ctx context.Context, platformName string, window platform.Window, limit int) (*models.SyncSummary, error) {
	adapter, err := e.registry.Get(ctx, platformName)
	if err != nil {
		return nil, err
	}

	var calls []models.Call
	err = e.withRetry(ctx, adapter, func() error {
		var listErr error
		calls, listErr = adapter.ListCalls(ctx, window, limit)
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("listing calls for %s failed: %w", platformName, err)
	}

	summary := &models.SyncSummary{
		Platform: platformName,
		Total:    len(calls),
		Details:  make([]models.SyncDetail, 0, len(calls)),
	}

	for _, call := range calls {
		detail := e.syncOne(ctx, adapter, call.VendorID, true)
		switch detail.Status {
		case models.SyncStatusSuccess:
			summary.Processed++
		case models.SyncStatusSkipped:
			summary.Skipped++
		default:
			summary.Errors++
		}
		summary.Details = append(summary.Details, detail)
	}

	e.logger.Info().
		Str("platform", platformName).
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Msg("Bulk sync finished")

	if summary.Errors > 0 && e.notifier != nil {
		if err := e.notifier.SendSyncFailureDigest(platformName, summary); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to send sync failure digest")
		}
	}

	return summary, nil
}

// SyncCall runs the per-call pipeline for one call, typically triggered by a
// webhook. Re-syncing an already-ingested call updates it in place.
func (e *Engine) SyncCall(ctx context.Context, platformName, callID string) (*models.SyncDetail, error) {
	adapter, err := e.registry.Get(ctx, platformName)
	if err != nil {
		return nil, err
	}

	detail := e.syncOne(ctx, adapter, callID, false)
	if detail.Status == models.SyncStatusError {
		return &detail, fmt.Errorf("sync of %s call %s failed: %s", platformName, callID, detail.Reason)
	}
	return &detail, nil
}

// syncOne runs the shared per-call pipeline. With skipExisting set (bulk
// sync), calls that already have a transcript are skipped; without it
// (single-call sync), they are re-fetched and updated in place.
func (e *Engine) syncOne(ctx context.Context, adapter platform.Adapter, callID string, skipExisting bool) models.SyncDetail {
	platformName := adapter.Platform()

	if skipExisting {
		if _, err := e.store.GetTranscriptByCallID(ctx, platformName, callID); err == nil {
			return models.SyncDetail{CallID: callID, Status: models.SyncStatusSkipped, Reason: "already_exists"}
		}
	}

	var transcript *models.Transcript
	err := e.withRetry(ctx, adapter, func() error {
		var fetchErr error
		transcript, fetchErr = adapter.GetTranscript(ctx, callID)
		return fetchErr
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("platform", platformName).Str("call_id", callID).Msg("Transcript fetch failed")
		return models.SyncDetail{CallID: callID, Status: models.SyncStatusError, Reason: err.Error()}
	}

	transcript.AIContent = e.fetchAIContent(ctx, adapter, callID, transcript.FullText)

	result, err := e.assoc.DetermineAccountAssociation(ctx, &transcript.Call)
	if err != nil {
		e.logger.Warn().Err(err).Str("platform", platformName).Str("call_id", callID).Msg("Account association failed")
		return models.SyncDetail{CallID: callID, Status: models.SyncStatusError, Reason: err.Error()}
	}
	transcript.AccountID = result.AccountID
	transcript.Confidence = result.Confidence
	transcript.RuleName = result.RuleName

	created, err := e.store.CreateOrUpdateTranscript(ctx, transcript)
	if err != nil {
		return models.SyncDetail{CallID: callID, Status: models.SyncStatusError, Reason: err.Error()}
	}

	reason := "created"
	if !created {
		reason = "updated"
	}
	e.logger.Info().
		Str("platform", platformName).
		Str("call_id", callID).
		Str("account_id", result.AccountID).
		Float64("confidence", result.Confidence).
		Str("outcome", reason).
		Msg("Call ingested")

	return models.SyncDetail{CallID: callID, Status: models.SyncStatusSuccess, Reason: reason}
}

// fetchAIContent tries the vendor first, then the fallback summarizer.
// Failures never fail the ingestion of a call.
func (e *Engine) fetchAIContent(ctx context.Context, adapter platform.Adapter, callID, fullText string) json.RawMessage {
	content, err := adapter.GetAIContent(ctx, callID)
	if err == nil && len(content) > 0 {
		return content
	}
	if err != nil && !platform.IsNotFound(err) {
		e.logger.Debug().Err(err).Str("call_id", callID).Msg("AI content fetch failed, treating as absent")
	}

	if e.summarizer == nil || fullText == "" {
		return nil
	}
	summary, err := e.summarizer.Summarize(ctx, fullText)
	if err != nil {
		e.logger.Debug().Err(err).Str("call_id", callID).Msg("Fallback summary failed, treating as absent")
		return nil
	}
	return summary
}

// withRetry retries transient failures with exponential backoff up to
// maxAttempts, and recovers from one authentication rejection by
// re-authenticating before retrying
func (e *Engine) withRetry(ctx context.Context, adapter platform.Adapter, fn func() error) error {
	backoff := e.retryDelay
	reauthed := false

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if platform.IsAuth(err) && !reauthed {
			reauthed = true
			e.logger.Info().Str("platform", adapter.Platform()).Msg("Re-authenticating after rejected request")
			if authErr := adapter.Authenticate(ctx); authErr != nil {
				return authErr
			}
			continue
		}

		if !platform.IsTransient(err) || attempt >= maxAttempts {
			return err
		}

		e.logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Transient error, backing off")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
