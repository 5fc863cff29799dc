// Package notify sends sync failure digests via SendGrid
package notify

import (
	"fmt"
	"strings"
	"time"

	"callsync/internal/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// digestDetailCap bounds how many per-call error lines a digest carries
const digestDetailCap = 20

// EmailNotifier sends alert emails via SendGrid
type EmailNotifier struct {
	apiKey     string
	alertEmail string
}

// NewEmailNotifier creates a notifier, or returns nil when SendGrid is not
// configured (callers treat a nil notifier as "feature off")
func NewEmailNotifier(apiKey, alertEmail string) *EmailNotifier {
	if apiKey == "" || alertEmail == "" {
		return nil
	}
	return &EmailNotifier{apiKey: apiKey, alertEmail: alertEmail}
}

// SendSyncFailureDigest emails a summary of a bulk sync that recorded errors
func (n *EmailNotifier) SendSyncFailureDigest(platform string, summary *models.SyncSummary) error {
	from := mail.NewEmail("Callsync", "noreply@callsync.local")
	to := mail.NewEmail("Ops", n.alertEmail)

	subject := fmt.Sprintf("Sync errors on %s: %d of %d calls failed", platform, summary.Errors, summary.Total)

	var lines []string
	lines = append(lines, fmt.Sprintf("Bulk sync for %s finished at %s.", platform, time.Now().UTC().Format(time.RFC3339)))
	lines = append(lines, fmt.Sprintf("Total: %d, processed: %d, skipped: %d, errors: %d.", summary.Total, summary.Processed, summary.Skipped, summary.Errors))
	lines = append(lines, "")

	count := 0
	for _, detail := range summary.Details {
		if detail.Status != models.SyncStatusError {
			continue
		}
		lines = append(lines, fmt.Sprintf("- call %s: %s", detail.CallID, detail.Reason))
		count++
		if count >= digestDetailCap {
			lines = append(lines, fmt.Sprintf("... and %d more", summary.Errors-count))
			break
		}
	}

	body := strings.Join(lines, "\n")
	message := mail.NewSingleEmail(from, subject, to, body, body)

	client := sendgrid.NewSendClient(n.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}
