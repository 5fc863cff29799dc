// Package webhook translates vendor webhook payloads into queue messages.
// Each vendor has its own payload shape and its own notion of a
// "processing complete" event; everything else is acknowledged and dropped.
package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"callsync/internal/models"
	"callsync/internal/platform"
)

// ValidationError marks a malformed payload. The HTTP boundary rejects it
// with a 4xx and never enqueues it.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid webhook payload: " + e.Reason
}

// ParsePayload validates a vendor payload and translates it into a queue
// message. Returns (nil, nil) for well-formed events that are not
// "processing complete" kinds; those are acknowledged and dropped.
func ParsePayload(platformName string, body []byte) (*models.QueueMessage, error) {
	switch platformName {
	case platform.PlatformGong:
		return parseGong(body)
	case platform.PlatformFireflies:
		return parseFireflies(body)
	case platform.PlatformZoom:
		return parseZoom(body)
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown platform %q", platformName)}
	}
}

func newMessage(platformName, callID, eventType string) *models.QueueMessage {
	return &models.QueueMessage{
		Platform:  platformName,
		CallID:    callID,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    "webhook",
	}
}

func parseGong(body []byte) (*models.QueueMessage, error) {
	var payload struct {
		EventType string `json:"eventType"`
		CallID    string `json:"callId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if payload.EventType == "" {
		return nil, &ValidationError{Reason: "missing eventType"}
	}
	if payload.EventType != "call_processed" {
		return nil, nil
	}
	if payload.CallID == "" {
		return nil, &ValidationError{Reason: "missing callId"}
	}
	return newMessage(platform.PlatformGong, payload.CallID, payload.EventType), nil
}

func parseFireflies(body []byte) (*models.QueueMessage, error) {
	var payload struct {
		EventType string `json:"eventType"`
		MeetingID string `json:"meetingId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if payload.EventType == "" {
		return nil, &ValidationError{Reason: "missing eventType"}
	}
	if payload.EventType != "Transcription completed" {
		return nil, nil
	}
	if payload.MeetingID == "" {
		return nil, &ValidationError{Reason: "missing meetingId"}
	}
	return newMessage(platform.PlatformFireflies, payload.MeetingID, payload.EventType), nil
}

func parseZoom(body []byte) (*models.QueueMessage, error) {
	var payload struct {
		Event   string `json:"event"`
		Payload struct {
			Object struct {
				UUID string `json:"uuid"`
			} `json:"object"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if payload.Event == "" {
		return nil, &ValidationError{Reason: "missing event"}
	}
	if payload.Event != "recording.transcript_completed" {
		return nil, nil
	}
	if payload.Payload.Object.UUID == "" {
		return nil, &ValidationError{Reason: "missing payload.object.uuid"}
	}
	return newMessage(platform.PlatformZoom, payload.Payload.Object.UUID, payload.Event), nil
}
