// Package enrich generates fallback AI content for transcripts whose vendor
// provides none
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"callsync/internal/config"
	"callsync/internal/utils"

	"github.com/sashabaranov/go-openai"
)

const summaryPrompt = `Summarize this sales call transcript in 3-5 sentences. Focus on: the customer's needs, any commitments made, and next steps.`

// maxTranscriptChars truncates very long transcripts before summarization
const maxTranscriptChars = 24000

// Summarizer generates short call summaries with OpenAI
type Summarizer struct {
	client  *openai.Client
	timeout time.Duration
}

// NewSummarizer creates a summarizer, or returns nil when no API key is
// configured (callers treat a nil summarizer as "feature off")
func NewSummarizer(cfg *config.Config) *Summarizer {
	if cfg.OpenAIKey == "" || !cfg.EnableAISummary {
		return nil
	}
	return &Summarizer{
		client:  openai.NewClient(cfg.OpenAIKey),
		timeout: time.Duration(cfg.OpenAITimeout) * time.Second,
	}
}

// Summarize produces a summary blob shaped like vendor AI content
func (s *Summarizer) Summarize(ctx context.Context, fullText string) (json.RawMessage, error) {
	if len(fullText) > maxTranscriptChars {
		fullText = fullText[:maxTranscriptChars]
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Summaries come back in the language the call was held in
	prompt := summaryPrompt
	if instruction := utils.SummaryInstruction(utils.DetectLanguage(fullText)); instruction != "" {
		prompt += " " + instruction
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: string(openai.GPT4oMini),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: fullText},
		},
		MaxTokens:   300,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	blob, err := json.Marshal(map[string]string{
		"summary": resp.Choices[0].Message.Content,
		"source":  "generated",
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}
