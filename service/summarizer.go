package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// Summarizer produces a prose summary of an analyzed document. The analyzer
// treats it as best-effort: on failure it falls back to an extractive
// summary instead of failing the analysis.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

const summaryModel = "gemini-2.0-flash"

// GeminiSummarizer generates document summaries with the Gemini API
type GeminiSummarizer struct {
	client *genai.Client
	model  string
}

// NewGeminiSummarizer creates a summarizer backed by the given client
func NewGeminiSummarizer(client *genai.Client) *GeminiSummarizer {
	return &GeminiSummarizer{
		client: client,
		model:  summaryModel,
	}
}

// Summarize sends the prompt to Gemini and returns the generated text
func (s *GeminiSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	model := s.client.GenerativeModel(s.model)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}

	summary := strings.TrimSpace(b.String())
	if summary == "" {
		return "", fmt.Errorf("summary generation returned no text")
	}

	return summary, nil
}
