package assessment

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cryptex-ai/cryptex/internal/models"
)

// AnthropicSynthesizer synthesizes verdicts with a Claude model.
type AnthropicSynthesizer struct {
	client anthropic.Client
	model  string
}

// NewAnthropicSynthesizer creates the Anthropic-backed synthesizer. An empty
// model defaults to a current Sonnet snapshot.
func NewAnthropicSynthesizer(apiKey, model string) *AnthropicSynthesizer {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicSynthesizer{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Synthesize asks the model for a confidence verdict over the scored event.
func (s *AnthropicSynthesizer) Synthesize(ctx context.Context, ev models.CorrelatedEvent, risk models.RiskAssessment, scores models.ConfidenceAssessment) (Verdict, error) {
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 512,
		System: []anthropic.TextBlockParam{
			{Text: synthesisSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildSynthesisPrompt(ev, risk, scores))),
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("anthropic synthesis failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Verdict{}, fmt.Errorf("anthropic synthesis returned no text content")
	}
	return parseVerdict(text.String())
}
