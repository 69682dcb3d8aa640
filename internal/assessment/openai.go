package assessment

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/cryptex-ai/cryptex/internal/models"
)

const synthesisSystemPrompt = "You are a risk analyst. You only respond with perfect JSON."

// OpenAISynthesizer synthesizes verdicts with an OpenAI chat model in JSON
// mode.
type OpenAISynthesizer struct {
	client openai.Client
	model  string
}

// NewOpenAISynthesizer creates the OpenAI-backed synthesizer. An empty model
// defaults to gpt-4o.
func NewOpenAISynthesizer(apiKey, model string) *OpenAISynthesizer {
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	return &OpenAISynthesizer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Synthesize asks the model for a confidence verdict over the scored event.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, ev models.CorrelatedEvent, risk models.RiskAssessment, scores models.ConfidenceAssessment) (Verdict, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(synthesisSystemPrompt),
			openai.UserMessage(buildSynthesisPrompt(ev, risk, scores)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("openai synthesis failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("openai synthesis returned no choices")
	}
	return parseVerdict(resp.Choices[0].Message.Content)
}
