package lm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// openaiTopLogProbs is the most alternatives the API returns per position.
const openaiTopLogProbs = 20

// OpenAISource derives next-token distributions from the OpenAI chat
// completions API by requesting one completion token with logprobs and
// exponentiating the reported alternatives.
type OpenAISource struct {
	client *openai.Client
	model  string
}

func NewOpenAISource() (*OpenAISource, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_MODEL")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from Podman Secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI distribution source", "model", model)
	return &OpenAISource{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// NextDistribution asks for a single completion token and converts the
// top logprobs into a probability map. The mass covers only the reported
// alternatives, which is all the sampler needs; it renormalizes anyway.
func (s *OpenAISource) NextDistribution(ctx context.Context, modelID string, prefix []string) (map[string]float64, error) {
	slog.Debug("Fetching next-token distribution via OpenAI", "model", s.model, "watermark_model", modelID)
	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: strings.Join(prefix, " ")},
		},
		MaxCompletionTokens: 1,
		LogProbs:            true,
		TopLogProbs:         openaiTopLogProbs,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no choices")
	}
	logprobs := resp.Choices[0].LogProbs
	if logprobs == nil || len(logprobs.Content) == 0 {
		return nil, fmt.Errorf("OpenAI response carried no logprobs; model %q may not support them", s.model)
	}

	first := logprobs.Content[0]
	dist := make(map[string]float64, len(first.TopLogProbs)+1)
	dist[first.Token] = math.Exp(first.LogProb)
	for _, alt := range first.TopLogProbs {
		dist[alt.Token] = math.Exp(alt.LogProb)
	}
	return dist, nil
}
