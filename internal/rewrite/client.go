package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"tenniswire/internal/config"
	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

// OpenAI adapts the chat-completion API to the TextGenerator port. One call
// type covers both freeform and structured output; JSON mode flips the
// response format.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

var _ ports.TextGenerator = (*OpenAI)(nil)

// NewOpenAI wires the model client from configuration.
func NewOpenAI(cfg config.OpenAIConfig, logger *slog.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Generate issues one chat completion and extracts the usage envelope.
func (o *OpenAI) Generate(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = o.temperature
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	latency := time.Since(start)

	if err != nil {
		return ports.GenerateResponse{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.GenerateResponse{}, errors.New("chat completion: empty choice list")
	}

	o.logger.Debug("model call finished",
		"model", resp.Model,
		"document", req.DocumentID,
		"latency", latency,
		"promptTokens", resp.Usage.PromptTokens,
		"completionTokens", resp.Usage.CompletionTokens,
	)

	return ports.GenerateResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: domain.ModelUsage{
			DocumentID:       req.DocumentID,
			Model:            resp.Model,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			Latency:          latency,
		},
	}, nil
}
