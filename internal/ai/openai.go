package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/christopherklint97/studyr/internal/config"
)

// OpenAI drafts plans through the chat completions API. Any server that
// speaks the same API works via base_url.
type OpenAI struct {
	client      openai.Client
	Model       string
	Temperature float64
	MaxTokens   int
	Version     PromptVersion
	logger      *slog.Logger
}

func NewOpenAI(cfg config.AIConfig, version PromptVersion, logger *slog.Logger) (*OpenAI, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai provider needs an API key (set ai.api_key or OPENAI_API_KEY)")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}

	return &OpenAI{
		client:      openai.NewClient(opts...),
		Model:       model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Version:     version,
		logger:      logger,
	}, nil
}

func (o *OpenAI) GeneratePlan(ctx context.Context, req PlanRequest) ([]Session, error) {
	systemPrompt, err := SystemPrompt(o.Version, req.Locale)
	if err != nil {
		return nil, err
	}
	userPrompt := UserPrompt(o.Version, req)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "study_plan",
					Schema: planSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	}
	if o.Temperature > 0 {
		params.Temperature = openai.Float(o.Temperature)
	}
	if o.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.MaxTokens))
	}

	o.logger.Debug("requesting plan",
		"model", o.Model,
		"prompt_version", o.Version,
		"free_slots", len(req.FreeSlots),
		"assessments", len(req.Assessments),
		"system_prompt_len", len(systemPrompt),
		"user_prompt_len", len(userPrompt),
	)

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	elapsed := time.Since(start)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		o.logger.Error("openai request failed", "error", err, "elapsed", elapsed)
		return nil, fmt.Errorf("requesting plan from openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrInvalidResponse)
	}

	content := resp.Choices[0].Message.Content
	o.logger.Debug("openai response",
		"elapsed", elapsed,
		"finish_reason", resp.Choices[0].FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"content", truncateStr(content, 2000),
	)

	sessions, err := ParseSessions(content)
	if err != nil {
		o.logger.Error("failed to parse plan", "error", err)
		return nil, err
	}
	return sessions, nil
}
