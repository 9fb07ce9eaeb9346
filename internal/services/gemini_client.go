package services

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

type GeminiCompleter struct {
	client  *genai.Client
	tracker IUsageTracker
	model   string
	config  *genai.ClientConfig
}

type GeminiCompleterOption = func(client *GeminiCompleter) error

func NewGeminiCompleter(ctx context.Context, apiKey string, opts ...GeminiCompleterOption) (*GeminiCompleter, error) {
	g := &GeminiCompleter{
		model:   "gemini-2.5-flash",
		tracker: noopTracker{},
		config: &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		},
	}
	if err := applyFuncOptions(g, opts...); err != nil {
		return nil, fmt.Errorf("failed to apply options: %w", err)
	}
	client, err := genai.NewClient(ctx, g.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	g.client = client
	return g, nil
}

func WithModel(model string) GeminiCompleterOption {
	return func(client *GeminiCompleter) error {
		if model != "" {
			client.model = model
		}
		return nil
	}
}

func WithGeminiBaseURL(url string) GeminiCompleterOption {
	return func(client *GeminiCompleter) error {
		client.config.HTTPOptions.BaseURL = url
		return nil
	}
}

func WithUsageTracker(tracker IUsageTracker) GeminiCompleterOption {
	return func(client *GeminiCompleter) error {
		client.tracker = tracker
		return nil
	}
}

func (g *GeminiCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	var cfg *genai.GenerateContentConfig
	if req.System != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.User), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &ServiceError{Service: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message, Err: err}
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	um := Deref(result.UsageMetadata)
	tknIn := int(um.PromptTokenCount)
	tknOut := int(um.TotalTokenCount) - tknIn
	g.tracker.AddTokens(ctx, tknIn, tknOut)

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		body := "no response from LLM"
		if pf := result.PromptFeedback; pf != nil && pf.BlockReason != "" {
			body += ": blocked: " + string(pf.BlockReason)
		}
		return nil, &ServiceError{Service: "gemini", Body: body}
	}

	return &Completion{
		Text:      result.Text(),
		TokensIn:  tknIn,
		TokensOut: tknOut,
	}, nil
}
