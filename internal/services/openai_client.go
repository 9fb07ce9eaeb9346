package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAICompleter struct {
	client  openai.Client
	model   string
	tracker IUsageTracker
	opts    []option.RequestOption
}

type OpenAICompleterOption = func(c *OpenAICompleter) error

func NewOpenAICompleter(apiKey string, opts ...OpenAICompleterOption) (*OpenAICompleter, error) {
	c := &OpenAICompleter{
		model:   openai.ChatModelGPT3_5Turbo,
		tracker: noopTracker{},
		// retries are owned by the pipeline's retry policy
		opts: []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)},
	}
	if err := applyFuncOptions(c, opts...); err != nil {
		return nil, fmt.Errorf("failed to apply options: %w", err)
	}
	c.client = openai.NewClient(c.opts...)
	return c, nil
}

func WithOpenAIModel(model string) OpenAICompleterOption {
	return func(c *OpenAICompleter) error {
		if model != "" {
			c.model = model
		}
		return nil
	}
}

func WithOpenAIBaseURL(url string) OpenAICompleterOption {
	return func(c *OpenAICompleter) error {
		if url != "" {
			c.opts = append(c.opts, option.WithBaseURL(url))
		}
		return nil
	}
}

func WithOpenAIHTTPClient(hc *http.Client) OpenAICompleterOption {
	return func(c *OpenAICompleter) error {
		c.opts = append(c.opts, option.WithHTTPClient(hc))
		return nil
	}
}

func WithOpenAIUsageTracker(tracker IUsageTracker) OpenAICompleterOption {
	return func(c *OpenAICompleter) error {
		c.tracker = tracker
		return nil
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &ServiceError{Service: "openai", StatusCode: apiErr.StatusCode, Body: apiErr.Message, Err: err}
		}
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	tknIn, tknOut := int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens)
	c.tracker.AddTokens(ctx, tknIn, tknOut)

	if len(resp.Choices) == 0 {
		return nil, &ServiceError{Service: "openai", Body: "no response from LLM"}
	}

	return &Completion{
		Text:      resp.Choices[0].Message.Content,
		TokensIn:  tknIn,
		TokensOut: tknOut,
	}, nil
}
