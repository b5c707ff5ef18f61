// Package openai implements the oracle boundary on the OpenAI chat
// completions API (and any OpenAI-compatible endpoint such as a local
// Ollama /v1 server).
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"dishwise/oracle"
)

const jsonGuard = "\n\nReturn JSON only. The response must be a valid JSON object matching this schema:\n"

type Engine struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

type Opts struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

func New(opts Opts) *Engine {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Engine{
		client:      openai.NewClientWithConfig(config),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
	}
}

func (e *Engine) Name() string { return "openai" }

// Complete sends one structured-output call and returns the raw JSON
// object. A per-call timeout bounds the request; transient transport
// failures are retried up to three times.
func (e *Engine) Complete(ctx context.Context, req oracle.Request) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.System + jsonGuard + oracle.SchemaJSON(req.Schema),
			},
			userMessage(req.User),
		},
		Temperature: e.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := e.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			lastErr = err
			slog.Warn("ORACLE: openai call failed", "schema", req.SchemaName, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %v: %w", req.SchemaName, ctx.Err(), oracle.ErrUnavailable)
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("%s: no response choices: %w", req.SchemaName, oracle.ErrUnavailable)
		}
		return oracle.Finalize(resp.Choices[0].Message.Content, req)
	}
	return nil, fmt.Errorf("%s: %v: %w", req.SchemaName, lastErr, oracle.ErrUnavailable)
}

// userMessage folds the request parts into one chat message. Image parts
// switch the message to multi-content form.
func userMessage(parts []oracle.Part) openai.ChatCompletionMessage {
	hasImage := false
	for _, p := range parts {
		if p.ImageURL != "" {
			hasImage = true
			break
		}
	}

	if !hasImage {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: strings.Join(texts, "\n\n"),
		}
	}

	multi := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.ImageURL != "":
			multi = append(multi, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: p.ImageURL},
			})
		case p.Text != "":
			multi = append(multi, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
	}
	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: multi,
	}
}
