// Package bedrock implements the oracle boundary on AWS Bedrock's
// Converse API.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"dishwise/oracle"
)

const (
	// defaultModelID is an inference profile ID, not the foundation
	// model's ID. See
	// https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	defaultMaxTokens = 1024

	// Low temperature keeps outputs more deterministic, which matters for
	// schema-shaped JSON.
	defaultTemperature = 0.0
)

type runtimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Opts struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
}

type Engine struct {
	brc  runtimeClient
	opts Opts
}

func New(brc runtimeClient, opts Opts) *Engine {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	return &Engine{brc: brc, opts: opts}
}

func (e *Engine) Name() string { return "bedrock" }

// Complete sends one structured-output call through Converse and returns
// the raw JSON object.
func (e *Engine) Complete(ctx context.Context, req oracle.Request) (json.RawMessage, error) {
	sys := []types.SystemContentBlock{
		&types.SystemContentBlockMemberText{
			Value: req.System + "\n\nReturn JSON only, matching this schema:\n" + oracle.SchemaJSON(req.Schema),
		},
	}

	msg := types.Message{Role: types.ConversationRoleUser}
	for _, part := range req.User {
		switch {
		case part.ImageURL != "":
			mime, data, err := oracle.DecodeDataURL(part.ImageURL)
			if err != nil {
				return nil, fmt.Errorf("%s: bad image payload: %w", req.SchemaName, err)
			}
			msg.Content = append(msg.Content, &types.ContentBlockMemberImage{
				Value: types.ImageBlock{
					Format: imageFormat(mime),
					Source: &types.ImageSourceMemberBytes{Value: data},
				},
			})
		case part.Text != "":
			msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: part.Text})
		}
	}

	out, err := e.brc.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:  aws.String(e.opts.ModelID),
		System:   sys,
		Messages: []types.Message{msg},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(e.opts.MaxTokens),
			Temperature: aws.Float32(e.opts.Temperature),
		},
	})
	if err != nil {
		slog.Warn("ORACLE: bedrock converse failed", "schema", req.SchemaName, "error", err)
		return nil, fmt.Errorf("%s: %v: %w", req.SchemaName, err, oracle.ErrUnavailable)
	}

	text := firstText(out)
	if text == "" {
		return nil, fmt.Errorf("%s: empty response: %w", req.SchemaName, oracle.ErrUnavailable)
	}
	return oracle.Finalize(text, req)
}

func firstText(out *bedrockruntime.ConverseOutput) string {
	if out == nil {
		return ""
	}
	om, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	for _, block := range om.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			return tb.Value
		}
	}
	return ""
}

func imageFormat(mime string) types.ImageFormat {
	switch {
	case strings.Contains(mime, "png"):
		return types.ImageFormatPng
	case strings.Contains(mime, "gif"):
		return types.ImageFormatGif
	case strings.Contains(mime, "webp"):
		return types.ImageFormatWebp
	default:
		return types.ImageFormatJpeg
	}
}
