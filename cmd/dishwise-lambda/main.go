package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"dishwise"
	"dishwise/commerce"
	"dishwise/coordinator"
	"dishwise/imageio"
	"dishwise/oracle"
	"dishwise/oracle/bedrock"
	"dishwise/oracle/openai"
	"dishwise/storage"
)

// Params is one stateless analysis request. When the clarification gate
// asks questions, the caller re-invokes with Answers filled in.
type Params struct {
	Text        string                   `json:"text"`
	ImageName   string                   `json:"image_name,omitempty"`
	ImageBase64 string                   `json:"image_base64,omitempty"`
	Preferences dishwise.UserPreferences `json:"preferences"`
	Answers     map[string]string        `json:"answers,omitempty"`
}

// Results carries either the clarification questions or the final result.
type Results struct {
	SessionID          string                           `json:"session_id"`
	NeedsClarification bool                             `json:"needs_clarification"`
	Questions          []dishwise.ClarificationQuestion `json:"questions,omitempty"`
	Result             *dishwise.ComposedResult         `json:"result,omitempty"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
		var modelConfig dishwise.ModelConfig
		if err := envdecode.Decode(&modelConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		var agentConfig dishwise.AgentConfig
		if err := envdecode.Decode(&agentConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		var commerceConfig dishwise.CommerceConfig
		if err := envdecode.Decode(&commerceConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		client, err := newOracleClient(ctx, modelConfig)
		if err != nil {
			slog.Error("SETUP: Failed to create oracle client", "error", err)
			return Results{}, err
		}

		session := dishwise.NewSession(params.Preferences)
		pipeline := coordinator.New(client, commerce.New(commerceConfig), agentConfig, session, dishwise.NewStdoutTraceLogger())

		in := dishwise.AnalyzeInput{Text: params.Text}
		if params.ImageBase64 != "" {
			data, err := base64.StdEncoding.DecodeString(params.ImageBase64)
			if err != nil {
				return Results{}, fmt.Errorf("invalid image payload: %w", err)
			}
			validated, err := imageio.Validate(params.ImageName, data)
			if err != nil {
				return Results{}, err
			}
			in.ImageMeta = &validated.Meta
			in.ImageData = validated.DataURL
		}

		_, decision, err := pipeline.Analyze(ctx, in)
		if err != nil {
			slog.Error("RESULT: Analysis failed", "error", err)
			return Results{}, err
		}

		// Without answers in hand, hand the questions back to the caller.
		if decision.NeedsClarification && len(params.Answers) == 0 {
			return Results{
				SessionID:          session.ID,
				NeedsClarification: true,
				Questions:          decision.Questions,
			}, nil
		}

		answers := dishwise.ClarificationAnswers{}
		for id, answer := range params.Answers {
			answers[dishwise.QuestionID(id)] = answer
		}

		var result *dishwise.ComposedResult
		if len(answers) > 0 {
			result, err = pipeline.ApplyAnswers(ctx, answers)
		} else {
			result, err = pipeline.Generate(ctx)
		}
		if err != nil {
			slog.Error("RESULT: Generation failed", "error", err)
			return Results{}, err
		}

		archiveTrace(ctx, session)

		return Results{SessionID: session.ID, Result: result}, nil
	}

	lambda.Start(fn)
}

// archiveTrace writes the session's stage snapshot to S3 when a bucket
// is configured, or to a local directory when TRACES_DIR is set. Best
// effort: failures are logged, never returned.
func archiveTrace(ctx context.Context, session *dishwise.Session) {
	archive, dest := newTraceArchive(ctx)
	if archive == nil {
		return
	}

	data, err := json.Marshal(session.Snapshot())
	if err != nil {
		slog.Warn("RESULT: Failed to marshal trace snapshot", "error", err)
		return
	}
	key := fmt.Sprintf("%d.%s.json", time.Now().Unix(), session.ID)
	if err := archive.Store(ctx, key, data); err != nil {
		slog.Warn("RESULT: Failed to archive trace", "error", err)
		return
	}
	slog.Info("RESULT: Trace archived", "destination", dest, "key", key)
}

func newTraceArchive(ctx context.Context) (storage.TraceArchive, string) {
	if bucket := os.Getenv("TRACES_S3_BUCKET"); bucket != "" {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			slog.Warn("RESULT: Failed to load AWS config for trace archive", "error", err)
			return nil, ""
		}
		return storage.NewS3TraceArchive(s3.NewFromConfig(awsCfg), bucket, os.Getenv("TRACES_S3_PREFIX")), "s3://" + bucket
	}
	if dir := os.Getenv("TRACES_DIR"); dir != "" {
		return storage.NewFileTraceArchive(dir), dir
	}
	return nil, ""
}

func newOracleClient(ctx context.Context, cfg dishwise.ModelConfig) (oracle.Client, error) {
	switch cfg.Provider {
	case "openai":
		return openai.New(openai.Opts{
			APIKey:      cfg.APIKey,
			Model:       cfg.ModelID,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   int(cfg.MaxTokens),
			Temperature: cfg.Temperature,
			Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		}), nil
	case "bedrock":
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, err
		}
		return bedrock.New(bedrockruntime.NewFromConfig(awsCfg), bedrock.Opts{
			ModelID:     cfg.ModelID,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	}
	return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
}
