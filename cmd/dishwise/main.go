package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dishwise"
	"dishwise/commerce"
	"dishwise/coordinator"
	"dishwise/imageio"
	"dishwise/notify"
	"dishwise/oracle"
	"dishwise/oracle/bedrock"
	"dishwise/oracle/mock"
	"dishwise/oracle/openai"
)

func main() {
	ctx := context.Background()

	var modelConfig dishwise.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var agentConfig dishwise.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var commerceConfig dishwise.CommerceConfig
	if err := envdecode.Decode(&commerceConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	client, err := newOracleClient(ctx, modelConfig)
	if err != nil {
		slog.Error("SETUP: Failed to create oracle client", "error", err)
		return
	}

	prefs := preferencesFromEnv()
	session := dishwise.NewSession(prefs)

	logger, cleanup, err := newTraceLogger(agentConfig.TraceLogDir, session.ID)
	if err != nil {
		slog.Error("SETUP: Failed to create trace logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush trace log", "error", err)
		}
	}()

	tracerProvider, meterProvider, otelShutdown, err := dishwise.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	tracer := tracerProvider.Tracer(dishwise.TracerNamePipeline)
	meter := meterProvider.Meter(dishwise.TracerNamePipeline)

	ctx, span := tracer.Start(ctx, dishwise.TracerNamePipeline, trace.WithAttributes(
		attribute.String("model.id", modelConfig.ModelID),
		attribute.String("model.provider", modelConfig.Provider),
	))
	defer span.End()

	pipeline := coordinator.NewInstrumentedCoordinator(
		coordinator.New(client, commerce.New(commerceConfig), agentConfig, session, logger),
		tracer, meter)

	in, err := analyzeInputFromArgs()
	if err != nil {
		slog.Error("SETUP: Failed to read input", "error", err)
		return
	}

	_, decision, err := pipeline.Analyze(ctx, in)
	if err != nil {
		slog.Error("FAILURE: Analysis failed", "error", err)
		return
	}

	var result *dishwise.ComposedResult
	if decision.NeedsClarification {
		answers := askQuestions(decision.Questions)
		result, err = pipeline.ApplyAnswers(ctx, answers)
	} else {
		result, err = pipeline.Generate(ctx)
	}
	if err != nil {
		slog.Error("FAILURE: Generation failed", "error", err)
		return
	}

	if os.Getenv("DISHWISE_DEBUG") != "" {
		dishwise.Dump(session.Snapshot())
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Error("FAILURE: Failed to render result", "error", err)
		return
	}
	fmt.Println(string(out))

	if webhookURL := os.Getenv("DISHWISE_WEBHOOK_URL"); webhookURL != "" {
		notifier := notify.NewClient(webhookURL, http.DefaultClient)
		if err := notifier.PostResult(ctx, result); err != nil {
			slog.Error("RESULT: Failed to post result to webhook", "error", err)
		}
	}
}

// analyzeInputFromArgs reads the dish text from argv and an optional
// image path from DISHWISE_IMAGE.
func analyzeInputFromArgs() (dishwise.AnalyzeInput, error) {
	in := dishwise.AnalyzeInput{Text: strings.Join(os.Args[1:], " ")}

	imagePath := os.Getenv("DISHWISE_IMAGE")
	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return in, fmt.Errorf("failed to read image %s: %w", imagePath, err)
		}
		validated, err := imageio.Validate(imagePath, data)
		if err != nil {
			return in, err
		}
		in.ImageMeta = &validated.Meta
		in.ImageData = validated.DataURL
		slog.Info("SETUP: Image validated", "name", validated.Meta.Name, "size", fmt.Sprintf("%dx%d", validated.Meta.Width, validated.Meta.Height))
	}

	if in.Text == "" && in.ImageData == "" {
		return in, errors.New("nothing to analyze; pass a dish description or set DISHWISE_IMAGE")
	}
	return in, nil
}

// askQuestions runs the clarification dialog on stdin.
func askQuestions(questions []dishwise.ClarificationQuestion) dishwise.ClarificationAnswers {
	answers := dishwise.ClarificationAnswers{}
	reader := bufio.NewReader(os.Stdin)
	for _, q := range questions {
		fmt.Printf("%s\n> ", q.Question)
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		if answer := strings.TrimSpace(line); answer != "" {
			answers[q.ID] = answer
		}
	}
	return answers
}

func preferencesFromEnv() dishwise.UserPreferences {
	prefs := dishwise.UserPreferences{
		Diet:  dishwise.Diet(os.Getenv("DISHWISE_DIET")),
		Style: dishwise.Style(os.Getenv("DISHWISE_STYLE")),
	}
	if raw := os.Getenv("DISHWISE_SERVINGS"); raw != "" {
		fmt.Sscanf(raw, "%d", &prefs.Servings) // nolint: errcheck
	}
	return prefs
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
	case "mock":
		return mock.New(), nil
	}
	return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
}

func newTraceLogger(dir, sessionID string) (dishwise.TraceLogger, func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to create trace log dir: %w", err)
	}
	logFilePath := dishwise.NewTraceLogFilePath(dir, sessionID)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open trace log file: %w", err)
	}

	logger := dishwise.NewFileTraceLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
