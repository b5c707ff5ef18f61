package coordinator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"dishwise"
)

// InstrumentedCoordinator is an instrumented version of the Coordinator
// with observability metrics around every pipeline operation.
type InstrumentedCoordinator struct {
	inner  *Coordinator
	tracer trace.Tracer
	meter  metric.Meter
}

// NewInstrumentedCoordinator initializes a new instrumented coordinator.
func NewInstrumentedCoordinator(inner *Coordinator, tracer trace.Tracer, meter metric.Meter) *InstrumentedCoordinator {
	return &InstrumentedCoordinator{
		inner:  inner,
		tracer: tracer,
		meter:  meter,
	}
}

// Analyze runs interpretation and the clarification gate with full instrumentation.
func (c *InstrumentedCoordinator) Analyze(ctx context.Context, in dishwise.AnalyzeInput) (dishwise.InterpretationResult, dishwise.ClarificationDecision, error) {
	ctx, span := c.tracer.Start(ctx, "InstrumentedCoordinator.Analyze")
	defer span.End()

	analysesCounter, _ := c.meter.Int64Counter("pipeline_analyses_total",
		metric.WithDescription("Total number of analyses started"))
	analysesFailedCounter, _ := c.meter.Int64Counter("pipeline_analyses_failed_total",
		metric.WithDescription("Total number of analyses that failed at interpretation"))
	clarificationsCounter, _ := c.meter.Int64Counter("pipeline_clarifications_total",
		metric.WithDescription("Total number of analyses that required clarification"))
	candidateCountGauge, _ := c.meter.Int64Gauge("interpretation_candidate_count",
		metric.WithDescription("Number of dish candidates in the latest interpretation"))
	analyzeDurationHist, _ := c.meter.Float64Histogram("analyze_duration_seconds",
		metric.WithDescription("Duration of the analyze operation in seconds"))

	analysesCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("has_image", in.ImageData != ""),
		attribute.Bool("has_text", in.Text != ""),
	))

	start := time.Now()
	interp, decision, err := c.inner.Analyze(ctx, in)
	analyzeDurationHist.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		analysesFailedCounter.Add(ctx, 1)
		span.SetStatus(codes.Error, "Interpretation failed")
		span.RecordError(err)
		return interp, decision, err
	}

	candidateCountGauge.Record(ctx, int64(len(interp.Candidates)))
	if decision.NeedsClarification {
		clarificationsCounter.Add(ctx, 1)
		for _, q := range decision.Questions {
			span.AddEvent("Clarification question", trace.WithAttributes(
				attribute.String("question_id", string(q.ID)),
			))
		}
	}
	span.AddEvent("Analysis complete", trace.WithAttributes(
		attribute.Int("candidates", len(interp.Candidates)),
		attribute.Bool("needs_clarification", decision.NeedsClarification),
	))
	return interp, decision, nil
}

// ApplyAnswers reconciles answers and generates with full instrumentation.
func (c *InstrumentedCoordinator) ApplyAnswers(ctx context.Context, answers dishwise.ClarificationAnswers) (*dishwise.ComposedResult, error) {
	ctx, span := c.tracer.Start(ctx, "InstrumentedCoordinator.ApplyAnswers")
	defer span.End()

	answersCounter, _ := c.meter.Int64Counter("clarification_answers_total",
		metric.WithDescription("Total number of clarification answers applied"))
	answersCounter.Add(ctx, int64(len(answers)))

	return c.generate(ctx, span, func() (*dishwise.ComposedResult, error) {
		return c.inner.ApplyAnswers(ctx, answers)
	})
}

// Generate runs the generation stages with full instrumentation.
func (c *InstrumentedCoordinator) Generate(ctx context.Context) (*dishwise.ComposedResult, error) {
	ctx, span := c.tracer.Start(ctx, "InstrumentedCoordinator.Generate")
	defer span.End()

	return c.generate(ctx, span, func() (*dishwise.ComposedResult, error) {
		return c.inner.Generate(ctx)
	})
}

func (c *InstrumentedCoordinator) generate(ctx context.Context, span trace.Span, run func() (*dishwise.ComposedResult, error)) (*dishwise.ComposedResult, error) {
	generationsCounter, _ := c.meter.Int64Counter("pipeline_generations_total",
		metric.WithDescription("Total number of generation runs started"))
	generationsFailedCounter, _ := c.meter.Int64Counter("pipeline_generations_failed_total",
		metric.WithDescription("Total number of generation runs that failed"))
	generateDurationHist, _ := c.meter.Float64Histogram("generate_duration_seconds",
		metric.WithDescription("Duration of a full generation run in seconds"))
	commerceStatusCounter, _ := c.meter.Int64Counter("commerce_lookups_total",
		metric.WithDescription("Total number of commerce lookups by outcome status"))

	generationsCounter.Add(ctx, 1)

	start := time.Now()
	result, err := run()
	generateDurationHist.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		generationsFailedCounter.Add(ctx, 1)
		span.SetStatus(codes.Error, "Generation failed")
		span.RecordError(err)
		return nil, err
	}

	commerceStatusCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(result.Commerce.Status)),
	))
	span.AddEvent("Generation complete", trace.WithAttributes(
		attribute.String("dish", result.Recipe.Dish),
		attribute.Int("ingredients", len(result.Ingredients.Ingredients)),
		attribute.Int("steps", len(result.Recipe.Steps)),
		attribute.String("commerce_status", string(result.Commerce.Status)),
	))
	return result, nil
}
