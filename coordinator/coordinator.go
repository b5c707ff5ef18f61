// Package coordinator sequences the analysis pipeline: interpretation,
// the clarification gate, reconciliation of user answers, the three
// generation stages, and the commerce lookup, composing everything into
// one result per run.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"dishwise"
	"dishwise/oracle"
	"dishwise/stage"
)

// Coordinator owns the per-session control flow and implements
// dishwise.Pipeline. It is not safe for concurrent use by multiple
// front ends; the session it wraps is.
type Coordinator struct {
	interpreter *stage.Interpreter
	clarifier   *stage.ClarifyEngine
	reconciler  *stage.Reconciler
	ingredients *stage.IngredientStage
	recipes     *stage.RecipeStage
	nutrition   *stage.NutritionStage
	commerce    dishwise.CommerceLookup
	session     *dishwise.Session
	logger      dishwise.TraceLogger
}

func New(client oracle.Client, lookup dishwise.CommerceLookup, cfg dishwise.AgentConfig, session *dishwise.Session, logger dishwise.TraceLogger) *Coordinator {
	interpreter := stage.NewInterpreter(client)
	return &Coordinator{
		interpreter: interpreter,
		clarifier:   stage.NewClarifyEngine(client, cfg),
		reconciler:  stage.NewReconciler(interpreter),
		ingredients: stage.NewIngredientStage(client),
		recipes:     stage.NewRecipeStage(client),
		nutrition:   stage.NewNutritionStage(client),
		commerce:    lookup,
		session:     session,
		logger:      logger,
	}
}

// Analyze interprets the raw inputs and decides whether clarification is
// needed. It resets any previous analysis on the session first.
func (c *Coordinator) Analyze(ctx context.Context, in dishwise.AnalyzeInput) (dishwise.InterpretationResult, dishwise.ClarificationDecision, error) {
	c.session.Reset()
	c.session.SetInputs(in)

	slog.Info("COORDINATOR: starting analysis", "has_text", in.Text != "", "has_image", in.ImageData != "")

	interp, err := c.interpreter.Interpret(ctx, in)
	c.logStage(dishwise.SlotInterpreter, in.Text, interp, err)
	if err != nil {
		return dishwise.InterpretationResult{}, dishwise.ClarificationDecision{}, fmt.Errorf("analysis failed: %w", err)
	}
	c.session.SetInterpretation(interp)

	decision := c.clarifier.Decide(ctx, interp, c.session.Preferences())
	c.logStage(dishwise.SlotClarifier, "", decision, nil)
	c.session.SetDecision(decision)

	return interp, decision, nil
}

// ApplyAnswers reconciles the user's clarification answers and runs the
// generation stages on the resolved inputs.
func (c *Coordinator) ApplyAnswers(ctx context.Context, answers dishwise.ClarificationAnswers) (*dishwise.ComposedResult, error) {
	return c.run(ctx, answers)
}

// Generate runs the generation stages without clarification answers,
// for the path where the gate asked nothing.
func (c *Coordinator) Generate(ctx context.Context) (*dishwise.ComposedResult, error) {
	return c.run(ctx, nil)
}

func (c *Coordinator) run(ctx context.Context, answers dishwise.ClarificationAnswers) (*dishwise.ComposedResult, error) {
	interp, ok := c.session.Interpretation()
	if !ok {
		return nil, fmt.Errorf("no analysis to generate from; call Analyze first")
	}

	interp, resolved, err := c.reconciler.Resolve(ctx, interp, answers, c.session.Preferences(), c.session.Inputs())
	if err != nil {
		c.logStage(dishwise.SlotInterpreter, "", nil, err)
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}
	c.session.SetInterpretation(interp)

	slog.Info("COORDINATOR: generating result", "dish", resolved.Dish, "servings", resolved.Servings, "variant", resolved.Variant)

	runID := c.session.BeginRun()

	var (
		ing dishwise.IngredientList
		rec dishwise.Recipe
		nut dishwise.Nutrition
		com dishwise.CommerceResult
	)

	// Commerce only needs the dish name and ingredients gate the other
	// two stages, so those two start together.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		com = c.commerce.Lookup(gctx, resolved.Dish)
		c.session.SetSlot(dishwise.SlotCommerce, com)
		c.logStage(dishwise.SlotCommerce, resolved.Dish, com, nil)
		return nil
	})
	g.Go(func() error {
		ing = c.ingredients.Build(gctx, resolved)
		c.session.SetSlot(dishwise.SlotIngredient, ing)
		c.logStage(dishwise.SlotIngredient, resolved.Dish, ing, nil)

		g2, g2ctx := errgroup.WithContext(gctx)
		g2.Go(func() error {
			rec = c.recipes.Build(g2ctx, ing, resolved.Style)
			c.session.SetSlot(dishwise.SlotRecipe, rec)
			c.logStage(dishwise.SlotRecipe, ing.Dish, rec, nil)
			return nil
		})
		g2.Go(func() error {
			nut = c.nutrition.Estimate(g2ctx, ing)
			c.session.SetSlot(dishwise.SlotNutrition, nut)
			c.logStage(dishwise.SlotNutrition, ing.Dish, nut, nil)
			return nil
		})
		return g2.Wait()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The recipe must present the same dish the interpretation settled
	// on, whatever the oracle called it.
	rec.Dish = resolved.Dish

	result := &dishwise.ComposedResult{
		Dish:        interp.Candidates,
		Ingredients: ing,
		Recipe:      rec,
		Nutrition:   nut,
		Commerce:    com,
	}
	if !c.session.CommitFinal(runID, result) {
		slog.Warn("COORDINATOR: result superseded by a newer run", "run_id", runID)
	}
	return result, nil
}

func (c *Coordinator) logStage(slot, input string, output any, err error) {
	entry := dishwise.StageLog{
		Stage:     slot,
		Timestamp: time.Now(),
		Input:     input,
		Output:    output,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if logErr := c.logger.LogStage(entry); logErr != nil {
		slog.Warn("COORDINATOR: failed to record trace entry", "stage", slot, "error", logErr)
	}
}
