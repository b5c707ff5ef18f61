package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"dishwise"
	"dishwise/oracle"
)

// defaultTimeMinutes stands in when the oracle omits a cooking time.
const defaultTimeMinutes = 25

// RecipeStage writes the cooking steps from the finished ingredient
// list. It depends on the ingredient stage's output, never on the raw
// interpretation.
type RecipeStage struct {
	oracle oracle.Client
}

func NewRecipeStage(client oracle.Client) *RecipeStage {
	return &RecipeStage{oracle: client}
}

func (s *RecipeStage) Build(ctx context.Context, ing dishwise.IngredientList, style string) dishwise.Recipe {
	ingJSON, _ := json.Marshal(ing.Ingredients)
	prompt := fmt.Sprintf("Dish: %s\nServings: %d\nStyle: %s\nIngredients: %s",
		ing.Dish, ing.ServingsAssumption, style, ingJSON)
	raw, err := s.oracle.Complete(ctx, oracle.Request{
		System:       recipePrompt,
		User:         []oracle.Part{{Text: prompt}},
		SchemaName:   "recipe",
		Schema:       recipeSchema,
		AllowInvalid: true,
	})
	m := map[string]any{}
	if err != nil {
		slog.Warn("RECIPE: oracle call failed, using defaults", "error", err)
	} else {
		m = asObject(raw)
	}
	return normalizeRecipe(m, ing)
}

func normalizeRecipe(m map[string]any, ing dishwise.IngredientList) dishwise.Recipe {
	// Some replies wrap everything in a "recipe" envelope.
	if inner, ok := objField(m, "recipe"); ok {
		m = inner
	}

	out := dishwise.Recipe{
		Dish:            ing.Dish,
		IngredientsUsed: len(ing.Ingredients),
		TimeMinutes:     defaultTimeMinutes,
		Steps:           []string{},
	}
	if v, ok := strField(m, "dish"); ok && v != "" {
		out.Dish = v
	} else if v, ok := strField(m, "name"); ok && v != "" {
		out.Dish = v
	}
	if v, ok := firstNum(m, "time_minutes", "time"); ok && v > 0 {
		out.TimeMinutes = int(v)
	}
	if steps, ok := arrField(m, "steps"); ok {
		out.Steps = strSlice(steps)
	}
	if out.Steps == nil {
		out.Steps = []string{}
	}
	return out
}
