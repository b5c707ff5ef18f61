package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"dishwise"
	"dishwise/oracle"
)

// NutritionStage estimates per-serving macros from the ingredient list.
type NutritionStage struct {
	oracle oracle.Client
}

func NewNutritionStage(client oracle.Client) *NutritionStage {
	return &NutritionStage{oracle: client}
}

func (s *NutritionStage) Estimate(ctx context.Context, ing dishwise.IngredientList) dishwise.Nutrition {
	ingJSON, _ := json.Marshal(ing.Ingredients)
	prompt := fmt.Sprintf("Dish: %s\nServings: %d\nVariant: %s\nIngredients: %s",
		ing.Dish, ing.ServingsAssumption, ing.Variant, ingJSON)
	raw, err := s.oracle.Complete(ctx, oracle.Request{
		System:       nutritionPrompt,
		User:         []oracle.Part{{Text: prompt}},
		SchemaName:   "nutrition",
		Schema:       nutritionSchema,
		AllowInvalid: true,
	})
	m := map[string]any{}
	if err != nil {
		slog.Warn("NUTRITION: oracle call failed, using defaults", "error", err)
	} else {
		m = asObject(raw)
	}
	return normalizeNutrition(m, ing)
}

func normalizeNutrition(m map[string]any, ing dishwise.IngredientList) dishwise.Nutrition {
	out := dishwise.Nutrition{
		Servings:    ing.ServingsAssumption,
		Assumptions: []string{},
	}
	if out.Servings < 1 {
		out.Servings = 1
	}
	if v, ok := intField(m, "servings"); ok && v >= 1 {
		out.Servings = v
	}

	// Canonical replies nest macros under per_serving; flat replies put
	// them at the top level under looser names.
	macros := m
	if inner, ok := objField(m, "per_serving"); ok {
		macros = inner
	}
	if v, ok := firstNum(macros, "calories_kcal", "calories_per_serving", "calories"); ok {
		out.PerServing.CaloriesKcal = int(v)
	}
	if v, ok := firstNum(macros, "protein_g", "protein"); ok {
		out.PerServing.ProteinG = v
	}
	if v, ok := firstNum(macros, "carbs_g", "carbs", "carbohydrates"); ok {
		out.PerServing.CarbsG = v
	}
	if v, ok := firstNum(macros, "fat_g", "fat"); ok {
		out.PerServing.FatG = v
	}

	if assumptions, ok := arrField(m, "assumptions"); ok {
		out.Assumptions = strSlice(assumptions)
	}
	if out.Assumptions == nil {
		out.Assumptions = []string{}
	}
	return out
}
