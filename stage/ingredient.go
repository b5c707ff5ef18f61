package stage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"dishwise"
	"dishwise/oracle"
)

// IngredientStage produces the canonical ingredient list for the
// resolved dish. Like all generation stages it never fails: oracle
// errors and malformed replies degrade to a defaulted list.
type IngredientStage struct {
	oracle oracle.Client
}

func NewIngredientStage(client oracle.Client) *IngredientStage {
	return &IngredientStage{oracle: client}
}

func (s *IngredientStage) Build(ctx context.Context, ri dishwise.ResolvedInputs) dishwise.IngredientList {
	prompt := fmt.Sprintf("Dish: %s\nServings: %d\nVariant: %s", ri.Dish, ri.Servings, ri.Variant)
	raw, err := s.oracle.Complete(ctx, oracle.Request{
		System:       ingredientPrompt,
		User:         []oracle.Part{{Text: prompt}},
		SchemaName:   "ingredients",
		Schema:       ingredientSchema,
		AllowInvalid: true,
	})
	m := map[string]any{}
	if err != nil {
		slog.Warn("INGREDIENTS: oracle call failed, using defaults", "error", err)
	} else {
		m = asObject(raw)
	}
	return normalizeIngredients(m, ri)
}

func normalizeIngredients(m map[string]any, ri dishwise.ResolvedInputs) dishwise.IngredientList {
	out := dishwise.IngredientList{
		Dish:               ri.Dish,
		ServingsAssumption: ri.Servings,
		Variant:            ri.Variant,
		Ingredients:        []dishwise.IngredientItem{},
	}
	if v, ok := strField(m, "dish"); ok && v != "" {
		out.Dish = v
	}
	if v, ok := intField(m, "servings_assumption"); ok && v >= 1 {
		out.ServingsAssumption = v
	}
	if v, ok := strField(m, "variant"); ok && v != "" {
		out.Variant = v
	}

	items, ok := arrField(m, "ingredients")
	if !ok {
		items, ok = arrField(m, "ingredients_list")
	}
	if ok {
		for _, it := range items {
			if item := normalizeIngredientItem(it); item.Item != "" {
				out.Ingredients = append(out.Ingredients, item)
			}
		}
		return out
	}

	// Map-keyed form: {"ingredients": {"rice": "2 cups", ...}}.
	if entries, ok := objField(m, "ingredients"); ok {
		names := make([]string, 0, len(entries))
		for name := range entries {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			item := dishwise.IngredientItem{Item: name}
			if q, ok := entries[name].(string); ok {
				item.QuantityRange = q
			}
			out.Ingredients = append(out.Ingredients, item)
		}
	}
	return out
}

func normalizeIngredientItem(v any) dishwise.IngredientItem {
	switch entry := v.(type) {
	case string:
		return dishwise.IngredientItem{Item: entry}
	case map[string]any:
		item := dishwise.IngredientItem{}
		item.Item, _ = strField(entry, "item")
		if item.Item == "" {
			item.Item, _ = strField(entry, "name")
		}
		item.QuantityRange, _ = strField(entry, "quantity_range")
		if item.QuantityRange == "" {
			if q, ok := strField(entry, "quantity"); ok {
				item.QuantityRange = q
			} else if f, ok := numField(entry, "quantity"); ok {
				item.QuantityRange = trimFloat(f)
			}
		}
		item.Unit, _ = strField(entry, "unit")
		return item
	}
	return dishwise.IngredientItem{}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
