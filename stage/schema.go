package stage

import "github.com/modelcontextprotocol/go-sdk/jsonschema"

// Declared response schemas, embedded into every oracle prompt and used
// for strict-mode validation. Only the interpreter validates strictly;
// the other stages accept whatever object comes back and normalize
// field by field.

var interpretSchema = func() *jsonschema.Schema {
	zero := 0.0
	one := 1.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"input_type": {Type: "string", Enum: []any{"text", "image", "image+text"}},
			"candidates": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"dish":       {Type: "string"},
						"confidence": {Type: "number", Minimum: &zero, Maximum: &one},
						"cues":       {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
					},
					Required: []string{"dish", "confidence"},
				},
			},
			"cues": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"variant":             {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
					"image_present":       {Type: "boolean"},
					"text_present":        {Type: "boolean"},
					"image_quality":       {Type: "string", Enum: []any{"clear", "unclear", "no_image"}},
					"uncertainty_reasons": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				},
			},
			"servings_guess": {Types: []string{"integer", "null"}},
		},
		// No required fields: replies naming candidates under an alias
		// key would otherwise be rejected before normalization can
		// backfill them.
	}
}()

var clarifySchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"needs_clarification": {Type: "boolean"},
		"questions": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id":       {Type: "string"},
					"question": {Type: "string"},
				},
				Required: []string{"question"},
			},
		},
		"reason": {Type: "string"},
	},
}

var ingredientSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"dish":                {Type: "string"},
		"servings_assumption": {Type: "integer"},
		"variant":             {Type: "string"},
		"ingredients": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"item":           {Type: "string"},
					"quantity_range": {Type: "string"},
					"unit":           {Type: "string"},
				},
				Required: []string{"item"},
			},
		},
	},
}

var recipeSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"dish":             {Type: "string"},
		"ingredients_used": {Type: "integer"},
		"time_minutes":     {Type: "integer"},
		"steps":            {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
	},
}

var nutritionSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"servings": {Type: "integer"},
		"per_serving": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"calories_kcal": {Type: "integer"},
				"protein_g":     {Type: "number"},
				"carbs_g":       {Type: "number"},
				"fat_g":         {Type: "number"},
			},
		},
		"assumptions": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
	},
}
