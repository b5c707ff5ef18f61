// Package mock provides a deterministic oracle engine for tests and
// offline runs. Responses are keyed by the request's schema name, with a
// built-in default per stage so the pipeline exercises end to end without
// any network. Real models may not be so kind :)
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"dishwise/oracle"
)

type Engine struct {
	mu        sync.Mutex
	responses map[string]json.RawMessage
	errs      map[string]error
	calls     []oracle.Request
}

func New() *Engine {
	return &Engine{
		responses: make(map[string]json.RawMessage),
		errs:      make(map[string]error),
	}
}

func (e *Engine) Name() string { return "mock" }

// Respond registers a canned response for a schema name.
func (e *Engine) Respond(schemaName string, v any) *Engine {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mock: unmarshalable canned response for %s: %v", schemaName, err))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[schemaName] = b
	return e
}

// RespondRaw registers a raw canned response for a schema name.
func (e *Engine) RespondRaw(schemaName, raw string) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[schemaName] = json.RawMessage(raw)
	return e
}

// Fail makes calls for a schema name return err.
func (e *Engine) Fail(schemaName string, err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs[schemaName] = err
	return e
}

// Calls returns the requests seen so far.
func (e *Engine) Calls() []oracle.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]oracle.Request, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallCount returns how many requests carried the given schema name.
func (e *Engine) CallCount(schemaName string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c.SchemaName == schemaName {
			n++
		}
	}
	return n
}

// Complete returns the canned response for the request's schema name,
// falling back to a deterministic default derived from the user text.
func (e *Engine) Complete(ctx context.Context, req oracle.Request) (json.RawMessage, error) {
	e.mu.Lock()
	e.calls = append(e.calls, req)
	canned, ok := e.responses[req.SchemaName]
	failure := e.errs[req.SchemaName]
	e.mu.Unlock()

	slog.Info("ORACLE: mock invoked", "schema", req.SchemaName)

	if failure != nil {
		return nil, failure
	}
	if ok {
		return oracle.Finalize(string(canned), req)
	}
	return oracle.Finalize(string(e.defaultResponse(req)), req)
}

// defaultResponse fabricates a plausible reply per stage so coordinator
// tests run without registering every schema.
func (e *Engine) defaultResponse(req oracle.Request) json.RawMessage {
	dish := "Mixed Vegetable Curry"
	for _, p := range req.User {
		if p.Text == "" {
			continue
		}
		if _, after, ok := strings.Cut(p.Text, "User text: "); ok {
			line := strings.TrimSpace(strings.SplitN(after, "\n", 2)[0])
			if line != "" && line != "N/A" {
				dish = titleCase(strings.SplitN(line, ",", 2)[0])
			}
		}
	}

	var v any
	switch req.SchemaName {
	case "interpret":
		v = map[string]any{
			"input_type": "text",
			"candidates": []map[string]any{
				{"dish": dish, "confidence": 0.82, "cues": []string{"text_match"}},
				{"dish": "Mixed Dish", "confidence": 0.41, "cues": []string{"low_signal"}},
			},
			"cues": map[string]any{
				"variant":             []string{},
				"image_present":       false,
				"text_present":        true,
				"image_quality":       "no_image",
				"uncertainty_reasons": []string{},
			},
			"servings_guess": nil,
		}
	case "clarify":
		v = map[string]any{
			"needs_clarification": false,
			"questions":           []any{},
			"reason":              "inputs sufficient",
		}
	case "ingredients":
		v = map[string]any{
			"dish":                dish,
			"servings_assumption": 2,
			"variant":             "veg",
			"ingredients": []map[string]any{
				{"item": "onion", "quantity_range": "100-150", "unit": "g"},
				{"item": "tomato", "quantity_range": "120-160", "unit": "g"},
				{"item": "oil", "quantity_range": "2-3", "unit": "tbsp"},
			},
		}
	case "recipe":
		v = map[string]any{
			"dish":             dish,
			"ingredients_used": 3,
			"time_minutes":     25,
			"steps": []string{
				"Heat oil and saute onions until golden.",
				"Add tomatoes and cook down to a thick base.",
				"Add the remaining ingredients and simmer.",
				"Season and serve hot.",
			},
		}
	case "nutrition":
		v = map[string]any{
			"servings": 2,
			"per_serving": map[string]any{
				"calories_kcal": 320,
				"protein_g":     9.0,
				"carbs_g":       38.0,
				"fat_g":         14.0,
			},
			"assumptions": []string{"Quantities use midpoint of provided ranges."},
		}
	default:
		v = map[string]any{}
	}

	b, _ := json.Marshal(v)
	return b
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
