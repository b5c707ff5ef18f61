package stage

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"dishwise"
)

// interpretRunner is the slice of Interpreter the reconciler needs for a
// dish_description re-run.
type interpretRunner interface {
	Interpret(ctx context.Context, in dishwise.AnalyzeInput) (dishwise.InterpretationResult, error)
}

// Reconciler folds clarification answers and preferences into the
// interpretation and produces the single resolved tuple generation runs
// on. Apart from a dish_description re-interpretation it is entirely
// deterministic.
type Reconciler struct {
	interpreter interpretRunner
}

func NewReconciler(interpreter interpretRunner) *Reconciler {
	return &Reconciler{interpreter: interpreter}
}

// Resolve applies answers in a fixed precedence order and returns the
// possibly updated interpretation plus the resolved inputs. Only a
// failed re-interpretation can error.
func (r *Reconciler) Resolve(ctx context.Context, interp dishwise.InterpretationResult, answers dishwise.ClarificationAnswers, prefs dishwise.UserPreferences, in dishwise.AnalyzeInput) (dishwise.InterpretationResult, dishwise.ResolvedInputs, error) {
	if desc := answers.Get(dishwise.QuestionDishDescription); desc != "" {
		slog.Debug("RECONCILER: re-interpreting with user description")
		redo := in
		redo.Text = desc
		updated, err := r.interpreter.Interpret(ctx, redo)
		if err != nil {
			return interp, dishwise.ResolvedInputs{}, err
		}
		interp = updated
	}

	if name := answers.Get(dishwise.QuestionDishName); name != "" {
		interp.Candidates = overrideCandidates(interp.Candidates, name, "user_provided")
	}
	if choice := answers.Get(dishwise.QuestionDishChoice); choice != "" {
		interp.Candidates = overrideCandidates(interp.Candidates, choice, "user_selected")
	}

	resolved := dishwise.ResolvedInputs{
		Dish:     "Mixed Dish",
		Servings: resolveServings(answers, prefs, interp.ServingsGuess),
		Variant:  resolveVariant(answers, prefs),
		Style:    resolveStyle(prefs),
	}
	if top, ok := interp.Top(); ok && top.Dish != "" {
		resolved.Dish = top.Dish
	}
	return interp, resolved, nil
}

// overrideCandidates replaces the candidate list with the user's dish at
// high confidence, keeping the previous leader (or a neutral placeholder)
// as a low-confidence second entry.
func overrideCandidates(prev []dishwise.DishCandidate, dish, cue string) []dishwise.DishCandidate {
	second := "Mixed Dish"
	if len(prev) > 0 && prev[0].Dish != "" {
		second = prev[0].Dish
	}
	return []dishwise.DishCandidate{
		{Dish: titleCase(dish), Confidence: 0.95, Cues: []string{cue}},
		{Dish: second, Confidence: 0.35, Cues: []string{"fallback"}},
	}
}

// resolveServings: explicit answer beats stated preference beats the
// interpreter's guess beats 1. A non-numeric answer is ignored rather
// than treated as 1.
func resolveServings(answers dishwise.ClarificationAnswers, prefs dishwise.UserPreferences, guess *int) int {
	if raw := answers.Get(dishwise.QuestionServings); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return clampServings(n)
		}
		slog.Warn("RECONCILER: ignoring non-numeric servings answer", "answer", raw)
	}
	if prefs.Servings > 0 {
		return clampServings(prefs.Servings)
	}
	if guess != nil {
		return clampServings(*guess)
	}
	return 1
}

func clampServings(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// resolveVariant: a diet_conflict resolution wins, then an explicit
// variant answer, then the diet preference. The conflict answer is
// matched loosely because it arrives as free text or a button label.
func resolveVariant(answers dishwise.ClarificationAnswers, prefs dishwise.UserPreferences) string {
	if raw := answers.Get(dishwise.QuestionDietConflict); raw != "" {
		lower := strings.ToLower(raw)
		switch {
		case strings.Contains(lower, "egg"):
			return "egg"
		case strings.Contains(lower, "chicken"):
			return "chicken"
		default:
			return "veg"
		}
	}
	if raw := answers.Get(dishwise.QuestionVariant); raw != "" {
		return strings.ToLower(raw)
	}
	if prefs.Diet != "" {
		return strings.ToLower(string(prefs.Diet))
	}
	return string(dishwise.DietVeg)
}

func resolveStyle(prefs dishwise.UserPreferences) string {
	if prefs.Style != "" {
		return strings.ToLower(string(prefs.Style))
	}
	return string(dishwise.StyleHome)
}

// titleCase capitalizes each space-separated word. strings.Title is
// deprecated and its casing rules are broader than needed here.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
