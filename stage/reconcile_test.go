package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dishwise"
)

type stubInterpreter struct {
	result   dishwise.InterpretationResult
	err      error
	lastText string
	calls    int
}

func (s *stubInterpreter) Interpret(_ context.Context, in dishwise.AnalyzeInput) (dishwise.InterpretationResult, error) {
	s.calls++
	s.lastText = in.Text
	return s.result, s.err
}

func intp(n int) *int { return &n }

func baseInterp() dishwise.InterpretationResult {
	return dishwise.InterpretationResult{
		InputType: dishwise.InputText,
		Candidates: []dishwise.DishCandidate{
			{Dish: "Paneer Butter Masala", Confidence: 0.8, Cues: []string{"paneer"}},
			{Dish: "Shahi Paneer", Confidence: 0.4, Cues: []string{"gravy"}},
		},
		Cues: dishwise.InterpretationCues{TextPresent: true, ImageQuality: dishwise.ImageNone},
	}
}

func TestResolveServingsPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		answers dishwise.ClarificationAnswers
		prefs   dishwise.UserPreferences
		guess   *int
		want    int
	}{
		{"answer wins over everything", dishwise.ClarificationAnswers{dishwise.QuestionServings: "4"}, dishwise.UserPreferences{Servings: 2}, intp(3), 4},
		{"answer clamped to one", dishwise.ClarificationAnswers{dishwise.QuestionServings: "0"}, dishwise.UserPreferences{}, nil, 1},
		{"invalid answer falls through to preference", dishwise.ClarificationAnswers{dishwise.QuestionServings: "a few"}, dishwise.UserPreferences{Servings: 3}, nil, 3},
		{"preference wins over guess", nil, dishwise.UserPreferences{Servings: 2}, intp(5), 2},
		{"guess when nothing else", nil, dishwise.UserPreferences{}, intp(3), 3},
		{"zero guess clamped", nil, dishwise.UserPreferences{}, intp(0), 1},
		{"default one", nil, dishwise.UserPreferences{}, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveServings(tt.answers, tt.prefs, tt.guess))
		})
	}
}

func TestResolveVariantPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		answers dishwise.ClarificationAnswers
		prefs   dishwise.UserPreferences
		want    string
	}{
		{"conflict switch to egg", dishwise.ClarificationAnswers{dishwise.QuestionDietConflict: "Switch to egg"}, dishwise.UserPreferences{Diet: dishwise.DietVeg}, "egg"},
		{"conflict switch to chicken", dishwise.ClarificationAnswers{dishwise.QuestionDietConflict: "Switch to chicken"}, dishwise.UserPreferences{Diet: dishwise.DietVeg}, "chicken"},
		{"conflict keep vegetarian", dishwise.ClarificationAnswers{dishwise.QuestionDietConflict: "Keep it vegetarian"}, dishwise.UserPreferences{Diet: dishwise.DietVeg}, "veg"},
		{"conflict beats variant answer", dishwise.ClarificationAnswers{dishwise.QuestionDietConflict: "Keep it vegetarian", dishwise.QuestionVariant: "chicken"}, dishwise.UserPreferences{}, "veg"},
		{"variant answer lowercased", dishwise.ClarificationAnswers{dishwise.QuestionVariant: "Chicken"}, dishwise.UserPreferences{Diet: dishwise.DietVeg}, "chicken"},
		{"diet preference fallback", nil, dishwise.UserPreferences{Diet: dishwise.DietEgg}, "egg"},
		{"default veg", nil, dishwise.UserPreferences{}, "veg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveVariant(tt.answers, tt.prefs))
		})
	}
}

func TestResolveDishNameOverride(t *testing.T) {
	r := NewReconciler(&stubInterpreter{})
	answers := dishwise.ClarificationAnswers{dishwise.QuestionDishName: "masala dosa"}

	interp, resolved, err := r.Resolve(context.Background(), baseInterp(), answers, dishwise.UserPreferences{}, dishwise.AnalyzeInput{})
	require.NoError(t, err)

	require.Len(t, interp.Candidates, 2)
	assert.Equal(t, "Masala Dosa", interp.Candidates[0].Dish)
	assert.Equal(t, 0.95, interp.Candidates[0].Confidence)
	assert.Equal(t, []string{"user_provided"}, interp.Candidates[0].Cues)
	assert.Equal(t, "Paneer Butter Masala", interp.Candidates[1].Dish)
	assert.Equal(t, 0.35, interp.Candidates[1].Confidence)
	assert.Equal(t, []string{"fallback"}, interp.Candidates[1].Cues)

	assert.Equal(t, "Masala Dosa", resolved.Dish)
}

func TestResolveDishChoiceOverride(t *testing.T) {
	r := NewReconciler(&stubInterpreter{})
	answers := dishwise.ClarificationAnswers{dishwise.QuestionDishChoice: "Shahi Paneer"}

	interp, resolved, err := r.Resolve(context.Background(), baseInterp(), answers, dishwise.UserPreferences{}, dishwise.AnalyzeInput{})
	require.NoError(t, err)

	assert.Equal(t, "Shahi Paneer", interp.Candidates[0].Dish)
	assert.Equal(t, []string{"user_selected"}, interp.Candidates[0].Cues)
	assert.Equal(t, "Shahi Paneer", resolved.Dish)
}

func TestResolveOverrideWithEmptyCandidates(t *testing.T) {
	r := NewReconciler(&stubInterpreter{})
	interp := dishwise.InterpretationResult{Cues: dishwise.InterpretationCues{TextPresent: true}}
	answers := dishwise.ClarificationAnswers{dishwise.QuestionDishName: "poha"}

	out, resolved, err := r.Resolve(context.Background(), interp, answers, dishwise.UserPreferences{}, dishwise.AnalyzeInput{})
	require.NoError(t, err)

	require.Len(t, out.Candidates, 2)
	assert.Equal(t, "Poha", out.Candidates[0].Dish)
	assert.Equal(t, "Mixed Dish", out.Candidates[1].Dish)
	assert.Equal(t, "Poha", resolved.Dish)
}

func TestResolveDescriptionReinterprets(t *testing.T) {
	stub := &stubInterpreter{result: dishwise.InterpretationResult{
		Candidates: []dishwise.DishCandidate{{Dish: "Chole Bhature", Confidence: 0.85}},
		Cues:       dishwise.InterpretationCues{TextPresent: true},
	}}
	r := NewReconciler(stub)
	answers := dishwise.ClarificationAnswers{dishwise.QuestionDishDescription: "fried bread with chickpea curry"}

	interp, resolved, err := r.Resolve(context.Background(), baseInterp(), answers, dishwise.UserPreferences{}, dishwise.AnalyzeInput{Text: "old text"})
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "fried bread with chickpea curry", stub.lastText)
	assert.Equal(t, "Chole Bhature", interp.Candidates[0].Dish)
	assert.True(t, interp.Cues.TextPresent)
	assert.Equal(t, "Chole Bhature", resolved.Dish)
}

func TestResolveDescriptionFailurePropagates(t *testing.T) {
	stub := &stubInterpreter{err: errors.New("oracle down")}
	r := NewReconciler(stub)
	answers := dishwise.ClarificationAnswers{dishwise.QuestionDishDescription: "some curry"}

	_, _, err := r.Resolve(context.Background(), baseInterp(), answers, dishwise.UserPreferences{}, dishwise.AnalyzeInput{})
	require.Error(t, err)
}

func TestResolveNoAnswers(t *testing.T) {
	r := NewReconciler(&stubInterpreter{})

	interp, resolved, err := r.Resolve(context.Background(), baseInterp(), nil, dishwise.UserPreferences{Diet: dishwise.DietVeg, Servings: 2, Style: dishwise.StyleRestaurant}, dishwise.AnalyzeInput{})
	require.NoError(t, err)

	assert.Equal(t, baseInterp(), interp)
	assert.Equal(t, dishwise.ResolvedInputs{
		Dish:     "Paneer Butter Masala",
		Servings: 2,
		Variant:  "veg",
		Style:    "restaurant-style",
	}, resolved)
	assert.True(t, resolved.IsValid())
}

func TestResolveEmptyInterpretationFallsBackToMixedDish(t *testing.T) {
	r := NewReconciler(&stubInterpreter{})
	interp := dishwise.InterpretationResult{}

	_, resolved, err := r.Resolve(context.Background(), interp, nil, dishwise.UserPreferences{}, dishwise.AnalyzeInput{})
	require.NoError(t, err)
	assert.Equal(t, "Mixed Dish", resolved.Dish)
	assert.Equal(t, 1, resolved.Servings)
}
