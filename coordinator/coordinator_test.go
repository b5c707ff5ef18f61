package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dishwise"
	"dishwise/oracle/mock"
)

type stubLookup struct {
	lastDish string
	result   dishwise.CommerceResult
}

func (s *stubLookup) Lookup(_ context.Context, dish string) dishwise.CommerceResult {
	s.lastDish = dish
	return s.result
}

type recordingTraceLogger struct {
	entries []dishwise.StageLog
}

func (l *recordingTraceLogger) LogStage(entry dishwise.StageLog) error {
	l.entries = append(l.entries, entry)
	return nil
}

func (l *recordingTraceLogger) stages() []string {
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Stage)
	}
	return out
}

func agentConfig() dishwise.AgentConfig {
	return dishwise.AgentConfig{MaxQuestions: dishwise.MaxQuestions, NonVegTokens: "chicken,mutton,fish,egg"}
}

func pbmOracle() *mock.Engine {
	return mock.New().
		Respond("interpret", map[string]any{
			"input_type": "text",
			"candidates": []map[string]any{
				{"dish": "Paneer Butter Masala", "confidence": 0.85, "cues": []string{"paneer", "butter"}},
				{"dish": "Shahi Paneer", "confidence": 0.35, "cues": []string{"gravy"}},
			},
			"cues": map[string]any{
				"variant":             []string{"veg"},
				"image_present":       false,
				"text_present":        true,
				"image_quality":       "no_image",
				"uncertainty_reasons": []string{},
			},
			"servings_guess": 2,
		}).
		Respond("clarify", map[string]any{
			"needs_clarification": false,
			"questions":           []string{},
			"reason":              "dish is specific",
		}).
		Respond("ingredients", map[string]any{
			"dish":                "Paneer Butter Masala",
			"servings_assumption": 2,
			"variant":             "veg",
			"ingredients": []map[string]string{
				{"item": "paneer", "quantity_range": "200-250", "unit": "g"},
				{"item": "butter", "quantity_range": "2", "unit": "tbsp"},
				{"item": "tomato", "quantity_range": "3", "unit": "pieces"},
			},
		}).
		Respond("recipe", map[string]any{
			"dish":         "Butter Paneer Gravy",
			"time_minutes": 40,
			"steps":        []string{"Blend tomatoes.", "Simmer gravy.", "Fold in paneer."},
		}).
		Respond("nutrition", map[string]any{
			"servings":    2,
			"per_serving": map[string]any{"calories_kcal": 450, "protein_g": 18.5, "carbs_g": 22.0, "fat_g": 32.0},
			"assumptions": []string{"full-fat paneer"},
		})
}

func TestAnalyzeHappyPath(t *testing.T) {
	session := dishwise.NewSession(dishwise.UserPreferences{Diet: dishwise.DietVeg})
	c := New(pbmOracle(), &stubLookup{}, agentConfig(), session, dishwise.NewNoOpTraceLogger())

	interp, decision, err := c.Analyze(context.Background(), dishwise.AnalyzeInput{Text: "paneer butter masala, 2 servings"})
	require.NoError(t, err)

	require.Len(t, interp.Candidates, 2)
	assert.Equal(t, "Paneer Butter Masala", interp.Candidates[0].Dish)
	assert.False(t, decision.NeedsClarification)

	stored, ok := session.Interpretation()
	require.True(t, ok)
	assert.Equal(t, interp, stored)
	_, ok = session.Decision()
	assert.True(t, ok)
}

func TestAnalyzeInterpretationFailureHalts(t *testing.T) {
	client := mock.New().Fail("interpret", errors.New("oracle down"))
	session := dishwise.NewSession(dishwise.UserPreferences{})
	logger := &recordingTraceLogger{}
	c := New(client, &stubLookup{}, agentConfig(), session, logger)

	_, _, err := c.Analyze(context.Background(), dishwise.AnalyzeInput{Text: "anything"})
	require.Error(t, err)

	require.Len(t, logger.entries, 1)
	assert.Equal(t, dishwise.SlotInterpreter, logger.entries[0].Stage)
	assert.NotEmpty(t, logger.entries[0].Error)
	_, ok := session.Interpretation()
	assert.False(t, ok)
}

func TestGenerateWithoutAnalyzeFails(t *testing.T) {
	session := dishwise.NewSession(dishwise.UserPreferences{})
	c := New(mock.New(), &stubLookup{}, agentConfig(), session, dishwise.NewNoOpTraceLogger())

	_, err := c.Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Analyze")
}

func TestEndToEndTextOnly(t *testing.T) {
	session := dishwise.NewSession(dishwise.UserPreferences{Diet: dishwise.DietVeg})
	lookup := &stubLookup{result: dishwise.CommerceResult{Status: dishwise.CommerceDisabled, Message: "disabled"}}
	logger := &recordingTraceLogger{}
	c := New(pbmOracle(), lookup, agentConfig(), session, logger)

	_, decision, err := c.Analyze(context.Background(), dishwise.AnalyzeInput{Text: "paneer butter masala, 2 servings"})
	require.NoError(t, err)
	require.False(t, decision.NeedsClarification)

	result, err := c.Generate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.IsValid())
	assert.Equal(t, "Paneer Butter Masala", result.Dish[0].Dish)
	assert.Equal(t, 2, result.Ingredients.ServingsAssumption)
	assert.Len(t, result.Ingredients.Ingredients, 3)
	assert.NotEmpty(t, result.Recipe.Steps)
	assert.Equal(t, 450, result.Nutrition.PerServing.CaloriesKcal)
	assert.Equal(t, dishwise.CommerceDisabled, result.Commerce.Status)
	assert.Equal(t, "Paneer Butter Masala", lookup.lastDish)

	// The recipe always presents the resolved dish, not the oracle's
	// own naming.
	assert.Equal(t, "Paneer Butter Masala", result.Recipe.Dish)

	final, ok := session.Final()
	require.True(t, ok)
	assert.Equal(t, result, final)

	assert.ElementsMatch(t, []string{
		dishwise.SlotInterpreter,
		dishwise.SlotClarifier,
		dishwise.SlotIngredient,
		dishwise.SlotRecipe,
		dishwise.SlotNutrition,
		dishwise.SlotCommerce,
	}, logger.stages())

	snapshot := session.Snapshot()
	assert.Contains(t, snapshot, dishwise.SlotCommerce)
	assert.Contains(t, snapshot, dishwise.SlotRecipe)
}

func TestApplyAnswersDishChoice(t *testing.T) {
	session := dishwise.NewSession(dishwise.UserPreferences{Diet: dishwise.DietVeg, Servings: 3})
	c := New(pbmOracle(), &stubLookup{result: dishwise.CommerceResult{Status: dishwise.CommerceDisabled}}, agentConfig(), session, dishwise.NewNoOpTraceLogger())

	_, _, err := c.Analyze(context.Background(), dishwise.AnalyzeInput{Text: "paneer dish"})
	require.NoError(t, err)

	result, err := c.ApplyAnswers(context.Background(), dishwise.ClarificationAnswers{
		dishwise.QuestionDishChoice: "Shahi Paneer",
	})
	require.NoError(t, err)

	assert.Equal(t, "Shahi Paneer", result.Dish[0].Dish)
	assert.Equal(t, []string{"user_selected"}, result.Dish[0].Cues)
	assert.Equal(t, "Shahi Paneer", result.Recipe.Dish)

	interp, ok := session.Interpretation()
	require.True(t, ok)
	assert.Equal(t, "Shahi Paneer", interp.Candidates[0].Dish)
}

func TestGenerateSupersedesPreviousRun(t *testing.T) {
	session := dishwise.NewSession(dishwise.UserPreferences{})
	c := New(pbmOracle(), &stubLookup{result: dishwise.CommerceResult{Status: dishwise.CommerceDisabled}}, agentConfig(), session, dishwise.NewNoOpTraceLogger())

	_, _, err := c.Analyze(context.Background(), dishwise.AnalyzeInput{Text: "paneer butter masala"})
	require.NoError(t, err)

	first, err := c.Generate(context.Background())
	require.NoError(t, err)
	second, err := c.ApplyAnswers(context.Background(), dishwise.ClarificationAnswers{
		dishwise.QuestionDishName: "veg kofta",
	})
	require.NoError(t, err)

	final, ok := session.Final()
	require.True(t, ok)
	assert.Same(t, second, final)
	assert.NotSame(t, first, final)
}

func TestGenerateDegradedOracleStillComposes(t *testing.T) {
	client := mock.New().
		Respond("interpret", map[string]any{
			"candidates": []map[string]any{{"dish": "Veg Pulao", "confidence": 0.7}},
		}).
		Fail("ingredients", errors.New("oracle down")).
		Fail("recipe", errors.New("oracle down")).
		Fail("nutrition", errors.New("oracle down"))
	session := dishwise.NewSession(dishwise.UserPreferences{Servings: 2})
	c := New(client, &stubLookup{result: dishwise.CommerceResult{Status: dishwise.CommerceDisabled}}, agentConfig(), session, dishwise.NewNoOpTraceLogger())

	_, _, err := c.Analyze(context.Background(), dishwise.AnalyzeInput{Text: "veg pulao"})
	require.NoError(t, err)

	result, err := c.Generate(context.Background())
	require.NoError(t, err)

	assert.True(t, result.IsValid())
	assert.Equal(t, "Veg Pulao", result.Recipe.Dish)
	assert.Equal(t, 2, result.Ingredients.ServingsAssumption)
	assert.Empty(t, result.Ingredients.Ingredients)
	assert.Empty(t, result.Recipe.Steps)
	assert.Equal(t, 0, result.Nutrition.PerServing.CaloriesKcal)
}
