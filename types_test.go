package dishwise

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpretationResultTop(t *testing.T) {
	var r InterpretationResult
	_, ok := r.Top()
	assert.False(t, ok)

	r.Candidates = []DishCandidate{{Dish: "Dosa", Confidence: 0.9}, {Dish: "Uttapam", Confidence: 0.3}}
	top, ok := r.Top()
	assert.True(t, ok)
	assert.Equal(t, "Dosa", top.Dish)
}

func TestTruncateCandidates(t *testing.T) {
	r := InterpretationResult{Candidates: []DishCandidate{
		{Dish: "A"}, {Dish: "B"}, {Dish: "C"},
	}}
	r.TruncateCandidates()
	assert.Len(t, r.Candidates, MaxCandidates)
	assert.Equal(t, "A", r.Candidates[0].Dish)

	r.TruncateCandidates()
	assert.Len(t, r.Candidates, MaxCandidates)
}

func TestClarificationAnswersGet(t *testing.T) {
	var nilAnswers ClarificationAnswers
	assert.Empty(t, nilAnswers.Get(QuestionVariant))

	answers := ClarificationAnswers{
		QuestionVariant:  "  chicken  ",
		QuestionServings: "   ",
	}
	assert.Equal(t, "chicken", answers.Get(QuestionVariant))
	assert.Empty(t, answers.Get(QuestionServings))
	assert.Empty(t, answers.Get(QuestionDishName))
}

func TestResolvedInputsIsValid(t *testing.T) {
	assert.True(t, ResolvedInputs{Dish: "Dosa", Servings: 1}.IsValid())
	assert.False(t, ResolvedInputs{Dish: "", Servings: 1}.IsValid())
	assert.False(t, ResolvedInputs{Dish: "Dosa", Servings: 0}.IsValid())
}

func TestComposedResultIsValid(t *testing.T) {
	valid := &ComposedResult{
		Dish:        []DishCandidate{{Dish: "Dosa"}},
		Ingredients: IngredientList{ServingsAssumption: 1},
		Recipe:      Recipe{Dish: "Dosa"},
	}
	assert.True(t, valid.IsValid())

	assert.False(t, (&ComposedResult{}).IsValid())

	noRecipe := *valid
	noRecipe.Recipe.Dish = ""
	assert.False(t, noRecipe.IsValid())
}
