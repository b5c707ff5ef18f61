package dishwise

import (
	"context"
	"strings"
)

// InputType classifies what the user gave us to work with.
type InputType string

const (
	InputText      InputType = "text"
	InputImage     InputType = "image"
	InputImageText InputType = "image+text"
)

// ImageQuality is the interpreter's assessment of the uploaded photo.
type ImageQuality string

const (
	ImageClear   ImageQuality = "clear"
	ImageUnclear ImageQuality = "unclear"
	ImageNone    ImageQuality = "no_image"
)

// QuestionID identifies a clarification question. It is the only field
// downstream components key off of.
type QuestionID string

const (
	QuestionDishName        QuestionID = "dish_name"
	QuestionDishChoice      QuestionID = "dish_choice"
	QuestionServings        QuestionID = "servings"
	QuestionVariant         QuestionID = "variant"
	QuestionDishDescription QuestionID = "dish_description"
	QuestionDietConflict    QuestionID = "diet_conflict"
)

// Diet is the user's dietary preference, set once per session.
type Diet string

const (
	DietVeg    Diet = "veg"
	DietEgg    Diet = "egg"
	DietNonVeg Diet = "non-veg"
)

// Style selects the cooking style for recipe generation.
type Style string

const (
	StyleHome       Style = "home-style"
	StyleRestaurant Style = "restaurant-style"
)

// MaxCandidates caps the interpreter's ranked dish guesses.
const MaxCandidates = 2

// MaxQuestions caps the clarification questions per round.
const MaxQuestions = 2

// DishCandidate is one ranked dish guess from the interpreter.
type DishCandidate struct {
	Dish       string   `json:"dish"`
	Confidence float64  `json:"confidence"`
	Cues       []string `json:"cues"`
}

// InterpretationCues are the extraction signals the interpreter surfaces
// alongside its candidates.
type InterpretationCues struct {
	Variant            []string     `json:"variant"`
	ImagePresent       bool         `json:"image_present"`
	TextPresent        bool         `json:"text_present"`
	ImageQuality       ImageQuality `json:"image_quality"`
	UncertaintyReasons []string     `json:"uncertainty_reasons"`
}

// InterpretationResult is the interpreter's output for one analysis.
// Candidates hold at most two entries ordered by descending confidence;
// entry 0 drives generation unless reconciliation substitutes it.
type InterpretationResult struct {
	InputType     InputType          `json:"input_type"`
	Candidates    []DishCandidate    `json:"candidates"`
	Cues          InterpretationCues `json:"cues"`
	ServingsGuess *int               `json:"servings_guess"`
}

// Top returns the leading candidate, if any.
func (r *InterpretationResult) Top() (DishCandidate, bool) {
	if len(r.Candidates) == 0 {
		return DishCandidate{}, false
	}
	return r.Candidates[0], true
}

// TruncateCandidates enforces the two-candidate cap without reordering.
func (r *InterpretationResult) TruncateCandidates() {
	if len(r.Candidates) > MaxCandidates {
		r.Candidates = r.Candidates[:MaxCandidates]
	}
}

// ClarificationQuestion is one follow-up question for the user.
type ClarificationQuestion struct {
	ID       QuestionID `json:"id"`
	Question string     `json:"question"`
}

// ClarificationDecision is the clarify engine's verdict. NeedsClarification
// is always recomputed from len(Questions); the oracle's own claim is
// never trusted.
type ClarificationDecision struct {
	NeedsClarification bool                    `json:"needs_clarification"`
	Questions          []ClarificationQuestion `json:"questions"`
	Reason             string                  `json:"reason"`
}

// UserPreferences are set once before analysis and read-only during a run.
// Servings of 0 means "not set".
type UserPreferences struct {
	Diet     Diet  `json:"diet"`
	Servings int   `json:"servings"`
	Style    Style `json:"style"`
}

// ClarificationAnswers map question ids to the user's raw answers. They
// are consumed exactly once per clarification round.
type ClarificationAnswers map[QuestionID]string

// Get returns the trimmed answer for id, or "" when absent or blank.
func (a ClarificationAnswers) Get(id QuestionID) string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a[id])
}

// ResolvedInputs is the single reconciled tuple every generation stage
// consumes. Servings is always >= 1.
type ResolvedInputs struct {
	Dish     string `json:"dish"`
	Servings int    `json:"servings"`
	Variant  string `json:"variant"`
	Style    string `json:"style"`
}

// IsValid checks the invariants downstream stages rely on.
func (ri ResolvedInputs) IsValid() bool {
	return ri.Dish != "" && ri.Servings >= 1
}

// IngredientItem is one entry of a generated ingredient list.
type IngredientItem struct {
	Item          string `json:"item"`
	QuantityRange string `json:"quantity_range"`
	Unit          string `json:"unit"`
}

// IngredientList is the ingredient stage's canonical output.
type IngredientList struct {
	Dish               string           `json:"dish"`
	ServingsAssumption int              `json:"servings_assumption"`
	Variant            string           `json:"variant"`
	Ingredients        []IngredientItem `json:"ingredients"`
}

// Recipe is the recipe stage's canonical output.
type Recipe struct {
	Dish            string   `json:"dish"`
	IngredientsUsed int      `json:"ingredients_used"`
	TimeMinutes     int      `json:"time_minutes"`
	Steps           []string `json:"steps"`
}

// NutritionPerServing holds per-serving macro estimates.
type NutritionPerServing struct {
	CaloriesKcal int     `json:"calories_kcal"`
	ProteinG     float64 `json:"protein_g"`
	CarbsG       float64 `json:"carbs_g"`
	FatG         float64 `json:"fat_g"`
}

// Nutrition is the nutrition stage's canonical output. Values are
// model-estimated approximations, not verified against a database.
type Nutrition struct {
	Servings    int                 `json:"servings"`
	PerServing  NutritionPerServing `json:"per_serving"`
	Assumptions []string            `json:"assumptions"`
}

// CommerceStatus describes the outcome of an external offer lookup.
type CommerceStatus string

const (
	CommerceDisabled     CommerceStatus = "disabled"
	CommerceUnavailable  CommerceStatus = "unavailable"
	CommerceUnauthorized CommerceStatus = "unauthorized"
	CommerceAvailable    CommerceStatus = "available"
	CommerceMock         CommerceStatus = "mock"
)

// CommerceOffer is one marketplace option for the resolved dish.
type CommerceOffer struct {
	Name       string `json:"name"`
	Price      string `json:"price"`
	ETAMinutes int    `json:"eta_minutes"`
}

// CommerceQuote is the deterministic order estimate attached to mock results.
type CommerceQuote struct {
	Items          []string `json:"items"`
	EstimatedTotal string   `json:"estimated_total"`
}

// CommerceResult always has a usable shape: on any integration failure the
// status degrades and Results/Message explain, but lookups never error out.
type CommerceResult struct {
	Status  CommerceStatus  `json:"status"`
	Results []CommerceOffer `json:"results,omitempty"`
	Source  string          `json:"source,omitempty"`
	Message string          `json:"message,omitempty"`
	Quote   *CommerceQuote  `json:"quote,omitempty"`
}

// ImageMeta describes a validated uploaded image.
type ImageMeta struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Mode   string `json:"mode"`
}

// ComposedResult is the final joined output of one pipeline run.
type ComposedResult struct {
	Dish        []DishCandidate `json:"dish"`
	Ingredients IngredientList  `json:"ingredients"`
	Recipe      Recipe          `json:"recipe"`
	Nutrition   Nutrition       `json:"nutrition"`
	Commerce    CommerceResult  `json:"commerce"`
}

// IsValid checks that a composed result carries enough to present.
func (cr *ComposedResult) IsValid() bool {
	if len(cr.Dish) == 0 || cr.Dish[0].Dish == "" {
		return false
	}
	if cr.Recipe.Dish == "" {
		return false
	}
	return cr.Ingredients.ServingsAssumption >= 1
}

// CommerceLookup is the boundary to the external offer marketplace.
type CommerceLookup interface {
	Lookup(ctx context.Context, dish string) CommerceResult
}

// Pipeline is what a front end drives: interpret inputs, decide on
// clarification, then apply answers to produce the composed result.
type Pipeline interface {
	Analyze(ctx context.Context, in AnalyzeInput) (InterpretationResult, ClarificationDecision, error)
	ApplyAnswers(ctx context.Context, answers ClarificationAnswers) (*ComposedResult, error)
	Generate(ctx context.Context) (*ComposedResult, error)
}

// AnalyzeInput carries the session's raw inputs into the pipeline.
type AnalyzeInput struct {
	Text      string
	ImageMeta *ImageMeta
	ImageData string // data URL, forwarded to the oracle when present
}
