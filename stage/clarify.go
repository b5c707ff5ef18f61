package stage

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"dishwise"
	"dishwise/oracle"
)

// ClarifyEngine decides whether the user must answer anything before
// generation runs. The oracle only proposes; every proposal passes
// through deterministic id inference, policy filtering, diet-conflict
// override, and fallback synthesis, so the engine degrades to a usable
// decision even when the oracle returns garbage or nothing at all.
type ClarifyEngine struct {
	oracle       oracle.Client
	maxQuestions int
	nonVegTokens []string
}

func NewClarifyEngine(client oracle.Client, cfg dishwise.AgentConfig) *ClarifyEngine {
	return &ClarifyEngine{
		oracle:       client,
		maxQuestions: cfg.MaxQuestions,
		nonVegTokens: cfg.NonVegTokenList(),
	}
}

// Decide runs the full gate. It never returns an error: an oracle
// failure is treated as an empty proposal and the deterministic steps
// take over.
func (e *ClarifyEngine) Decide(ctx context.Context, interp dishwise.InterpretationResult, prefs dishwise.UserPreferences) dishwise.ClarificationDecision {
	questions, reason := e.propose(ctx, interp, prefs)

	questions = FilterQuestions(questions)

	if DietConflict(interp, prefs, e.nonVegTokens) {
		questions = []dishwise.ClarificationQuestion{{
			ID:       dishwise.QuestionDietConflict,
			Question: "Your preference is vegetarian but this dish looks non-vegetarian. Keep it vegetarian, or switch?",
		}}
		reason = "diet preference conflicts with detected dish"
	}

	if len(questions) == 0 {
		questions = e.fallback(interp)
		if len(questions) > 0 {
			reason = "input too ambiguous to proceed"
		}
	}

	if len(questions) > e.maxQuestions {
		questions = questions[:e.maxQuestions]
	}
	if reason == "" {
		if len(questions) > 0 {
			reason = "auto_normalized"
		} else {
			reason = "interpretation is specific enough"
		}
	}

	decision := dishwise.ClarificationDecision{
		NeedsClarification: len(questions) > 0,
		Questions:          questions,
		Reason:             reason,
	}
	slog.Debug("CLARIFIER: decision made", "needs_clarification", decision.NeedsClarification, "questions", len(decision.Questions))
	return decision
}

// propose asks the oracle in relaxed mode and normalizes whatever comes
// back. Malformed entries are repaired, not rejected.
func (e *ClarifyEngine) propose(ctx context.Context, interp dishwise.InterpretationResult, prefs dishwise.UserPreferences) ([]dishwise.ClarificationQuestion, string) {
	payload, err := json.Marshal(map[string]any{
		"interpretation": interp,
		"preferences":    prefs,
	})
	if err != nil {
		return nil, ""
	}

	raw, err := e.oracle.Complete(ctx, oracle.Request{
		System:       clarifyPrompt,
		User:         []oracle.Part{{Text: string(payload)}},
		SchemaName:   "clarify",
		Schema:       clarifySchema,
		AllowInvalid: true,
	})
	if err != nil {
		slog.Warn("CLARIFIER: oracle proposal failed, continuing without it", "error", err)
		return nil, ""
	}

	m := asObject(raw)
	reason, _ := strField(m, "reason")
	items, _ := arrField(m, "questions")

	questions := make([]dishwise.ClarificationQuestion, 0, len(items))
	for _, it := range items {
		var q dishwise.ClarificationQuestion
		switch v := it.(type) {
		case string:
			q = dishwise.ClarificationQuestion{Question: strings.TrimSpace(v)}
		case map[string]any:
			text, _ := strField(v, "question")
			id, _ := strField(v, "id")
			q = dishwise.ClarificationQuestion{ID: dishwise.QuestionID(strings.TrimSpace(id)), Question: strings.TrimSpace(text)}
		}
		if q.Question == "" {
			continue
		}
		if !knownQuestionID(q.ID) {
			q.ID = InferQuestionID(q.Question)
		}
		questions = append(questions, q)
		if len(questions) == e.maxQuestions {
			break
		}
	}
	return questions, reason
}

// ambiguousConfidence is the top-candidate confidence below which a
// multi-candidate interpretation is not trusted to pick on its own.
const ambiguousConfidence = 0.6

// fallback synthesizes a question when filtering left nothing but the
// interpretation is still too weak to generate from. A confident top
// candidate never triggers a question here.
func (e *ClarifyEngine) fallback(interp dishwise.InterpretationResult) []dishwise.ClarificationQuestion {
	unusableImage := interp.Cues.ImagePresent && interp.Cues.ImageQuality != dishwise.ImageClear
	if unusableImage && !interp.Cues.TextPresent {
		return []dishwise.ClarificationQuestion{{
			ID:       dishwise.QuestionDishDescription,
			Question: "The photo is unclear. Can you describe the dish in a few words?",
		}}
	}
	if len(interp.Candidates) >= 2 && interp.Candidates[0].Confidence < ambiguousConfidence {
		return []dishwise.ClarificationQuestion{{
			ID:       dishwise.QuestionDishChoice,
			Question: "Which of these dishes is it: " + interp.Candidates[0].Dish + " or " + interp.Candidates[1].Dish + "?",
		}}
	}
	return nil
}

func knownQuestionID(id dishwise.QuestionID) bool {
	switch id {
	case dishwise.QuestionDishName, dishwise.QuestionDishChoice, dishwise.QuestionServings,
		dishwise.QuestionVariant, dishwise.QuestionDishDescription, dishwise.QuestionDietConflict:
		return true
	}
	return false
}

// InferQuestionID assigns an id to a question by keyword scan. The
// checks run in a fixed priority order so the same text always maps to
// the same id.
func InferQuestionID(question string) dishwise.QuestionID {
	q := strings.ToLower(question)
	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(q, w) {
				return true
			}
		}
		return false
	}
	switch {
	case contains("serving", "portion", "people"):
		return dishwise.QuestionServings
	case contains("variant", "veg", "egg", "chicken", "paneer"):
		return dishwise.QuestionVariant
	case contains("preference", "vegetarian"):
		return dishwise.QuestionVariant
	case strings.Contains(q, "which") && strings.Contains(q, "dish"):
		return dishwise.QuestionDishChoice
	case contains("describe", "description", "ingredients"):
		return dishwise.QuestionDishDescription
	}
	return dishwise.QuestionDishName
}

// FilterQuestions drops questions the pipeline answers on its own:
// servings come from preferences or the interpreter's guess, and a bare
// dish name is never asked for because reconciliation has its own
// fallback. Filtering twice yields the same list.
func FilterQuestions(questions []dishwise.ClarificationQuestion) []dishwise.ClarificationQuestion {
	out := make([]dishwise.ClarificationQuestion, 0, len(questions))
	for _, q := range questions {
		if q.ID == dishwise.QuestionServings || q.ID == dishwise.QuestionDishName {
			continue
		}
		out = append(out, q)
	}
	return out
}

// DietConflict reports whether a vegetarian preference collides with the
// interpretation: a non-veg variant cue, or a candidate dish whose name
// contains one of the configured non-veg tokens.
func DietConflict(interp dishwise.InterpretationResult, prefs dishwise.UserPreferences, nonVegTokens []string) bool {
	if prefs.Diet != dishwise.DietVeg {
		return false
	}
	for _, cue := range interp.Cues.Variant {
		c := strings.ToLower(strings.TrimSpace(cue))
		for _, tok := range nonVegTokens {
			if c == tok {
				return true
			}
		}
	}
	for _, cand := range interp.Candidates {
		name := strings.ToLower(cand.Dish)
		for _, tok := range nonVegTokens {
			if strings.Contains(name, tok) {
				return true
			}
		}
	}
	return false
}
