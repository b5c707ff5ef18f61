package dishwise

import (
	"sync"

	"github.com/google/uuid"
)

// Trace slot names, kept stable because traces are wire-visible in logs
// and debugging tools.
const (
	SlotInterpreter = "InterpreterAgent"
	SlotClarifier   = "ClarificationGatekeeper"
	SlotIngredient  = "IngredientAgent"
	SlotRecipe      = "RecipeAgent"
	SlotNutrition   = "NutritionAgent"
	SlotCommerce    = "CommerceAgent"
)

// Session owns one analysis session's state: the raw inputs, the user's
// preferences, the latest interpretation, and the per-stage trace. It
// lives for the life of one analysis and is reset only by explicit user
// action.
//
// Generation runs are sequenced: each reconciliation+generation cycle
// takes a new run id, and results from a superseded run are dropped
// rather than merged (last write wins at the session level).
type Session struct {
	ID string

	mu          sync.Mutex
	text        string
	imageMeta   *ImageMeta
	imageData   string
	preferences UserPreferences
	interp      *InterpretationResult
	decision    *ClarificationDecision
	final       *ComposedResult
	trace       map[string]any
	runSeq      int64
}

// NewSession creates an empty session with the given preferences.
func NewSession(prefs UserPreferences) *Session {
	return &Session{
		ID:          uuid.NewString(),
		preferences: prefs,
		trace:       make(map[string]any),
	}
}

// Reset clears all derived state but keeps preferences, matching the
// explicit "start over" user action.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = ""
	s.imageMeta = nil
	s.imageData = ""
	s.interp = nil
	s.decision = nil
	s.final = nil
	s.trace = make(map[string]any)
	s.runSeq++
}

// SetInputs records the raw inputs for the current analysis.
func (s *Session) SetInputs(in AnalyzeInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = in.Text
	s.imageMeta = in.ImageMeta
	s.imageData = in.ImageData
}

// Inputs returns the raw inputs recorded for the current analysis.
func (s *Session) Inputs() AnalyzeInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AnalyzeInput{Text: s.text, ImageMeta: s.imageMeta, ImageData: s.imageData}
}

// Preferences returns the session's read-only preferences.
func (s *Session) Preferences() UserPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferences
}

// SetInterpretation replaces the session's interpretation wholesale.
func (s *Session) SetInterpretation(r InterpretationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := r
	s.interp = &cp
	s.trace[SlotInterpreter] = cp
}

// Interpretation returns the latest interpretation, if one exists.
func (s *Session) Interpretation() (InterpretationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interp == nil {
		return InterpretationResult{}, false
	}
	return *s.interp, true
}

// SetDecision records the latest clarification decision.
func (s *Session) SetDecision(d ClarificationDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := d
	s.decision = &cp
	s.trace[SlotClarifier] = cp
}

// Decision returns the latest clarification decision, if one exists.
func (s *Session) Decision() (ClarificationDecision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decision == nil {
		return ClarificationDecision{}, false
	}
	return *s.decision, true
}

// SetSlot writes one stage's output into its trace slot. Each stage owns
// a distinct slot, so concurrent stage writes never contend on a value.
func (s *Session) SetSlot(name string, out any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace[name] = out
}

// Snapshot returns a shallow copy of the trace for inspection.
func (s *Session) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.trace))
	for k, v := range s.trace {
		out[k] = v
	}
	return out
}

// BeginRun starts a new generation cycle and returns its run id. Any
// still-in-flight older cycle is superseded from this point on.
func (s *Session) BeginRun() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runSeq++
	return s.runSeq
}

// CommitFinal stores the composed result if runID is still current.
// It reports whether the result was accepted; stale runs are discarded.
func (s *Session) CommitFinal(runID int64, result *ComposedResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if runID != s.runSeq {
		return false
	}
	s.final = result
	return true
}

// Final returns the last committed composed result, if any.
func (s *Session) Final() (*ComposedResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final == nil {
		return nil, false
	}
	return s.final, true
}
