// Package stage holds the pipeline's analysis stages: interpretation,
// clarification gating, answer reconciliation, and the three generation
// stages. Each stage wraps one oracle call and normalizes the reply into
// the canonical types; the clarify and reconcile logic is deterministic
// and fully testable without an oracle.
package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"dishwise"
	"dishwise/oracle"
)

// Interpreter turns raw user input into ranked dish candidates. It is
// the only stage that validates the oracle reply strictly: without a
// usable interpretation nothing downstream can run.
type Interpreter struct {
	oracle oracle.Client
}

func NewInterpreter(client oracle.Client) *Interpreter {
	return &Interpreter{oracle: client}
}

// Interpret identifies the dish from text, an image, or both. Transport
// and validation failures propagate; missing optional fields are
// backfilled.
func (it *Interpreter) Interpret(ctx context.Context, in dishwise.AnalyzeInput) (dishwise.InterpretationResult, error) {
	text := strings.TrimSpace(in.Text)
	imagePresent := in.ImageData != "" || in.ImageMeta != nil
	inputType := classifyInput(text != "", imagePresent)

	slog.Debug("INTERPRETER: analyzing input", "input_type", inputType, "text_present", text != "", "image_present", imagePresent)

	userText := "User text: (none)"
	if text != "" {
		userText = "User text: " + text
	}
	parts := []oracle.Part{{Text: fmt.Sprintf("Input type: %s\n%s", inputType, userText)}}
	if in.ImageData != "" {
		parts = append(parts, oracle.Part{ImageURL: in.ImageData})
	}
	if in.ImageMeta != nil {
		parts = append(parts, oracle.Part{Text: fmt.Sprintf(
			"Image metadata: name=%s size=%dx%d mode=%s",
			in.ImageMeta.Name, in.ImageMeta.Width, in.ImageMeta.Height, in.ImageMeta.Mode)})
	}

	raw, err := it.oracle.Complete(ctx, oracle.Request{
		System:     interpretPrompt,
		User:       parts,
		SchemaName: "interpret",
		Schema:     interpretSchema,
	})
	if err != nil {
		return dishwise.InterpretationResult{}, fmt.Errorf("interpret: %w", err)
	}
	return normalizeInterpretation(raw, inputType, imagePresent, text != ""), nil
}

func classifyInput(textPresent, imagePresent bool) dishwise.InputType {
	switch {
	case textPresent && imagePresent:
		return dishwise.InputImageText
	case imagePresent:
		return dishwise.InputImage
	default:
		return dishwise.InputText
	}
}

func normalizeInterpretation(raw json.RawMessage, inputType dishwise.InputType, imagePresent, textPresent bool) dishwise.InterpretationResult {
	m := asObject(raw)
	if _, ok := m["candidates"]; !ok {
		if v, ok := m["dish_candidates"]; ok {
			m["candidates"] = v
		}
	}
	_, hadCues := objField(m, "cues")

	var out dishwise.InterpretationResult
	if b, err := json.Marshal(m); err == nil {
		_ = json.Unmarshal(b, &out)
	}

	if out.InputType == "" {
		out.InputType = inputType
	}
	if !hadCues {
		quality := dishwise.ImageNone
		if imagePresent {
			quality = dishwise.ImageUnclear
		}
		out.Cues = dishwise.InterpretationCues{
			Variant:            []string{},
			ImagePresent:       imagePresent,
			TextPresent:        textPresent,
			ImageQuality:       quality,
			UncertaintyReasons: []string{"missing_cues"},
		}
	}
	for i := range out.Candidates {
		if out.Candidates[i].Cues == nil {
			out.Candidates[i].Cues = []string{}
		}
	}
	out.TruncateCandidates()
	return out
}
