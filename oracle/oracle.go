// Package oracle defines the boundary to the structured-output reasoning
// service. Engines send a system prompt plus user content and must return
// JSON shaped by a declared schema; callers choose between strict
// validation and a relaxed mode that accepts whatever object came back.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

var (
	// ErrUnavailable marks transport or auth failures talking to the model.
	ErrUnavailable = errors.New("oracle unavailable")
	// ErrSchemaMismatch marks well-formed JSON that does not match the
	// declared schema. Only surfaced in strict mode.
	ErrSchemaMismatch = errors.New("oracle response does not match schema")
)

// Part is one piece of user content: text, or an image as a data URL.
type Part struct {
	Text     string
	ImageURL string
}

// Request is a single structured-output call.
type Request struct {
	System       string
	User         []Part
	SchemaName   string
	Schema       *jsonschema.Schema
	AllowInvalid bool
}

// Client is implemented by each oracle engine.
type Client interface {
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// SchemaJSON renders the declared schema for embedding into a prompt.
func SchemaJSON(s *jsonschema.Schema) string {
	if s == nil {
		return "{}"
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// StripCodeFences removes a surrounding markdown code fence, which some
// models emit despite being asked for raw JSON.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Finalize turns a raw model reply into the request's result: it strips
// fences, requires a JSON object, and in strict mode validates the object
// against the declared schema. In relaxed mode a schema violation is
// tolerated and the object is returned as-is for field-level
// normalization by the caller.
func Finalize(raw string, req Request) (json.RawMessage, error) {
	txt := StripCodeFences(raw)
	if txt == "" {
		return nil, fmt.Errorf("%s: empty response: %w", req.SchemaName, ErrUnavailable)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(txt), &obj); err != nil {
		if req.AllowInvalid {
			return json.RawMessage("{}"), nil
		}
		return nil, fmt.Errorf("%s: bad JSON: %v: %w", req.SchemaName, err, ErrSchemaMismatch)
	}

	if !req.AllowInvalid && req.Schema != nil {
		resolved, err := resolveSchema(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("%s: resolve schema: %w", req.SchemaName, err)
		}
		if err := resolved.Validate(obj); err != nil {
			return nil, fmt.Errorf("%s: %v: %w", req.SchemaName, err, ErrSchemaMismatch)
		}
	}

	return json.RawMessage(txt), nil
}

var (
	resolvedMu      sync.Mutex
	resolvedSchemas = map[*jsonschema.Schema]*jsonschema.Resolved{}
)

// resolveSchema resolves a declared schema at most once per instance.
// jsonschema.Schema.Resolve refuses to run twice on the same value, and
// the stage schemas are shared package-level declarations.
func resolveSchema(s *jsonschema.Schema) (*jsonschema.Resolved, error) {
	resolvedMu.Lock()
	defer resolvedMu.Unlock()
	if r, ok := resolvedSchemas[s]; ok {
		return r, nil
	}
	r, err := s.Resolve(nil)
	if err != nil {
		return nil, err
	}
	resolvedSchemas[s] = r
	return r, nil
}

// DecodeDataURL splits a data URL (or bare base64 string) into its media
// type and decoded bytes.
func DecodeDataURL(s string) (mime string, data []byte, err error) {
	s = strings.TrimSpace(s)
	payload := s
	if strings.HasPrefix(s, "data:") {
		head, rest, ok := strings.Cut(s, ",")
		if !ok {
			return "", nil, fmt.Errorf("malformed data URL")
		}
		payload = rest
		head = strings.TrimPrefix(head, "data:")
		if i := strings.IndexByte(head, ';'); i >= 0 {
			head = head[:i]
		}
		mime = head
	}
	data, err = base64Decode(payload)
	if err != nil {
		return "", nil, fmt.Errorf("bad base64 payload: %w", err)
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	return mime, data, nil
}
