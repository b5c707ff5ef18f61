package stage

import "encoding/json"

// Map-access helpers for normalizing loosely shaped oracle replies.
// Missing keys and wrong types read as absent rather than failing.

func asObject(raw json.RawMessage) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

func objField(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key].(map[string]any)
	return v, ok
}

func arrField(m map[string]any, key string) ([]any, bool) {
	v, ok := m[key].([]any)
	return v, ok
}

func strField(m map[string]any, key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

func numField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func intField(m map[string]any, key string) (int, bool) {
	f, ok := numField(m, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func strSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// firstNum returns the first key in keys present in m with a numeric
// value. Lets a stage accept alias field names (carbs_g vs
// carbohydrates_g) without branching at every call site.
func firstNum(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := numField(m, k); ok {
			return f, true
		}
	}
	return 0, false
}
