// Package session owns per-conversation state: the flat session mapping, its
// defaults and hydration, structural validation, and the key/value store
// (Redis in production, in-memory for tests) with compare-and-set, TTLs and
// scoped locks.
package session

import "encoding/json"

// Session is the flat per-(tenant_id, wa_id) state mapping. Single-level on
// purpose: patches are shallow overlays and never need merge semantics.
// Values are JSON-compatible; numbers hydrate as float64.
type Session map[string]any

// Clone returns a deep copy. Agents receive clones so the controller's copy
// cannot be mutated behind its back.
func (s Session) Clone() Session {
	return Session(deepCopyMap(s))
}

// Apply overlays patch onto the session, shallow, new keys win.
func (s Session) Apply(patch map[string]any) {
	for k, v := range patch {
		s[k] = v
	}
}

// GetString returns the string value of a field, or "" when absent or not a
// string.
func (s Session) GetString(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// GetBool returns the bool value of a field, false when absent.
func (s Session) GetBool(key string) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return false
}

// GetInt returns the integer value of a field, tolerating the float64 that
// JSON hydration produces.
func (s Session) GetInt(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Turns returns the dialogue entries slice, never nil.
func (s Session) Turns() []any {
	if v, ok := s["turns"].([]any); ok {
		return v
	}
	return []any{}
}

// AppendTurn appends a dialogue entry to the turns slice.
func (s Session) AppendTurn(entry map[string]any) {
	s["turns"] = append(s.Turns(), entry)
}

// Marshal serializes the session to JSON. Map keys marshal in sorted order,
// so equal sessions produce identical bytes.
func (s Session) Marshal() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
