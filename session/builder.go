package session

import "encoding/json"

// NewSession starts from the defaults and fills in identity, locale and
// timezone. Empty locale/timezone keep the Colombian defaults.
func NewSession(tenantID, waID, locale, timezone string) Session {
	s := Blank()
	s[FieldTenantID] = tenantID
	s[FieldWaID] = waID
	if locale != "" {
		s[FieldLocale] = locale
	}
	if timezone != "" {
		s[FieldTimezone] = timezone
	}
	return s
}

// FromJSON hydrates a session from its stored bytes. Nil, empty or malformed
// input yields a blank session; otherwise stored values replace defaults and
// any missing default fields are filled in. Unknown fields are kept verbatim.
func FromJSON(data []byte) Session {
	if len(data) == 0 {
		return Blank()
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return Blank()
	}
	s := Session(raw)
	for k, v := range defaults {
		if _, ok := s[k]; !ok {
			s[k] = deepCopyValue(v)
		}
	}
	return s
}
