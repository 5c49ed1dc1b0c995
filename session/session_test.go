package session

import (
	"errors"
	"reflect"
	"testing"

	"github.com/charlahq/charla/conversation"
)

func TestNewSessionDefaults(t *testing.T) {
	s := NewSession("t1", "57300", "", "")

	if s.GetString(FieldTenantID) != "t1" || s.GetString(FieldWaID) != "57300" {
		t.Errorf("identity fields not set: %v", s)
	}
	if s.GetString(FieldLocale) != DefaultLocale {
		t.Errorf("expected default locale, got %q", s.GetString(FieldLocale))
	}
	if s.GetString(FieldCurrentLane) != conversation.LaneInfo {
		t.Errorf("expected info entry lane, got %q", s.GetString(FieldCurrentLane))
	}
	if s.GetString(FieldCommerceState) != CommerceBrowsing {
		t.Errorf("expected browsing commerce state, got %q", s.GetString(FieldCommerceState))
	}
	if len(s.Turns()) != 0 {
		t.Errorf("expected empty dialogue, got %v", s.Turns())
	}
}

func TestNewSessionExplicitLocale(t *testing.T) {
	s := NewSession("t1", "57300", "es-MX", "America/Mexico_City")
	if s.GetString(FieldLocale) != "es-MX" || s.GetString(FieldTimezone) != "America/Mexico_City" {
		t.Errorf("explicit locale/timezone not honoured: %v", s)
	}
}

// A fresh session must survive a JSON round-trip unchanged, so the store and
// the in-process representation never diverge.
func TestRoundTrip(t *testing.T) {
	s := NewSession("t1", "57300", "", "")
	data, err := s.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	back := FromJSON(data)
	if !reflect.DeepEqual(s, back) {
		t.Errorf("round-trip changed the session:\n got %v\nwant %v", back, s)
	}
}

func TestRoundTripWithDialogue(t *testing.T) {
	s := NewSession("t1", "57300", "", "")
	s.AppendTurn(conversation.UserEntry("hola", "wamid.1", "2026-08-26T10:00:00Z"))
	s[FieldCartSubtotalCents] = float64(49900)

	data, err := s.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	back := FromJSON(data)
	if !reflect.DeepEqual(s, back) {
		t.Errorf("round-trip changed the session:\n got %v\nwant %v", back, s)
	}
	if back.GetInt(FieldCartSubtotalCents) != 49900 {
		t.Errorf("numeric field lost: %v", back[FieldCartSubtotalCents])
	}
}

func TestCloneIsolation(t *testing.T) {
	s := NewSession("t1", "57300", "", "")
	s.AppendTurn(map[string]any{"role": "user", "text": "hola"})

	clone := s.Clone()
	clone[FieldCurrentLane] = conversation.LaneSupport
	clone.Turns()[0].(map[string]any)["text"] = "mutated"
	clone.AppendTurn(map[string]any{"role": "user", "text": "extra"})

	if s.GetString(FieldCurrentLane) != conversation.LaneInfo {
		t.Error("clone write leaked into the original")
	}
	if s.Turns()[0].(map[string]any)["text"] != "hola" {
		t.Error("nested clone write leaked into the original")
	}
	if len(s.Turns()) != 1 {
		t.Error("clone append leaked into the original")
	}
}

func TestApplyShallowOverlay(t *testing.T) {
	s := NewSession("t1", "57300", "", "")
	s.Apply(map[string]any{
		FieldCurrentLane: conversation.LaneCommerce,
		"campaign":       "aug-promo",
	})
	if s.GetString(FieldCurrentLane) != conversation.LaneCommerce {
		t.Error("patch did not overwrite existing field")
	}
	if s.GetString("campaign") != "aug-promo" {
		t.Error("patch did not add new field")
	}
}

func TestFromJSONEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil input", nil},
		{"empty input", []byte{}},
		{"malformed json", []byte("{not json")},
		{"json null", []byte("null")},
		{"wrong top-level type", []byte(`["a","b"]`)},
	}
	blank := Blank()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromJSON(tt.data); !reflect.DeepEqual(got, blank) {
				t.Errorf("expected blank session, got %v", got)
			}
		})
	}
}

func TestFromJSONFillsMissingAndKeepsUnknown(t *testing.T) {
	s := FromJSON([]byte(`{"tenant_id":"t1","wa_id":"57300","custom_flag":true}`))

	if s.GetString(FieldTenantID) != "t1" {
		t.Error("stored value lost")
	}
	if s.GetString(FieldCurrentLane) != conversation.LaneInfo {
		t.Error("missing default not filled in")
	}
	if !s.GetBool("custom_flag") {
		t.Error("unknown field dropped")
	}
}

func TestValidate(t *testing.T) {
	valid := NewSession("t1", "57300", "", "")
	if err := Validate(valid); err != nil {
		t.Fatalf("valid session rejected: %v", err)
	}

	tests := []struct {
		name  string
		mkSes func() Session
	}{
		{"nil session", func() Session { return nil }},
		{"blank session missing identity", Blank},
		{"empty tenant", func() Session { return NewSession("", "57300", "", "") }},
		{"empty wa_id", func() Session { return NewSession("t1", "", "", "") }},
		{"unknown lane", func() Session {
			s := NewSession("t1", "57300", "", "")
			s[FieldCurrentLane] = "billing"
			return s
		}},
		{"non-string lane", func() Session {
			s := NewSession("t1", "57300", "", "")
			s[FieldCurrentLane] = 7
			return s
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.mkSes())
			if err == nil {
				t.Fatal("expected a validation error")
			}
			var sie *StateInvalidError
			if !errors.As(err, &sie) {
				t.Errorf("expected StateInvalidError, got %T", err)
			}
		})
	}

	t.Run("extra fields never fail", func(t *testing.T) {
		s := NewSession("t1", "57300", "", "")
		s["future_field"] = map[string]any{"nested": true}
		if err := Validate(s); err != nil {
			t.Errorf("extra field rejected: %v", err)
		}
	})
}

func TestKeyLayout(t *testing.T) {
	if got := SessionKey("t1", "57300"); got != "session:t1:57300" {
		t.Errorf("SessionKey = %q", got)
	}
	if got := LockKey("t1", "57300"); got != "session:t1:57300:lock" {
		t.Errorf("LockKey = %q", got)
	}
	if got := ProcessedKey("wamid.1"); got != "turn:processed:wamid.1" {
		t.Errorf("ProcessedKey = %q", got)
	}
	if got := OrchestratedKey("wamid.1"); got != "orchestrated:wamid.1" {
		t.Errorf("OrchestratedKey = %q", got)
	}
}
