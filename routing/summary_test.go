package routing

import (
	"strings"
	"testing"
	"time"

	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/session"
)

func TestBuildStateSummary(t *testing.T) {
	sess := session.NewSession("t1", "57300", "", "")
	sess[session.FieldCartItems] = []any{
		map[string]any{"product_id": "SKU-1001", "qty": float64(2)},
	}
	sess.AppendTurn(conversation.UserEntry("hola", "wamid.1", "2026-08-26T10:00:00Z"))
	sess.AppendTurn(conversation.UserEntry(strings.Repeat("x", 500), "wamid.2", "2026-08-26T10:01:00Z"))

	// 14:00 UTC is 09:00 in Bogota, inside business hours.
	now := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)
	summary := buildStateSummary(sess, 50, now)

	for _, want := range []string{
		"current_lane: info",
		"has_cart: true",
		"cart_item_count: 1",
		"user: hola",
		"business_hours_open: true",
		"day_of_week: Wednesday",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
	if strings.Contains(summary, strings.Repeat("x", 60)) {
		t.Error("dialogue text not truncated")
	}
	// Raw identity fields must not leak into the classifier prompt.
	if strings.Contains(summary, "57300") {
		t.Error("summary leaks the phone number")
	}
}

func TestBuildStateSummaryLastThreeTurns(t *testing.T) {
	sess := session.NewSession("t1", "57300", "", "")
	for _, text := range []string{"uno", "dos", "tres", "cuatro", "cinco"} {
		sess.AppendTurn(conversation.UserEntry(text, "id-"+text, "2026-08-26T10:00:00Z"))
	}
	summary := buildStateSummary(sess, 200, time.Now())

	if strings.Contains(summary, "uno") || strings.Contains(summary, "dos") {
		t.Error("summary includes turns older than the window")
	}
	for _, want := range []string{"tres", "cuatro", "cinco"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing recent turn %q", want)
		}
	}
}

func TestBuildStateSummaryAssistantPlaceholder(t *testing.T) {
	sess := session.NewSession("t1", "57300", "", "")
	sess.AppendTurn(map[string]any{"role": "assistant", "lane": "info", "messages": []any{}})
	summary := buildStateSummary(sess, 200, time.Now())
	if !strings.Contains(summary, "assistant: [assistant reply]") {
		t.Errorf("assistant entry not summarised:\n%s", summary)
	}
}

func TestIsBusinessHours(t *testing.T) {
	loc := time.FixedZone("COT", -5*3600)
	tests := []struct {
		hour int
		want bool
	}{
		{7, false}, {8, true}, {19, true}, {20, false}, {23, false},
	}
	for _, tt := range tests {
		local := time.Date(2026, 8, 26, tt.hour, 30, 0, 0, loc)
		if got := isBusinessHours(local); got != tt.want {
			t.Errorf("isBusinessHours(%02d:30) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}
