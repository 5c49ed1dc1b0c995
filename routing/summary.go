package routing

import (
	"fmt"
	"strings"
	"time"

	"github.com/charlahq/charla/internal/strutil"
	"github.com/charlahq/charla/session"
)

// summaryTurns is how many trailing dialogue entries the LLM sees.
const summaryTurns = 3

// buildStateSummary renders the compact, PII-light session view handed to
// the classifier: current lane, cart presence and size, the last few
// dialogue entries (roles plus truncated text), and temporal hints. Nothing
// else from the session leaves the process.
func buildStateSummary(sess session.Session, maxText int, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "current_lane: %s\n", sess.GetString(session.FieldCurrentLane))

	cartItems, _ := sess[session.FieldCartItems].([]any)
	fmt.Fprintf(&b, "has_cart: %t\n", len(cartItems) > 0)
	fmt.Fprintf(&b, "cart_item_count: %d\n", len(cartItems))

	turns := sess.Turns()
	start := len(turns) - summaryTurns
	if start < 0 {
		start = 0
	}
	b.WriteString("recent_turns:\n")
	for _, t := range turns[start:] {
		entry, ok := t.(map[string]any)
		if !ok {
			continue
		}
		role, _ := entry["role"].(string)
		text, _ := entry["text"].(string)
		if text == "" {
			// Assistant entries carry message bundles, not a single text.
			text = "[assistant reply]"
		}
		fmt.Fprintf(&b, "  - %s: %s\n", role, strutil.Truncate(text, maxText))
	}

	local := localTime(sess.GetString(session.FieldTimezone), now)
	fmt.Fprintf(&b, "business_hours_open: %t\n", isBusinessHours(local))
	fmt.Fprintf(&b, "day_of_week: %s\n", local.Weekday())

	return b.String()
}

// localTime resolves the session timezone, falling back to Bogota.
func localTime(tz string, now time.Time) time.Time {
	if tz == "" {
		tz = session.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		// America/Bogota is UTC-5 year round.
		loc = time.FixedZone("COT", -5*3600)
	}
	return now.In(loc)
}

// isBusinessHours reports whether local time falls in the 8:00-20:00 window.
func isBusinessHours(local time.Time) bool {
	return local.Hour() >= 8 && local.Hour() < 20
}
