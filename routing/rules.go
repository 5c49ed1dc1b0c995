// Package routing produces the lane decision for an inbound turn: an LLM
// intent classifier when enabled, with an ordered rule table as fallback.
package routing

import (
	"regexp"

	"github.com/charlahq/charla/conversation"
)

// Decision is the router's output.
type Decision struct {
	Lane       conversation.Lane `json:"lane"`
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Reasoning  []string          `json:"reasoning"`

	// Source records which tier produced the decision ("llm" or "rule").
	// Set by the router, not part of the LLM schema.
	Source string `json:"-"`
}

// rule is one entry of the ordered fallback table. First match wins.
type rule struct {
	pattern    *regexp.Regexp
	lane       conversation.Lane
	intent     string
	confidence float64
}

// The table covers the traffic a Colombian storefront actually sees:
// greetings, hours/location/menu questions, purchase verbs, order tracking
// and complaint/refund verbs, in Spanish and English.
var ruleTable = []rule{
	{
		pattern:    regexp.MustCompile(`(?i)^\s*(hola|holi+|buenas|buenos\s+d[ií]as|buenas\s+(tardes|noches)|hello|hi|hey)\b`),
		lane:       conversation.LaneInfo,
		intent:     "greeting",
		confidence: 0.7,
	},
	{
		pattern:    regexp.MustCompile(`(?i)(horario|a\s+qu[eé]\s+horas?|abren|cierran|atienden|hours|open|close)`),
		lane:       conversation.LaneInfo,
		intent:     "business_hours",
		confidence: 0.85,
	},
	{
		pattern:    regexp.MustCompile(`(?i)(d[oó]nde\s+(est[aá]n|quedan)|ubicaci[oó]n|direcci[oó]n|sede|sucursal|location|address)`),
		lane:       conversation.LaneInfo,
		intent:     "location",
		confidence: 0.85,
	},
	{
		pattern:    regexp.MustCompile(`(?i)(estado\s+de\s+mi\s+pedido|d[oó]nde\s+(est[aá]|va)\s+mi\s+(pedido|orden)|rastrear|seguimiento|tracking|order\s+status|my\s+order)`),
		lane:       conversation.LaneOrderStatus,
		intent:     "order_lookup",
		confidence: 0.85,
	},
	{
		pattern:    regexp.MustCompile(`(?i)(queja|reclamo|devoluci[oó]n|reembolso|da[ñn]ad|defectuoso|refund|complaint|broken|damaged)`),
		lane:       conversation.LaneSupport,
		intent:     "complaint",
		confidence: 0.85,
	},
	{
		pattern:    regexp.MustCompile(`(?i)(comprar|quiero\s+(pedir|ordenar|comprar)|hacer\s+un\s+pedido|carrito|pagar|checkout|buy|purchase|shop|cart)`),
		lane:       conversation.LaneCommerce,
		intent:     "purchase_intent",
		confidence: 0.8,
	},
	{
		pattern:    regexp.MustCompile(`(?i)(men[uú]|cat[aá]logo|productos|qu[eé]\s+(venden|tienen)|precios?|products?|catalog|price)`),
		lane:       conversation.LaneProduct,
		intent:     "browse_catalog",
		confidence: 0.75,
	},
	{
		pattern:    regexp.MustCompile(`(?i)(disponib|hay\s+stock|stock|in\s+stock|availab)`),
		lane:       conversation.LaneProduct,
		intent:     "product_availability",
		confidence: 0.7,
	},
	{
		pattern:    regexp.MustCompile(`(?i)(hablar\s+con\s+(alguien|una?\s+persona|asesor)|agente|human|support|ayuda\s+urgente)`),
		lane:       conversation.LaneSupport,
		intent:     "contact_support",
		confidence: 0.75,
	},
}

// matchRules walks the ordered table and returns the first hit, or the
// general-info default when nothing matches.
func matchRules(text string) Decision {
	for _, r := range ruleTable {
		if r.pattern.MatchString(text) {
			return Decision{
				Lane:       r.lane,
				Intent:     r.intent,
				Confidence: r.confidence,
				Reasoning:  []string{"rule_based"},
			}
		}
	}
	return Decision{
		Lane:       conversation.LaneInfo,
		Intent:     "general_info",
		Confidence: 0.5,
		Reasoning:  []string{"fallback"},
	}
}
