package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/internal/strutil"
	"github.com/charlahq/charla/llm"
	"github.com/charlahq/charla/metrics"
	"github.com/charlahq/charla/session"
)

// SchemaCaller is the slice of the LLM service the router consumes.
type SchemaCaller interface {
	ChatWithSchema(ctx context.Context, messages []llm.Message, schema *llm.ResponseSchema, opts llm.SchemaOptions) (json.RawMessage, *llm.CallStats, error)
}

// Config tunes the router.
type Config struct {
	// Enabled turns the LLM path on. When false every turn takes the rule
	// fallback.
	Enabled bool
	// Timeout bounds the classifier call. Default 900ms.
	Timeout time.Duration
	// Temperature for the classifier call. Default 0.3.
	Temperature float32
	// MaxDialogueText truncates dialogue text in the state summary.
	// Default 200.
	MaxDialogueText int
}

// Router decides the entry lane for a turn. It never returns an error: any
// failure on the LLM path degrades to the rule table.
type Router struct {
	llm   SchemaCaller
	cfg   Config
	clock func() time.Time
}

// NewRouter creates a router. A nil caller disables the LLM path regardless
// of cfg.Enabled.
func NewRouter(caller SchemaCaller, cfg Config) *Router {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 900 * time.Millisecond
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxDialogueText <= 0 {
		cfg.MaxDialogueText = 200
	}
	return &Router{llm: caller, cfg: cfg, clock: time.Now}
}

// SetClock overrides the time source. Test hook.
func (r *Router) SetClock(clock func() time.Time) {
	r.clock = clock
}

// Route produces the decision for a turn. LLM first when enabled, rule
// fallback on feature-off, schema violation, timeout or transport error.
func (r *Router) Route(ctx context.Context, turn conversation.Turn, sess session.Session) Decision {
	start := r.clock()

	if r.cfg.Enabled && r.llm != nil {
		decision, err := r.routeLLM(ctx, turn, sess)
		if err == nil {
			decision.Source = "llm"
			slog.Debug("router: llm decision",
				"lane", decision.Lane,
				"intent", decision.Intent,
				"confidence", decision.Confidence,
				"latency_ms", time.Since(start).Milliseconds(),
			)
			return decision
		}
		slog.Warn("llm_fallback_used",
			"event", "llm_fallback_used",
			"tenant_id", turn.TenantID,
			"wa_id", turn.WaID,
			"error", err.Error(),
		)
		metrics.LLMFallbacks.Inc()
	}

	decision := matchRules(turn.Text)
	decision.Source = "rule"
	slog.Debug("router: rule decision",
		"lane", decision.Lane,
		"intent", decision.Intent,
		"confidence", decision.Confidence,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return decision
}

func (r *Router) routeLLM(ctx context.Context, turn conversation.Turn, sess session.Session) (Decision, error) {
	summary := buildStateSummary(sess, r.cfg.MaxDialogueText, r.clock())
	prompt := fmt.Sprintf("Session state:\n%s\nUser message: %s",
		summary, strutil.Truncate(turn.Text, r.cfg.MaxDialogueText))

	raw, _, err := r.llm.ChatWithSchema(ctx,
		[]llm.Message{
			llm.SystemPrompt(classifierSystemPrompt),
			llm.UserMessage(prompt),
		},
		decisionSchema,
		llm.SchemaOptions{Temperature: r.cfg.Temperature, Timeout: r.cfg.Timeout},
	)
	if err != nil {
		return Decision{}, err
	}

	var decision Decision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return Decision{}, fmt.Errorf("decision does not match schema: %w", err)
	}
	if !conversation.IsKnownLane(decision.Lane) {
		return Decision{}, fmt.Errorf("decision lane %q outside the closed set", decision.Lane)
	}
	if decision.Confidence < 0 {
		decision.Confidence = 0
	}
	if decision.Confidence > 1 {
		decision.Confidence = 1
	}
	if len(decision.Reasoning) == 0 {
		decision.Reasoning = []string{"llm"}
	}
	return decision, nil
}

var classifierSystemPrompt = strings.TrimSpace(`
You are the intent router of a WhatsApp storefront assistant for a Colombian
retail business. Classify the user's message into exactly one lane:

- info: greetings, business hours, locations, general questions
- product: product discovery, details, availability, comparisons
- commerce: cart operations, checkout, purchase intent
- support: complaints, refunds, cases, requests for a human
- order_status: tracking an existing order, delivery ETA

Examples:
- "hola buenas" -> info / greeting
- "tienen tallas M de la camiseta azul?" -> product / product_availability
- "quiero pagar mi carrito" -> commerce / checkout
- "mi pedido llego roto" -> support / complaint
- "donde va mi pedido #1042" -> order_status / order_lookup

Emit a structured decision only. Do not address the user.`)

var decisionSchema = &llm.ResponseSchema{
	Name: "router_decision",
	Schema: llm.ObjectSchema(map[string]any{
		"lane": map[string]any{
			"type": "string",
			"enum": conversation.KnownLanes(),
		},
		"intent": map[string]any{
			"type":        "string",
			"description": "free-form lane-scoped intent label",
		},
		"confidence": map[string]any{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		},
		"reasoning": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	}),
}
