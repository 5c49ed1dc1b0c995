package agents

import (
	"fmt"
	"strings"

	"github.com/charlahq/charla/agents/tools"
	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/llm"
	"github.com/charlahq/charla/session"
)

// Handoff thresholds. Three frustrated messages in the recent window, or a
// case already escalated twice, routes the customer to a human.
const (
	sentimentWindow     = 10
	negativeForHandoff  = 3
	escalationThreshold = 2
)

// supportHooks handles complaints, refunds and support cases, and decides
// when to hand the conversation to a human.
type supportHooks struct {
	DefaultHooks
}

// NewSupportAgent builds the support lane agent.
func NewSupportAgent(svc llm.Service) Agent {
	return NewBase(svc, supportHooks{})
}

func (supportHooks) Lane() conversation.Lane { return conversation.LaneSupport }

func (supportHooks) SystemInstructions() string {
	return strings.TrimSpace(`
Eres el agente de soporte de una tienda por WhatsApp. Atiendes reclamos,
devoluciones y casos abiertos.

Reglas:
- Empieza reconociendo el problema del cliente antes de pedir datos.
- Usa refund_policy para cualquier pregunta de devoluciones; no parafrasees
  de memoria.
- Si el problema necesita seguimiento, abre un caso con case_manager y dale
  al cliente el numero de caso.
- Si el cliente pide hablar con una persona, dale los canales de
  contact_support sin insistir en resolverlo tu.
- Tono empatico y concreto, maximo tres frases.`)
}

func (supportHooks) ToolSpecs(_ session.Session) []tools.Spec {
	return []tools.Spec{
		tools.RefundPolicySpec(),
		tools.CaseManagerSpec(),
		tools.ContactSupportSpec(),
	}
}

func (supportHooks) BuildContext(snapshot session.Session, intent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Detected intent: %s\n", intent)
	if caseID := snapshot.GetString(session.FieldActiveCaseID); caseID != "" {
		fmt.Fprintf(&sb, "Active support case: %s\n", caseID)
	}
	if snapshot.GetBool(session.FieldVIP) {
		sb.WriteString("The customer is a VIP; prioritise their case.\n")
	}
	return sb.String()
}

// PostProcess flips the human handoff flag when frustration persists or the
// active case is already escalated.
func (supportHooks) PostProcess(snapshot session.Session, patch map[string]any, turn conversation.Turn) (map[string]any, *conversation.Baton) {
	if patch == nil {
		patch = map[string]any{}
	}
	if countNegativeUserEntries(snapshot, turn.Text) >= negativeForHandoff {
		patch[session.FieldHumanHandoff] = true
		return patch, nil
	}

	caseID := snapshot.GetString(session.FieldActiveCaseID)
	if id, ok := patch[session.FieldActiveCaseID].(string); ok && id != "" {
		caseID = id
	}
	if caseID != "" {
		if level, ok := tools.CaseEscalation(caseID, snapshot.GetString(session.FieldWaID)); ok && level >= escalationThreshold {
			patch[session.FieldHumanHandoff] = true
		}
	}
	return patch, nil
}

var negativeMarkers = []string{
	"pesimo", "terrible", "horrible", "inaceptable", "indignante",
	"estafa", "fraude", "nunca mas", "queja", "demanda", "abogado",
	"furioso", "furiosa", "molesto", "molesta", "harto", "harta",
	"awful", "unacceptable", "scam", "angry", "worst",
}

// countNegativeUserEntries scans the current message plus the newest stored
// user entries for frustration markers.
func countNegativeUserEntries(snapshot session.Session, currentText string) int {
	count := 0
	if isNegative(currentText) {
		count++
	}
	turns := snapshot.Turns()
	scanned := 0
	for i := len(turns) - 1; i >= 0 && scanned < sentimentWindow; i-- {
		entry, ok := turns[i].(map[string]any)
		if !ok || entry["role"] != "user" {
			continue
		}
		scanned++
		if text, ok := entry["text"].(string); ok && isNegative(text) {
			count++
		}
	}
	return count
}

func isNegative(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range negativeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
