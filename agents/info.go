package agents

import (
	"fmt"
	"strings"

	"github.com/charlahq/charla/agents/tools"
	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/llm"
	"github.com/charlahq/charla/session"
)

// infoHooks answers general questions: greetings, hours, locations and FAQ.
type infoHooks struct {
	DefaultHooks
}

// NewInfoAgent builds the info lane agent.
func NewInfoAgent(svc llm.Service) Agent {
	return NewBase(svc, infoHooks{})
}

func (infoHooks) Lane() conversation.Lane { return conversation.LaneInfo }

func (infoHooks) SystemInstructions() string {
	return strings.TrimSpace(`
Eres el asistente de una tienda por WhatsApp. Atiendes preguntas generales:
saludos, horarios, ubicaciones, envios, pagos y devoluciones.

Reglas:
- Responde en el idioma del cliente, por defecto espanol, tono cercano y breve.
- Usa las herramientas para horarios, ubicaciones y preguntas frecuentes; no
  inventes datos.
- Si el cliente quiere comprar o pregunta por un producto concreto, oriental
  brevemente y sugiere que te diga que busca.
- Maximo dos o tres frases por respuesta.`)
}

func (infoHooks) ToolSpecs(_ session.Session) []tools.Spec {
	return []tools.Spec{
		tools.BusinessHoursSpec(),
		tools.LocationsSpec(),
		tools.GeneralFaqSpec(),
	}
}

func (infoHooks) BuildContext(snapshot session.Session, intent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Detected intent: %s\n", intent)
	fmt.Fprintf(&sb, "Customer locale: %s, timezone: %s\n",
		snapshot.GetString(session.FieldLocale), snapshot.GetString(session.FieldTimezone))
	if snapshot.GetBool(session.FieldVIP) {
		sb.WriteString("The customer is a VIP; be extra attentive.\n")
	}
	return sb.String()
}
