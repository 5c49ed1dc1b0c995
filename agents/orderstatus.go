package agents

import (
	"fmt"
	"strings"

	"github.com/charlahq/charla/agents/tools"
	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/llm"
	"github.com/charlahq/charla/session"
)

// orderStatusHooks looks up orders and delivery estimates. Order data is only
// exposed once the phone number is verified.
type orderStatusHooks struct {
	DefaultHooks
}

// NewOrderStatusAgent builds the order status lane agent.
func NewOrderStatusAgent(svc llm.Service) Agent {
	return NewBase(svc, orderStatusHooks{})
}

func (orderStatusHooks) Lane() conversation.Lane { return conversation.LaneOrderStatus }

func (orderStatusHooks) SystemInstructions() string {
	return strings.TrimSpace(`
Eres el asistente de pedidos de una tienda por WhatsApp. Informas el estado
de los pedidos y la fecha estimada de entrega.

Reglas:
- Solo consulta pedidos con las herramientas; nunca inventes estados.
- Si el contexto indica que el telefono no esta verificado, no consultes
  nada: pide al cliente el codigo de verificacion que recibio al comprar.
- Da el estado en una frase clara: estado, transportadora si existe y dias
  estimados.
- Si el pedido no aparece, pide el numero de pedido (formato ORD-0000).
- Maximo tres frases por respuesta.`)
}

// ToolSpecs withholds the order tools until the phone is verified, so an
// unverified chat cannot reach order data even if the model tries.
func (orderStatusHooks) ToolSpecs(snapshot session.Session) []tools.Spec {
	if !snapshot.GetBool(session.FieldPhoneVerified) {
		return nil
	}
	return []tools.Spec{
		tools.OrderLookupSpec(),
		tools.DeliveryETASpec(),
	}
}

func (orderStatusHooks) BuildContext(snapshot session.Session, intent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Detected intent: %s\n", intent)
	if !snapshot.GetBool(session.FieldPhoneVerified) {
		sb.WriteString("Phone NOT verified. Do not look up orders; ask for the verification code.\n")
		return sb.String()
	}
	sb.WriteString("Phone verified.\n")
	if orderID := snapshot.GetString(session.FieldLastOrderID); orderID != "" {
		fmt.Fprintf(&sb, "Last order discussed: %s\n", orderID)
	}
	return sb.String()
}
