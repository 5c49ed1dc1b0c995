package agents

import (
	"fmt"
	"strings"

	"github.com/charlahq/charla/agents/tools"
	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/llm"
	"github.com/charlahq/charla/session"
)

// commerceHooks drives the purchase flow: cart management and checkout.
type commerceHooks struct {
	DefaultHooks
}

// NewCommerceAgent builds the commerce lane agent.
func NewCommerceAgent(svc llm.Service) Agent {
	return NewBase(svc, commerceHooks{})
}

func (commerceHooks) Lane() conversation.Lane { return conversation.LaneCommerce }

func (commerceHooks) SystemInstructions() string {
	return strings.TrimSpace(`
Eres el asistente de compras de una tienda por WhatsApp. Gestionas el carrito
y acompanas al cliente hasta el pago.

Reglas:
- Toda modificacion del carrito pasa por la herramienta cart_manager; nunca
  asumas el contenido del carrito sin consultarlo.
- Confirma cada cambio con el subtotal actualizado en formato $49.900.
- Antes de cerrar la compra valida el carrito con checkout_validator y
  explica cualquier problema que reporte.
- Si el cliente pregunta por detalles de un producto que no esta en el
  catalogo que ves, sugierele describir que busca.
- Maximo tres frases por respuesta.`)
}

func (commerceHooks) ToolSpecs(_ session.Session) []tools.Spec {
	return []tools.Spec{
		tools.CartManagerSpec(),
		tools.ProductCatalogSpec(),
		tools.CheckoutValidatorSpec(),
	}
}

func (commerceHooks) BuildContext(snapshot session.Session, intent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Detected intent: %s\n", intent)
	fmt.Fprintf(&sb, "Commerce state: %s\n", snapshot.GetString(session.FieldCommerceState))

	cart := tools.NewCartAccessor(snapshot)
	if items := cart.Items(); len(items) > 0 {
		fmt.Fprintf(&sb, "Cart (%d lines, subtotal %d cents %s):\n",
			len(items), cart.SubtotalCents(), snapshot.GetString(session.FieldCartCurrency))
		for _, line := range items {
			fmt.Fprintf(&sb, "- %v x%v (%v)\n", line["name"], line["qty"], line["product_id"])
		}
	} else {
		sb.WriteString("Cart is empty.\n")
	}
	if !snapshot.GetBool(session.FieldPhoneVerified) {
		sb.WriteString("Phone not verified yet; verification is required before checkout.\n")
	}
	return sb.String()
}
