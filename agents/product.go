package agents

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charlahq/charla/agents/tools"
	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/llm"
	"github.com/charlahq/charla/session"
)

// productHooks handles catalog discovery: search, details, availability and
// comparisons.
type productHooks struct {
	DefaultHooks
}

// NewProductAgent builds the product lane agent.
func NewProductAgent(svc llm.Service) Agent {
	return NewBase(svc, productHooks{})
}

func (productHooks) Lane() conversation.Lane { return conversation.LaneProduct }

func (productHooks) SystemInstructions() string {
	return strings.TrimSpace(`
Eres el asesor de productos de una tienda por WhatsApp. Ayudas a encontrar
productos, das detalles, verificas disponibilidad y comparas opciones.

Reglas:
- Usa siempre las herramientas del catalogo; nunca inventes precios ni stock.
- Menciona el precio en pesos colombianos con el formato $49.900.
- Si un producto esta agotado, dilo y sugiere una alternativa del catalogo.
- Si el cliente quiere agregar algo al carrito o pagar, dile que con gusto lo
  ayudas y confirma el producto exacto.
- Maximo tres frases por respuesta.`)
}

func (productHooks) ToolSpecs(_ session.Session) []tools.Spec {
	return []tools.Spec{
		tools.ProductSearchSpec(),
		tools.ProductDetailsSpec(),
		tools.ProductAvailabilitySpec(),
		tools.ProductComparisonSpec(),
	}
}

func (productHooks) BuildContext(snapshot session.Session, intent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Detected intent: %s\n", intent)
	if ids := recentProductIDs(snapshot, 5); len(ids) > 0 {
		fmt.Fprintf(&sb, "Products mentioned recently (for references like 'ese' or 'el segundo'): %s\n",
			strings.Join(ids, ", "))
	}
	if state := snapshot.GetString(session.FieldCommerceState); state != session.CommerceBrowsing {
		fmt.Fprintf(&sb, "Commerce state: %s\n", state)
	}
	return sb.String()
}

var productIDPattern = regexp.MustCompile(`SKU-\d{4}`)

// recentProductIDs scans the newest dialogue entries for product IDs so the
// model can resolve references to earlier results. Newest first, de-duplicated.
func recentProductIDs(snapshot session.Session, limit int) []string {
	turns := snapshot.Turns()
	seen := map[string]bool{}
	var ids []string
	for i := len(turns) - 1; i >= 0 && len(ids) < limit; i-- {
		entry, ok := turns[i].(map[string]any)
		if !ok {
			continue
		}
		for _, id := range productIDPattern.FindAllString(entryText(entry), -1) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
			if len(ids) >= limit {
				break
			}
		}
	}
	return ids
}

// entryText flattens a dialogue entry to searchable text regardless of role.
func entryText(entry map[string]any) string {
	if text, ok := entry["text"].(string); ok {
		return text
	}
	msgs, _ := entry["messages"].([]any)
	var parts []string
	for _, raw := range msgs {
		if m, ok := raw.(map[string]any); ok {
			if t, ok := m["text"].(string); ok {
				parts = append(parts, t)
			}
			if b, ok := m["body"].(string); ok {
				parts = append(parts, b)
			}
		}
	}
	return strings.Join(parts, " ")
}
