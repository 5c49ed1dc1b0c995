package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/charlahq/charla/session"
)

// CartAccessor reads the cart out of a session snapshot and computes the
// patched cart after a mutation. Tools never write to the session store;
// they return the new cart as a state patch.
type CartAccessor struct {
	items []map[string]any
}

// NewCartAccessor builds an accessor over the snapshot's cart items.
func NewCartAccessor(snapshot session.Session) *CartAccessor {
	raw, _ := snapshot[session.FieldCartItems].([]any)
	items := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		if m, ok := it.(map[string]any); ok {
			// Copy so mutations never leak into the snapshot.
			cp := make(map[string]any, len(m))
			for k, v := range m {
				cp[k] = v
			}
			items = append(items, cp)
		}
	}
	return &CartAccessor{items: items}
}

// Items returns the current cart lines.
func (c *CartAccessor) Items() []map[string]any { return c.items }

// Add inserts or increments a line.
func (c *CartAccessor) Add(prod Product, qty int) {
	for _, line := range c.items {
		if line["product_id"] == prod.ID {
			line["qty"] = float64(lineQty(line) + qty)
			return
		}
	}
	c.items = append(c.items, map[string]any{
		"product_id":  prod.ID,
		"name":        prod.Name,
		"qty":         float64(qty),
		"price_cents": float64(prod.PriceCents),
	})
}

// Remove drops a line; returns false when the product is not in the cart.
func (c *CartAccessor) Remove(productID string) bool {
	for i, line := range c.items {
		if line["product_id"] == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *CartAccessor) Clear() { c.items = nil }

// SubtotalCents sums qty * price across lines.
func (c *CartAccessor) SubtotalCents() int {
	total := 0
	for _, line := range c.items {
		price := 0
		if v, ok := line["price_cents"].(float64); ok {
			price = int(v)
		}
		total += lineQty(line) * price
	}
	return total
}

// Patch renders the cart as a flat session patch.
func (c *CartAccessor) Patch(commerceState string) map[string]any {
	items := make([]any, 0, len(c.items))
	for _, line := range c.items {
		items = append(items, line)
	}
	return map[string]any{
		session.FieldCartItems:         items,
		session.FieldCartSubtotalCents: float64(c.SubtotalCents()),
		session.FieldCommerceState:     commerceState,
	}
}

func lineQty(line map[string]any) int {
	if v, ok := line["qty"].(float64); ok {
		return int(v)
	}
	return 0
}

// CartManagerSpec mutates the cart: add, remove, update quantity, view,
// clear. Every mutation returns the new cart as a state patch.
func CartManagerSpec() Spec {
	return newSpec(
		"cart_manager",
		"Manage the shopping cart: add, remove, view or clear items. Always use this to change the cart.",
		objectParams(map[string]any{
			"action":     stringParam("One of: add, remove, view, clear."),
			"product_id": stringParam("Product ID for add/remove."),
			"quantity":   numberParam("Quantity for add (default 1)."),
		}, "action"),
		func(snapshot session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			cart := NewCartAccessor(snapshot)
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				action := strings.ToLower(paramString(p, "action"))
				switch action {
				case "view":
					return map[string]any{
						"items":          cart.Items(),
						"subtotal_cents": cart.SubtotalCents(),
						"currency":       snapshot.GetString(session.FieldCartCurrency),
					}, nil
				case "add":
					prod, ok := findProduct(paramString(p, "product_id"))
					if !ok {
						return nil, fmt.Errorf("product %q not found", paramString(p, "product_id"))
					}
					qty := paramInt(p, "quantity")
					if qty <= 0 {
						qty = 1
					}
					if prod.Stock < qty {
						return map[string]any{
							"added":     false,
							"reason":    "insufficient_stock",
							"available": prod.Stock,
						}, nil
					}
					cart.Add(prod, qty)
					return map[string]any{
						"added":          true,
						"items":          cart.Items(),
						"subtotal_cents": cart.SubtotalCents(),
						StatePatchKey:    cart.Patch(session.CommerceCartActive),
					}, nil
				case "remove":
					id := strings.ToUpper(paramString(p, "product_id"))
					if !cart.Remove(id) {
						return nil, fmt.Errorf("product %q is not in the cart", id)
					}
					state := session.CommerceCartActive
					if len(cart.Items()) == 0 {
						state = session.CommerceBrowsing
					}
					return map[string]any{
						"removed":        true,
						"items":          cart.Items(),
						"subtotal_cents": cart.SubtotalCents(),
						StatePatchKey:    cart.Patch(state),
					}, nil
				case "clear":
					cart.Clear()
					return map[string]any{
						"cleared":     true,
						StatePatchKey: cart.Patch(session.CommerceBrowsing),
					}, nil
				default:
					return nil, fmt.Errorf("unknown cart action %q", action)
				}
			}
		},
	)
}

// ProductCatalogSpec lists catalog entries by category for browsing.
func ProductCatalogSpec() Spec {
	return newSpec(
		"product_catalog",
		"Browse the catalog by category, with prices and availability.",
		objectParams(map[string]any{
			"category": stringParam("Category to browse: ropa, accesorios, hogar. Omit for all."),
		}),
		func(_ session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				category := strings.ToLower(paramString(p, "category"))
				var rows []map[string]any
				for _, prod := range defaultCatalog {
					if category != "" && prod.Category != category {
						continue
					}
					rows = append(rows, productSummary(prod))
				}
				return map[string]any{"products": rows, "count": len(rows)}, nil
			}
		},
	)
}

// CheckoutValidatorSpec verifies the cart is ready for checkout.
func CheckoutValidatorSpec() Spec {
	return newSpec(
		"checkout_validator",
		"Validate the cart before checkout: non-empty, items in stock, phone verified.",
		objectParams(map[string]any{}),
		func(snapshot session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			cart := NewCartAccessor(snapshot)
			return func(_ context.Context, _ map[string]any) (map[string]any, error) {
				var problems []string
				if len(cart.Items()) == 0 {
					problems = append(problems, "cart_empty")
				}
				for _, line := range cart.Items() {
					id, _ := line["product_id"].(string)
					prod, ok := findProduct(id)
					if !ok || prod.Stock < lineQty(line) {
						problems = append(problems, fmt.Sprintf("out_of_stock:%s", id))
					}
				}
				if !snapshot.GetBool(session.FieldPhoneVerified) {
					problems = append(problems, "phone_not_verified")
				}
				if len(problems) > 0 {
					return map[string]any{"valid": false, "problems": problems}, nil
				}
				return map[string]any{
					"valid":          true,
					"subtotal_cents": cart.SubtotalCents(),
					StatePatchKey: map[string]any{
						session.FieldCommerceState: session.CommerceCheckout,
					},
				}, nil
			}
		},
	)
}
