package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/charlahq/charla/session"
)

// OrderLookupSpec finds an order by id, scoped to the verified phone. With no
// id it returns the most recent order for the phone.
func OrderLookupSpec() Spec {
	return newSpec(
		"order_lookup",
		"Look up an order by its ID, or the customer's latest order when no ID is given.",
		objectParams(map[string]any{
			"order_id": stringParam("Order ID, e.g. ORD-1042. Omit for the latest order."),
		}),
		func(snapshot session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			waID := snapshot.GetString(session.FieldWaID)
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				orderID := strings.ToUpper(strings.TrimSpace(paramString(p, "order_id")))
				if orderID != "" {
					for _, o := range defaultOrders {
						if o.ID == orderID {
							if o.WaID != waID {
								return nil, fmt.Errorf("order %s does not belong to this phone number", orderID)
							}
							return orderView(o, StatePatchKey), nil
						}
					}
					return nil, fmt.Errorf("order %q not found", orderID)
				}
				for _, o := range defaultOrders {
					if o.WaID == waID {
						return orderView(o, StatePatchKey), nil
					}
				}
				return map[string]any{"found": false}, nil
			}
		},
	)
}

// DeliveryETASpec estimates delivery for an order in transit.
func DeliveryETASpec() Spec {
	return newSpec(
		"delivery_eta",
		"Estimate the delivery date of an order that has shipped.",
		objectParams(map[string]any{
			"order_id": stringParam("Order ID, e.g. ORD-1042."),
		}, "order_id"),
		func(snapshot session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			waID := snapshot.GetString(session.FieldWaID)
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				orderID := strings.ToUpper(strings.TrimSpace(paramString(p, "order_id")))
				for _, o := range defaultOrders {
					if o.ID != orderID {
						continue
					}
					if o.WaID != waID {
						return nil, fmt.Errorf("order %s does not belong to this phone number", orderID)
					}
					out := map[string]any{
						"order_id": o.ID,
						"status":   o.Status,
						"eta_days": o.EtaDays,
						"city":     o.City,
					}
					if o.Carrier != "" {
						out["carrier"] = o.Carrier
					}
					return out, nil
				}
				return nil, fmt.Errorf("order %q not found", orderID)
			}
		},
	)
}

func orderView(o Order, patchKey string) map[string]any {
	out := map[string]any{
		"found":       true,
		"order_id":    o.ID,
		"status":      o.Status,
		"city":        o.City,
		"total_cents": o.TotalCents,
		"currency":    o.Currency,
		"eta_days":    o.EtaDays,
	}
	if o.Carrier != "" {
		out["carrier"] = o.Carrier
	}
	out[patchKey] = map[string]any{session.FieldLastOrderID: o.ID}
	return out
}
