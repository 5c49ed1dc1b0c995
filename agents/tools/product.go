package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/charlahq/charla/session"
)

// ProductSearchSpec searches the catalog by free text and category.
func ProductSearchSpec() Spec {
	return newSpec(
		"product_search",
		"Search the product catalog by keywords, optionally filtered by category.",
		objectParams(map[string]any{
			"query":    stringParam("Keywords describing the product."),
			"category": stringParam("Category filter: ropa, accesorios, hogar."),
		}, "query"),
		func(_ session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				query := strings.ToLower(paramString(p, "query"))
				category := strings.ToLower(paramString(p, "category"))

				var hits []map[string]any
				for _, prod := range defaultCatalog {
					if category != "" && prod.Category != category {
						continue
					}
					if query != "" && !productMatches(prod, query) {
						continue
					}
					hits = append(hits, productSummary(prod))
				}
				return map[string]any{"results": hits, "count": len(hits)}, nil
			}
		},
	)
}

// ProductDetailsSpec returns the full record of one product.
func ProductDetailsSpec() Spec {
	return newSpec(
		"product_details",
		"Get the full details of a product by its ID.",
		objectParams(map[string]any{
			"product_id": stringParam("Product ID, e.g. SKU-1001."),
		}, "product_id"),
		func(_ session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				prod, ok := findProduct(paramString(p, "product_id"))
				if !ok {
					return nil, fmt.Errorf("product %q not found", paramString(p, "product_id"))
				}
				detail := productSummary(prod)
				detail["description"] = prod.Description
				detail["tags"] = prod.Tags
				return detail, nil
			}
		},
	)
}

// ProductAvailabilitySpec reports stock for one product.
func ProductAvailabilitySpec() Spec {
	return newSpec(
		"product_availability",
		"Check whether a product is in stock and how many units remain.",
		objectParams(map[string]any{
			"product_id": stringParam("Product ID, e.g. SKU-1001."),
		}, "product_id"),
		func(_ session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				prod, ok := findProduct(paramString(p, "product_id"))
				if !ok {
					return nil, fmt.Errorf("product %q not found", paramString(p, "product_id"))
				}
				return map[string]any{
					"product_id": prod.ID,
					"name":       prod.Name,
					"in_stock":   prod.Stock > 0,
					"stock":      prod.Stock,
				}, nil
			}
		},
	)
}

// ProductComparisonSpec compares two or more products side by side.
func ProductComparisonSpec() Spec {
	return newSpec(
		"product_comparison",
		"Compare two or more products by price, stock and description.",
		objectParams(map[string]any{
			"product_ids": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "IDs of the products to compare.",
			},
		}, "product_ids"),
		func(_ session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				ids, _ := p["product_ids"].([]any)
				if len(ids) < 2 {
					return nil, fmt.Errorf("comparison needs at least two product ids")
				}
				var rows []map[string]any
				for _, raw := range ids {
					id, _ := raw.(string)
					prod, ok := findProduct(id)
					if !ok {
						return nil, fmt.Errorf("product %q not found", id)
					}
					row := productSummary(prod)
					row["description"] = prod.Description
					rows = append(rows, row)
				}
				return map[string]any{"products": rows}, nil
			}
		},
	)
}

func findProduct(id string) (Product, bool) {
	id = strings.ToUpper(strings.TrimSpace(id))
	for _, prod := range defaultCatalog {
		if prod.ID == id {
			return prod, true
		}
	}
	return Product{}, false
}

func productMatches(prod Product, query string) bool {
	haystack := strings.ToLower(prod.Name + " " + prod.Description + " " + strings.Join(prod.Tags, " "))
	for _, word := range strings.Fields(query) {
		if strings.Contains(haystack, word) {
			return true
		}
	}
	return false
}

func productSummary(prod Product) map[string]any {
	return map[string]any{
		"product_id":  prod.ID,
		"name":        prod.Name,
		"category":    prod.Category,
		"price_cents": prod.PriceCents,
		"currency":    prod.Currency,
		"in_stock":    prod.Stock > 0,
	}
}
