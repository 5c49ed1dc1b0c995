package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charlahq/charla/session"
)

// BusinessHoursSpec answers store-hours questions from the weekly schedule.
func BusinessHoursSpec() Spec {
	return newSpec(
		"business_hours",
		"Look up the store opening hours, for one day or the whole week.",
		objectParams(map[string]any{
			"day": stringParam("Day of week in English lowercase (monday..sunday). Omit for the full week."),
		}),
		func(_ session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				day := strings.ToLower(paramString(p, "day"))
				if day != "" {
					hours, ok := defaultHours[day]
					if !ok {
						return nil, fmt.Errorf("unknown day %q", day)
					}
					if hours == "" {
						return map[string]any{"day": day, "open": false}, nil
					}
					return map[string]any{"day": day, "open": true, "hours": hours}, nil
				}
				week := make(map[string]any, len(defaultHours))
				for d, h := range defaultHours {
					if h == "" {
						week[d] = "cerrado"
					} else {
						week[d] = h
					}
				}
				return map[string]any{"week": week}, nil
			}
		},
	)
}

// LocationsSpec lists stores, nearest first when coordinates are given.
func LocationsSpec() Spec {
	return newSpec(
		"locations",
		"List store locations with address and phone, nearest first when the user shares coordinates.",
		objectParams(map[string]any{
			"lat":  numberParam("Latitude of the user, for proximity sorting."),
			"lng":  numberParam("Longitude of the user, for proximity sorting."),
			"city": stringParam("Filter by city name."),
		}),
		func(_ session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				city := strings.ToLower(paramString(p, "city"))
				var matched []Location
				for _, loc := range defaultLocations {
					if city != "" && !strings.Contains(strings.ToLower(loc.City), city) {
						continue
					}
					matched = append(matched, loc)
				}

				lat, hasLat := paramFloat(p, "lat")
				lng, hasLng := paramFloat(p, "lng")
				if hasLat && hasLng {
					sort.Slice(matched, func(i, j int) bool {
						return haversineKm(lat, lng, matched[i].Lat, matched[i].Lng) <
							haversineKm(lat, lng, matched[j].Lat, matched[j].Lng)
					})
				}

				out := make([]map[string]any, 0, len(matched))
				for _, loc := range matched {
					entry := map[string]any{
						"id":      loc.ID,
						"name":    loc.Name,
						"address": loc.Address,
						"city":    loc.City,
						"phone":   loc.Phone,
					}
					if hasLat && hasLng {
						entry["distance_km"] = math.Round(haversineKm(lat, lng, loc.Lat, loc.Lng)*10) / 10
					}
					out = append(out, entry)
				}
				return map[string]any{"locations": out}, nil
			}
		},
	)
}

// GeneralFaqSpec searches the FAQ by category or keywords.
func GeneralFaqSpec() Spec {
	return newSpec(
		"general_faq",
		"Search frequently asked questions about shipping, payments and returns.",
		objectParams(map[string]any{
			"query":    stringParam("Keywords to search for."),
			"category": stringParam("Restrict to a category: envios, pagos, devoluciones."),
		}),
		func(_ session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				query := strings.ToLower(paramString(p, "query"))
				category := strings.ToLower(paramString(p, "category"))

				var hits []map[string]any
				for _, entry := range defaultFaq {
					if category != "" && entry.Category != category {
						continue
					}
					if query != "" && !faqMatches(entry, query) {
						continue
					}
					hits = append(hits, map[string]any{
						"category": entry.Category,
						"question": entry.Question,
						"answer":   entry.Answer,
					})
				}
				return map[string]any{"results": hits, "count": len(hits)}, nil
			}
		},
	)
}

func faqMatches(entry FaqEntry, query string) bool {
	for _, kw := range entry.Keywords {
		if strings.Contains(query, kw) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(entry.Question), query)
}

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
