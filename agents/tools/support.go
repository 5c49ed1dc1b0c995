package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/charlahq/charla/session"
)

// RefundPolicySpec returns the refund and exchange policy text.
func RefundPolicySpec() Spec {
	return newSpec(
		"refund_policy",
		"Get the refund and exchange policy.",
		objectParams(map[string]any{}),
		func(_ session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			return func(_ context.Context, _ map[string]any) (map[string]any, error) {
				return map[string]any{"policy": refundPolicyText}, nil
			}
		},
	)
}

// CaseManagerSpec opens, checks or escalates support cases. Opening a case
// records its id in the session through a state patch.
func CaseManagerSpec() Spec {
	return newSpec(
		"case_manager",
		"Open a support case, check its status or escalate it. Use open when the user reports a problem that needs follow-up.",
		objectParams(map[string]any{
			"action":  stringParam("One of: open, status, escalate."),
			"subject": stringParam("Short description of the problem, required for open."),
			"case_id": stringParam("Case ID for status/escalate. Defaults to the active case."),
		}, "action"),
		func(snapshot session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			activeCase := snapshot.GetString(session.FieldActiveCaseID)
			waID := snapshot.GetString(session.FieldWaID)
			return func(_ context.Context, p map[string]any) (map[string]any, error) {
				action := strings.ToLower(paramString(p, "action"))
				caseID := paramString(p, "case_id")
				if caseID == "" {
					caseID = activeCase
				}
				switch action {
				case "open":
					subject := strings.TrimSpace(paramString(p, "subject"))
					if subject == "" {
						return nil, fmt.Errorf("a subject is required to open a case")
					}
					id := "CASE-" + strings.ToUpper(uuid.NewString()[:8])
					return map[string]any{
						"case_id": id,
						"status":  "open",
						"subject": subject,
						StatePatchKey: map[string]any{
							session.FieldActiveCaseID: id,
						},
					}, nil
				case "status":
					if caseID == "" {
						return nil, fmt.Errorf("no case id given and no active case")
					}
					if c, ok := findCase(caseID, waID); ok {
						return map[string]any{
							"case_id":    c.ID,
							"status":     c.Status,
							"subject":    c.Subject,
							"escalation": c.Escalation,
						}, nil
					}
					// Cases opened this session live only in the session.
					return map[string]any{
						"case_id": caseID,
						"status":  "open",
					}, nil
				case "escalate":
					if caseID == "" {
						return nil, fmt.Errorf("no case id given and no active case")
					}
					level := 1
					if c, ok := findCase(caseID, waID); ok {
						level = c.Escalation + 1
					}
					return map[string]any{
						"case_id":    caseID,
						"status":     "in_review",
						"escalation": level,
						"escalated":  true,
					}, nil
				default:
					return nil, fmt.Errorf("unknown case action %q", action)
				}
			}
		},
	)
}

// ContactSupportSpec hands out the human support channels.
func ContactSupportSpec() Spec {
	return newSpec(
		"contact_support",
		"Get the human support contact channels and service hours.",
		objectParams(map[string]any{}),
		func(_ session.Session) func(context.Context, map[string]any) (map[string]any, error) {
			return func(_ context.Context, _ map[string]any) (map[string]any, error) {
				return map[string]any{
					"phone":    "+57 601 555 0100",
					"email":    "soporte@tienda.example",
					"whatsapp": "+57 300 555 0100",
					"hours":    "Lunes a viernes 08:00-18:00, sabados 09:00-13:00",
				}, nil
			}
		},
	)
}

// CaseEscalation reports the escalation level of a known case.
func CaseEscalation(caseID, waID string) (int, bool) {
	c, ok := findCase(caseID, waID)
	return c.Escalation, ok
}

func findCase(caseID, waID string) (SupportCase, bool) {
	caseID = strings.ToUpper(strings.TrimSpace(caseID))
	for _, c := range defaultCases {
		if c.ID == caseID && (waID == "" || c.WaID == waID) {
			return c, true
		}
	}
	return SupportCase{}, false
}
