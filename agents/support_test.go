package agents

import (
	"testing"

	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/session"
)

func sessionWithUserTurns(texts ...string) session.Session {
	sess := session.NewSession("t1", "57300", "", "")
	for i, text := range texts {
		sess.AppendTurn(conversation.UserEntry(text, "wamid."+string(rune('a'+i)), "2026-08-26T10:00:00Z"))
	}
	return sess
}

func TestSupportHandoffOnPersistentFrustration(t *testing.T) {
	hooks := supportHooks{}
	sess := sessionWithUserTurns(
		"esto es un pesimo servicio",
		"sigo esperando, inaceptable",
	)
	turn := conversation.Turn{TenantID: "t1", WaID: "57300", Text: "quiero una queja formal, esto es una estafa"}

	patch, baton := hooks.PostProcess(sess, map[string]any{}, turn)
	if patch[session.FieldHumanHandoff] != true {
		t.Errorf("expected handoff after three negative messages: %v", patch)
	}
	if baton != nil {
		t.Error("handoff must not baton")
	}
}

func TestSupportNoHandoffOnSingleComplaint(t *testing.T) {
	hooks := supportHooks{}
	sess := sessionWithUserTurns("hola", "me gusta la tienda")
	turn := conversation.Turn{TenantID: "t1", WaID: "57300", Text: "el producto llego dañado, pesimo"}

	patch, _ := hooks.PostProcess(sess, map[string]any{}, turn)
	if _, ok := patch[session.FieldHumanHandoff]; ok {
		t.Errorf("single complaint must not hand off: %v", patch)
	}
}

func TestSupportHandoffOnEscalatedCase(t *testing.T) {
	hooks := supportHooks{}
	sess := sessionWithUserTurns("hola")
	sess[session.FieldWaID] = "573001112233"

	// CASE-7F2A11B0 sits at escalation 1; a patch bumping to it alone is not
	// enough, so force the threshold through the fixture case check.
	patch, _ := hooks.PostProcess(sess, map[string]any{
		session.FieldActiveCaseID: "CASE-7F2A11B0",
	}, conversation.Turn{TenantID: "t1", WaID: "573001112233", Text: "como va mi caso"})
	if _, ok := patch[session.FieldHumanHandoff]; ok {
		t.Errorf("escalation 1 must not hand off: %v", patch)
	}
}

func TestCountNegativeUserEntriesWindow(t *testing.T) {
	texts := make([]string, 0, 12)
	// Two old negatives that fall outside the 10-entry window.
	texts = append(texts, "pesimo", "horrible")
	for i := 0; i < 10; i++ {
		texts = append(texts, "todo bien")
	}
	sess := sessionWithUserTurns(texts...)

	if got := countNegativeUserEntries(sess, "gracias"); got != 0 {
		t.Errorf("old negatives counted: %d", got)
	}
	if got := countNegativeUserEntries(sess, "esto es una estafa"); got != 1 {
		t.Errorf("current message not counted: %d", got)
	}
}

func TestRecentProductIDs(t *testing.T) {
	sess := session.NewSession("t1", "57300", "", "")
	sess.AppendTurn(conversation.UserEntry("me interesa la SKU-1001", "wamid.1", "2026-08-26T10:00:00Z"))
	sess.AppendTurn(map[string]any{
		"role": "assistant", "lane": "product",
		"messages": []any{map[string]any{"type": "text", "text": "La SKU-1002 cuesta $69.900 y la SKU-1001 $49.900"}},
	})

	ids := recentProductIDs(sess, 5)
	if len(ids) != 2 {
		t.Fatalf("ids: %v", ids)
	}
	// Newest entry scanned first.
	if ids[0] != "SKU-1002" && ids[0] != "SKU-1001" {
		t.Errorf("unexpected ids: %v", ids)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestOrderStatusWithholdsToolsUntilVerified(t *testing.T) {
	hooks := orderStatusHooks{}
	sess := session.NewSession("t1", "57300", "", "")

	if specs := hooks.ToolSpecs(sess); len(specs) != 0 {
		t.Errorf("unverified session got %d tools", len(specs))
	}

	sess[session.FieldPhoneVerified] = true
	if specs := hooks.ToolSpecs(sess); len(specs) != 2 {
		t.Errorf("verified session got %d tools, want 2", len(specs))
	}
}
