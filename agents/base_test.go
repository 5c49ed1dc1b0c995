package agents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/charlahq/charla/agents/tools"
	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/llm"
	"github.com/charlahq/charla/session"
)

// scriptedLLM returns canned ChatWithTools responses in order, then keeps
// returning the last one. It records the last message batch it was sent.
type scriptedLLM struct {
	responses []*llm.ChatResponse
	err       error
	calls     int
	lastSent  []llm.Message
}

func (s *scriptedLLM) Chat(_ context.Context, _ []llm.Message) (string, *llm.CallStats, error) {
	return "respuesta final", &llm.CallStats{}, nil
}

func (s *scriptedLLM) ChatWithTools(_ context.Context, messages []llm.Message, _ []llm.ToolDescriptor) (*llm.ChatResponse, *llm.CallStats, error) {
	s.lastSent = messages
	if s.err != nil {
		return nil, nil, s.err
	}
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], &llm.CallStats{}, nil
}

func (s *scriptedLLM) ChatWithSchema(_ context.Context, _ []llm.Message, _ *llm.ResponseSchema, _ llm.SchemaOptions) (json.RawMessage, *llm.CallStats, error) {
	return nil, nil, errors.New("not used")
}

func (s *scriptedLLM) Warmup(_ context.Context) {}

// testHooks is a minimal lane with configurable tools.
type testHooks struct {
	DefaultHooks
	specs []tools.Spec
	patch map[string]any
}

func (h testHooks) Lane() conversation.Lane      { return conversation.LaneInfo }
func (h testHooks) SystemInstructions() string   { return "test agent" }
func (h testHooks) ErrorMessage() string         { return "algo fallo" }
func (h testHooks) ToolSpecs(_ session.Session) []tools.Spec {
	return h.specs
}
func (h testHooks) BuildContext(_ session.Session, intent string) string {
	return "intent: " + intent
}
func (h testHooks) BuildStatePatch(_ session.Session) map[string]any {
	return h.patch
}

// patchTool emits a fixed state patch and result.
func patchTool(name string, patch map[string]any) tools.Spec {
	return tools.Spec{
		Name:        name,
		Description: "test tool",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Build: func(_ session.Session) tools.Tool {
			return staticTool{name: name, patch: patch}
		},
	}
}

type staticTool struct {
	name  string
	patch map[string]any
}

func (t staticTool) Name() string               { return t.name }
func (t staticTool) Description() string        { return "test tool" }
func (t staticTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (t staticTool) Execute(_ context.Context, _ map[string]any) (map[string]any, error) {
	out := map[string]any{"ok": true}
	if t.patch != nil {
		out[tools.StatePatchKey] = t.patch
	}
	return out, nil
}

func turnFixture() conversation.Turn {
	return conversation.Turn{
		TenantID: "t1", WaID: "57300", MessageID: "wamid.1",
		Text: "hola", Timestamp: "2026-08-26T10:00:00Z",
	}
}

func TestRunPlainAnswer(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.ChatResponse{{Content: "Hola! En que te ayudo?"}}}
	agent := NewBase(svc, testHooks{})

	resp := agent.Run(context.Background(), turnFixture(), session.Blank(), "greeting")

	if len(resp.Messages) != 1 || resp.Messages[0].Text != "Hola! En que te ayudo?" {
		t.Errorf("messages: %v", resp.Messages)
	}
	if resp.StatePatch == nil || len(resp.StatePatch) != 0 {
		t.Errorf("expected empty non-nil patch, got %v", resp.StatePatch)
	}
	if resp.Baton != nil {
		t.Error("unexpected baton")
	}
}

func TestRunToolRoundThenAnswer(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "lookup", Argument: "{}"}}},
		{Content: "listo"},
	}}
	agent := NewBase(svc, testHooks{
		specs: []tools.Spec{patchTool("lookup", map[string]any{"last_order_id": "ORD-1"})},
	})

	resp := agent.Run(context.Background(), turnFixture(), session.Blank(), "order_lookup")

	if svc.calls != 2 {
		t.Errorf("expected 2 chat rounds, got %d", svc.calls)
	}
	if resp.StatePatch["last_order_id"] != "ORD-1" {
		t.Errorf("tool patch not captured: %v", resp.StatePatch)
	}
	if resp.Messages[0].Text != "listo" {
		t.Errorf("final content: %v", resp.Messages)
	}
}

// Later tool patches win field by field, and the hook patch overlays last.
func TestRunPatchMergeOrder(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{
			{ID: "1", Name: "first", Argument: "{}"},
			{ID: "2", Name: "second", Argument: "{}"},
		}},
		{Content: "hecho"},
	}}
	agent := NewBase(svc, testHooks{
		specs: []tools.Spec{
			patchTool("first", map[string]any{"a": "tool1", "b": "tool1"}),
			patchTool("second", map[string]any{"b": "tool2", "c": "tool2"}),
		},
		patch: map[string]any{"c": "hook"},
	})

	resp := agent.Run(context.Background(), turnFixture(), session.Blank(), "x")

	want := map[string]any{"a": "tool1", "b": "tool2", "c": "hook"}
	for k, v := range want {
		if resp.StatePatch[k] != v {
			t.Errorf("patch[%s] = %v, want %v", k, resp.StatePatch[k], v)
		}
	}
}

func TestRunLLMFailureDegrades(t *testing.T) {
	svc := &scriptedLLM{err: errors.New("upstream down")}
	agent := NewBase(svc, testHooks{})

	resp := agent.Run(context.Background(), turnFixture(), session.Blank(), "x")

	if len(resp.Messages) != 1 || resp.Messages[0].Text != "algo fallo" {
		t.Errorf("expected error message, got %v", resp.Messages)
	}
	if len(resp.StatePatch) != 0 {
		t.Errorf("failure must not patch: %v", resp.StatePatch)
	}
}

func TestRunEmptyContentDegrades(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.ChatResponse{{Content: ""}}}
	agent := NewBase(svc, testHooks{})

	resp := agent.Run(context.Background(), turnFixture(), session.Blank(), "x")
	if len(resp.Messages) != 1 || resp.Messages[0].Text != "algo fallo" {
		t.Errorf("expected error message, got %v", resp.Messages)
	}
}

func TestRunSnapshotIsolation(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.ChatResponse{{Content: "ok"}}}
	agent := NewBase(svc, mutatingHooks{})

	sess := session.NewSession("t1", "57300", "", "")
	agent.Run(context.Background(), turnFixture(), sess, "x")

	if sess.GetString("poisoned") != "" {
		t.Error("agent mutated the controller's session")
	}
}

// mutatingHooks writes into the snapshot it receives; the original session
// must not see it.
type mutatingHooks struct {
	DefaultHooks
}

func (mutatingHooks) Lane() conversation.Lane                    { return conversation.LaneInfo }
func (mutatingHooks) SystemInstructions() string                 { return "x" }
func (mutatingHooks) ToolSpecs(_ session.Session) []tools.Spec   { return nil }
func (mutatingHooks) BuildContext(s session.Session, _ string) string {
	s["poisoned"] = "yes"
	return "ctx"
}

func TestRunSplitsLongAnswer(t *testing.T) {
	long := strings.Repeat("palabra ", 1000) // ~8000 runes
	svc := &scriptedLLM{responses: []*llm.ChatResponse{{Content: long}}}
	agent := NewBase(svc, testHooks{})

	resp := agent.Run(context.Background(), turnFixture(), session.Blank(), "x")
	if len(resp.Messages) < 2 {
		t.Errorf("long answer not split: %d messages", len(resp.Messages))
	}
}

// bareContextHooks supplies no per-turn context.
type bareContextHooks struct {
	testHooks
}

func (bareContextHooks) BuildContext(_ session.Session, _ string) string { return "" }

func TestRunPromptOmitsEmptyContext(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.ChatResponse{{Content: "ok"}}}
	agent := NewBase(svc, bareContextHooks{})

	agent.Run(context.Background(), turnFixture(), session.Blank(), "greeting")

	prompt := svc.lastSent[len(svc.lastSent)-1].Content
	if prompt != "hola" {
		t.Errorf("empty context must send the bare question, got %q", prompt)
	}

	svc = &scriptedLLM{responses: []*llm.ChatResponse{{Content: "ok"}}}
	agent = NewBase(svc, testHooks{})
	agent.Run(context.Background(), turnFixture(), session.Blank(), "greeting")

	prompt = svc.lastSent[len(svc.lastSent)-1].Content
	if !strings.Contains(prompt, "intent: greeting") || !strings.Contains(prompt, "User question: hola") {
		t.Errorf("context prompt malformed: %q", prompt)
	}
}

func TestRegistryCoversAllLanes(t *testing.T) {
	registry := NewRegistry(&scriptedLLM{responses: []*llm.ChatResponse{{Content: "x"}}})

	for _, lane := range conversation.KnownLanes() {
		agent, err := registry.ForLane(lane)
		if err != nil {
			t.Errorf("lane %s: %v", lane, err)
			continue
		}
		if agent.Lane() != lane {
			t.Errorf("lane %s resolved to agent for %s", lane, agent.Lane())
		}
	}

	if _, err := registry.ForLane("billing"); err == nil {
		t.Error("unknown lane resolved")
	}
}
