// Package agents implements the lane agents. Each agent shares the Base
// execution loop (tool-enabled LLM chat over a session snapshot) and differs
// only in its hooks: instructions, tools, context building and post
// processing.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/charlahq/charla/agents/tools"
	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/internal/strutil"
	"github.com/charlahq/charla/llm"
	"github.com/charlahq/charla/messaging"
	"github.com/charlahq/charla/metrics"
	"github.com/charlahq/charla/session"
)

// maxToolRounds bounds the chat loop so a misbehaving model cannot spin.
const maxToolRounds = 4

// Agent handles one lane's turns.
type Agent interface {
	Lane() conversation.Lane
	Run(ctx context.Context, turn conversation.Turn, sess session.Session, intent string) conversation.AgentResponse
}

// Hooks is what a concrete agent supplies to the shared Base loop.
type Hooks interface {
	// Lane is the lane this agent owns.
	Lane() conversation.Lane
	// SystemInstructions is the system prompt, persona and guardrails.
	SystemInstructions() string
	// ToolSpecs lists the tools for this invocation. Fresh instances are
	// built per turn from the snapshot.
	ToolSpecs(snapshot session.Session) []tools.Spec
	// BuildContext renders the snapshot into the context block that precedes
	// the user question.
	BuildContext(snapshot session.Session, intent string) string
	// BuildStatePatch contributes lane-owned fields to the state patch after
	// the tool patches are merged. May return nil.
	BuildStatePatch(snapshot session.Session) map[string]any
	// PostProcess inspects the merged patch and may amend it or request a
	// handoff to another lane.
	PostProcess(snapshot session.Session, patch map[string]any, turn conversation.Turn) (map[string]any, *conversation.Baton)
	// BuildMessages turns the final assistant text into outgoing messages.
	BuildMessages(snapshot session.Session, content string) []messaging.OutgoingMessage
	// ErrorMessage is the user-facing reply when the invocation fails.
	ErrorMessage() string
}

// DefaultHooks carries the hook behaviour most agents share. Concrete agents
// embed it and override what they need.
type DefaultHooks struct{}

func (DefaultHooks) BuildStatePatch(_ session.Session) map[string]any { return nil }

func (DefaultHooks) PostProcess(_ session.Session, patch map[string]any, _ conversation.Turn) (map[string]any, *conversation.Baton) {
	return patch, nil
}

func (DefaultHooks) BuildMessages(_ session.Session, content string) []messaging.OutgoingMessage {
	return messaging.SplitText(content)
}

func (DefaultHooks) ErrorMessage() string {
	return "Lo siento, tuve un problema procesando tu mensaje. Intenta de nuevo en un momento."
}

// Base runs the shared agent loop for a set of hooks.
type Base struct {
	llm   llm.Service
	hooks Hooks
}

// NewBase builds an agent from its hooks and the shared LLM service.
func NewBase(svc llm.Service, hooks Hooks) *Base {
	return &Base{llm: svc, hooks: hooks}
}

func (b *Base) Lane() conversation.Lane { return b.hooks.Lane() }

// Run executes one invocation. It never returns an error: failures and
// panics degrade to an apology message with an empty state patch.
func (b *Base) Run(ctx context.Context, turn conversation.Turn, sess session.Session, intent string) (resp conversation.AgentResponse) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("agent: panic recovered",
				"lane", b.hooks.Lane(),
				"tenant_id", turn.TenantID,
				"wa_id", turn.WaID,
				"panic", fmt.Sprint(r),
			)
			resp = b.failure()
		}
	}()

	snapshot := sess.Clone()

	instances, descriptors := b.buildTools(snapshot)
	capture := &patchCapture{}

	prompt := turn.Text
	if ctxStr := b.hooks.BuildContext(snapshot, intent); ctxStr != "" {
		prompt = ctxStr + "\n\nUser question: " + turn.Text
	}
	messages := []llm.Message{
		llm.SystemPrompt(b.hooks.SystemInstructions()),
		llm.UserMessage(prompt),
	}

	content, err := b.chatLoop(ctx, turn, messages, instances, descriptors, capture)
	if err != nil {
		slog.Error("agent: invocation failed",
			"lane", b.hooks.Lane(),
			"tenant_id", turn.TenantID,
			"wa_id", turn.WaID,
			"error", err.Error(),
		)
		return b.failure()
	}
	if content == "" {
		return b.failure()
	}

	patch := capture.merged()
	for k, v := range b.hooks.BuildStatePatch(snapshot) {
		patch[k] = v
	}
	patch, baton := b.hooks.PostProcess(snapshot, patch, turn)

	return conversation.AgentResponse{
		Messages:   b.hooks.BuildMessages(snapshot, content),
		StatePatch: patch,
		Baton:      baton,
	}
}

func (b *Base) failure() conversation.AgentResponse {
	return conversation.AgentResponse{
		Messages:   []messaging.OutgoingMessage{messaging.NewText(b.hooks.ErrorMessage())},
		StatePatch: map[string]any{},
	}
}

func (b *Base) buildTools(snapshot session.Session) (map[string]tools.Tool, []llm.ToolDescriptor) {
	specs := b.hooks.ToolSpecs(snapshot)
	instances := make(map[string]tools.Tool, len(specs))
	descriptors := make([]llm.ToolDescriptor, 0, len(specs))
	for _, spec := range specs {
		params, _ := json.Marshal(spec.Parameters)
		instances[spec.Name] = spec.Build(snapshot)
		descriptors = append(descriptors, llm.ToolDescriptor{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  string(params),
		})
	}
	return instances, descriptors
}

// chatLoop runs tool rounds until the model answers in plain text or the
// round budget runs out.
func (b *Base) chatLoop(ctx context.Context, turn conversation.Turn, messages []llm.Message,
	instances map[string]tools.Tool, descriptors []llm.ToolDescriptor, capture *patchCapture) (string, error) {

	for round := 0; round < maxToolRounds; round++ {
		resp, _, err := b.llm.ChatWithTools(ctx, messages, descriptors)
		if err != nil {
			return "", err
		}
		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}
		if resp.Content != "" {
			messages = append(messages, llm.AssistantMessage(resp.Content))
		}
		for _, call := range resp.ToolCalls {
			result := b.invokeTool(ctx, turn, instances, call, capture)
			messages = append(messages,
				llm.AssistantMessage(fmt.Sprintf("Called tool %s with %s", call.Name, call.Argument)),
				llm.UserMessage(fmt.Sprintf("Tool %s result: %s", call.Name, result)),
			)
		}
	}
	// Out of rounds: one last call without tools forces a textual answer.
	content, _, err := b.llm.Chat(ctx, append(messages,
		llm.UserMessage("Answer the user now with the information gathered so far.")))
	return content, err
}

// invokeTool executes one requested call and returns the JSON the model sees.
// State patches are captured and stripped from the model-visible output.
func (b *Base) invokeTool(ctx context.Context, turn conversation.Turn,
	instances map[string]tools.Tool, call llm.ToolCall, capture *patchCapture) string {

	start := time.Now()
	slog.Info("agent_tool_invoked",
		"event", "agent_tool_invoked",
		"lane", b.hooks.Lane(),
		"tenant_id", turn.TenantID,
		"wa_id", turn.WaID,
		"tool", call.Name,
		"args", strutil.Truncate(call.Argument, 200),
	)

	tool, ok := instances[call.Name]
	if !ok {
		return fmt.Sprintf(`{"error":"unknown tool %s"}`, call.Name)
	}

	var params map[string]any
	if call.Argument != "" {
		if err := json.Unmarshal([]byte(call.Argument), &params); err != nil {
			return fmt.Sprintf(`{"error":"invalid arguments: %s"}`, err.Error())
		}
	}

	result, err := tool.Execute(ctx, params)
	if err != nil {
		metrics.ToolCalls.WithLabelValues(call.Name, "error").Inc()
		slog.Info("agent_tool_result",
			"event", "agent_tool_result",
			"lane", b.hooks.Lane(),
			"tool", call.Name,
			"ok", false,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}

	if patch, ok := result[tools.StatePatchKey].(map[string]any); ok {
		capture.add(patch)
		delete(result, tools.StatePatchKey)
	}

	metrics.ToolCalls.WithLabelValues(call.Name, "ok").Inc()
	slog.Info("agent_tool_result",
		"event", "agent_tool_result",
		"lane", b.hooks.Lane(),
		"tool", call.Name,
		"ok", true,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	out, err := json.Marshal(result)
	if err != nil {
		return `{"error":"unencodable tool result"}`
	}
	return string(out)
}

// patchCapture accumulates tool state patches in call order; later writes to
// the same field win.
type patchCapture struct {
	patches []map[string]any
}

func (c *patchCapture) add(patch map[string]any) {
	c.patches = append(c.patches, patch)
}

func (c *patchCapture) merged() map[string]any {
	merged := map[string]any{}
	for _, patch := range c.patches {
		for k, v := range patch {
			merged[k] = v
		}
	}
	return merged
}
