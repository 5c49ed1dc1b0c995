// Package conversation defines the canonical types exchanged between the
// webhook ingress, the turn controller, the router and the agents: the Turn,
// the dialogue entries stored in a session, agent responses and turn results.
package conversation

import (
	"time"

	"github.com/charlahq/charla/messaging"
)

// Lane identifies the domain an agent handles. The set is closed.
type Lane = string

const (
	LaneInfo        Lane = "info"
	LaneProduct     Lane = "product"
	LaneCommerce    Lane = "commerce"
	LaneSupport     Lane = "support"
	LaneOrderStatus Lane = "order_status"
)

// KnownLanes returns the closed lane set in stable order.
func KnownLanes() []Lane {
	return []Lane{LaneInfo, LaneProduct, LaneCommerce, LaneSupport, LaneOrderStatus}
}

// IsKnownLane reports whether lane belongs to the closed set.
func IsKnownLane(lane string) bool {
	switch lane {
	case LaneInfo, LaneProduct, LaneCommerce, LaneSupport, LaneOrderStatus:
		return true
	}
	return false
}

// Turn is the immutable, provider-neutral view of one inbound user message.
type Turn struct {
	TenantID  string `json:"tenant_id"`
	WaID      string `json:"wa_id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
	Payload   string `json:"payload,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Baton is an agent's request to hand the turn off to another lane within
// the same turn.
type Baton struct {
	ToLane     Lane           `json:"to_lane"`
	CarryState map[string]any `json:"carry_state,omitempty"`
	Intent     string         `json:"intent"`
}

// AgentResponse is what a lane agent returns for one invocation.
type AgentResponse struct {
	Messages   []messaging.OutgoingMessage
	StatePatch map[string]any
	Baton      *Baton
}

// TurnResult is the outcome of one handle-turn operation.
type TurnResult struct {
	Success  bool
	Messages []messaging.OutgoingMessage
	Lane     Lane
	Err      string
}

// Timestamp formats a time as the ISO-8601 UTC string used throughout
// sessions and dialogue entries.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// UserEntry builds the dialogue entry persisted for an inbound user message.
// Entries are plain maps so they survive JSON round-trips through the session
// store without a schema migration.
func UserEntry(text, messageID, timestamp string) map[string]any {
	return map[string]any{
		"role":       "user",
		"text":       text,
		"message_id": messageID,
		"timestamp":  timestamp,
	}
}

// AssistantEntry builds the dialogue entry persisted for an agent response.
func AssistantEntry(lane Lane, messages []messaging.OutgoingMessage, timestamp string) map[string]any {
	msgs := make([]any, 0, len(messages))
	for _, m := range messages {
		entry := map[string]any{"type": string(m.Type)}
		if m.Type == messaging.MessageTypeText {
			entry["text"] = m.Text
		} else if m.Interactive != nil {
			entry["kind"] = string(m.Interactive.Kind)
			entry["body"] = m.Interactive.Body
		}
		msgs = append(msgs, entry)
	}
	return map[string]any{
		"role":      "assistant",
		"lane":      lane,
		"messages":  msgs,
		"timestamp": timestamp,
	}
}
