package agents

import (
	"fmt"

	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/llm"
)

// Registry maps lanes to their shared agent instances. Agents are stateless
// between turns (all per-turn state lives in the session snapshot), so one
// instance per lane serves all tenants and conversations.
type Registry struct {
	agents map[conversation.Lane]Agent
}

// NewRegistry builds the full lane set over a shared LLM service.
func NewRegistry(svc llm.Service) *Registry {
	r := &Registry{agents: make(map[conversation.Lane]Agent)}
	for _, agent := range []Agent{
		NewInfoAgent(svc),
		NewProductAgent(svc),
		NewCommerceAgent(svc),
		NewSupportAgent(svc),
		NewOrderStatusAgent(svc),
	} {
		r.agents[agent.Lane()] = agent
	}
	return r
}

// ForLane returns the agent owning a lane.
func (r *Registry) ForLane(lane conversation.Lane) (Agent, error) {
	agent, ok := r.agents[lane]
	if !ok {
		return nil, fmt.Errorf("no agent registered for lane %q", lane)
	}
	return agent, nil
}

// Lanes lists the registered lanes in stable order.
func (r *Registry) Lanes() []conversation.Lane {
	var lanes []conversation.Lane
	for _, lane := range conversation.KnownLanes() {
		if _, ok := r.agents[lane]; ok {
			lanes = append(lanes, lane)
		}
	}
	return lanes
}
