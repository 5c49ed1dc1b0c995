// Package tools implements the lane tools exposed to the agents' LLM chats.
// Every tool is a named, described, JSON-schema-parameterised callable whose
// result map may carry a "state_patch" entry with a flat session patch.
package tools

import (
	"context"

	"github.com/charlahq/charla/session"
)

// StatePatchKey is the result key holding a flat session patch. Everything
// else in the result map is surfaced to the LLM as tool output.
const StatePatchKey = "state_patch"

// Tool is one callable made available to an agent's chat.
type Tool interface {
	// Name is the stable snake_case identifier the LLM calls.
	Name() string
	// Description tells the LLM when to use the tool.
	Description() string
	// Parameters is the JSON-Schema-shaped parameter definition.
	Parameters() map[string]any
	// Execute runs the tool with the parsed arguments.
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Spec is a tool factory: the agent base builds a fresh instance per turn so
// the tool can close over the session snapshot without shared state.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]any
	Build       func(snapshot session.Session) Tool
}

// newSpec builds a Spec whose tool instances delegate to the closure
// returned by build. The closure may capture the per-turn session snapshot.
func newSpec(name, description string, parameters map[string]any,
	build func(snapshot session.Session) func(ctx context.Context, params map[string]any) (map[string]any, error)) Spec {
	return Spec{
		Name:        name,
		Description: description,
		Parameters:  parameters,
		Build: func(snapshot session.Session) Tool {
			return &funcTool{
				name:        name,
				description: description,
				parameters:  parameters,
				execute:     build(snapshot),
			}
		},
	}
}

// funcTool adapts a closure to the Tool interface. All concrete tools are
// funcTools built by their Spec.
type funcTool struct {
	name        string
	description string
	parameters  map[string]any
	execute     func(ctx context.Context, params map[string]any) (map[string]any, error)
}

func (t *funcTool) Name() string               { return t.name }
func (t *funcTool) Description() string        { return t.description }
func (t *funcTool) Parameters() map[string]any { return t.parameters }
func (t *funcTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	return t.execute(ctx, params)
}

// objectParams builds a JSON schema object with the given properties and
// required names.
func objectParams(properties map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// stringParam returns a string property schema.
func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// numberParam returns a number property schema.
func numberParam(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

// paramString extracts a string argument.
func paramString(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// paramInt extracts an integer argument, tolerating JSON float64.
func paramInt(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// paramFloat extracts a float argument.
func paramFloat(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
