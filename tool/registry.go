package tool

import (
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/coolkidhugh/streamlit-medrax-agent/core"
	"github.com/coolkidhugh/streamlit-medrax-agent/planner"
)

// Spec is the externally visible description of a registered tool.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Registry holds the fixed, named set of tools available to the planner. It
// is populated at process start and stateless afterwards: invocations share
// nothing, so the registry is safe for reuse across turns and sessions.
//
// Invoke never raises a failure to its caller. Unknown names, malformed
// arguments and tool crashes all come back as a ToolResult whose Err field
// carries the message, so the planner can self-correct on the next iteration
// instead of the run aborting.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools, preserving argument
// order for List and Definitions. Duplicate names panic: the registry is
// assembled once at startup and a collision is a programming error.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, exists := r.tools[t.Name()]; exists {
			panic(fmt.Sprintf("tool %q registered twice", t.Name()))
		}
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

// List returns the specs of all registered tools in registration order.
func (r *Registry) List() []Spec {
	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, Spec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return specs
}

// Definitions renders the registry as planner tool definitions.
func (r *Registry) Definitions() []planner.ToolDefinition {
	defs := make([]planner.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, planner.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Get returns a registered tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Invoke executes one planner-requested tool call and returns its result.
// Failures of any kind are folded into the result, never returned or raised.
func (r *Registry) Invoke(toolCtx *core.ToolContext, call core.ToolCall) core.ToolResult {
	result := core.ToolResult{CallID: call.ID, Name: call.Name}

	t, ok := r.tools[call.Name]
	if !ok {
		result.Err = NewToolError(call.Name, "tool not found in registry", CodeUnknownTool).Error()
		return result
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			result.Err = NewToolError(call.Name, fmt.Sprintf("failed to decode arguments: %v", err), CodeArgumentError).Error()
			return result
		}
	}

	output, err := r.call(toolCtx, t, args)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	switch v := output.(type) {
	case string:
		result.Output = v
	case nil:
		result.Output = ""
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			result.Err = NewToolError(call.Name, fmt.Sprintf("failed to encode result: %v", err), CodeExecution).Error()
			return result
		}
		result.Output = string(raw)
	}
	return result
}

// call wraps Tool.Call with panic recovery so a crashing tool body becomes an
// execution error result.
func (r *Registry) call(toolCtx *core.ToolContext, t Tool, args map[string]any) (output any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			toolCtx.LogError("tool.call.panic", "tool", t.Name(), "recover", fmt.Sprint(rec), "stack", string(debug.Stack()))
			err = NewToolError(t.Name(), fmt.Sprintf("panic: %v", rec), CodeExecution)
		}
	}()
	return t.Call(toolCtx, args)
}
