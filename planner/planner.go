// Package planner defines the decision contract between the agent executor
// and a chat-completion backend: given instructions, conversation history,
// the current input and the tool registry, the planner returns either a final
// textual answer or an ordered list of tool calls. Backend specifics (wire
// formats, structured tool-call encodings) live in the provider subpackages.
package planner

import (
	"context"
	"fmt"

	"github.com/coolkidhugh/streamlit-medrax-agent/core"
)

// ToolDefinition declaratively exposes a callable tool to the planner. The
// natural-language Description is part of the contract: tool selection
// quality depends entirely on its accuracy.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema subset
}

// Request captures the normalized planner input produced by the executor for
// one loop iteration. Contents carries, in order: conversation memory turns,
// the current user input (with the image file part), and the scratchpad of
// (tool call, tool result) pairs accumulated so far in this run.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// Decision is the planner's structured answer for one iteration: exactly one
// of FinalAnswer and ToolCalls is populated.
type Decision struct {
	FinalAnswer string          `json:"final_answer,omitempty"`
	ToolCalls   []core.ToolCall `json:"tool_calls,omitempty"`
}

// IsFinal reports whether the decision ends the run with a textual answer.
func (d Decision) IsFinal() bool { return len(d.ToolCalls) == 0 }

// Info contains metadata about a planner implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Planner is the single capability the executor depends on. Plan blocks until
// the backend answers or ctx expires; implementations must honor ctx.
type Planner interface {
	Plan(ctx context.Context, req Request) (Decision, error)

	// Info returns information about the planner implementation.
	Info() Info
}

// Scripted is a deterministic in-memory Planner for tests and examples. It
// replays a fixed queue of decisions; when the queue is exhausted it repeats
// the last entry, which makes "always requests tools" loops easy to script.
type Scripted struct {
	decisions []Decision
	next      int
	requests  []Request
}

// NewScripted constructs a Scripted planner from the decision queue.
func NewScripted(decisions ...Decision) *Scripted {
	return &Scripted{decisions: decisions}
}

// Plan implements Planner; it also records every request for assertions.
func (s *Scripted) Plan(ctx context.Context, req Request) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	if len(s.decisions) == 0 {
		return Decision{}, fmt.Errorf("scripted planner has no decisions")
	}
	s.requests = append(s.requests, req)
	d := s.decisions[s.next]
	if s.next < len(s.decisions)-1 {
		s.next++
	}
	return d, nil
}

// Requests returns the planner inputs observed so far, in call order.
func (s *Scripted) Requests() []Request { return s.requests }

// Info implements Planner.
func (s *Scripted) Info() Info { return Info{Name: "scripted", Provider: "test"} }
