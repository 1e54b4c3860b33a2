package core

// Step pairs one planner-requested tool call with its execution result.
type Step struct {
	Call   ToolCall
	Result ToolResult
}

// Scratchpad is the ordered (ToolCall, ToolResult) trace accumulated while a
// single agent run iterates. It is only ever appended to, never reordered, so
// ordering is the planner's sole signal for "most recent information". The
// scratchpad lives and dies with its run; only the final answer is persisted
// into conversation memory.
type Scratchpad struct {
	steps []Step
}

// NewScratchpad returns an empty scratchpad.
func NewScratchpad() *Scratchpad { return &Scratchpad{} }

// Append records one executed call in call order.
func (s *Scratchpad) Append(call ToolCall, result ToolResult) {
	s.steps = append(s.steps, Step{Call: call, Result: result})
}

// Len returns the number of recorded steps.
func (s *Scratchpad) Len() int { return len(s.steps) }

// Steps returns a copy of the recorded steps.
func (s *Scratchpad) Steps() []Step {
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// Contents renders the scratchpad as planner request contents: for each step
// an assistant message carrying the function call followed by a tool message
// carrying the response. This matches the message pairing the provider
// adapters translate into their native tool-call wire formats.
func (s *Scratchpad) Contents() []Content {
	out := make([]Content, 0, len(s.steps)*2)
	for _, st := range s.steps {
		out = append(out, Content{
			Role:  "assistant",
			Parts: []Part{FunctionCallPart{Call: st.Call}},
		})
		out = append(out, Content{
			Role:  "tool",
			Parts: []Part{FunctionResponsePart{Result: st.Result}},
		})
	}
	return out
}
