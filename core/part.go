package core

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// FilePart references a local file attached to a message, typically the
// uploaded study image the tools operate on.
type FilePart struct {
	Path     string  // Absolute or session-relative path on disk
	MimeType *string // Optional MIME type hint
	Name     *string // Original filename hint
}

func (FilePart) isPart() {}

// ToolCall describes a tool invocation requested by the planner. Arguments is
// the serialized JSON argument payload exactly as the provider returned it;
// binding against the tool's parameter schema happens in the registry.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// FunctionCallPart wraps a ToolCall as a content part so a planner request can
// replay previously issued calls.
type FunctionCallPart struct {
	Call ToolCall
}

func (FunctionCallPart) isPart() {}

// ToolResult captures the outcome of exactly one executed ToolCall. A failed
// execution is data, not a raised error: Err carries the message the planner
// reasons about on the next iteration.
type ToolResult struct {
	CallID string `json:"call_id,omitempty"` // Matches the originating ToolCall ID
	Name   string `json:"name"`
	Output string `json:"output,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Failed reports whether the invocation produced an error instead of output.
func (r ToolResult) Failed() bool { return r.Err != "" }

// Text returns the payload handed back to the planner: the output on success,
// the error message otherwise.
func (r ToolResult) Text() string {
	if r.Failed() {
		return r.Err
	}
	return r.Output
}

// FunctionResponsePart wraps a ToolResult as a content part.
type FunctionResponsePart struct {
	Result ToolResult
}

func (FunctionResponsePart) isPart() {}

// Content holds a conversation role plus ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"` // user, assistant, tool, system
	Parts []Part `json:"parts"`
}

// NewTextContent builds a single-text-part Content for the given role.
func NewTextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// FunctionCalls returns any tool call parts in their original order.
func (c Content) FunctionCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range c.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.Call)
		}
	}
	return calls
}

// JoinedText concatenates all text parts preserving order.
func (c Content) JoinedText() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}
