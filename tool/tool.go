// Package tool implements the function-calling subsystem: the Tool interface
// tools implement, a FunctionTool adapter with schema-validated arguments,
// and the Registry the executor dispatches planner tool calls through.
package tool

import (
	"fmt"

	"github.com/coolkidhugh/streamlit-medrax-agent/core"
	"github.com/coolkidhugh/streamlit-medrax-agent/internal/util"
)

// Tool defines a callable capability exposed to the planner.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions; the planner's tool
//     selection depends entirely on the description text
//   - Define a proper JSON schema for parameters
//   - Handle errors gracefully (return them, never panic by design)
//   - Be stateless across invocations
type Tool interface {
	// Name returns the unique identifier for this tool within a registry.
	// snake_case recommended.
	Name() string

	// Description returns the natural-language description provided to the
	// planner to decide when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with already-decoded arguments and a
	// ToolContext giving access to the session image and artifact storage.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detail.
type ValidationError = util.ValidationError

// Error codes attached to ToolError for categorization.
const (
	CodeUnknownTool   = "UNKNOWN_TOOL"
	CodeArgumentError = "ARGUMENT_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeExecution     = "EXECUTION_ERROR"
)

// ToolError represents errors that occur during tool lookup or execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
