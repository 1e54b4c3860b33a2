package core

import "errors"

// Turn-level error taxonomy. Registry-level failures (unknown tool, bad
// arguments, tool crashes) are never surfaced through these: they are
// converted into ToolResult data the planner can reason about. The sentinels
// below are the failures that end or reject a whole turn.
var (
	// ErrNotConfigured means no planner credential is configured; every turn
	// is rejected until resolved externally.
	ErrNotConfigured = errors.New("planner credential not configured")

	// ErrNoImage rejects a turn before the executor runs: the session has no
	// uploaded image. Conversation memory is untouched.
	ErrNoImage = errors.New("no image uploaded for session")

	// ErrMissingImage is the executor's defensive double-check of the same
	// invariant. Should be unreachable when the orchestrator gates on
	// ErrNoImage first.
	ErrMissingImage = errors.New("executor started without image reference")

	// ErrIterationLimit means the plan-act loop exhausted its iteration
	// budget without the planner producing a final answer.
	ErrIterationLimit = errors.New("iteration limit exceeded")

	// ErrPlanner wraps transport or timeout failures from the planner call.
	ErrPlanner = errors.New("planner call failed")
)
