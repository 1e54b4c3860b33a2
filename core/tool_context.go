package core

import (
	"context"

	"github.com/coolkidhugh/streamlit-medrax-agent/logging"
)

// ToolContext is the constrained, auditable surface handed to tool
// implementations. Tools see the image reference, their own function call id
// and the artifact save hook, but never the scratchpad or the conversation
// memory: tool results flow back to the planner as data, not through shared
// state.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string

	*loggerAdapter
}

// NewToolContext binds a tool context to its parent run and the id of the
// function call being executed.
func NewToolContext(runCtx *RunContext, functionCallID string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		loggerAdapter:  newLoggerAdapter(runCtx.Logger()),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// SessionID returns the owning session id.
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// RunID returns the owning run id. Tools derive run-scoped artifact names
// from it so concurrent sessions never overwrite each other's outputs.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// FunctionCallID returns the id of the planner call being executed.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// ImagePath returns the stable local path of the session's uploaded image.
func (tc *ToolContext) ImagePath() string { return tc.runCtx.ImagePath }

// Logger returns the logger bound to this invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// SaveArtifact persists artifact bytes through the run, recording the id for
// later extraction by the orchestrator.
func (tc *ToolContext) SaveArtifact(id string, data []byte) error {
	return tc.runCtx.SaveArtifact(id, data)
}

// ArtifactPath resolves the on-disk location of a saved artifact.
func (tc *ToolContext) ArtifactPath(id string) string { return tc.runCtx.ArtifactPath(id) }
