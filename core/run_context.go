package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coolkidhugh/streamlit-medrax-agent/logging"
)

// RunStatus tracks the lifecycle of one agent run.
type RunStatus string

const (
	// RunRunning is the state while the plan-act loop iterates.
	RunRunning RunStatus = "running"
	// RunFinished means the planner produced a final answer.
	RunFinished RunStatus = "finished"
	// RunFailed means the run ended with a turn-level error.
	RunFailed RunStatus = "failed"
)

// RunContext carries the mutable, per-run execution scope of one user turn
// through the executor and into tool invocations. It aggregates:
//   - the ambient cancellation Context
//   - identifiers (SessionID, RunID)
//   - the user input text and the image reference tools read from disk
//   - the Scratchpad trace of this run
//   - the ArtifactStore plus the ids of artifacts saved during the run
//
// A RunContext is created per user turn and discarded, scratchpad included,
// once the orchestrator has consumed the result.
type RunContext struct {
	Context    context.Context
	SessionID  string
	RunID      string
	Input      string
	ImagePath  string
	Scratchpad *Scratchpad
	Status     RunStatus

	artifacts ArtifactStore
	saved     []string

	*loggerAdapter
}

// NewRunContext constructs a RunContext for one turn with a fresh run id and
// an empty scratchpad.
func NewRunContext(
	ctx context.Context,
	sessionID, input, imagePath string,
	artifacts ArtifactStore,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		SessionID:     sessionID,
		RunID:         uuid.NewString(),
		Input:         input,
		ImagePath:     imagePath,
		Scratchpad:    NewScratchpad(),
		Status:        RunRunning,
		artifacts:     artifacts,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// SaveArtifact persists artifact bytes under this run's session and records
// the id so the orchestrator can match it against the final answer.
func (rc *RunContext) SaveArtifact(id string, data []byte) error {
	if rc.artifacts == nil {
		return fmt.Errorf("artifact store not configured")
	}
	if err := rc.artifacts.Save(rc.SessionID, id, data); err != nil {
		return err
	}
	rc.saved = append(rc.saved, id)
	return nil
}

// ArtifactPath resolves the on-disk location of a saved artifact, or "" when
// the store is not file-backed.
func (rc *RunContext) ArtifactPath(id string) string {
	if pr, ok := rc.artifacts.(PathResolver); ok {
		return pr.Path(rc.SessionID, id)
	}
	return ""
}

// SavedArtifacts returns the ids saved during this run in save order.
func (rc *RunContext) SavedArtifacts() []string {
	out := make([]string, len(rc.saved))
	copy(out, rc.saved)
	return out
}
