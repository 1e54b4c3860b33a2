package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coolkidhugh/streamlit-medrax-agent/agent"
	"github.com/coolkidhugh/streamlit-medrax-agent/core"
	"github.com/coolkidhugh/streamlit-medrax-agent/logging"
)

// ErrUnsupportedImage is returned by AttachImage for file types the assistant
// cannot analyze.
var ErrUnsupportedImage = errors.New("unsupported image type")

// imageExtensions are the upload types accepted by AttachImage.
var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// Reply is the outcome of a successful turn: the assistant's answer plus, when
// the answer references an annotated image produced during the run, that
// artifact's id and on-disk path.
type Reply struct {
	Text         string
	ArtifactID   string
	ArtifactPath string
}

// OrchestratorOptions configure an Orchestrator.
type OrchestratorOptions struct {
	// UploadDir is where attached images are written, one subdirectory per
	// session.
	UploadDir string

	// Configured reports whether planner credentials are present. When false
	// every turn is rejected with core.ErrNotConfigured before touching
	// memory.
	Configured bool

	Logger logging.Logger
}

// Orchestrator drives complete user turns against sessions: it owns the gate
// checks, the stage/commit/rollback protocol around conversation memory, and
// reply composition. One orchestrator serves all sessions.
type Orchestrator struct {
	executor   *agent.Executor
	artifacts  core.ArtifactStore
	uploadDir  string
	configured bool
	logger     logging.Logger
}

// NewOrchestrator builds an Orchestrator over an executor and artifact store.
func NewOrchestrator(executor *agent.Executor, artifacts core.ArtifactStore, optFns ...func(o *OrchestratorOptions)) *Orchestrator {
	opts := OrchestratorOptions{
		UploadDir:  "uploads",
		Configured: true,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Orchestrator{
		executor:   executor,
		artifacts:  artifacts,
		uploadDir:  opts.UploadDir,
		configured: opts.Configured,
		logger:     opts.Logger,
	}
}

// Configured reports whether the orchestrator will accept turns.
func (o *Orchestrator) Configured() bool { return o.configured }

// AttachImage stores an uploaded image for the session and makes it the
// session's current image. Replacing an earlier image keeps the transcript
// intact. Returns the stored path.
func (o *Orchestrator) AttachImage(sess *Session, filename string, data []byte) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := imageExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, ext)
	}

	dir := filepath.Join(o.uploadDir, sess.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storing image: %w", err)
	}

	sess.SetImage(path, name)
	o.logger.Info("session.image.attached", "session", sess.ID, "name", name, "bytes", len(data))
	return path, nil
}

// HandleTurn runs one user turn to completion. The user turn is staged in
// memory before the run; a successful run commits it together with the
// assistant's answer, a failed run rolls it back so memory never records a
// half-finished exchange. Turns within one session are serialized.
func (o *Orchestrator) HandleTurn(ctx context.Context, sess *Session, input string) (*Reply, error) {
	sess.runMu.Lock()
	defer sess.runMu.Unlock()

	if !o.configured {
		return nil, core.ErrNotConfigured
	}
	imagePath, _ := sess.Image()
	if imagePath == "" {
		return nil, core.ErrNoImage
	}

	// Snapshot history before staging so the run sees prior turns only; the
	// current input travels on the run context.
	history := sess.Memory.Contents()
	mark := sess.Memory.Mark()
	sess.Memory.Append(core.RoleUser, input)

	logger := logging.WithSession(o.logger, sess.ID)
	runCtx := core.NewRunContext(ctx, sess.ID, input, imagePath, o.artifacts, logger)

	result, err := o.executor.Run(runCtx, history)
	if err != nil {
		sess.Memory.Rollback(mark)
		logger.Warn("session.turn.failed", "run", runCtx.RunID, "error", err.Error())
		return nil, fmt.Errorf("turn failed: %w", err)
	}

	sess.Memory.Append(core.RoleAssistant, result.FinalAnswer)
	sess.touch()

	reply := &Reply{Text: result.FinalAnswer}
	o.attachArtifact(sess, result, reply)

	logger.Info("session.turn.completed",
		"run", runCtx.RunID,
		"iterations", result.Iterations,
		"artifacts", len(result.Artifacts),
	)
	return reply, nil
}

// attachArtifact links the first run artifact the answer actually mentions and
// that exists in the store. Saved artifacts the answer never references stay
// retrievable but are not surfaced on the reply.
func (o *Orchestrator) attachArtifact(sess *Session, result *agent.Result, reply *Reply) {
	for _, id := range result.Artifacts {
		if !strings.Contains(result.FinalAnswer, id) {
			continue
		}
		if _, err := o.artifacts.Get(sess.ID, id); err != nil {
			continue
		}
		reply.ArtifactID = id
		if pr, ok := o.artifacts.(core.PathResolver); ok {
			reply.ArtifactPath = pr.Path(sess.ID, id)
		}
		return
	}
}

// Reset clears the session's transcript and detaches its image. Stored
// artifacts are left in place; their ids are run-scoped and cannot collide
// with later runs.
func (o *Orchestrator) Reset(sess *Session) {
	sess.runMu.Lock()
	defer sess.runMu.Unlock()

	sess.Memory.Reset()
	sess.clearImage()
	o.logger.Info("session.reset", "session", sess.ID)
}
