package session

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolkidhugh/streamlit-medrax-agent/agent"
	"github.com/coolkidhugh/streamlit-medrax-agent/artifact"
	"github.com/coolkidhugh/streamlit-medrax-agent/core"
	"github.com/coolkidhugh/streamlit-medrax-agent/medrax"
	"github.com/coolkidhugh/streamlit-medrax-agent/planner"
	"github.com/coolkidhugh/streamlit-medrax-agent/tool"
)

type harness struct {
	store        *Store
	orchestrator *Orchestrator
	artifacts    *artifact.FileStore
	planner      *planner.Scripted
}

func newHarness(t *testing.T, decisions ...planner.Decision) *harness {
	t.Helper()

	p := planner.NewScripted(decisions...)
	registry := tool.NewRegistry(medrax.NewClassifyTool(), medrax.NewSegmentTool())
	exec := agent.NewExecutor(p, registry, func(o *agent.Options) {
		o.MaxIterations = 5
	})

	artifacts, err := artifact.NewFileStore(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, err)

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	orch := NewOrchestrator(exec, artifacts, func(o *OrchestratorOptions) {
		o.UploadDir = uploadDir
	})

	return &harness{
		store:        NewStore(),
		orchestrator: orch,
		artifacts:    artifacts,
		planner:      p,
	}
}

func (h *harness) sessionWithImage(t *testing.T) *Session {
	t.Helper()
	sess := h.store.Create()
	_, err := h.orchestrator.AttachImage(sess, "scan.png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	return sess
}

// -------------------- Store --------------------

func TestStore_CreateGetDelete(t *testing.T) {
	store := NewStore()
	sess := store.Create()
	assert.NotEmpty(t, sess.ID)

	got, err := store.Get(sess.ID)
	assert.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = store.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	store.Delete(sess.ID)
	_, err = store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, store.Len())
}

// -------------------- AttachImage --------------------

func TestAttachImage_StoresUpload(t *testing.T) {
	h := newHarness(t)
	sess := h.store.Create()
	assert.False(t, sess.HasImage())

	path, err := h.orchestrator.AttachImage(sess, "chest.jpg", []byte("jpegdata"))
	assert.NoError(t, err)
	assert.True(t, sess.HasImage())

	imagePath, imageName := sess.Image()
	assert.Equal(t, path, imagePath)
	assert.Equal(t, "chest.jpg", imageName)

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, []byte("jpegdata"), data)
}

func TestAttachImage_RejectsUnsupportedType(t *testing.T) {
	h := newHarness(t)
	sess := h.store.Create()

	_, err := h.orchestrator.AttachImage(sess, "notes.txt", []byte("text"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.False(t, sess.HasImage())
}

func TestAttachImage_ReplaceKeepsTranscript(t *testing.T) {
	h := newHarness(t, planner.Decision{FinalAnswer: "fine"})
	sess := h.sessionWithImage(t)

	_, err := h.orchestrator.HandleTurn(context.Background(), sess, "is this normal?")
	require.NoError(t, err)
	require.Equal(t, 2, sess.Memory.Len())

	_, err = h.orchestrator.AttachImage(sess, "second.png", []byte("img2"))
	assert.NoError(t, err)
	assert.Equal(t, 2, sess.Memory.Len())
	_, name := sess.Image()
	assert.Equal(t, "second.png", name)
}

// -------------------- HandleTurn gates --------------------

func TestHandleTurn_NoImageLeavesMemoryUntouched(t *testing.T) {
	h := newHarness(t, planner.Decision{FinalAnswer: "never"})
	sess := h.store.Create()

	_, err := h.orchestrator.HandleTurn(context.Background(), sess, "is this normal?")
	assert.ErrorIs(t, err, core.ErrNoImage)
	assert.Zero(t, sess.Memory.Len())
	assert.Empty(t, h.planner.Requests())
}

func TestHandleTurn_NotConfiguredLeavesMemoryUntouched(t *testing.T) {
	p := planner.NewScripted(planner.Decision{FinalAnswer: "never"})
	exec := agent.NewExecutor(p, tool.NewRegistry())
	artifacts, err := artifact.NewFileStore(t.TempDir())
	require.NoError(t, err)

	orch := NewOrchestrator(exec, artifacts, func(o *OrchestratorOptions) {
		o.UploadDir = t.TempDir()
		o.Configured = false
	})
	assert.False(t, orch.Configured())

	store := NewStore()
	sess := store.Create()
	_, err = orch.AttachImage(sess, "scan.png", []byte("img"))
	require.NoError(t, err)

	_, err = orch.HandleTurn(context.Background(), sess, "hello?")
	assert.ErrorIs(t, err, core.ErrNotConfigured)
	assert.Zero(t, sess.Memory.Len())
}

// -------------------- HandleTurn outcomes --------------------

func TestHandleTurn_SuccessfulTurnCommitsBothTurns(t *testing.T) {
	h := newHarness(t, planner.Decision{FinalAnswer: "No abnormality detected."})
	sess := h.sessionWithImage(t)

	reply, err := h.orchestrator.HandleTurn(context.Background(), sess, "is this normal?")
	assert.NoError(t, err)
	assert.Equal(t, "No abnormality detected.", reply.Text)
	assert.Empty(t, reply.ArtifactID)

	turns := sess.Memory.Snapshot()
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, "is this normal?", turns[0].Text)
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
	assert.Equal(t, "No abnormality detected.", turns[1].Text)
}

func TestHandleTurn_CompletedTurnsAccumulate(t *testing.T) {
	h := newHarness(t, planner.Decision{FinalAnswer: "answer"})
	sess := h.sessionWithImage(t)

	for i := 0; i < 3; i++ {
		_, err := h.orchestrator.HandleTurn(context.Background(), sess, "question")
		require.NoError(t, err)
	}
	assert.Equal(t, 6, sess.Memory.Len())
}

func TestHandleTurn_FailedRunRollsBackMemory(t *testing.T) {
	// The planner never produces a final answer, so the iteration budget ends
	// the run.
	h := newHarness(t, planner.Decision{ToolCalls: []core.ToolCall{{Name: "classify_lesion", Arguments: `{"image_path":"/nonexistent.png"}`}}})
	sess := h.sessionWithImage(t)

	_, err := h.orchestrator.HandleTurn(context.Background(), sess, "is this normal?")
	assert.ErrorIs(t, err, core.ErrIterationLimit)
	assert.Zero(t, sess.Memory.Len())

	// A later successful turn starts from a clean transcript
	h.planner2(t, sess)
}

// planner2 swaps in a finishing planner and verifies recovery after a failure.
func (h *harness) planner2(t *testing.T, sess *Session) {
	t.Helper()
	p := planner.NewScripted(planner.Decision{FinalAnswer: "recovered"})
	registry := tool.NewRegistry(medrax.NewClassifyTool(), medrax.NewSegmentTool())
	exec := agent.NewExecutor(p, registry)
	h.orchestrator.executor = exec

	reply, err := h.orchestrator.HandleTurn(context.Background(), sess, "try again")
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply.Text)
	assert.Equal(t, 2, sess.Memory.Len())
}

// -------------------- Artifact extraction --------------------

func TestHandleTurn_AttachesMentionedArtifact(t *testing.T) {
	h := newHarness(t)
	sess := h.sessionWithImage(t)
	imagePath, _ := sess.Image()

	// One segmentation call, then a final answer that names the artifact. The
	// artifact id depends on the run id, so the planner builds the answer from
	// the tool result path.
	segCall := core.ToolCall{ID: "fc1", Name: "segment_image", Arguments: `{"image_path":` + strconv.Quote(imagePath) + `,"lesion_description":"nodule"}`}
	answering := &artifactMentionPlanner{segCall: segCall}
	registry := tool.NewRegistry(medrax.NewClassifyTool(), medrax.NewSegmentTool())
	h.orchestrator.executor = agent.NewExecutor(answering, registry)

	reply, err := h.orchestrator.HandleTurn(context.Background(), sess, "where is the nodule?")
	require.NoError(t, err)

	assert.NotEmpty(t, reply.ArtifactID)
	assert.Contains(t, reply.Text, reply.ArtifactID)
	assert.NotEmpty(t, reply.ArtifactPath)
	_, statErr := os.Stat(reply.ArtifactPath)
	assert.NoError(t, statErr)
}

func TestHandleTurn_UnmentionedArtifactNotAttached(t *testing.T) {
	h := newHarness(t)
	sess := h.sessionWithImage(t)
	imagePath, _ := sess.Image()

	segCall := core.ToolCall{ID: "fc1", Name: "segment_image", Arguments: `{"image_path":` + strconv.Quote(imagePath) + `,"lesion_description":"nodule"}`}
	p := planner.NewScripted(
		planner.Decision{ToolCalls: []core.ToolCall{segCall}},
		planner.Decision{FinalAnswer: "The lesion sits in the right upper lobe."},
	)
	registry := tool.NewRegistry(medrax.NewClassifyTool(), medrax.NewSegmentTool())
	h.orchestrator.executor = agent.NewExecutor(p, registry)

	reply, err := h.orchestrator.HandleTurn(context.Background(), sess, "where is the nodule?")
	require.NoError(t, err)
	assert.Empty(t, reply.ArtifactID)
	assert.Empty(t, reply.ArtifactPath)

	// The artifact itself is still retrievable from the store
	ids, err := h.artifacts.List(sess.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

// -------------------- Reset --------------------

func TestReset_ClearsTranscriptAndImage(t *testing.T) {
	h := newHarness(t, planner.Decision{FinalAnswer: "answer"})
	sess := h.sessionWithImage(t)

	_, err := h.orchestrator.HandleTurn(context.Background(), sess, "question")
	require.NoError(t, err)

	h.orchestrator.Reset(sess)
	assert.Zero(t, sess.Memory.Len())
	assert.False(t, sess.HasImage())
}

// artifactMentionPlanner requests one segmentation, then answers with the
// segmentation tool's output embedded so artifact extraction has something to
// match.
type artifactMentionPlanner struct {
	segCall core.ToolCall
	step    int
	lastOut string
}

func (p *artifactMentionPlanner) Plan(_ context.Context, req planner.Request) (planner.Decision, error) {
	if p.step == 0 {
		p.step++
		return planner.Decision{ToolCalls: []core.ToolCall{p.segCall}}, nil
	}
	for _, c := range req.Contents {
		for _, part := range c.Parts {
			if resp, ok := part.(core.FunctionResponsePart); ok {
				p.lastOut = resp.Result.Text()
			}
		}
	}
	return planner.Decision{FinalAnswer: "Annotated image saved at " + p.lastOut}, nil
}

func (p *artifactMentionPlanner) Info() planner.Info {
	return planner.Info{Name: "artifact-mention", Provider: "test"}
}
