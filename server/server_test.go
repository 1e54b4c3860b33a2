package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolkidhugh/streamlit-medrax-agent/agent"
	"github.com/coolkidhugh/streamlit-medrax-agent/artifact"
	"github.com/coolkidhugh/streamlit-medrax-agent/core"
	"github.com/coolkidhugh/streamlit-medrax-agent/medrax"
	"github.com/coolkidhugh/streamlit-medrax-agent/planner"
	"github.com/coolkidhugh/streamlit-medrax-agent/session"
	"github.com/coolkidhugh/streamlit-medrax-agent/tool"
)

type testServer struct {
	echo      *echo.Echo
	sessions  *session.Store
	artifacts *artifact.FileStore
}

func newTestServer(t *testing.T, configured bool, decisions ...planner.Decision) *testServer {
	t.Helper()

	p := planner.NewScripted(decisions...)
	registry := tool.NewRegistry(medrax.NewClassifyTool(), medrax.NewSegmentTool())
	exec := agent.NewExecutor(p, registry, func(o *agent.Options) {
		o.MaxIterations = 5
	})

	artifacts, err := artifact.NewFileStore(t.TempDir())
	require.NoError(t, err)

	sessions := session.NewStore()
	uploadDir := t.TempDir()
	orch := session.NewOrchestrator(exec, artifacts, func(o *session.OrchestratorOptions) {
		o.UploadDir = uploadDir
		o.Configured = configured
	})

	e := New(NewHandler(sessions, orch, artifacts, nil))
	return &testServer{echo: e, sessions: sessions, artifacts: artifacts}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()
	rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["session_id"])
	return body["session_id"]
}

func (ts *testServer) uploadImage(t *testing.T, sessionID, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/image", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return ts.do(req)
}

func (ts *testServer) postMessage(sessionID, text string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"text": text})
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/messages", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return ts.do(req)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "ok"})
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestCreateSession(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "ok"})
	id := ts.createSession(t)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, ts.sessions.Len())
}

func TestUnknownSessionIs404(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "ok"})

	rec := ts.postMessage("nope", "hello")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/sessions/nope/transcript", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadImage(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "ok"})
	id := ts.createSession(t)

	rec := ts.uploadImage(t, id, "scan.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scan.png")
}

func TestUploadImage_RejectsUnsupportedType(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "ok"})
	id := ts.createSession(t)

	rec := ts.uploadImage(t, id, "notes.txt")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUploadImage_MissingFormField(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "ok"})
	id := ts.createSession(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/image", strings.NewReader(""))
	rec := ts.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessage_BeforeImageIs409(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "never"})
	id := ts.createSession(t)

	rec := ts.postMessage(id, "is this normal?")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "image")
}

func TestPostMessage_NotConfiguredIs503(t *testing.T) {
	ts := newTestServer(t, false, planner.Decision{FinalAnswer: "never"})
	id := ts.createSession(t)
	require.Equal(t, http.StatusOK, ts.uploadImage(t, id, "scan.png").Code)

	rec := ts.postMessage(id, "is this normal?")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPostMessage_Success(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "No abnormality detected."})
	id := ts.createSession(t)
	require.Equal(t, http.StatusOK, ts.uploadImage(t, id, "scan.png").Code)

	rec := ts.postMessage(id, "is this normal?")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "assistant", resp["role"])
	assert.Equal(t, "No abnormality detected.", resp["text"])
	assert.Empty(t, resp["artifact_url"])
}

func TestPostMessage_FailedRunIs502(t *testing.T) {
	// The planner never finishes, so the run exhausts its iteration budget.
	ts := newTestServer(t, true, planner.Decision{ToolCalls: []core.ToolCall{
		{Name: "classify_lesion", Arguments: `{"image_path":"/nonexistent.png"}`},
	}})
	id := ts.createSession(t)
	require.Equal(t, http.StatusOK, ts.uploadImage(t, id, "scan.png").Code)

	rec := ts.postMessage(id, "is this normal?")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// Failed turns never reach the transcript
	sess, err := ts.sessions.Get(id)
	require.NoError(t, err)
	assert.Zero(t, sess.Memory.Len())
}

func TestPostMessage_EmptyTextIs400(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "ok"})
	id := ts.createSession(t)
	require.Equal(t, http.StatusOK, ts.uploadImage(t, id, "scan.png").Code)

	rec := ts.postMessage(id, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscript(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "All clear."})
	id := ts.createSession(t)
	require.Equal(t, http.StatusOK, ts.uploadImage(t, id, "scan.png").Code)
	require.Equal(t, http.StatusOK, ts.postMessage(id, "is this normal?").Code)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/transcript", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Turns []struct {
			Role string `json:"role"`
			Text string `json:"text"`
		} `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Turns, 2)
	assert.Equal(t, "user", body.Turns[0].Role)
	assert.Equal(t, "assistant", body.Turns[1].Role)
}

func TestGetArtifact(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "ok"})
	id := ts.createSession(t)

	require.NoError(t, ts.artifacts.Save(id, "segmented_r1.png", []byte{1, 2, 3}))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/artifacts/segmented_r1.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte{1, 2, 3}, rec.Body.Bytes())

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/artifacts/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetSession(t *testing.T) {
	ts := newTestServer(t, true, planner.Decision{FinalAnswer: "answer"})
	id := ts.createSession(t)
	require.Equal(t, http.StatusOK, ts.uploadImage(t, id, "scan.png").Code)
	require.Equal(t, http.StatusOK, ts.postMessage(id, "question").Code)

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/reset", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Image gate applies again after reset
	rec = ts.postMessage(id, "question")
	assert.Equal(t, http.StatusConflict, rec.Code)

	sess, err := ts.sessions.Get(id)
	require.NoError(t, err)
	assert.Zero(t, sess.Memory.Len())
}
