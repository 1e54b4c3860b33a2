// Package server provides the HTTP surface of the imaging assistant.
package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/coolkidhugh/streamlit-medrax-agent/artifact"
	"github.com/coolkidhugh/streamlit-medrax-agent/core"
	"github.com/coolkidhugh/streamlit-medrax-agent/logging"
	"github.com/coolkidhugh/streamlit-medrax-agent/session"
)

// maxUploadBytes caps uploaded image size.
const maxUploadBytes = 20 << 20

// Handler handles HTTP requests.
type Handler struct {
	sessions     *session.Store
	orchestrator *session.Orchestrator
	artifacts    core.ArtifactStore
	logger       logging.Logger
}

// NewHandler creates a new handler.
func NewHandler(sessions *session.Store, orchestrator *session.Orchestrator, artifacts core.ArtifactStore, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Handler{
		sessions:     sessions,
		orchestrator: orchestrator,
		artifacts:    artifacts,
		logger:       logger,
	}
}

// New builds an echo server with all routes registered.
func New(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	h.RegisterRoutes(e)
	return e
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/sessions", h.CreateSession)
	e.POST("/api/sessions/:session_id/image", h.UploadImage)
	e.POST("/api/sessions/:session_id/messages", h.PostMessage)
	e.GET("/api/sessions/:session_id/transcript", h.GetTranscript)
	e.GET("/api/sessions/:session_id/artifacts/:artifact_id", h.GetArtifact)
	e.POST("/api/sessions/:session_id/reset", h.ResetSession)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":     "healthy",
		"configured": h.orchestrator.Configured(),
	})
}

// CreateSession starts a new conversation.
// POST /api/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	sess := h.sessions.Create()
	h.logger.Info("server.session.created", "session", sess.ID)
	return c.JSON(http.StatusCreated, map[string]string{"session_id": sess.ID})
}

// UploadImage attaches a medical image to the session.
// POST /api/sessions/:session_id/image
func (h *Handler) UploadImage(c echo.Context) error {
	sess, ok := h.session(c)
	if !ok {
		return nil
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing image form field"})
	}
	if file.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "image too large"})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cannot read upload"})
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cannot read upload"})
	}

	if _, err := h.orchestrator.AttachImage(sess, file.Filename, data); err != nil {
		if errors.Is(err, session.ErrUnsupportedImage) {
			return c.JSON(http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
		}
		h.logger.Error("server.image.store_failed", "session", sess.ID, "error", err.Error())
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to store image"})
	}

	_, name := sess.Image()
	return c.JSON(http.StatusOK, map[string]string{"image_name": name})
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Role        string `json:"role"`
	Text        string `json:"text"`
	ArtifactURL string `json:"artifact_url,omitempty"`
}

// PostMessage runs one user turn against the session.
// POST /api/sessions/:session_id/messages
func (h *Handler) PostMessage(c echo.Context) error {
	sess, ok := h.session(c)
	if !ok {
		return nil
	}

	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}

	reply, err := h.orchestrator.HandleTurn(c.Request().Context(), sess, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotConfigured):
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "planner credentials not configured"})
		case errors.Is(err, core.ErrNoImage):
			return c.JSON(http.StatusConflict, map[string]string{"error": "upload an image before asking questions"})
		default:
			h.logger.Error("server.message.failed", "session", sess.ID, "error", err.Error())
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "turn failed"})
		}
	}

	resp := messageResponse{Role: core.RoleAssistant, Text: reply.Text}
	if reply.ArtifactID != "" {
		resp.ArtifactURL = "/api/sessions/" + sess.ID + "/artifacts/" + reply.ArtifactID
	}
	return c.JSON(http.StatusOK, resp)
}

// GetTranscript returns the session's conversation history in order.
// GET /api/sessions/:session_id/transcript
func (h *Handler) GetTranscript(c echo.Context) error {
	sess, ok := h.session(c)
	if !ok {
		return nil
	}
	return c.JSON(http.StatusOK, map[string]any{"turns": sess.Memory.Snapshot()})
}

// GetArtifact serves a stored annotated image.
// GET /api/sessions/:session_id/artifacts/:artifact_id
func (h *Handler) GetArtifact(c echo.Context) error {
	sess, ok := h.session(c)
	if !ok {
		return nil
	}

	data, err := h.artifacts.Get(sess.ID, c.Param("artifact_id"))
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "artifact not found"})
		}
		h.logger.Error("server.artifact.read_failed", "session", sess.ID, "error", err.Error())
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read artifact"})
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

// ResetSession clears the transcript and detaches the image.
// POST /api/sessions/:session_id/reset
func (h *Handler) ResetSession(c echo.Context) error {
	sess, ok := h.session(c)
	if !ok {
		return nil
	}
	h.orchestrator.Reset(sess)
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}

// session resolves the :session_id path param, writing a 404 when unknown.
func (h *Handler) session(c echo.Context) (*session.Session, bool) {
	sess, err := h.sessions.Get(c.Param("session_id"))
	if err != nil {
		_ = c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
		return nil, false
	}
	return sess, true
}
