package session

import (
	"sync"
	"time"

	"github.com/coolkidhugh/streamlit-medrax-agent/core"
)

// Session is one conversation: its transcript, its currently attached image,
// and timestamps. Sessions never share memory or images. Image fields are
// guarded because an upload can race an in-flight turn; the transcript guards
// itself.
type Session struct {
	ID        string
	Memory    *core.ConversationMemory
	CreatedAt time.Time

	mu        sync.Mutex
	imagePath string
	imageName string
	updatedAt time.Time

	// runMu serializes turns within the session. Different sessions run
	// concurrently; a second message to the same session waits.
	runMu sync.Mutex
}

// NewSession creates an empty session with the given id.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Memory:    core.NewConversationMemory(),
		CreatedAt: now,
		updatedAt: now,
	}
}

// SetImage records the attached image. Replacing the image does not touch the
// transcript; prior turns remain valid conversation history.
func (s *Session) SetImage(path, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imagePath = path
	s.imageName = name
	s.updatedAt = time.Now().UTC()
}

// Image returns the attached image path and original filename, both empty
// when no image has been uploaded yet.
func (s *Session) Image() (path, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imagePath, s.imageName
}

// HasImage reports whether an image is attached.
func (s *Session) HasImage() bool {
	path, _ := s.Image()
	return path != ""
}

// UpdatedAt returns the time of the last mutation.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) touch() {
	s.mu.Lock()
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Session) clearImage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imagePath = ""
	s.imageName = ""
	s.updatedAt = time.Now().UTC()
}
