package core

import (
	"sync"
	"time"
)

// Conversation roles recorded in memory. Tool traffic never reaches memory;
// only well-formed user/assistant exchanges do.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of the conversation transcript. Immutable once appended;
// ordering equals insertion order equals chronological order.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// ConversationMemory is the ordered log of prior user/assistant turns for a
// single session. It is append-only during normal operation; Rollback exists
// solely so the orchestrator can discard turns staged by a run that later
// failed, keeping memory free of half-finished exchanges. Safe for concurrent
// access.
type ConversationMemory struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewConversationMemory returns an empty memory.
func NewConversationMemory() *ConversationMemory { return &ConversationMemory{} }

// Append adds a turn to the end of the log.
func (m *ConversationMemory) Append(role, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, Turn{Role: role, Text: text, At: time.Now().UTC()})
}

// Len returns the number of recorded turns.
func (m *ConversationMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// Snapshot returns a defensive copy of the full transcript.
func (m *ConversationMemory) Snapshot() []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Contents renders the transcript as planner request contents in order.
func (m *ConversationMemory) Contents() []Content {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Content, 0, len(m.turns))
	for _, t := range m.turns {
		out = append(out, NewTextContent(t.Role, t.Text))
	}
	return out
}

// Mark returns the current length for a later Rollback.
func (m *ConversationMemory) Mark() int { return m.Len() }

// Rollback truncates the log back to a previous Mark. Out-of-range marks are
// ignored so a stale mark cannot grow the slice.
func (m *ConversationMemory) Rollback(mark int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mark >= 0 && mark <= len(m.turns) {
		m.turns = m.turns[:mark]
	}
}

// Reset clears the transcript. Used when a session is reset; sessions never
// share memory, so this affects exactly one conversation.
func (m *ConversationMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}
