package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore is a core.ArtifactStore backed by the local filesystem. Artifacts
// are written to <root>/<sessionID>/<artifactID>, so an artifact's existence
// on disk after Save is guaranteed and its Path can be handed to code that
// expects real files. Artifact ids are sanitized to their base name to keep
// writes inside the session directory.
type FileStore struct {
	mu   sync.Mutex
	root string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("artifact root directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{root: dir}, nil
}

// Path returns the on-disk location an artifact is (or would be) stored at.
func (s *FileStore) Path(sessionID, artifactID string) string {
	return filepath.Join(s.root, sanitize(sessionID), sanitize(artifactID))
}

// Save writes the artifact bytes to disk, creating the session directory on
// demand. An existing artifact with the same id is overwritten.
func (s *FileStore) Save(sessionID, artifactID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := filepath.Join(s.root, sanitize(sessionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, sanitize(artifactID)), data, 0o644)
}

// Get reads the artifact bytes or returns ErrNotFound.
func (s *FileStore) Get(sessionID, artifactID string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(sessionID, artifactID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// List returns the artifact ids stored for the session.
func (s *FileStore) List(sessionID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, sanitize(sessionID)))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// Delete removes the artifact file or returns ErrNotFound.
func (s *FileStore) Delete(sessionID, artifactID string) error {
	err := os.Remove(s.Path(sessionID, artifactID))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// sanitize strips path separators and traversal segments from an identifier.
func sanitize(id string) string {
	id = filepath.Base(strings.TrimSpace(id))
	if id == "." || id == string(filepath.Separator) {
		return "_"
	}
	return id
}
