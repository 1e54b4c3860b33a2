package core

// ArtifactStore defines the interface for artifact persistence. Implementations
// should be thread-safe and scope artifacts by session identifier. Short method
// names (Save/Get/List/Delete) mirror the other store interfaces.
type ArtifactStore interface {
	Save(sessionID, artifactID string, data []byte) error
	Get(sessionID, artifactID string) ([]byte, error)
	List(sessionID string) ([]string, error)
	Delete(sessionID, artifactID string) error
}

// PathResolver is implemented by stores whose artifacts exist as real files.
// Tools and the HTTP layer use it to hand out on-disk locations.
type PathResolver interface {
	Path(sessionID, artifactID string) string
}
