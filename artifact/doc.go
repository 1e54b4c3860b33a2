// Package artifact provides core.ArtifactStore implementations. The FileStore
// keeps artifacts as real files on disk, which matters here because the
// segmentation tool hands back file paths that the HTTP layer serves and that
// must exist after the tool returns. The InMemoryStore serves tests.
package artifact
