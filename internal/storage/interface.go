package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrArtifactNotFound is returned when reading an artifact that was
// never written.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore persists named artifacts under a per-job namespace.
// The namespace is created lazily on first write; last write wins.
type ArtifactStore interface {
	// Write persists bytes under jobID/name and returns a retrievable
	// reference.
	Write(ctx context.Context, jobID, name string, data []byte) (string, error)

	// WriteText persists UTF-8 text under jobID/name.
	WriteText(ctx context.Context, jobID, name, text string) (string, error)

	// Read returns the artifact bytes, or ErrArtifactNotFound.
	Read(ctx context.Context, jobID, name string) ([]byte, error)

	// Reference derives the retrievable locator for jobID/name without
	// any I/O; the artifact does not have to exist yet.
	Reference(jobID, name string) string
}

// ContentTypeFor maps an artifact name to its MIME type.
func ContentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return "application/json"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
