package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore persists artifacts on the local filesystem, one directory
// per job id, and derives references under a public URL prefix served
// by the media endpoint.
type LocalStore struct {
	root       string
	publicBase string
}

// LocalConfig holds configuration for the local artifact store.
type LocalConfig struct {
	Root       string // filesystem root for job directories
	PublicBase string // URL prefix for references, e.g. "/media"
}

// NewLocalStore creates a filesystem-backed artifact store. Job
// directories under root are created lazily on first write.
func NewLocalStore(cfg *LocalConfig) (*LocalStore, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("local store requires a root directory")
	}
	publicBase := strings.TrimSuffix(cfg.PublicBase, "/")
	if publicBase == "" {
		publicBase = "/media"
	}

	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &LocalStore{
		root:       cfg.Root,
		publicBase: publicBase,
	}, nil
}

// Write persists bytes under the job's directory.
func (s *LocalStore) Write(_ context.Context, jobID, name string, data []byte) (string, error) {
	dir := filepath.Join(s.root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s/%s: %w", jobID, name, err)
	}
	return s.Reference(jobID, name), nil
}

// WriteText persists UTF-8 text under the job's directory.
func (s *LocalStore) WriteText(ctx context.Context, jobID, name, text string) (string, error) {
	return s.Write(ctx, jobID, name, []byte(text))
}

// Read returns the artifact bytes.
func (s *LocalStore) Read(_ context.Context, jobID, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, jobID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("read artifact %s/%s: %w", jobID, name, err)
	}
	return data, nil
}

// Reference derives the media URL for an artifact. Pure, no I/O.
func (s *LocalStore) Reference(jobID, name string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBase, jobID, name)
}

// Path returns the filesystem location of an artifact.
func (s *LocalStore) Path(jobID, name string) string {
	return filepath.Join(s.root, jobID, name)
}
