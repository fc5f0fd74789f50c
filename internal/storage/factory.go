package storage

import "fmt"

// StoreType selects the artifact store backend.
type StoreType string

const (
	StoreTypeLocal StoreType = "local"
	StoreTypeS3    StoreType = "s3"
)

// FactoryConfig holds configuration for building an artifact store.
type FactoryConfig struct {
	Type  StoreType
	Local LocalConfig
	S3    S3Config
}

// NewStore creates an ArtifactStore based on the configuration.
// An empty type defaults to the local filesystem store.
func NewStore(cfg *FactoryConfig) (ArtifactStore, error) {
	switch cfg.Type {
	case "", StoreTypeLocal:
		return NewLocalStore(&cfg.Local)
	case StoreTypeS3:
		return NewS3Store(&cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
