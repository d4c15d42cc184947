// Package storage persists SP artifacts to an object store addressed by
// bucket plus deterministic key path.
package storage

import (
	"context"

	"bfsp/ingestion/internal/models"
)

// Store is the object storage surface the ingestion driver needs
type Store interface {
	// Exists probes for the artifact at the key's deterministic path.
	// A failure to determine existence is an error, never "absent".
	Exists(ctx context.Context, key models.ArtifactKey) (bool, error)

	// Put uploads the payload in a single shot; overwriting is safe
	Put(ctx context.Context, key models.ArtifactKey, payload []byte) error

	// List returns every object key currently under the store's prefix
	List(ctx context.Context) ([]string, error)
}
