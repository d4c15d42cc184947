package ingest

import (
	"context"

	"bfsp/ingestion/internal/models"
	"bfsp/ingestion/internal/storage"

	"github.com/rs/zerolog/log"
)

// SnapshotChecker answers existence checks from a one-shot bucket listing
// taken at construction. Backfill sweeps cover thousands of keys, where one
// listing is far cheaper than a head probe per key. Artifacts written after
// the snapshot are not visible, which is harmless: re-uploading is safe.
type SnapshotChecker struct {
	present map[string]struct{}
}

// NewSnapshotChecker lists the store once and builds the existence set.
// A listing failure aborts: starting a huge sweep with no idea what is
// already stored would re-fetch everything.
func NewSnapshotChecker(ctx context.Context, store storage.Store) (*SnapshotChecker, error) {
	keys, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		present[k] = struct{}{}
	}
	log.Info().Int("existing", len(present)).Msg("Existence snapshot loaded")
	return &SnapshotChecker{present: present}, nil
}

// Exists reports whether the key's artifact was present at snapshot time
func (c *SnapshotChecker) Exists(_ context.Context, key models.ArtifactKey) (bool, error) {
	_, ok := c.present[key.ObjectKey()]
	return ok, nil
}
