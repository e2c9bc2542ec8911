package blob

import (
	"context"
	"time"

	"github.com/echoesonmars/tabys-back/internal/obs"
)

const reclaimTimeout = 10 * time.Second

// Reclaim deletes the blobs behind refs, best effort. Refs without a
// derivable key are skipped and delete failures are logged, never returned.
// It outlives ctx's cancellation so a client hanging up does not leak blobs.
func Reclaim(ctx context.Context, store Store, refs ...string) {
	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reclaimTimeout)
	defer cancel()

	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		key := KeyFromURL(ref)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		if err := store.Delete(ctx, key); err != nil {
			obs.Logger.Warn("blob_reclaim_failed", "key", key, "error", err)
		}
	}
}
