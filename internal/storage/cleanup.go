package storage

import (
	"context"
	"strings"
	"time"

	"github.com/rmitchellscott/diamondperls/internal/logging"
)

// CleanupOlderThan removes every top-level key directory whose newest file
// is older than maxAge and returns the removed prefixes.
func CleanupOlderThan(ctx context.Context, backend Backend, maxAge time.Duration) ([]string, error) {
	files, err := backend.ListWithInfo(ctx, "")
	if err != nil {
		return nil, err
	}

	newest := make(map[string]time.Time)
	for _, f := range files {
		dir, _, found := strings.Cut(f.Key, "/")
		if !found {
			continue
		}
		if f.ModTime.After(newest[dir]) {
			newest[dir] = f.ModTime
		}
	}

	cutoff := time.Now().Add(-maxAge)
	var removed []string
	for dir, mod := range newest {
		if !mod.Before(cutoff) {
			continue
		}
		if err := backend.DeleteAll(ctx, dir); err != nil {
			logging.WarnWithComponent(logging.ComponentStorage, "Failed to remove expired outputs", "prefix", dir, "error", err)
			continue
		}
		removed = append(removed, dir)
	}

	if len(removed) > 0 {
		logging.InfoWithComponent(logging.ComponentStorage, "Removed expired outputs", "count", len(removed), "max_age", maxAge.String())
	}
	return removed, nil
}

// RunCleanup sweeps the backend every interval until ctx is done.
func RunCleanup(ctx context.Context, backend Backend, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := CleanupOlderThan(ctx, backend, maxAge); err != nil {
				logging.WarnWithComponent(logging.ComponentStorage, "Output cleanup failed", "error", err)
			}
		}
	}
}
