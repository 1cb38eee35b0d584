package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/marquee/internal/metrics"
	"github.com/mmcdole/marquee/internal/store"
)

// PruneReport summarizes a ClearExpiredCache sweep
type PruneReport struct {
	SearchesDeleted int
	DetailsCleared  int
}

// Janitor removes stale cache records in bulk, applying the same expiry
// rules as the read path.
type Janitor struct {
	store   *store.Store
	expiry  expiry
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewJanitor creates a janitor over st
func NewJanitor(st *store.Store, opts LocalOptions) *Janitor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{store: st, expiry: newExpiry(opts), metrics: opts.Metrics, logger: logger}
}

// ClearExpiredCache deletes stale search pages and the detail attributes of
// stale details. Base movie rows and favorites are kept.
func (j *Janitor) ClearExpiredCache(ctx context.Context) (PruneReport, error) {
	var report PruneReport
	if err := ctx.Err(); err != nil {
		return report, err
	}

	err := j.store.Perform(func(tx *store.Tx) error {
		searches, err := j.expiredKeys(tx, store.BucketSearches)
		if err != nil {
			return err
		}
		details, err := j.expiredKeys(tx, store.BucketDetails)
		if err != nil {
			return err
		}

		for _, k := range searches {
			if err := tx.Delete(store.BucketSearches, k); err != nil {
				return err
			}
		}
		for _, k := range details {
			if err := tx.Delete(store.BucketDetails, k); err != nil {
				return err
			}
		}

		report = PruneReport{SearchesDeleted: len(searches), DetailsCleared: len(details)}
		return nil
	})
	if err != nil {
		return PruneReport{}, fmt.Errorf("failed to clear expired cache: %w", err)
	}

	j.store.Compact()
	j.metrics.RecordCachePruned(kindSearch, report.SearchesDeleted)
	j.metrics.RecordCachePruned(kindDetail, report.DetailsCleared)
	j.logger.Info("cleared expired cache",
		"searchesDeleted", report.SearchesDeleted,
		"detailsCleared", report.DetailsCleared,
	)
	return report, nil
}

func (j *Janitor) expiredKeys(tx *store.Tx, bucket []byte) ([]string, error) {
	var keys []string
	err := tx.ForEach(bucket, func(key string, raw []byte) error {
		var rec struct {
			SavedAt time.Time `json:"saved_at"`
		}
		// Unreadable records are stale too
		if err := store.Decode(raw, &rec); err != nil || j.expiry.expired(rec.SavedAt) {
			keys = append(keys, key)
		}
		return nil
	})
	return keys, err
}
