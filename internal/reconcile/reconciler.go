// Package reconcile selects and filters a user's persisted executions so
// they can be replayed ahead of a new batch without duplication or
// reordering: it excludes records already present in the batch, excludes
// records chronologically at or after the batch, and returns the remainder
// sorted chronologically.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradeledger/internal/domain"
	"tradeledger/internal/observability"
	"tradeledger/internal/storage"
)

// Reconciler loads the chronological prefix of history the tracker must
// replay before a new batch.
type Reconciler struct {
	store   storage.ExecutionStore
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New creates a Reconciler backed by the given store.
func New(store storage.ExecutionStore, logger *zap.Logger, metrics *observability.Metrics) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: store, logger: logger, metrics: metrics}
}

// Reconcile returns the user's qualifying history, sorted chronologically.
//
// When tickersInBatch is non-empty, only those tickers are queried (each
// truncated to the executions after its last recorded close, when safe);
// if any scoped query fails the whole set is re-fetched with an
// unrestricted query - a partial history must never be returned silently.
// excludeIDs removes executions already present in the new batch, and
// maxID drops anything at or chronologically after the batch (ids compared
// numerically). An empty result is not an error; a query failure is
// returned to the caller, which may proceed off empty history as a
// documented degraded mode.
func (r *Reconciler) Reconcile(ctx context.Context, userID string, tickersInBatch []string, excludeIDs map[int64]struct{}, maxID int64) ([]*domain.Execution, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	var history []*domain.Execution
	var err error

	if len(tickersInBatch) > 0 {
		history, err = r.queryByTickers(ctx, userID, tickersInBatch)
		if err != nil {
			// Correctness over efficiency: retry unrestricted rather
			// than proceed off a partial per-ticker result.
			r.logger.Warn("scoped history query failed, falling back to full user query",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			r.metrics.IncHistoryFetchFallback()
			history, err = r.store.Query(ctx, userID, "")
		}
	} else {
		history, err = r.store.Query(ctx, userID, "")
	}
	if err != nil {
		return nil, fmt.Errorf("query history for user %s: %w", userID, err)
	}

	filtered := make([]*domain.Execution, 0, len(history))
	var excludedInBatch, excludedAfterBatch int
	for _, e := range history {
		if _, ok := excludeIDs[e.TransactionID]; ok {
			excludedInBatch++
			continue
		}
		// An unknown id (0) cannot be compared; keep the record. Dropping
		// it would silently under-count open positions.
		if maxID > 0 && e.TransactionID != 0 && e.TransactionID >= maxID {
			excludedAfterBatch++
			continue
		}
		filtered = append(filtered, e)
	}

	if excludedInBatch > 0 || excludedAfterBatch > 0 {
		r.logger.Info("filtered historical executions",
			zap.String("user_id", userID),
			zap.Int("retrieved", len(history)),
			zap.Int("excluded_in_batch", excludedInBatch),
			zap.Int("excluded_after_batch", excludedAfterBatch),
		)
	}

	SortChronologically(filtered)
	return filtered, nil
}

// queryByTickers fetches history for each ticker concurrently. The queries
// are read-only and independent; results are merged and sorted by the
// caller before the tracker ever sees them.
func (r *Reconciler) queryByTickers(ctx context.Context, userID string, tickers []string) ([]*domain.Execution, error) {
	var mu sync.Mutex
	var all []*domain.Execution

	g, gctx := errgroup.WithContext(ctx)
	for _, ticker := range tickers {
		g.Go(func() error {
			execs, err := r.store.Query(gctx, userID, ticker)
			if err != nil {
				return fmt.Errorf("query ticker %s: %w", ticker, err)
			}

			SortChronologically(execs)
			execs = sinceLastClose(execs)

			mu.Lock()
			all = append(all, execs...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

// sinceLastClose truncates one ticker's sorted history to the executions
// strictly after its most recent closed position. Truncation is an
// optimization, never a source of wrong results: if any record lacks
// lifecycle fields (written before tracking existed), the full history is
// retained so positions can be rebuilt from scratch.
func sinceLastClose(sorted []*domain.Execution) []*domain.Execution {
	if len(sorted) == 0 {
		return sorted
	}

	for _, e := range sorted {
		if !e.LifecycleStatus.Assigned() {
			return sorted
		}
	}

	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		if e.LifecycleStatus == domain.StatusClose && e.PositionQtyAfter.IsZero() {
			return sorted[i+1:]
		}
	}

	return sorted
}
