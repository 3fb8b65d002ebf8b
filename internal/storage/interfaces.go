// Package storage defines the persistence interfaces for execution records.
// Implementations live in subpackages: memory (tests, dry runs), postgres,
// and dynamo.
package storage

import (
	"context"

	"tradeledger/internal/domain"
)

// ExecutionStore provides access to a user's persisted executions.
// Writes are keyed by (user, transaction id) and overwrite: reprocessing an
// upload re-stamps the same records instead of duplicating them.
type ExecutionStore interface {
	// Query returns every execution for a user, optionally restricted to
	// one canonical ticker (empty string means all tickers). Pagination in
	// the backing store is handled transparently; callers always see the
	// complete result. No qualifying records yields an empty slice, not an
	// error.
	Query(ctx context.Context, userID, ticker string) ([]*domain.Execution, error)

	// Put persists a batch of executions. Partial success is expected and
	// reported in the WriteResult; individual item failures are not
	// retried here and do not fail the call. The returned error is
	// reserved for total failure (e.g. the store is unreachable).
	Put(ctx context.Context, execs []*domain.Execution) (domain.WriteResult, error)
}
