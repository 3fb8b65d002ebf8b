// Package memory provides in-memory storage implementations for tests and
// dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"tradeledger/internal/domain"
	"tradeledger/internal/storage"
)

type executionKey struct {
	userID        string
	transactionID int64
}

// ExecutionStore is an in-memory implementation of storage.ExecutionStore.
type ExecutionStore struct {
	mu   sync.RWMutex
	data map[executionKey]*domain.Execution
}

// NewExecutionStore creates a new in-memory execution store.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{data: make(map[executionKey]*domain.Execution)}
}

// Query returns all executions for a user, optionally filtered to one
// canonical ticker, sorted ascending by transaction id. Copies are returned
// so callers cannot mutate stored state.
func (s *ExecutionStore) Query(_ context.Context, userID, ticker string) ([]*domain.Execution, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Execution
	for key, e := range s.data {
		if key.userID != userID {
			continue
		}
		if ticker != "" && e.CanonicalTicker != ticker {
			continue
		}
		result = append(result, e.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TransactionID < result[j].TransactionID
	})

	return result, nil
}

// Put stores executions keyed by (userID, transactionID). Re-putting an
// existing key overwrites it, matching the write-once-overwrite-identical
// semantics of the real backends. Executions missing a user id or
// transaction id are counted as failed.
func (s *ExecutionStore) Put(_ context.Context, execs []*domain.Execution) (domain.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result domain.WriteResult
	for _, e := range execs {
		if e == nil || e.UserID == "" || e.TransactionID == 0 {
			result.Failed++
			continue
		}
		key := executionKey{userID: e.UserID, transactionID: e.TransactionID}
		s.data[key] = e.Clone()
		result.Written++
	}

	return result, nil
}
