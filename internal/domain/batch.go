package domain

// RowError records why one row was excluded from a batch. Row-level problems
// never abort the batch; they are collected and reported alongside the
// processed executions.
type RowError struct {
	Row    int    // 1-based row number in the source sheet
	Reason string
}

// WriteResult reports the outcome of a persistence write. Partial success is
// expected and surfaced rather than treated as fatal.
type WriteResult struct {
	Written int
	Failed  int
}

// BatchResult is the structured outcome of processing one upload batch.
type BatchResult struct {
	RunID  string
	UserID string

	// Executions that passed normalization and lifecycle tracking,
	// in transaction id order.
	Executions []*Execution

	// Per-row failures, in source row order.
	RowErrors []RowError

	// Counts from the intake stage
	RowsRead     int
	RowsFiltered int // dropped by the order-status filter

	// Persistence outcome
	Write WriteResult
}
