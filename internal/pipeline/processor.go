// Package pipeline orchestrates batch processing: normalize the uploaded
// rows, reconcile persisted history, replay it through the position tracker,
// apply the new batch, persist the results, and fan out archival and
// notification. Row-level failures are collected, never fatal; a batch
// always returns a structured result.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
	"tradeledger/internal/ledger"
	"tradeledger/internal/normalize"
	"tradeledger/internal/observability"
	"tradeledger/internal/reconcile"
	"tradeledger/internal/storage"
)

// Archiver persists batch snapshots to object storage. Archival failures
// are non-fatal; the processor logs them and continues.
type Archiver interface {
	// ArchiveOriginal stores the raw rows as uploaded, before
	// normalization. Returns the object key written.
	ArchiveOriginal(ctx context.Context, userID, sourceKey string, rows []domain.RawRow) (string, error)

	// ArchiveProcessed stores the fully annotated executions. Returns the
	// object key written.
	ArchiveProcessed(ctx context.Context, userID, sourceKey string, execs []*domain.Execution) (string, error)
}

// Notifier reports a finished batch. Failures are non-fatal.
type Notifier interface {
	NotifyBatchProcessed(ctx context.Context, result *domain.BatchResult) error
}

// Batch is the invocation contract: one user's rows from one upload.
type Batch struct {
	UserID    string
	SourceKey string // upload identifier (file path or object key), for archival naming
	Rows      []domain.RawRow

	// Intake counts, carried through to the result and notification.
	RowsRead     int
	RowsFiltered int
}

// Processor wires the batch stages together.
type Processor struct {
	normalizer *normalize.Normalizer
	reconciler *reconcile.Reconciler
	store      storage.ExecutionStore
	archiver   Archiver // optional
	notifier   Notifier // optional
	metrics    *observability.Metrics
	logger     *zap.Logger
	clock      func() time.Time
}

// Options for creating a Processor. Normalizer, Reconciler, and Store are
// required; Archiver, Notifier, and Metrics are optional.
type Options struct {
	Normalizer *normalize.Normalizer
	Reconciler *reconcile.Reconciler
	Store      storage.ExecutionStore
	Archiver   Archiver
	Notifier   Notifier
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// New creates a Processor.
func New(opts Options) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		normalizer: opts.Normalizer,
		reconciler: opts.Reconciler,
		store:      opts.Store,
		archiver:   opts.Archiver,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		logger:     logger,
		clock:      time.Now,
	}
}

// WithClock overrides the clock for deterministic tests.
func (p *Processor) WithClock(clock func() time.Time) *Processor {
	p.clock = clock
	return p
}

// Process runs one batch end to end and returns the structured result. The
// returned error is reserved for total persistence failure; everything else
// (row errors, lookup misses, history-fetch failure, archival and
// notification failure) degrades and is reported inside the result.
func (p *Processor) Process(ctx context.Context, batch Batch) (*domain.BatchResult, error) {
	if batch.UserID == "" {
		return nil, fmt.Errorf("pipeline: user id is required")
	}

	start := p.clock()
	result := &domain.BatchResult{
		RunID:        uuid.NewString(),
		UserID:       batch.UserID,
		RowsRead:     batch.RowsRead,
		RowsFiltered: batch.RowsFiltered,
	}

	logger := p.logger.With(
		zap.String("run_id", result.RunID),
		zap.String("user_id", batch.UserID),
	)
	logger.Info("batch processing started",
		zap.Int("rows", len(batch.Rows)),
		zap.String("source", batch.SourceKey),
	)

	p.metrics.IncRowsRead(batch.RowsRead)
	p.metrics.IncRowsFiltered(batch.RowsFiltered)

	p.archiveOriginal(ctx, logger, batch)

	// Stage 1: normalize. Row failures are isolated here; the batch
	// continues past them.
	execs := p.normalizeRows(batch, result, logger)

	// Stage 2: reconcile history and replay it through a fresh tracker.
	tracker := p.seedTracker(ctx, execs, batch.UserID, logger)

	// Stage 3: apply the new batch in chronological order.
	for _, e := range execs {
		tracker.Apply(e)
		switch e.LifecycleStatus {
		case domain.StatusOpen:
			p.metrics.IncPositionsOpened()
		case domain.StatusClose:
			p.metrics.IncPositionsClosed()
		}
	}
	result.Executions = execs

	// Stage 4: persist. Partial success is reported, not fatal; only a
	// total store failure aborts.
	write, err := p.store.Put(ctx, execs)
	if err != nil {
		p.metrics.RecordBatchRun("failed", p.clock().Sub(start).Seconds())
		return result, fmt.Errorf("pipeline: persist batch: %w", err)
	}
	result.Write = write
	p.metrics.IncExecutionsWritten(write.Written)
	p.metrics.IncExecutionsFailed(write.Failed)
	if write.Failed > 0 {
		logger.Warn("partial persistence failure",
			zap.Int("written", write.Written),
			zap.Int("failed", write.Failed),
		)
	}

	p.archiveProcessed(ctx, logger, batch, execs)
	p.notify(ctx, logger, result)

	elapsed := p.clock().Sub(start)
	p.metrics.RecordBatchRun("success", elapsed.Seconds())
	logger.Info("batch processing finished",
		zap.Int("executions", len(result.Executions)),
		zap.Int("row_errors", len(result.RowErrors)),
		zap.Int("written", write.Written),
		zap.Int("write_failed", write.Failed),
		zap.Duration("elapsed", elapsed),
	)

	return result, nil
}

// normalizeRows converts raw rows to executions, collects row errors, drops
// in-batch duplicate transaction ids (first seen wins, deterministically),
// and returns the survivors sorted chronologically.
func (p *Processor) normalizeRows(batch Batch, result *domain.BatchResult, logger *zap.Logger) []*domain.Execution {
	seen := make(map[int64]struct{}, len(batch.Rows))
	execs := make([]*domain.Execution, 0, len(batch.Rows))

	for _, row := range batch.Rows {
		exec, rowErr := p.normalizer.Normalize(batch.UserID, row)
		if rowErr != nil {
			result.RowErrors = append(result.RowErrors, *rowErr)
			p.metrics.IncRowErrors(1)
			logger.Warn("row excluded",
				zap.Int("row", rowErr.Row),
				zap.String("reason", rowErr.Reason),
			)
			continue
		}

		if _, dup := seen[exec.TransactionID]; dup {
			result.RowErrors = append(result.RowErrors, domain.RowError{
				Row:    row.Index,
				Reason: fmt.Sprintf("duplicate transaction id %d, first occurrence kept", exec.TransactionID),
			})
			p.metrics.IncRowErrors(1)
			continue
		}
		seen[exec.TransactionID] = struct{}{}

		if len(exec.QualityFlags) > 0 {
			p.metrics.IncQualityFlags(len(exec.QualityFlags))
		}
		execs = append(execs, exec)
	}

	p.metrics.IncExecutionsNormalized(len(execs))

	reconcile.SortChronologically(execs)
	return execs
}

// seedTracker reconciles the user's history and replays it into a fresh
// tracker. A reconciliation failure degrades to an empty history - the
// batch still runs, with open positions possibly under-counted - and is
// surfaced loudly in logs and metrics rather than aborting the pipeline.
func (p *Processor) seedTracker(ctx context.Context, execs []*domain.Execution, userID string, logger *zap.Logger) *ledger.Tracker {
	tracker := ledger.New()
	if len(execs) == 0 {
		return tracker
	}

	tickers := make([]string, 0, 4)
	tickerSeen := make(map[string]struct{}, 4)
	excludeIDs := make(map[int64]struct{}, len(execs))
	minID := execs[0].TransactionID
	for _, e := range execs {
		excludeIDs[e.TransactionID] = struct{}{}
		if e.TransactionID < minID {
			minID = e.TransactionID
		}
		if _, ok := tickerSeen[e.CanonicalTicker]; !ok {
			tickerSeen[e.CanonicalTicker] = struct{}{}
			tickers = append(tickers, e.CanonicalTicker)
		}
	}
	sort.Strings(tickers)

	history, err := p.reconciler.Reconcile(ctx, userID, tickers, excludeIDs, minID)
	if err != nil {
		logger.Error("history reconciliation failed, proceeding off empty history",
			zap.Error(err),
		)
		p.metrics.IncHistoryFetchFailure()
		return tracker
	}

	tracker.Seed(history)
	p.metrics.IncHistoryReplayed(len(history))
	logger.Info("tracker state seeded",
		zap.Int("historical_executions", len(history)),
		zap.Int("open_positions", len(tracker.Positions())),
	)
	return tracker
}

func (p *Processor) archiveOriginal(ctx context.Context, logger *zap.Logger, batch Batch) {
	if p.archiver == nil || len(batch.Rows) == 0 {
		return
	}
	key, err := p.archiver.ArchiveOriginal(ctx, batch.UserID, batch.SourceKey, batch.Rows)
	if err != nil {
		logger.Warn("original data archival failed", zap.Error(err))
		p.metrics.IncArchiveFailure()
		return
	}
	logger.Info("original data archived", zap.String("key", key))
}

func (p *Processor) archiveProcessed(ctx context.Context, logger *zap.Logger, batch Batch, execs []*domain.Execution) {
	if p.archiver == nil || len(execs) == 0 {
		return
	}
	key, err := p.archiver.ArchiveProcessed(ctx, batch.UserID, batch.SourceKey, execs)
	if err != nil {
		logger.Warn("processed data archival failed", zap.Error(err))
		p.metrics.IncArchiveFailure()
		return
	}
	logger.Info("processed data archived", zap.String("key", key))
}

func (p *Processor) notify(ctx context.Context, logger *zap.Logger, result *domain.BatchResult) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifyBatchProcessed(ctx, result); err != nil {
		logger.Warn("batch notification failed", zap.Error(err))
		p.metrics.IncNotifyFailure()
	}
}
