package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"tradeledger/internal/domain"
	"tradeledger/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

const executionColumns = `
	user_id, transaction_id, canonical_ticker, raw_symbol, full_symbol,
	description, exchange, side, quantity, position_effect, execution_price,
	order_type, account, exec_date, exec_time, trading_day, week_num,
	contract_expiration, exchange_confirmation, gw_order_id, order_exec_id,
	notional_value, fee, position_qty_after, lifecycle_status, realized_pnl,
	extra, quality_flags`

// Query retrieves executions for a user, optionally narrowed to a single
// ticker, ordered by transaction id.
func (s *ExecutionStore) Query(ctx context.Context, userID, ticker string) ([]*domain.Execution, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `SELECT` + executionColumns + `
		FROM executions
		WHERE user_id = $1
		ORDER BY transaction_id ASC`
	args := []any{userID}

	if ticker != "" {
		query = `SELECT` + executionColumns + `
			FROM executions
			WHERE user_id = $1 AND canonical_ticker = $2
			ORDER BY transaction_id ASC`
		args = append(args, ticker)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// Put upserts executions keyed by (user_id, transaction_id). Rewriting the
// same batch replaces rows in place, so reprocessing is idempotent. Items
// that fail validation or insertion are counted, not fatal.
func (s *ExecutionStore) Put(ctx context.Context, execs []*domain.Execution) (domain.WriteResult, error) {
	var result domain.WriteResult

	query := `
		INSERT INTO executions (` + executionColumns + `
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23, $24, $25, $26,
			$27, $28
		)
		ON CONFLICT (user_id, transaction_id) DO UPDATE SET
			canonical_ticker = EXCLUDED.canonical_ticker,
			raw_symbol = EXCLUDED.raw_symbol,
			full_symbol = EXCLUDED.full_symbol,
			description = EXCLUDED.description,
			exchange = EXCLUDED.exchange,
			side = EXCLUDED.side,
			quantity = EXCLUDED.quantity,
			position_effect = EXCLUDED.position_effect,
			execution_price = EXCLUDED.execution_price,
			order_type = EXCLUDED.order_type,
			account = EXCLUDED.account,
			exec_date = EXCLUDED.exec_date,
			exec_time = EXCLUDED.exec_time,
			trading_day = EXCLUDED.trading_day,
			week_num = EXCLUDED.week_num,
			contract_expiration = EXCLUDED.contract_expiration,
			exchange_confirmation = EXCLUDED.exchange_confirmation,
			gw_order_id = EXCLUDED.gw_order_id,
			order_exec_id = EXCLUDED.order_exec_id,
			notional_value = EXCLUDED.notional_value,
			fee = EXCLUDED.fee,
			position_qty_after = EXCLUDED.position_qty_after,
			lifecycle_status = EXCLUDED.lifecycle_status,
			realized_pnl = EXCLUDED.realized_pnl,
			extra = EXCLUDED.extra,
			quality_flags = EXCLUDED.quality_flags
	`

	for _, e := range execs {
		if e == nil || e.UserID == "" || e.TransactionID == 0 {
			result.Failed++
			continue
		}

		extra, err := marshalExtra(e.Extra)
		if err != nil {
			result.Failed++
			continue
		}

		var pnl decimal.NullDecimal
		if e.RealizedPnL != nil {
			pnl = decimal.NullDecimal{Decimal: *e.RealizedPnL, Valid: true}
		}

		_, err = s.pool.Exec(ctx, query,
			e.UserID, e.TransactionID, e.CanonicalTicker, e.RawSymbol, e.FullSymbol,
			e.Description, e.Exchange, string(e.Side), e.Quantity, e.PositionEffect, e.ExecutionPrice,
			e.OrderType, e.Account, e.Date, e.Time, e.TradingDay, e.WeekNum,
			e.ContractExpiration, e.ExchangeConfirmation, e.GWOrderID, e.OrderExecID,
			e.NotionalValue, e.Fee, e.PositionQtyAfter, string(e.LifecycleStatus), pnl,
			extra, e.QualityFlags,
		)
		if err != nil {
			if isRowError(err) {
				result.Failed++
				continue
			}
			return result, fmt.Errorf("put execution %d: %w", e.TransactionID, err)
		}
		result.Written++
	}

	return result, nil
}

// scanExecution scans a single execution from a row.
func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var (
		e     domain.Execution
		side  string
		stat  string
		pnl   decimal.NullDecimal
		extra []byte
	)

	err := row.Scan(
		&e.UserID, &e.TransactionID, &e.CanonicalTicker, &e.RawSymbol, &e.FullSymbol,
		&e.Description, &e.Exchange, &side, &e.Quantity, &e.PositionEffect, &e.ExecutionPrice,
		&e.OrderType, &e.Account, &e.Date, &e.Time, &e.TradingDay, &e.WeekNum,
		&e.ContractExpiration, &e.ExchangeConfirmation, &e.GWOrderID, &e.OrderExecID,
		&e.NotionalValue, &e.Fee, &e.PositionQtyAfter, &stat, &pnl,
		&extra, &e.QualityFlags,
	)
	if err != nil {
		return nil, err
	}

	e.Side = domain.Side(side)
	e.LifecycleStatus = domain.LifecycleStatus(stat)
	if pnl.Valid {
		v := pnl.Decimal
		e.RealizedPnL = &v
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &e.Extra); err != nil {
			return nil, fmt.Errorf("decode extra fields: %w", err)
		}
	}

	return &e, nil
}

// scanExecutions scans all executions from rows.
func scanExecutions(rows pgx.Rows) ([]*domain.Execution, error) {
	var execs []*domain.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return execs, nil
}

// marshalExtra encodes passthrough fields as JSON, nil when empty.
func marshalExtra(fields []domain.Field) ([]byte, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	return json.Marshal(fields)
}
