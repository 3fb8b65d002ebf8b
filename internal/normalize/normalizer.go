// Package normalize converts raw spreadsheet rows into canonical Execution
// records: dates are formatted, numeric text is exact-converted to decimal,
// quantities are signed by side, and the canonical ticker is resolved from
// the symbol conversion table. Lifecycle fields are left unset; the ledger
// tracker assigns them.
package normalize

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tradeledger/internal/calc"
	"tradeledger/internal/domain"
	"tradeledger/internal/lookup"
)

// Normalizer turns RawRow values into Execution records.
type Normalizer struct {
	symbols lookup.SymbolTable
	calc    *calc.Calculator
	logger  *zap.Logger
}

// New creates a Normalizer.
func New(symbols lookup.SymbolTable, calculator *calc.Calculator, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{symbols: symbols, calc: calculator, logger: logger}
}

// Normalize converts one raw row. A row missing its transaction id, date,
// time, symbol, or side fails validation and is reported as a RowError; the
// batch continues. Unparseable numeric cells degrade to zero with a quality
// flag instead of dropping the row.
func (n *Normalizer) Normalize(userID string, row domain.RawRow) (*domain.Execution, *domain.RowError) {
	exec := &domain.Execution{
		UserID:      userID,
		RawSymbol:   strings.TrimSpace(row.Symbol),
		FullSymbol:  row.FullSymbol,
		Description: row.Description,
		Exchange:    row.Exchange,
		OrderType:   row.OrderType,
		Account:     row.Account,

		ExchangeConfirmation: row.ExchangeConfirmation,
		GWOrderID:            row.GWOrderID,
		OrderExecID:          row.OrderExecID,
	}

	if len(row.Extra) > 0 {
		exec.Extra = make([]domain.Field, len(row.Extra))
		copy(exec.Extra, row.Extra)
	}

	// Dates. Unparseable values format as empty strings and are caught by
	// validation below only when the field is required.
	executedAt, _ := ParseDate(row.ExecutedAt)
	exec.Date = FormatDate(executedAt)
	exec.Time = FormatTime(executedAt)

	tradeDate, _ := ParseDate(row.TradeDate)
	exec.TradingDay = FormatTradingDay(tradeDate)
	exec.WeekNum = WeekNumber(tradeDate)

	if expiration, ok := ParseDate(row.ContractExpiration); ok {
		exec.ContractExpiration = FormatDate(expiration)
	}

	exec.CanonicalTicker = n.symbols.Canonical(exec.RawSymbol)

	// Numeric fields
	quantity, ok := ParseDecimal(row.Quantity)
	if !ok {
		exec.QualityFlags = append(exec.QualityFlags, fmt.Sprintf("unparseable quantity %q", row.Quantity))
		n.logger.Warn("unparseable quantity cell",
			zap.Int("row", row.Index),
			zap.String("value", row.Quantity),
		)
	}
	exec.Quantity = quantity

	price, ok := ParseDecimal(row.Price)
	if !ok {
		exec.QualityFlags = append(exec.QualityFlags, fmt.Sprintf("unparseable price %q", row.Price))
		n.logger.Warn("unparseable price cell",
			zap.Int("row", row.Index),
			zap.String("value", row.Price),
		)
	}
	exec.ExecutionPrice = price

	// Position effect: signed quantity. Sell is negative, anything else buys.
	side := strings.TrimSpace(row.Side)
	exec.Side = domain.Side(side)
	if strings.EqualFold(side, "sell") {
		exec.PositionEffect = quantity.Neg()
	} else {
		exec.PositionEffect = quantity
	}

	exec.TransactionID = ParseTransactionID(row.TransactionID)

	exec.NotionalValue = n.calc.NotionalValue(exec.CanonicalTicker, exec.ExecutionPrice, exec.PositionEffect)
	exec.Fee = n.calc.Fee(exec.CanonicalTicker, exec.Quantity)

	if !exec.IsValid() {
		return nil, &domain.RowError{
			Row:    row.Index,
			Reason: validationReason(exec),
		}
	}

	return exec, nil
}

// validationReason names the first missing required field.
func validationReason(e *domain.Execution) string {
	switch {
	case e.TransactionID == 0:
		return "missing or unparseable transaction id"
	case e.Date == "" || e.Time == "":
		return "missing or unparseable execution date/time"
	case e.TradingDay == "":
		return "missing or unparseable trade date"
	case e.RawSymbol == "":
		return "missing symbol"
	case e.Side == "":
		return "missing side"
	default:
		return "invalid row"
	}
}
