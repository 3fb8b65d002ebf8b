package domain

import "github.com/shopspring/decimal"

// Side represents the direction of a fill.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// LifecycleStatus classifies an execution's effect on the running position.
// The empty string means the execution has not been through the tracker yet
// (e.g. legacy persisted records written before lifecycle tracking existed).
type LifecycleStatus string

const (
	StatusOpen     LifecycleStatus = "Open"
	StatusContinue LifecycleStatus = "Continue"
	StatusClose    LifecycleStatus = "Close"
)

// IsValid checks if the status is one of the tracker-assigned values.
func (s LifecycleStatus) IsValid() bool {
	return s == StatusOpen || s == StatusContinue || s == StatusClose
}

// Assigned reports whether the tracker has stamped lifecycle fields on the
// record. Legacy records loaded from storage may predate lifecycle tracking.
func (s LifecycleStatus) Assigned() bool {
	return s != ""
}

// Field is one preserved (name, value) pair from the original upload row.
// Passthrough columns keep their source order.
type Field struct {
	Name  string
	Value string
}

// Execution represents one normalized, filled trade leg.
// TransactionID is the primary chronological sort key and idempotency key
// within a user's execution set; a value of 0 means the source row carried
// no usable id and ordering falls back to (Date, Time).
type Execution struct {
	TransactionID int64
	UserID        string

	// Instrument identification
	CanonicalTicker string // after symbol-conversion lookup; position grouping key
	RawSymbol       string // unconverted commodity symbol, kept for display
	FullSymbol      string
	Description     string
	Exchange        string

	// Fill details
	Side           Side
	Quantity       decimal.Decimal // unsigned fill size
	PositionEffect decimal.Decimal // +Quantity for Buy, -Quantity for Sell
	ExecutionPrice decimal.Decimal
	OrderType      string
	Account        string

	// Display date/time fields. Empty when the source value was unparseable.
	Date               string // mm/dd/yyyy
	Time               string // HH:MM:SS.mmm
	TradingDay         string // yyyy-mm-dd
	WeekNum            int    // ISO week of the trading day, 0 when unknown
	ContractExpiration string

	// Reference identifiers carried through from the source row
	ExchangeConfirmation string
	GWOrderID            string
	OrderExecID          string

	// Calculated fields
	NotionalValue decimal.Decimal // -multiplier * price * positionEffect
	Fee           decimal.Decimal // -rate * |quantity|

	// Lifecycle fields, assigned exactly once by the tracker
	PositionQtyAfter decimal.Decimal
	LifecycleStatus  LifecycleStatus
	RealizedPnL      *decimal.Decimal // set only when LifecycleStatus is Close

	// Passthrough columns not covered by the fixed fields above
	Extra []Field

	// QualityFlags records non-fatal data problems found during
	// normalization (e.g. a numeric cell that would not parse). The row
	// stays in the batch; the flags surface the degradation.
	QualityFlags []string
}

// IsValid checks required fields are present. Invalid executions are dropped
// with a per-row error; they are never persisted.
func (e *Execution) IsValid() bool {
	if e.TransactionID == 0 {
		return false
	}
	if e.Date == "" || e.Time == "" || e.TradingDay == "" {
		return false
	}
	if e.RawSymbol == "" || e.Side == "" {
		return false
	}
	return true
}

// Clone returns a deep copy. Stores hand out copies so callers can never
// mutate persisted state.
func (e *Execution) Clone() *Execution {
	cp := *e
	if e.RealizedPnL != nil {
		pnl := *e.RealizedPnL
		cp.RealizedPnL = &pnl
	}
	if e.Extra != nil {
		cp.Extra = make([]Field, len(e.Extra))
		copy(cp.Extra, e.Extra)
	}
	if e.QualityFlags != nil {
		cp.QualityFlags = make([]string, len(e.QualityFlags))
		copy(cp.QualityFlags, e.QualityFlags)
	}
	return &cp
}
