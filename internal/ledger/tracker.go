// Package ledger maintains the per-user, per-ticker running position and
// assigns each execution its lifecycle status and, on position close, the
// realized P&L accumulated over the position run.
package ledger

import (
	"github.com/shopspring/decimal"

	"tradeledger/internal/domain"
)

// tickerState is the running state for one canonical ticker.
type tickerState struct {
	qty  decimal.Decimal // signed running position
	pnl  decimal.Decimal // notional accumulated since the last close
	seen bool            // ticker observed at least once this replay
}

// Tracker is a sequential reducer over one user's chronologically ordered
// executions. State lives for a single invocation: seed it from reconciled
// history, then apply the new batch in the same pass. Input order is the
// caller's responsibility; the tracker never reorders.
//
// A Tracker is not safe for concurrent use. Batches for different users get
// their own Tracker.
type Tracker struct {
	state map[string]*tickerState
}

// New creates an empty Tracker. Every ticker starts flat at zero.
func New() *Tracker {
	return &Tracker{state: make(map[string]*tickerState)}
}

// Seed replays reconciled history to rebuild running positions and P&L
// accumulators. Historical records are consumed for state only; their
// stored lifecycle fields are not touched and nothing is re-emitted.
func (t *Tracker) Seed(history []*domain.Execution) {
	for _, e := range history {
		t.advance(e.CanonicalTicker, e.PositionEffect, e.NotionalValue)
	}
}

// Apply advances the ticker state with one new execution and stamps its
// lifecycle fields: PositionQtyAfter, LifecycleStatus, and - when the
// position returns to zero - RealizedPnL.
func (t *Tracker) Apply(e *domain.Execution) {
	newQty, status, realized := t.advance(e.CanonicalTicker, e.PositionEffect, e.NotionalValue)

	e.PositionQtyAfter = newQty
	e.LifecycleStatus = status
	e.RealizedPnL = realized
}

// Position returns the current running position for a ticker.
func (t *Tracker) Position(ticker string) decimal.Decimal {
	if s, ok := t.state[ticker]; ok {
		return s.qty
	}
	return decimal.Zero
}

// Positions returns a snapshot of all non-flat running positions.
func (t *Tracker) Positions() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for ticker, s := range t.state {
		if !s.qty.IsZero() {
			out[ticker] = s.qty
		}
	}
	return out
}

// advance applies one position effect and returns the resulting quantity,
// lifecycle status, and realized P&L (nil unless the position closed).
//
// Rule order matters and is deliberate: a ticker's first-ever execution is
// always Open, even when it nets the position to zero on its own. Swapping
// the first two branches would reclassify one-shot trades as Close and move
// their P&L attribution.
func (t *Tracker) advance(ticker string, effect, notional decimal.Decimal) (decimal.Decimal, domain.LifecycleStatus, *decimal.Decimal) {
	s, ok := t.state[ticker]
	if !ok {
		s = &tickerState{qty: decimal.Zero, pnl: decimal.Zero}
		t.state[ticker] = s
	}

	prevQty := s.qty
	newQty := prevQty.Add(effect)

	var status domain.LifecycleStatus
	switch {
	case !s.seen:
		status = domain.StatusOpen
	case newQty.IsZero():
		status = domain.StatusClose
	case prevQty.IsZero():
		status = domain.StatusOpen
	default:
		status = domain.StatusContinue
	}

	s.pnl = s.pnl.Add(notional)

	var realized *decimal.Decimal
	if status == domain.StatusClose {
		pnl := s.pnl
		realized = &pnl
		s.pnl = decimal.Zero
	}

	s.qty = newQty
	s.seen = true

	return newQty, status, realized
}
