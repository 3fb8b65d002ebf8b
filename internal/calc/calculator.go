// Package calc computes a trade's notional value and commission from the
// reference tables. All functions are deterministic and perform no I/O; a
// missing table entry yields zero with a logged warning rather than failing
// the execution.
package calc

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradeledger/internal/lookup"
	"tradeledger/internal/observability"
)

// DefaultBroker is the broker whose commission schedule applies. Per-user
// broker selection is a future enhancement; all rates today come from one
// schedule.
const DefaultBroker = "AMP"

var minusOne = decimal.NewFromInt(-1)

// Calculator resolves multipliers and commission rates from the reference
// tables. Tables are held by reference and never mutated.
type Calculator struct {
	ticks       lookup.TickTable
	commissions lookup.CommissionTable
	broker      string
	tier        string
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// New creates a Calculator using the given tables and commission tier.
func New(ticks lookup.TickTable, commissions lookup.CommissionTable, tier string, logger *zap.Logger, metrics *observability.Metrics) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tier == "" {
		tier = lookup.TierFixed
	}
	return &Calculator{
		ticks:       ticks,
		commissions: commissions,
		broker:      DefaultBroker,
		tier:        tier,
		logger:      logger,
		metrics:     metrics,
	}
}

// WithBroker overrides the commission schedule the Calculator reads from.
func (c *Calculator) WithBroker(broker string) *Calculator {
	if broker != "" {
		c.broker = broker
	}
	return c
}

// NotionalValue computes -1 * multiplier * price * positionEffect.
// The sign convention makes a buy a negative cash flow and a sell positive,
// so summing notional values over a position run yields realized P&L.
// Returns zero when the ticker has no tick table entry.
func (c *Calculator) NotionalValue(ticker string, price, positionEffect decimal.Decimal) decimal.Decimal {
	multiplier, ok := c.ticks.Multiplier(ticker)
	if !ok {
		c.logger.Warn("tick values not found for symbol", zap.String("ticker", ticker))
		c.metrics.IncLookupMiss("tick_values")
		return decimal.Zero
	}
	return multiplier.Mul(price).Mul(positionEffect).Mul(minusOne)
}

// Fee computes -1 * rate * |quantity| for the configured broker and tier.
// Negative because commissions are a cost. Returns zero when no rate is
// configured for the ticker.
func (c *Calculator) Fee(ticker string, quantity decimal.Decimal) decimal.Decimal {
	rate, ok := c.commissions.Rate(c.broker, ticker, c.tier)
	if !ok {
		c.logger.Warn("commission rate not found",
			zap.String("ticker", ticker),
			zap.String("tier", c.tier),
		)
		c.metrics.IncLookupMiss("commissions")
		return decimal.Zero
	}
	return rate.Mul(quantity.Abs()).Mul(minusOne)
}
