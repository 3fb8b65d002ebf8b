// Package lookup provides the static reference tables used during
// normalization: symbol conversion, contract tick values, and commission
// rates. Tables are loaded once per process and treated as immutable for the
// duration of a batch.
package lookup

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// SymbolTable maps raw instrument symbols to canonical tickers.
type SymbolTable map[string]string

// Canonical resolves a raw symbol to its canonical ticker. Unknown symbols
// pass through unchanged so an incomplete table never drops a row.
func (t SymbolTable) Canonical(symbol string) string {
	if symbol == "" || t == nil {
		return symbol
	}
	if ticker, ok := t[symbol]; ok {
		return ticker
	}
	return symbol
}

// TickSpec holds per-ticker contract specifications.
type TickSpec struct {
	Multiplier   decimal.Decimal `json:"multiplier"`
	ValuePerTick decimal.Decimal `json:"valuePerTick"`
	TickSize     decimal.Decimal `json:"tickSize"`
}

// TickTable maps canonical tickers to contract specifications.
type TickTable map[string]TickSpec

// Multiplier returns the contract multiplier for a ticker.
func (t TickTable) Multiplier(ticker string) (decimal.Decimal, bool) {
	spec, ok := t[ticker]
	if !ok {
		return decimal.Zero, false
	}
	return spec.Multiplier, true
}

// ValuePerTick returns the dollar value of one tick for a ticker.
func (t TickTable) ValuePerTick(ticker string) (decimal.Decimal, bool) {
	spec, ok := t[ticker]
	if !ok {
		return decimal.Zero, false
	}
	return spec.ValuePerTick, true
}

// TickSize returns the minimum price increment for a ticker.
func (t TickTable) TickSize(ticker string) (decimal.Decimal, bool) {
	spec, ok := t[ticker]
	if !ok {
		return decimal.Zero, false
	}
	return spec.TickSize, true
}

// SymbolRates holds per-tier commission rates for one ticker.
type SymbolRates struct {
	Tiers map[string]decimal.Decimal `json:"tiers"`
}

// BrokerRates holds the commission schedule for one broker.
type BrokerRates struct {
	Rates map[string]SymbolRates `json:"rates"`
}

// CommissionTable maps broker names to their commission schedules.
type CommissionTable map[string]BrokerRates

// Rate returns the per-contract commission rate for a broker, ticker, and
// tier. Tier "fixed" aliases tier "3".
func (t CommissionTable) Rate(broker, ticker, tier string) (decimal.Decimal, bool) {
	if tier == TierFixed {
		tier = "3"
	}
	b, ok := t[broker]
	if !ok {
		return decimal.Zero, false
	}
	sym, ok := b.Rates[ticker]
	if !ok {
		return decimal.Zero, false
	}
	rate, ok := sym.Tiers[tier]
	if !ok {
		return decimal.Zero, false
	}
	return rate, true
}

// TierFixed is the commission tier alias that resolves to tier 3 rates.
const TierFixed = "fixed"

// LoadSymbols reads a symbol conversion table from a JSON file.
func LoadSymbols(path string) (SymbolTable, error) {
	var t SymbolTable
	if err := loadJSON(path, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTicks reads a tick values table from a JSON file.
func LoadTicks(path string) (TickTable, error) {
	var t TickTable
	if err := loadJSON(path, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadCommissions reads a commission schedule from a JSON file.
func LoadCommissions(path string) (CommissionTable, error) {
	var t CommissionTable
	if err := loadJSON(path, &t); err != nil {
		return nil, err
	}
	return t, nil
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
