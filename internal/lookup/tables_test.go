package lookup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSymbolTable_Canonical(t *testing.T) {
	table := SymbolTable{"F.US.EP": "ES", "F.US.ENQ": "NQ"}

	if got := table.Canonical("F.US.EP"); got != "ES" {
		t.Errorf("Canonical(F.US.EP) = %q, want ES", got)
	}
	// Unknown symbols pass through unchanged.
	if got := table.Canonical("F.US.XYZ"); got != "F.US.XYZ" {
		t.Errorf("Canonical(F.US.XYZ) = %q, want passthrough", got)
	}
	if got := table.Canonical(""); got != "" {
		t.Errorf("Canonical(\"\") = %q, want empty", got)
	}

	var nilTable SymbolTable
	if got := nilTable.Canonical("F.US.EP"); got != "F.US.EP" {
		t.Errorf("nil table Canonical = %q, want passthrough", got)
	}
}

func TestTickTable_Lookups(t *testing.T) {
	table := TickTable{
		"ES": {
			Multiplier:   decimal.NewFromInt(50),
			ValuePerTick: decimal.NewFromFloat(12.5),
			TickSize:     decimal.NewFromFloat(0.25),
		},
	}

	m, ok := table.Multiplier("ES")
	if !ok || !m.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Multiplier(ES) = %s, %v", m, ok)
	}
	v, ok := table.ValuePerTick("ES")
	if !ok || !v.Equal(decimal.NewFromFloat(12.5)) {
		t.Errorf("ValuePerTick(ES) = %s, %v", v, ok)
	}
	s, ok := table.TickSize("ES")
	if !ok || !s.Equal(decimal.NewFromFloat(0.25)) {
		t.Errorf("TickSize(ES) = %s, %v", s, ok)
	}

	if _, ok := table.Multiplier("GC"); ok {
		t.Error("Multiplier(GC) should miss")
	}
}

func TestCommissionTable_Rate(t *testing.T) {
	table := CommissionTable{
		"AMP": {
			Rates: map[string]SymbolRates{
				"ES": {Tiers: map[string]decimal.Decimal{
					"1": decimal.NewFromFloat(1.25),
					"3": decimal.NewFromFloat(2.02),
				}},
			},
		},
	}

	rate, ok := table.Rate("AMP", "ES", "1")
	if !ok || !rate.Equal(decimal.NewFromFloat(1.25)) {
		t.Errorf("Rate(AMP, ES, 1) = %s, %v", rate, ok)
	}

	// The "fixed" tier aliases tier 3.
	rate, ok = table.Rate("AMP", "ES", TierFixed)
	if !ok || !rate.Equal(decimal.NewFromFloat(2.02)) {
		t.Errorf("Rate(AMP, ES, fixed) = %s, %v", rate, ok)
	}

	if _, ok := table.Rate("AMP", "NQ", "1"); ok {
		t.Error("unknown ticker should miss")
	}
	if _, ok := table.Rate("IBKR", "ES", "1"); ok {
		t.Error("unknown broker should miss")
	}
	if _, ok := table.Rate("AMP", "ES", "9"); ok {
		t.Error("unknown tier should miss")
	}
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	symbols, err := LoadSymbols(write("symbols.json", `{"F.US.EP": "ES"}`))
	if err != nil {
		t.Fatalf("LoadSymbols() error = %v", err)
	}
	if symbols.Canonical("F.US.EP") != "ES" {
		t.Error("loaded symbol table does not resolve")
	}

	ticks, err := LoadTicks(write("ticks.json",
		`{"ES": {"multiplier": 50, "valuePerTick": 12.5, "tickSize": 0.25}}`))
	if err != nil {
		t.Fatalf("LoadTicks() error = %v", err)
	}
	if m, ok := ticks.Multiplier("ES"); !ok || !m.Equal(decimal.NewFromInt(50)) {
		t.Errorf("loaded multiplier = %s, %v", m, ok)
	}

	commissions, err := LoadCommissions(write("commissions.json",
		`{"AMP": {"rates": {"ES": {"tiers": {"3": 2.02}}}}}`))
	if err != nil {
		t.Fatalf("LoadCommissions() error = %v", err)
	}
	if r, ok := commissions.Rate("AMP", "ES", TierFixed); !ok || !r.Equal(decimal.NewFromFloat(2.02)) {
		t.Errorf("loaded rate = %s, %v", r, ok)
	}

	if _, err := LoadTicks(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should error")
	}
	if _, err := LoadTicks(write("bad.json", `{`)); err == nil {
		t.Error("malformed JSON should error")
	}
}
