package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts accepted from spreadsheet cells, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05.000",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// ParseDate parses a date/time cell. It returns ok=false for empty or
// unparseable values; callers format those as empty strings rather than
// failing the row.
func ParseDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" || strings.EqualFold(s, "nan") {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDecimal exact-converts decimal text, including scientific notation,
// to a fixed-point decimal. It returns ok=false when the text is not a
// number; the caller records a data-quality flag and keeps the row.
// Empty cells parse as zero.
func ParseDecimal(value string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(value)
	if s == "" || strings.EqualFold(s, "nan") {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseTransactionID converts a transaction id cell to its numeric form.
// Ids sometimes arrive as decimal text ("609533386765.0"); the fractional
// part is discarded. Returns 0 when no usable id is present.
func ParseTransactionID(value string) int64 {
	d, ok := ParseDecimal(value)
	if !ok || d.IsZero() {
		return 0
	}
	return d.IntPart()
}

// FormatDate renders mm/dd/yyyy for display.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("01/02/2006")
}

// FormatTime renders HH:MM:SS.mmm for display.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("15:04:05.000")
}

// FormatTradingDay renders yyyy-mm-dd, the sortable trading-day form.
func FormatTradingDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// WeekNumber returns the ISO week of a date, or 0 for the zero time.
func WeekNumber(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	_, week := t.ISOWeek()
	return week
}
