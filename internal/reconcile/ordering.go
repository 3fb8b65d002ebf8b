package reconcile

import (
	"sort"
	"strings"

	"tradeledger/internal/domain"
)

// SortChronologically orders executions ascending by transaction id. When
// no execution in the slice carries an id, ordering falls back to (date,
// time) string comparison - a best-effort, lower-precision path for legacy
// records. The sort is stable so equal keys keep their input order.
func SortChronologically(execs []*domain.Execution) {
	anyID := false
	for _, e := range execs {
		if e.TransactionID != 0 {
			anyID = true
			break
		}
	}

	if anyID {
		sort.SliceStable(execs, func(i, j int) bool {
			return execs[i].TransactionID < execs[j].TransactionID
		})
		return
	}

	sort.SliceStable(execs, func(i, j int) bool {
		return compareDateTime(execs[i], execs[j]) < 0
	})
}

// compareDateTime compares two executions by (sortable date, time).
func compareDateTime(a, b *domain.Execution) int {
	if c := strings.Compare(sortableDate(a.Date), sortableDate(b.Date)); c != 0 {
		return c
	}
	return strings.Compare(sortableTime(a.Time), sortableTime(b.Time))
}

// sortableDate converts a display date to yyyy-mm-dd for lexicographic
// comparison. Unrecognized formats sort first rather than failing.
func sortableDate(date string) string {
	if date == "" {
		return "1900-01-01"
	}

	// Strip a trailing time portion if present.
	if i := strings.IndexByte(date, ' '); i >= 0 {
		date = date[:i]
	}

	// Already yyyy-mm-dd.
	if i := strings.IndexByte(date, '-'); i == 4 {
		return date
	}

	// mm/dd/yyyy.
	parts := strings.Split(date, "/")
	if len(parts) == 3 {
		return parts[2] + "-" + pad2(parts[0]) + "-" + pad2(parts[1])
	}

	return date
}

// sortableTime normalizes a time string for comparison.
func sortableTime(t string) string {
	if t == "" {
		return "00:00:00.000"
	}
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = t[i+1:]
	}
	return t
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
