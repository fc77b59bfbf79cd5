// Package recur expands a small RRULE subset into concrete occurrence times.
//
// Supported: FREQ=DAILY and FREQ=WEEKLY with optional BYDAY, COUNT and UNTIL
// parts. The expansion is bounded by a hard limit so a malformed or open-ended
// rule can never materialize an unbounded series.
package recur

import (
	"strconv"
	"strings"
	"time"
)

// DefaultLimit caps expansion when callers pass limit <= 0.
const DefaultLimit = 50

var weekdayCodes = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

// Expand returns the ordered occurrence start times for rule anchored at
// anchor. The anchor is always the first occurrence when the rule permits.
// At most limit occurrences are returned; COUNT or UNTIL in the rule stop
// expansion earlier. Unrecognized frequencies yield just the anchor rather
// than failing the save flow.
func Expand(rule string, anchor time.Time, limit int) []time.Time {
	if limit <= 0 {
		limit = DefaultLimit
	}

	parts := parseRule(rule)

	count := 0
	if v := parts["COUNT"]; v != "" {
		count, _ = strconv.Atoi(v)
	}

	var until time.Time
	hasUntil := false
	if v := parts["UNTIL"]; len(v) >= 8 {
		if t, err := time.Parse("20060102", v[:8]); err == nil {
			until = t
			hasUntil = true
		}
	}

	switch parts["FREQ"] {
	case "DAILY":
		return expandDaily(anchor, count, until, hasUntil, limit)
	case "WEEKLY":
		return expandWeekly(anchor, parts["BYDAY"], count, until, hasUntil, limit)
	default:
		return []time.Time{anchor}
	}
}

// parseRule splits "RRULE=FREQ=WEEKLY;BYDAY=MO,WE" into its KEY=VALUE parts,
// tolerating the RRULE= or RRULE: prefix and lowercase input.
func parseRule(rule string) map[string]string {
	rule = strings.ToUpper(strings.TrimSpace(rule))
	rule = strings.TrimPrefix(rule, "RRULE=")
	rule = strings.TrimPrefix(rule, "RRULE:")

	parts := make(map[string]string)
	for _, p := range strings.Split(rule, ";") {
		if k, v, ok := strings.Cut(p, "="); ok {
			parts[k] = v
		}
	}
	return parts
}

func pastUntil(occ, until time.Time) bool {
	y, m, d := occ.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return day.After(until)
}

func expandDaily(anchor time.Time, count int, until time.Time, hasUntil bool, limit int) []time.Time {
	var out []time.Time
	current := anchor
	for {
		if hasUntil && pastUntil(current, until) {
			break
		}
		out = append(out, current)
		if count > 0 && len(out) >= count {
			break
		}
		if len(out) >= limit {
			break
		}
		current = current.AddDate(0, 0, 1)
	}
	return out
}

func expandWeekly(anchor time.Time, byday string, count int, until time.Time, hasUntil bool, limit int) []time.Time {
	var days []int
	seen := make(map[int]bool)
	if byday != "" {
		for _, code := range strings.Split(byday, ",") {
			wd, ok := weekdayCodes[strings.TrimSpace(code)]
			if !ok {
				continue
			}
			d := mondayIndex(wd)
			if !seen[d] {
				seen[d] = true
				days = append(days, d)
			}
		}
	}
	if len(days) == 0 {
		days = []int{mondayIndex(anchor.Weekday())}
	}
	sortInts(days)

	var out []time.Time
	// Scan from the Monday of the anchor's week so occurrences stay ordered
	// even when the anchor falls mid-week.
	base := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, anchor.Location())
	base = base.AddDate(0, 0, -mondayIndex(anchor.Weekday()))
	for {
		for _, wd := range days {
			day := base.AddDate(0, 0, wd)
			occ := time.Date(day.Year(), day.Month(), day.Day(),
				anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
			if occ.Before(anchor) {
				continue
			}
			if hasUntil && pastUntil(occ, until) {
				return out
			}
			out = append(out, occ)
			if count > 0 && len(out) >= count {
				return out
			}
			if len(out) >= limit {
				return out
			}
		}
		base = base.AddDate(0, 0, 7)
	}
}

// mondayIndex maps time.Weekday to the Monday-based 0..6 index BYDAY uses.
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
