package recur

import "time"

// Occurrence is one materialized slot of a recurring task.
type Occurrence struct {
	Start time.Time
	End   time.Time
	Due   string // date-only ISO of the occurrence day
}

// PlanSeries expands rule from anchorStart and maps each occurrence to a
// start/end window preserving the anchor's duration. When duration is zero
// the occurrences carry no time window and only the due date is meaningful.
func PlanSeries(rule string, anchorStart time.Time, duration time.Duration, limit int) []Occurrence {
	starts := Expand(rule, anchorStart, limit)
	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		occ := Occurrence{
			Start: s,
			Due:   s.Format("2006-01-02"),
		}
		if duration > 0 {
			occ.End = s.Add(duration)
		}
		out = append(out, occ)
	}
	return out
}
