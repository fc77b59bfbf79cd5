package recur

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestExpandDaily(t *testing.T) {
	anchor := ts("2024-01-01T09:00:00")

	t.Run("count", func(t *testing.T) {
		got := Expand("FREQ=DAILY;COUNT=5", anchor, DefaultLimit)
		require.Len(t, got, 5)
		assert.Equal(t, anchor, got[0])
		for i, occ := range got {
			assert.Equal(t, anchor.AddDate(0, 0, i), occ)
		}
	})

	t.Run("until", func(t *testing.T) {
		got := Expand("FREQ=DAILY;UNTIL=20240103", anchor, DefaultLimit)
		require.Len(t, got, 3)
		assert.Equal(t, ts("2024-01-03T09:00:00"), got[2])
	})

	t.Run("limit caps open-ended rules", func(t *testing.T) {
		got := Expand("FREQ=DAILY", anchor, DefaultLimit)
		assert.Len(t, got, DefaultLimit)
	})

	t.Run("rrule prefix and lowercase accepted", func(t *testing.T) {
		for _, rule := range []string{"RRULE:freq=daily;count=2", "RRULE=freq=daily;count=2"} {
			got := Expand(rule, anchor, DefaultLimit)
			require.Len(t, got, 2, "rule %q", rule)
			assert.Equal(t, anchor, got[0])
		}
	})
}

func TestExpandWeekly(t *testing.T) {
	// 2024-01-01 is a Monday.
	anchor := ts("2024-01-01T10:00:00")

	t.Run("byday", func(t *testing.T) {
		got := Expand("FREQ=WEEKLY;BYDAY=MO,WE;COUNT=4", anchor, DefaultLimit)
		require.Len(t, got, 4)
		assert.Equal(t, ts("2024-01-01T10:00:00"), got[0])
		assert.Equal(t, ts("2024-01-03T10:00:00"), got[1])
		assert.Equal(t, ts("2024-01-08T10:00:00"), got[2])
		assert.Equal(t, ts("2024-01-10T10:00:00"), got[3])
	})

	t.Run("nothing before the anchor", func(t *testing.T) {
		// Anchor on Wednesday; the Monday of the anchor week must be skipped.
		wed := ts("2024-01-03T10:00:00")
		got := Expand("FREQ=WEEKLY;BYDAY=MO,WE;COUNT=3", wed, DefaultLimit)
		require.Len(t, got, 3)
		assert.Equal(t, wed, got[0])
		assert.Equal(t, ts("2024-01-08T10:00:00"), got[1])
		assert.Equal(t, ts("2024-01-10T10:00:00"), got[2])
	})

	t.Run("no byday repeats the anchor weekday", func(t *testing.T) {
		got := Expand("FREQ=WEEKLY;COUNT=3", anchor, DefaultLimit)
		require.Len(t, got, 3)
		assert.Equal(t, ts("2024-01-08T10:00:00"), got[1])
		assert.Equal(t, ts("2024-01-15T10:00:00"), got[2])
	})

	t.Run("until", func(t *testing.T) {
		got := Expand("FREQ=WEEKLY;BYDAY=MO;UNTIL=20240115", anchor, DefaultLimit)
		require.Len(t, got, 3)
		assert.Equal(t, ts("2024-01-15T10:00:00"), got[2])
	})
}

func TestExpandUnknownFreq(t *testing.T) {
	anchor := ts("2024-01-01T09:00:00")

	for _, rule := range []string{"FREQ=MONTHLY;COUNT=5", "FREQ=YEARLY", "garbage", ""} {
		got := Expand(rule, anchor, DefaultLimit)
		require.Len(t, got, 1, "rule %q", rule)
		assert.Equal(t, anchor, got[0])
	}
}

func TestPlanSeries(t *testing.T) {
	anchor := ts("2024-01-01T09:00:00")

	t.Run("duration carries to every occurrence", func(t *testing.T) {
		occs := PlanSeries("FREQ=DAILY;COUNT=3", anchor, 90*time.Minute, DefaultLimit)
		require.Len(t, occs, 3)
		for _, occ := range occs {
			assert.Equal(t, 90*time.Minute, occ.End.Sub(occ.Start))
		}
		assert.Equal(t, "2024-01-02", occs[1].Due)
	})

	t.Run("zero duration leaves the window open", func(t *testing.T) {
		occs := PlanSeries("FREQ=DAILY;COUNT=2", anchor, 0, DefaultLimit)
		require.Len(t, occs, 2)
		assert.True(t, occs[0].End.IsZero())
	})
}
