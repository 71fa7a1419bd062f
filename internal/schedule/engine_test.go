package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/properties"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(properties.DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestCalculateBeforeStart(t *testing.T) {
	start := mustDate(t, "2012-01-01_2000")
	now := mustDate(t, "2011-12-01_0000")

	entries := Calculate(start, 10, 3, 1, now)
	require.Len(t, entries, 1)
	assert.Equal(t, backuplevel.Full, entries[0].Level())
	date, ok := entries[0].Date()
	require.True(t, ok)
	assert.True(t, date.Equal(start))
}

func TestCalculateAtStartHasTwoFullsAndFillsBetween(t *testing.T) {
	start := mustDate(t, "2012-01-01_2000")
	now := start

	entries := Calculate(start, 10, 3, 1, now)

	var fulls, diffs, incrs int
	for _, e := range entries {
		switch e.Level() {
		case backuplevel.Full:
			fulls++
		case backuplevel.Diff:
			diffs++
		case backuplevel.Incr:
			incrs++
		}
	}

	assert.Equal(t, 2, fulls, "exactly the current and the upcoming Full")
	assert.True(t, diffs >= 1, "at least one Diff between the two Fulls for a 10/3 ratio")
	assert.True(t, incrs > 0, "at least one Incr somewhere in the schedule")

	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Less(entries[i]) || entries[i-1].Equal(entries[i]),
			"schedule must be sorted ascending")
	}
}

func TestCalculateNoDiffCollapsesToFullOnlyBoundaries(t *testing.T) {
	start := mustDate(t, "2012-01-01_2000")
	now := start

	// interval_diff == interval_full: no room for a Diff to land strictly
	// between the two Fulls, so the Incr layer fills directly between
	// them.
	entries := Calculate(start, 10, 10, 1, now)

	for _, e := range entries {
		assert.NotEqual(t, backuplevel.Diff, e.Level())
	}
}

func TestCalculateEveryEntryStrictlyBetweenBoundaries(t *testing.T) {
	start := mustDate(t, "2012-01-01_2000")
	now := mustDate(t, "2012-01-15_0000")

	entries := Calculate(start, 10, 3, 1, now)

	var fullTimes []time.Time
	for _, e := range entries {
		if e.Level() == backuplevel.Full {
			d, _ := e.Date()
			fullTimes = append(fullTimes, d)
		}
	}
	require.Len(t, fullTimes, 2)

	for _, e := range entries {
		if e.Level() == backuplevel.Full {
			continue
		}
		d, _ := e.Date()
		assert.True(t, d.After(fullTimes[0]))
		assert.True(t, d.Before(fullTimes[1]))
	}
}
