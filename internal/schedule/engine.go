// Package schedule implements ScheduleEngine (spec component C3): a pure
// function of (start time, intervals, now) that produces the bounded
// backup schedule around now.
//
// The fill algorithm below mirrors
// Lalikan.BackupDatabase.calculate_backup_schedule step for step,
// including its two-pass structure (Diff layer first, then Incr layer
// between whichever pair of entries ends up adjacent) and its use of
// strict "<" so that a Diff or Incr can never land exactly on a Full or
// Diff boundary.
package schedule

import (
	"sort"
	"time"

	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/properties"
)

// Calculate returns the schedule around now: the previous Full (if any),
// the upcoming Full, and every Diff/Incr entry strictly between them.
//
// If now is before startTime, only the upcoming Full exists and the
// result is a single-entry slice — invariant I3 only applies once
// now >= startTime, which this function's caller (BackupDecision) must
// account for.
func Calculate(startTime time.Time, intervalFull, intervalDiff, intervalIncr float64, now time.Time) []properties.BackupProperties {
	fullDelta := days(intervalFull)

	// Step 1: walk the Full layer until we pass now, keeping the last
	// two Full instants (the "current" one and the "upcoming" one).
	var fulls []time.Time
	t := startTime
	for !t.After(now) {
		fulls = append(fulls, t)
		t = t.Add(fullDelta)
	}
	// t is now the first Full strictly after now: the upcoming one.
	fulls = append(fulls, t)

	if len(fulls) == 1 {
		// now < startTime: nothing has happened yet, only the upcoming
		// Full is meaningful.
		return []properties.BackupProperties{
			properties.New(fulls[0], backuplevel.Full),
		}
	}

	// Keep only the current Full and the upcoming Full.
	fulls = fulls[len(fulls)-2:]
	currentFull, upcomingFull := fulls[0], fulls[1]

	// boundaries is the Full/Diff skeleton: starts as [currentFull,
	// upcomingFull] and grows as Diff entries are inserted strictly
	// between them.
	boundaries := []time.Time{currentFull, upcomingFull}
	diffDelta := days(intervalDiff)
	for t := currentFull.Add(diffDelta); t.Before(upcomingFull); t = t.Add(diffDelta) {
		boundaries = insertSorted(boundaries, t)
	}

	// diffTimes are every boundary strictly between the two Fulls, i.e.
	// the actual Diff entries (the Full endpoints are excluded once the
	// Incr layer below has been filled in between every adjacent pair).
	diffTimes := append([]time.Time(nil), boundaries[1:len(boundaries)-1]...)

	// Step 2: fill the Incr layer strictly between every adjacent pair
	// of boundary entries (Full-Full if there were no Diffs, Full-Diff,
	// Diff-Diff, or Diff-Full).
	var incrTimes []time.Time
	incrDelta := days(intervalIncr)
	for i := 0; i < len(boundaries)-1; i++ {
		lo, hi := boundaries[i], boundaries[i+1]
		for t := lo.Add(incrDelta); t.Before(hi); t = t.Add(incrDelta) {
			incrTimes = append(incrTimes, t)
		}
	}

	result := make([]properties.BackupProperties, 0, 2+len(diffTimes)+len(incrTimes))
	result = append(result, properties.New(currentFull, backuplevel.Full))
	result = append(result, properties.New(upcomingFull, backuplevel.Full))
	for _, t := range diffTimes {
		result = append(result, properties.New(t, backuplevel.Diff))
	}
	for _, t := range incrTimes {
		result = append(result, properties.New(t, backuplevel.Incr))
	}

	sort.Sort(properties.ByOrder(result))
	return result
}

// days converts a fractional day count to a time.Duration.
func days(d float64) time.Duration {
	return time.Duration(d * float64(24*time.Hour))
}

// insertSorted inserts t into an already-sorted (ascending) slice of
// times, keeping it sorted. Used while building the Full/Diff skeleton,
// where it mirrors the Python source's list.insert(-1, ...) at the
// "current middle" position.
func insertSorted(times []time.Time, t time.Time) []time.Time {
	idx := sort.Search(len(times), func(i int) bool {
		return times[i].After(t)
	})
	times = append(times, time.Time{})
	copy(times[idx+1:], times[idx:])
	times[idx] = t
	return times
}
