// Package prune implements PruneEngine (spec component C6): given a
// freshly completed backup of some level, it determines which existing
// backups are now dispensable, without ever stranding a reference.
//
// The rules mirror Lalikan.__delete_old_backups exactly, including its
// use of the next-to-last (not last) backup of the same level as
// "previous" — the original's "[-2]" indexing, deliberately not "fixed"
// to "[-1]" per spec.md §9's open question.
package prune

import (
	"sort"
	"time"

	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/properties"
)

// Plan returns the backups to delete after a successful backup of
// newLevel. existingBackups must already include the new backup itself.
// A Full backup is never returned, per I5/P3.
func Plan(newLevel backuplevel.Level, existingBackups []properties.BackupProperties) []properties.BackupProperties {
	sorted := append([]properties.BackupProperties(nil), existingBackups...)
	sort.Sort(properties.ByOrder(sorted))

	switch newLevel {
	case backuplevel.Incr:
		return nil

	case backuplevel.Diff:
		return pruneAfterDiff(sorted)

	case backuplevel.Full:
		return pruneAfterFull(sorted)

	default:
		return nil
	}
}

// pruneAfterDiff deletes every Incr strictly earlier than the previous
// Diff's date — the next-to-last Diff in sorted, not the one just
// created.
func pruneAfterDiff(sorted []properties.BackupProperties) []properties.BackupProperties {
	diffs := filterLevel(sorted, backuplevel.Diff)
	if len(diffs) < 2 {
		return nil
	}
	previousDiff := diffs[len(diffs)-2]
	previousDate, _ := previousDiff.Date()

	return filterBefore(sorted, backuplevel.Incr, previousDate)
}

// pruneAfterFull deletes every Diff and Incr strictly earlier than the
// previous Full's date, then additionally deletes every Incr strictly
// earlier than the most recent surviving Diff's date.
func pruneAfterFull(sorted []properties.BackupProperties) []properties.BackupProperties {
	fulls := filterLevel(sorted, backuplevel.Full)
	if len(fulls) < 2 {
		return nil
	}
	previousFull := fulls[len(fulls)-2]
	previousFullDate, _ := previousFull.Date()

	var toDelete []properties.BackupProperties
	toDelete = append(toDelete, filterBefore(sorted, backuplevel.Diff, previousFullDate)...)
	toDelete = append(toDelete, filterBefore(sorted, backuplevel.Incr, previousFullDate)...)

	deleted := markDeleted(toDelete)

	// Among the Diffs that remain (i.e. were not just deleted), find the
	// most recent and delete every Incr strictly earlier than it.
	remainingDiffs := filterLevel(sorted, backuplevel.Diff)
	var survivingDiffs []properties.BackupProperties
	for _, d := range remainingDiffs {
		if !deleted[d.BaseName()] {
			survivingDiffs = append(survivingDiffs, d)
		}
	}
	if len(survivingDiffs) > 0 {
		mostRecent := survivingDiffs[len(survivingDiffs)-1]
		mostRecentDate, _ := mostRecent.Date()
		for _, p := range filterBefore(sorted, backuplevel.Incr, mostRecentDate) {
			if !deleted[p.BaseName()] {
				toDelete = append(toDelete, p)
				deleted[p.BaseName()] = true
			}
		}
	}

	return toDelete
}

func filterLevel(all []properties.BackupProperties, level backuplevel.Level) []properties.BackupProperties {
	var out []properties.BackupProperties
	for _, p := range all {
		if p.Level() == level {
			out = append(out, p)
		}
	}
	return out
}

// filterBefore returns every backup of level whose date is strictly
// earlier than cutoff.
func filterBefore(all []properties.BackupProperties, level backuplevel.Level, cutoff time.Time) []properties.BackupProperties {
	var out []properties.BackupProperties
	for _, p := range all {
		if p.Level() != level {
			continue
		}
		date, ok := p.Date()
		if ok && date.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

func markDeleted(all []properties.BackupProperties) map[string]bool {
	m := make(map[string]bool, len(all))
	for _, p := range all {
		m[p.BaseName()] = true
	}
	return m
}
