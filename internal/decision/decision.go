// Package decision implements BackupDecision (spec component C5): the
// orchestrator that combines ScheduleEngine and BackupCatalog to answer
// "last scheduled", "last existing", "next scheduled", "days overdue"
// and, ultimately, "which level (if any) is needed now."
package decision

import (
	"time"

	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/catalog"
	"github.com/mzuther/lalikan/internal/properties"
	"github.com/mzuther/lalikan/internal/schedule"
)

// Decision is a per-call object: every method is implicitly a function
// of the fixed point_in_time it was built with, plus the catalog's disk
// snapshot at call time, per spec.md §3 Lifecycle. It memoizes nothing
// across different "now" values — constructing a new Decision is the
// only way to move to a new point in time.
type Decision struct {
	startTime    time.Time
	intervalFull float64
	intervalDiff float64
	intervalIncr float64
	now          time.Time
	cat          *catalog.Catalog

	scheduleOnce []properties.BackupProperties
	scheduled    bool
}

// New builds a Decision for a fixed "now". cat may be nil: every method
// that would read the disk then behaves as if no backup exists (the
// schedule command relies on this, since it reports schedule dates only).
func New(startTime time.Time, intervalFull, intervalDiff, intervalIncr float64, now time.Time, cat *catalog.Catalog) *Decision {
	return &Decision{
		startTime:    startTime,
		intervalFull: intervalFull,
		intervalDiff: intervalDiff,
		intervalIncr: intervalIncr,
		now:          now,
		cat:          cat,
	}
}

func (d *Decision) scheduleEntries() []properties.BackupProperties {
	if !d.scheduled {
		d.scheduleOnce = schedule.Calculate(d.startTime, d.intervalFull, d.intervalDiff, d.intervalIncr, d.now)
		d.scheduled = true
	}
	return d.scheduleOnce
}

// lastScheduledRaw walks the schedule in reverse and returns the first
// entry whose level is in the accepted set of L and whose date <= now,
// with no escalation — the building block for LastScheduled below.
func (d *Decision) lastScheduledRaw(level backuplevel.Level) (properties.BackupProperties, bool) {
	accepted, err := backuplevel.AcceptedSet(level)
	if err != nil {
		return properties.BackupProperties{}, false
	}

	entries := d.scheduleEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !levelIn(e.Level(), accepted) {
			continue
		}
		date, _ := e.Date()
		if !date.After(d.now) {
			return e, true
		}
	}
	return properties.BackupProperties{}, false
}

// LastScheduled implements spec.md §4.4's escalation chain: a missed
// stricter level (Full for Diff/Incr queries, then Diff for Incr
// queries) takes precedence over the nominal level whenever that
// stricter scheduled backup is newer than the last existing backup of
// that stricter level.
func (d *Decision) LastScheduled(level backuplevel.Level) (properties.BackupProperties, error) {
	if !backuplevel.Valid(level) {
		return properties.BackupProperties{}, &backuplevel.LevelError{Level: level}
	}

	lastExistingFull, err := d.LastExisting(backuplevel.Full)
	if err != nil {
		return properties.BackupProperties{}, err
	}
	lastExistingDiff, err := d.LastExisting(backuplevel.Diff)
	if err != nil {
		return properties.BackupProperties{}, err
	}

	switch level {
	case backuplevel.Full:
		full, ok := d.lastScheduledRaw(backuplevel.Full)
		if !ok {
			return properties.Invalid(backuplevel.Full), nil
		}
		return full, nil

	case backuplevel.Diff:
		if full, ok := d.lastScheduledRaw(backuplevel.Full); ok {
			fullDate, _ := full.Date()
			if !lastExistingFull.IsValid() || lastExistingFull.MustDate().Before(fullDate) {
				return full, nil
			}
		}
		if diff, ok := d.lastScheduledRaw(backuplevel.Diff); ok {
			return diff, nil
		}
		return properties.Invalid(backuplevel.Diff), nil

	case backuplevel.Incr:
		if full, ok := d.lastScheduledRaw(backuplevel.Full); ok {
			fullDate, _ := full.Date()
			if !lastExistingFull.IsValid() || lastExistingFull.MustDate().Before(fullDate) {
				return full, nil
			}
		}
		if diff, ok := d.lastScheduledRaw(backuplevel.Diff); ok {
			diffDate, _ := diff.Date()
			if !lastExistingDiff.IsValid() || lastExistingDiff.MustDate().Before(diffDate) {
				return diff, nil
			}
		}
		if incr, ok := d.lastScheduledRaw(backuplevel.Incr); ok {
			return incr, nil
		}
		return properties.Invalid(backuplevel.Incr), nil
	}

	return properties.BackupProperties{}, &backuplevel.LevelError{Level: level}
}

// NextScheduled returns the first schedule entry strictly after now
// whose level is in the accepted set of level. Step 1 of the schedule
// algorithm guarantees there is always an upcoming Full, so this never
// fails to find an entry for a valid level.
func (d *Decision) NextScheduled(level backuplevel.Level) (properties.BackupProperties, error) {
	accepted, err := backuplevel.AcceptedSet(level)
	if err != nil {
		return properties.BackupProperties{}, err
	}

	for _, e := range d.scheduleEntries() {
		if !levelIn(e.Level(), accepted) {
			continue
		}
		date, _ := e.Date()
		if date.After(d.now) {
			return e, nil
		}
	}
	// schedule.Calculate always ends with an upcoming Full, which is
	// always strictly after now by construction.
	panic("decision: no next scheduled entry found — schedule invariant violated")
}

// LastExisting returns the most recent backup on disk, as of now, whose
// level is in the accepted set of level.
func (d *Decision) LastExisting(level backuplevel.Level) (properties.BackupProperties, error) {
	if d.cat == nil {
		return properties.Invalid(level), nil
	}
	return d.cat.LastExisting(level, d.now)
}

// DaysOverdue returns the signed fractional number of days by which
// level's next due moment has passed: positive means overdue, negative
// means time remaining, following the reference-moment rule of
// spec.md §4.4.
func (d *Decision) DaysOverdue(level backuplevel.Level) (float64, error) {
	lastScheduled, err := d.LastScheduled(level)
	if err != nil {
		return 0, err
	}
	lastExisting, err := d.LastExisting(level)
	if err != nil {
		return 0, err
	}

	var reference time.Time
	switch {
	case !lastScheduled.IsValid():
		next, err := d.NextScheduled(level)
		if err != nil {
			return 0, err
		}
		reference, _ = next.Date()

	case !lastExisting.IsValid():
		reference, _ = lastScheduled.Date()

	default:
		lastSchedDate, _ := lastScheduled.Date()
		lastExistDate, _ := lastExisting.Date()
		if lastExistDate.Before(lastSchedDate) {
			reference = lastSchedDate
		} else {
			next, err := d.NextScheduled(level)
			if err != nil {
				return 0, err
			}
			reference, _ = next.Date()
		}
	}

	return d.now.Sub(reference).Hours() / 24, nil
}

// NeededLevel is the result of NeededBackupLevel: either a real level,
// the ForcedIncr marker, or Absent (no backup needed).
type NeededLevel struct {
	Level   backuplevel.Level
	Present bool
}

// NeededBackupLevel walks Full, Diff, Incr in order and returns the
// first level whose DaysOverdue is >= 0. Failing that, if force is set
// and now is at or after startTime, it returns ForcedIncr. Otherwise it
// reports no level needed.
func (d *Decision) NeededBackupLevel(force bool) (NeededLevel, error) {
	for _, level := range []backuplevel.Level{backuplevel.Full, backuplevel.Diff, backuplevel.Incr} {
		overdue, err := d.DaysOverdue(level)
		if err != nil {
			return NeededLevel{}, err
		}
		if overdue >= 0.0 {
			return NeededLevel{Level: level, Present: true}, nil
		}
	}

	if force {
		if d.now.Before(d.startTime) {
			return NeededLevel{}, nil
		}
		return NeededLevel{Level: backuplevel.ForcedIncr, Present: true}, nil
	}

	return NeededLevel{}, nil
}

// Snapshot is a serialisable summary of the decision at the moment it
// was evaluated, used by the ambient status/runner packages to report
// and persist what the core decided without re-deriving it.
type Snapshot struct {
	Now              time.Time
	NeededLevel      NeededLevel
	DaysOverdueFull  float64
	DaysOverdueDiff  float64
	DaysOverdueIncr  float64
	NextFull         properties.BackupProperties
	LastExistingFull properties.BackupProperties
}

// Evaluate computes a Snapshot in one call, the shape most ambient
// callers (runner, status dashboard, tray icon) actually want.
func (d *Decision) Evaluate(force bool) (Snapshot, error) {
	needed, err := d.NeededBackupLevel(force)
	if err != nil {
		return Snapshot{}, err
	}
	overdueFull, err := d.DaysOverdue(backuplevel.Full)
	if err != nil {
		return Snapshot{}, err
	}
	overdueDiff, err := d.DaysOverdue(backuplevel.Diff)
	if err != nil {
		return Snapshot{}, err
	}
	overdueIncr, err := d.DaysOverdue(backuplevel.Incr)
	if err != nil {
		return Snapshot{}, err
	}
	nextFull, err := d.NextScheduled(backuplevel.Full)
	if err != nil {
		return Snapshot{}, err
	}
	lastFull, err := d.LastExisting(backuplevel.Full)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Now:              d.now,
		NeededLevel:      needed,
		DaysOverdueFull:  overdueFull,
		DaysOverdueDiff:  overdueDiff,
		DaysOverdueIncr:  overdueIncr,
		NextFull:         nextFull,
		LastExistingFull: lastFull,
	}, nil
}

func levelIn(l backuplevel.Level, set []backuplevel.Level) bool {
	for _, c := range set {
		if c == l {
			return true
		}
	}
	return false
}
