// Package properties implements BackupProperties, the (date, level) pair
// that identifies a single scheduled or existing backup.
package properties

import (
	"fmt"
	"regexp"
	"time"

	"github.com/mzuther/lalikan/internal/backuplevel"
)

// DateLayout is the canonical timestamp format used throughout the
// backup directory layout: "2012-01-01_2000".
const DateLayout = "2006-01-02_1504"

// dirNamePattern matches exactly the canonical backup directory name,
// e.g. "2012-01-01_2000-full". Only the "-<suffix>" spelling is
// accepted; historical "full_"/"_full" forms are not.
var dirNamePattern = regexp.MustCompile(
	`^([0-9]{4}-[0-9]{2}-[0-9]{2}_[0-9]{4})-(full|diff|incr)$`)

// NoneDateString is the literal string used for DateString when Date is
// absent.
const NoneDateString = "None"

// BackupProperties is a value type pairing an optional date with a
// backup level. A value without a date (IsValid() == false) represents
// "no such backup" while staying total at call sites — no call site
// needs to special-case a distinguished nil.
type BackupProperties struct {
	date    time.Time
	hasDate bool
	level   backuplevel.Level
}

// New constructs a valid BackupProperties for a real point in time.
func New(date time.Time, level backuplevel.Level) BackupProperties {
	return BackupProperties{date: date, hasDate: true, level: level}
}

// Invalid constructs the "no backup" sentinel for the given level. It
// keeps call sites total: rather than returning a pointer that can be
// nil, every query returns a BackupProperties whose IsValid() is false.
func Invalid(level backuplevel.Level) BackupProperties {
	return BackupProperties{level: level}
}

// IsValid reports whether this BackupProperties carries a real date.
func (p BackupProperties) IsValid() bool {
	return p.hasDate
}

// Date returns the date and whether it is present.
func (p BackupProperties) Date() (time.Time, bool) {
	return p.date, p.hasDate
}

// MustDate returns the date, panicking if it is absent. Callers that
// have already checked IsValid use this to avoid re-checking the bool.
func (p BackupProperties) MustDate() time.Time {
	if !p.hasDate {
		panic("properties: MustDate called on an invalid BackupProperties")
	}
	return p.date
}

// Level returns the backup level.
func (p BackupProperties) Level() backuplevel.Level {
	return p.level
}

// DateString renders the date in the canonical format, or the literal
// "None" when the date is absent.
func (p BackupProperties) DateString() string {
	if !p.hasDate {
		return NoneDateString
	}
	return p.date.Format(DateLayout)
}

// Suffix returns the three-letter suffix of the level, or an empty
// string if the level is not one of the three real levels (e.g.
// ForcedIncr never appears here in practice).
func (p BackupProperties) Suffix() string {
	suffix, err := backuplevel.Suffix(p.level)
	if err != nil {
		return ""
	}
	return suffix
}

// BaseName renders "<date_string>-<suffix>", the canonical backup
// directory name.
func (p BackupProperties) BaseName() string {
	return fmt.Sprintf("%s-%s", p.DateString(), p.Suffix())
}

// CatalogName renders the catalog filename expected inside the backup
// directory, "<date_string>-catalog.01.dar". Only meaningful when
// IsValid() is true.
func (p BackupProperties) CatalogName() string {
	return fmt.Sprintf("%s-catalog.01.dar", p.DateString())
}

// Less implements the ordering of spec.md §3: lexicographic on
// (date_string, level), with invalid (None) dates sorting before any
// real date. The invalid case is checked explicitly, since "None" would
// otherwise compare after any "YYYY-..." string.
func (p BackupProperties) Less(other BackupProperties) bool {
	if p.hasDate != other.hasDate {
		return !p.hasDate
	}
	ds1, ds2 := p.DateString(), other.DateString()
	if ds1 != ds2 {
		return ds1 < ds2
	}
	return p.level < other.level
}

// Equal compares both the date and the level.
func (p BackupProperties) Equal(other BackupProperties) bool {
	return p.hasDate == other.hasDate &&
		(!p.hasDate || p.date.Equal(other.date)) &&
		p.level == other.level
}

// ParseBaseName parses a canonical "<date>-<suffix>" directory name back
// into a BackupProperties. It requires the date to round-trip through
// DateLayout exactly, satisfying invariant I2/P6.
func ParseBaseName(name string) (BackupProperties, error) {
	m := dirNamePattern.FindStringSubmatch(name)
	if m == nil {
		return BackupProperties{}, fmt.Errorf("properties: %q does not match the canonical backup directory pattern", name)
	}

	dateString, suffix := m[1], m[2]

	date, err := time.Parse(DateLayout, dateString)
	if err != nil {
		return BackupProperties{}, fmt.Errorf("properties: %q is not a valid canonical date: %w", dateString, err)
	}

	// Require an exact round trip: reformatting the parsed date must
	// reproduce the same string, guarding against lenient parses (e.g.
	// single-digit components swallowed by time.Parse in unexpected ways).
	if date.Format(DateLayout) != dateString {
		return BackupProperties{}, fmt.Errorf("properties: %q does not round-trip through the canonical date format", dateString)
	}

	level, err := backuplevel.FromSuffix(suffix)
	if err != nil {
		return BackupProperties{}, err
	}

	return New(date, level), nil
}

// DirNamePattern exposes the canonical backup-directory regex described
// in spec.md §6, for callers that need to pre-filter directory entries
// themselves.
func DirNamePattern() *regexp.Regexp {
	return dirNamePattern
}

// ByOrder implements sort.Interface over a slice of BackupProperties
// using Less, matching P7 (sorting by BackupProperties agrees with
// sorting by (date_string, level)).
type ByOrder []BackupProperties

func (b ByOrder) Len() int           { return len(b) }
func (b ByOrder) Less(i, j int) bool { return b[i].Less(b[j]) }
func (b ByOrder) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
