// Package catalog implements BackupCatalog (spec component C4): a
// directory-backed enumeration of the backups that actually exist on
// disk, tolerant of partially written and unrelated directory entries.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/properties"
)

// FilterAny matches every real backup level, used as the filterLevel
// argument to FindExisting when the caller wants every backup
// regardless of level.
const FilterAny = backuplevel.ForcedIncr

// Catalog scans one backup directory on demand. It holds no cached
// state of its own across calls: each FindExisting performs a single
// directory snapshot read, per spec.md §5.
type Catalog struct {
	backupDirectory string
}

// New returns a Catalog rooted at backupDirectory.
func New(backupDirectory string) *Catalog {
	return &Catalog{backupDirectory: backupDirectory}
}

// FindExisting lists every valid existing backup (I4: a directory whose
// name matches the canonical pattern and which contains a readable
// catalog file), optionally filtered to backups of filterLevel-or-better
// and/or to backups dated at or before priorTo.
//
// Directory enumeration I/O errors (the whole directory being
// unreadable, e.g. it does not exist yet) are fatal and returned to the
// caller — they are never downgraded to "no backups found." Individual
// unparsable or incomplete entries are silently skipped, never errors.
func (c *Catalog) FindExisting(filterLevel backuplevel.Level, priorTo *time.Time) ([]properties.BackupProperties, error) {
	entries, err := os.ReadDir(c.backupDirectory)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to read backup directory %s: %w", c.backupDirectory, err)
	}

	var accepted []backuplevel.Level
	if filterLevel != FilterAny {
		accepted, err = backuplevel.AcceptedSet(filterLevel)
		if err != nil {
			return nil, err
		}
	}

	var found []properties.BackupProperties
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		props, ok := c.parseBackupDir(entry.Name())
		if !ok {
			continue
		}

		if filterLevel != FilterAny && !levelIn(props.Level(), accepted) {
			continue
		}

		if priorTo != nil {
			date, _ := props.Date()
			if date.After(*priorTo) {
				continue
			}
		}

		found = append(found, props)
	}

	sort.Sort(properties.ByOrder(found))
	return found, nil
}

// parseBackupDir validates a single directory entry against I4: its
// name must match the canonical pattern and round-trip, and its catalog
// file must exist and be a readable regular file.
func (c *Catalog) parseBackupDir(name string) (properties.BackupProperties, bool) {
	props, err := properties.ParseBaseName(name)
	if err != nil {
		return properties.BackupProperties{}, false
	}

	catalogPath := filepath.Join(c.backupDirectory, name, props.CatalogName())
	info, err := os.Stat(catalogPath)
	if err != nil {
		return properties.BackupProperties{}, false
	}
	if info.IsDir() {
		return properties.BackupProperties{}, false
	}
	if f, err := os.Open(catalogPath); err != nil {
		return properties.BackupProperties{}, false
	} else {
		f.Close()
	}

	return props, true
}

// LastExisting returns the most recent backup dated at or before now
// whose level is in the accepted set of level: the last element of
// FindExisting(FilterAny, now) whose level qualifies. Absent is
// signalled by an invalid BackupProperties, never a distinguished nil,
// to keep call sites total.
func (c *Catalog) LastExisting(level backuplevel.Level, now time.Time) (properties.BackupProperties, error) {
	accepted, err := backuplevel.AcceptedSet(level)
	if err != nil {
		return properties.BackupProperties{}, err
	}

	found, err := c.FindExisting(FilterAny, &now)
	if err != nil {
		return properties.BackupProperties{}, err
	}

	for i := len(found) - 1; i >= 0; i-- {
		if levelIn(found[i].Level(), accepted) {
			return found[i], nil
		}
	}
	return properties.Invalid(level), nil
}

func levelIn(l backuplevel.Level, set []backuplevel.Level) bool {
	for _, c := range set {
		if c == l {
			return true
		}
	}
	return false
}
