// Package archiver defines the boundary between the scheduling core and
// whatever actually writes and deletes backup archives. The core only
// ever decides what should happen; this package's interfaces are what
// the runner calls to make it happen. No concrete dar-shelling
// implementation lives here — wiring an archive tool is out of scope
// for this module, the way the original spec's Non-goals describe.
package archiver

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/properties"
)

// Archiver creates a new backup of the given level, dated now, and
// reports whatever properties describe the archive that was actually
// written (its real completion time may differ slightly from now).
type Archiver interface {
	Archive(ctx context.Context, job string, level backuplevel.Level, reference properties.BackupProperties) (properties.BackupProperties, error)
}

// Deleter removes a previously created backup, identified by its
// canonical BaseName.
type Deleter interface {
	Delete(ctx context.Context, job string, backup properties.BackupProperties) error
}

// NullArchiver reports success without writing anything, useful for
// dry-run invocations of the runner and for tests.
type NullArchiver struct{}

func (NullArchiver) Archive(_ context.Context, _ string, level backuplevel.Level, _ properties.BackupProperties) (properties.BackupProperties, error) {
	return properties.Invalid(level), nil
}

// NullDeleter discards every delete request without touching disk.
type NullDeleter struct{}

func (NullDeleter) Delete(_ context.Context, _ string, _ properties.BackupProperties) error {
	return nil
}

// RecordingDeleter accumulates every backup it was asked to delete,
// without removing anything, for tests and for --dry-run reporting.
type RecordingDeleter struct {
	Deleted []properties.BackupProperties
}

func (r *RecordingDeleter) Delete(_ context.Context, _ string, backup properties.BackupProperties) error {
	r.Deleted = append(r.Deleted, backup)
	return nil
}

// ReferenceFor picks the backup a new archive of newLevel should be
// taken against: a Full stands alone, while a Diff or Incr is taken
// against lastExistingStrict, which the caller supplies as the most
// recent existing Full for a Diff and the most recent existing backup of
// any level for an Incr. It mirrors the original tool's
// get_backup_reference, which always threads the previous archive's
// identity through to the underlying dar invocation as "-A <reference>".
func ReferenceFor(newLevel backuplevel.Level, lastExistingStrict properties.BackupProperties) properties.BackupProperties {
	if newLevel == backuplevel.Full {
		return properties.Invalid(backuplevel.Full)
	}
	return lastExistingStrict
}

// SanitisePath rewrites an absolute path into the form dar expects on
// the running platform. On every platform but Windows it is plain
// filepath.Abs; on Windows it rewrites "C:\path\to\dar" into
// "/cygdrive/c/path/to/dar", because dar is built against Cygwin there.
// Grounded on BackupDatabase.sanitise_path.
func SanitisePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if len(abs) == 0 {
		return "", nil
	}
	if runtime.GOOS != "windows" {
		return abs, nil
	}

	drive := filepath.VolumeName(abs)
	tail := strings.TrimPrefix(abs, drive)
	tail = strings.TrimPrefix(tail, string(filepath.Separator))
	driveLetter := ""
	if len(drive) > 0 {
		driveLetter = strings.ToLower(string(drive[0]))
	}

	cygwinPath := "/cygdrive/" + driveLetter + "/" + tail
	return strings.ReplaceAll(cygwinPath, string(filepath.Separator), "/"), nil
}
