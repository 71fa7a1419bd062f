package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/properties"
)

func makeBackup(t *testing.T, root, baseName string, withCatalog bool) {
	t.Helper()
	dir := filepath.Join(root, baseName)
	require.NoError(t, os.Mkdir(dir, 0o755))
	if !withCatalog {
		return
	}
	props, err := properties.ParseBaseName(baseName)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, props.CatalogName()), []byte("x"), 0o644))
}

func TestFindExistingSkipsIncompleteAndUnrelatedEntries(t *testing.T) {
	root := t.TempDir()
	makeBackup(t, root, "2012-01-01_2000-full", true)
	makeBackup(t, root, "2012-01-05_2000-diff", true)
	makeBackup(t, root, "2012-01-08_2000-incr", false) // no catalog file: skipped
	require.NoError(t, os.WriteFile(filepath.Join(root, "not-a-backup.txt"), []byte("x"), 0o644))

	cat := New(root)
	found, err := cat.FindExisting(FilterAny, nil)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, backuplevel.Full, found[0].Level())
	assert.Equal(t, backuplevel.Diff, found[1].Level())
}

func TestFindExistingMissingDirectoryIsFatal(t *testing.T) {
	cat := New(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := cat.FindExisting(FilterAny, nil)
	assert.Error(t, err)
}

func TestLastExistingRespectsAcceptedSetAndNow(t *testing.T) {
	root := t.TempDir()
	makeBackup(t, root, "2012-01-01_2000-full", true)
	makeBackup(t, root, "2012-01-05_2000-diff", true)
	makeBackup(t, root, "2012-01-08_2000-incr", true)

	cat := New(root)
	now, err := time.Parse(properties.DateLayout, "2012-01-09_0000")
	require.NoError(t, err)

	last, err := cat.LastExisting(backuplevel.Full, now)
	require.NoError(t, err)
	assert.Equal(t, backuplevel.Full, last.Level())

	last, err = cat.LastExisting(backuplevel.Incr, now)
	require.NoError(t, err)
	assert.Equal(t, backuplevel.Incr, last.Level())

	cutoff, err := time.Parse(properties.DateLayout, "2012-01-03_0000")
	require.NoError(t, err)
	last, err = cat.LastExisting(backuplevel.Incr, cutoff)
	require.NoError(t, err)
	assert.Equal(t, backuplevel.Full, last.Level(), "nothing before the cutoff qualifies except the Full")
}

func TestLastExistingNoneFoundIsInvalid(t *testing.T) {
	root := t.TempDir()
	cat := New(root)
	last, err := cat.LastExisting(backuplevel.Full, time.Now().AddDate(0, 0, -1000))
	require.NoError(t, err)
	assert.False(t, last.IsValid())
}
