package archiver

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/properties"
)

func TestNullArchiverReportsInvalid(t *testing.T) {
	a := NullArchiver{}
	got, err := a.Archive(context.Background(), "music", backuplevel.Full, properties.Invalid(backuplevel.Full))
	require.NoError(t, err)
	assert.False(t, got.IsValid())
}

func TestRecordingDeleterAccumulates(t *testing.T) {
	d := &RecordingDeleter{}
	p1 := properties.Invalid(backuplevel.Incr)
	p2 := properties.Invalid(backuplevel.Diff)

	require.NoError(t, d.Delete(context.Background(), "music", p1))
	require.NoError(t, d.Delete(context.Background(), "music", p2))
	assert.Len(t, d.Deleted, 2)
}

func TestReferenceForFullHasNoReference(t *testing.T) {
	last := properties.Invalid(backuplevel.Full)
	ref := ReferenceFor(backuplevel.Full, last)
	assert.False(t, ref.IsValid())
}

func TestSanitisePathIsAbsolute(t *testing.T) {
	got, err := SanitisePath("relative/path")
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.True(t, len(got) > 0 && got[0] == '/')
	}
}
