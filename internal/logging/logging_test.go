package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCreatesLogDirectoryAndWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Init(Options{Dir: dir, FileName: "lalikan.log", RetentionDays: 1, Level: zerolog.InfoLevel}))

	Infof("job %s started", "music")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestForAddsJobField(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Options{Dir: dir, FileName: "lalikan.log", Level: zerolog.DebugLevel}))

	logger := For("music")
	assert.NotNil(t, logger.Debug())
}

func TestBroadcastReceivesFormattedLines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Options{Dir: dir, FileName: "lalikan.log", Level: zerolog.DebugLevel}))

	var gotLevel, gotMessage string
	SetBroadcast(func(level, message string) {
		gotLevel = level
		gotMessage = message
	})
	t.Cleanup(func() { SetBroadcast(nil) })

	Warnf("backup for %s is %d days overdue", "music", 3)

	assert.Equal(t, "WARN", gotLevel)
	assert.Equal(t, "backup for music is 3 days overdue", gotMessage)
}
