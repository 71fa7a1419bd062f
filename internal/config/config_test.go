package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[Default]
interval-full = "10"
interval-diff = "3"
interval-incr = "1"
start-time = "2012-01-01_2000"

[music]
backup-directory = "/mnt/backup/music"
dar-path = "/usr/bin/dar"
interval-full = "30"
interval-diff = "7"
interval-incr = "1"
start-time = "2012-01-01_0000"
command-notification = "notify-send"
`

func TestLoadStringAndSections(t *testing.T) {
	s, err := LoadString(sampleTOML)
	require.NoError(t, err)

	sections := s.Sections()
	require.Len(t, sections, 2)
	assert.Equal(t, DefaultSection, sections[0], "Default must always sort first")
}

func TestJobValidatesIntervalOrdering(t *testing.T) {
	s, err := LoadString(`
[music]
backup-directory = "/mnt/backup/music"
dar-path = "/usr/bin/dar"
interval-full = "1"
interval-diff = "3"
interval-incr = "1"
start-time = "2012-01-01_0000"
`)
	require.NoError(t, err)

	_, err = s.Job("music")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, InvalidValue, cfgErr.Kind)
}

func TestJobRejectsRelativeBackupDirectory(t *testing.T) {
	s, err := LoadString(`
[music]
backup-directory = "relative/path"
dar-path = "/usr/bin/dar"
interval-full = "10"
interval-diff = "3"
interval-incr = "1"
start-time = "2012-01-01_0000"
`)
	require.NoError(t, err)

	_, err = s.Job("music")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, InvalidValue, cfgErr.Kind)
	assert.Equal(t, OptBackupDirectory, cfgErr.Option)
}

func TestJobHappyPath(t *testing.T) {
	s, err := LoadString(sampleTOML)
	require.NoError(t, err)

	job, err := s.Job("music")
	require.NoError(t, err)
	assert.Equal(t, "/mnt/backup/music", job.BackupDirectory)
	assert.Equal(t, 30.0, job.IntervalFull)
	assert.Equal(t, "notify-send", job.CommandNotify)
}

func TestGetMetadataRejectsUnknownOption(t *testing.T) {
	s, err := LoadString(sampleTOML)
	require.NoError(t, err)

	_, err = s.GetMetadata("music", "not-a-real-option")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, UnknownOption, cfgErr.Kind)
}

func TestGetMissingRequiredOption(t *testing.T) {
	s, err := LoadString(`[music]
backup-directory = "/mnt/backup/music"
`)
	require.NoError(t, err)

	_, err = s.Get("music", OptDarPath, false)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, MissingOption, cfgErr.Kind)
}
