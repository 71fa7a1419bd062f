// Package config implements Settings (spec component C2): a read-only,
// typed view over a TOML configuration document organised into named
// sections, one per backup job.
//
// The original Python tool (mzuther/lalikan) read an INI file through
// configparser, whose section/option model this package preserves.
// Sections become TOML tables; BurntSushi/toml does the decoding, the
// way github.com/fareedst/bkpdir-style tools in this corpus load their
// own configuration.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrorKind distinguishes the taxonomy of ConfigError from spec.md §7.
type ErrorKind int

const (
	// MissingOption: a required option was absent or empty.
	MissingOption ErrorKind = iota
	// UnknownOption: a metadata accessor was asked for a name outside
	// the recognised-option whitelist.
	UnknownOption
	// InvalidValue: an option was present but failed to parse (bad
	// interval, bad timestamp).
	InvalidValue
)

// ConfigError is the error type of every Settings accessor. A document
// that fails to parse is reported by Load/LoadString as a wrapped
// decoder error instead.
type ConfigError struct {
	Kind    ErrorKind
	Section string
	Option  string
	Detail  string
}

func (e *ConfigError) Error() string {
	switch e.Kind {
	case MissingOption:
		return fmt.Sprintf("config: missing required option %q in section %q", e.Option, e.Section)
	case UnknownOption:
		return fmt.Sprintf("config: unknown option %q", e.Option)
	case InvalidValue:
		return fmt.Sprintf("config: invalid value for option %q in section %q: %s", e.Option, e.Section, e.Detail)
	default:
		return fmt.Sprintf("config: error in section %q option %q: %s", e.Section, e.Option, e.Detail)
	}
}

// DefaultSection is the section that, when present, is always listed
// first by Sections so its backup job runs before any other.
const DefaultSection = "Default"

// Recognised option names within a section (spec.md §3 table).
const (
	OptBackupDirectory      = "backup-directory"
	OptDarPath              = "dar-path"
	OptDarOptions           = "dar-options"
	OptIntervalFull         = "interval-full"
	OptIntervalDiff         = "interval-diff"
	OptIntervalIncr         = "interval-incr"
	OptStartTime            = "start-time"
	OptCommandPreRun        = "command-pre-run"
	OptCommandPostRun       = "command-post-run"
	OptCommandNotification  = "command-notification"
)

// recognisedOptions guards GetMetadata so that a misspelled option name
// surfaces as UnknownOption rather than silently returning "".
var recognisedOptions = map[string]bool{
	OptBackupDirectory:     true,
	OptDarPath:             true,
	OptDarOptions:          true,
	OptIntervalFull:        true,
	OptIntervalDiff:        true,
	OptIntervalIncr:        true,
	OptStartTime:           true,
	OptCommandPreRun:       true,
	OptCommandPostRun:      true,
	OptCommandNotification: true,
}

// StartTimeLayout is the canonical timestamp format accepted by
// start-time, identical to properties.DateLayout but not imported from
// there to keep this package dependency-free of the value-type package.
const StartTimeLayout = "2006-01-02_1504"

// source is the raw, case-sensitive-key, section->option->value map
// decoded from TOML. It is intentionally unexported: Settings is the
// only public surface.
type source map[string]map[string]string

// Settings is a read-only view over a parsed configuration document.
// It is immutable after construction (spec.md §3 Lifecycle).
type Settings struct {
	raw source
}

// Load reads and parses a TOML configuration file.
func Load(path string) (*Settings, error) {
	var doc map[string]map[string]interface{}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return fromDecoded(doc), nil
}

// LoadString parses a TOML document already held in memory, primarily
// for tests.
func LoadString(data string) (*Settings, error) {
	var doc map[string]map[string]interface{}
	if _, err := toml.Decode(data, &doc); err != nil {
		return nil, fmt.Errorf("config: failed to parse configuration: %w", err)
	}
	return fromDecoded(doc), nil
}

func fromDecoded(doc map[string]map[string]interface{}) *Settings {
	raw := make(source, len(doc))
	for section, options := range doc {
		converted := make(map[string]string, len(options))
		for option, value := range options {
			converted[option] = fmt.Sprintf("%v", value)
		}
		raw[section] = converted
	}
	return &Settings{raw: raw}
}

// Get returns the configured value for section/key. When allowEmpty is
// false, both a missing key and an empty string raise
// ConfigError{Kind: MissingOption}.
func (s *Settings) Get(section, key string, allowEmpty bool) (string, error) {
	value := ""
	if opts, ok := s.raw[section]; ok {
		value = opts[key]
	}

	if !allowEmpty && value == "" {
		return "", &ConfigError{Kind: MissingOption, Section: section, Option: key}
	}
	return value, nil
}

// Sections returns every defined section in deterministic
// (case-insensitive) order, with "Default" lifted to the front.
func (s *Settings) Sections() []string {
	names := make([]string, 0, len(s.raw))
	for name := range s.raw {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	for i, name := range names {
		if name == DefaultSection {
			names = append(names[:i], names[i+1:]...)
			names = append([]string{DefaultSection}, names...)
			break
		}
	}
	return names
}

// Options returns every option key defined in section, alphabetically
// (case-insensitively) sorted.
func (s *Settings) Options(section string) []string {
	opts, ok := s.raw[section]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(opts))
	for name := range opts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}

// KeyValue is a single option/value pair, returned by Items in sorted
// order.
type KeyValue struct {
	Option string
	Value  string
}

// Items returns every option and its value for section, sorted the same
// way as Options.
func (s *Settings) Items(section string) []KeyValue {
	names := s.Options(section)
	opts := s.raw[section]
	items := make([]KeyValue, 0, len(names))
	for _, name := range names {
		items = append(items, KeyValue{Option: name, Value: opts[name]})
	}
	return items
}

// GetMetadata is the free-form "get metadata" accessor guarded by the
// recognised-option whitelist: a spelling error yields UnknownOption
// instead of silently returning an empty string.
func (s *Settings) GetMetadata(section, key string) (string, error) {
	if !recognisedOptions[key] {
		return "", &ConfigError{Kind: UnknownOption, Option: key}
	}
	return s.Get(section, key, true)
}

// JobSettings is the typed accessor bundle for a single section,
// equivalent to the original BackupDatabase's per-section reads.
type JobSettings struct {
	BackupDirectory string
	DarPath         string
	DarOptions      string
	IntervalFull    float64
	IntervalDiff    float64
	IntervalIncr    float64
	StartTime       time.Time
	CommandPreRun   string
	CommandPostRun  string
	CommandNotify   string
}

// Job builds and validates the typed settings for one section,
// enforcing I1 (0 < interval_incr <= interval_diff <= interval_full)
// and that start-time parses in the canonical format.
func (s *Settings) Job(section string) (JobSettings, error) {
	var js JobSettings
	var err error

	if js.BackupDirectory, err = s.Get(section, OptBackupDirectory, false); err != nil {
		return JobSettings{}, err
	}
	if !filepath.IsAbs(js.BackupDirectory) {
		return JobSettings{}, &ConfigError{
			Kind:    InvalidValue,
			Section: section,
			Option:  OptBackupDirectory,
			Detail:  fmt.Sprintf("%q must be an absolute path", js.BackupDirectory),
		}
	}
	if js.DarPath, err = s.Get(section, OptDarPath, false); err != nil {
		return JobSettings{}, err
	}
	if js.DarOptions, err = s.Get(section, OptDarOptions, true); err != nil {
		return JobSettings{}, err
	}

	if js.IntervalFull, err = s.getInterval(section, OptIntervalFull); err != nil {
		return JobSettings{}, err
	}
	if js.IntervalDiff, err = s.getInterval(section, OptIntervalDiff); err != nil {
		return JobSettings{}, err
	}
	if js.IntervalIncr, err = s.getInterval(section, OptIntervalIncr); err != nil {
		return JobSettings{}, err
	}

	if js.IntervalIncr <= 0 || js.IntervalIncr > js.IntervalDiff || js.IntervalDiff > js.IntervalFull {
		return JobSettings{}, &ConfigError{
			Kind:    InvalidValue,
			Section: section,
			Option:  OptIntervalFull,
			Detail:  "intervals must satisfy 0 < interval-incr <= interval-diff <= interval-full",
		}
	}

	startTimeStr, err := s.Get(section, OptStartTime, false)
	if err != nil {
		return JobSettings{}, err
	}
	js.StartTime, err = time.Parse(StartTimeLayout, startTimeStr)
	if err != nil {
		return JobSettings{}, &ConfigError{
			Kind:    InvalidValue,
			Section: section,
			Option:  OptStartTime,
			Detail:  fmt.Sprintf("%q is not a canonical timestamp: %v", startTimeStr, err),
		}
	}

	if js.CommandPreRun, err = s.Get(section, OptCommandPreRun, true); err != nil {
		return JobSettings{}, err
	}
	if js.CommandPostRun, err = s.Get(section, OptCommandPostRun, true); err != nil {
		return JobSettings{}, err
	}
	if js.CommandNotify, err = s.Get(section, OptCommandNotification, true); err != nil {
		return JobSettings{}, err
	}

	return js, nil
}

func (s *Settings) getInterval(section, key string) (float64, error) {
	raw, err := s.Get(section, key, false)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		return 0, &ConfigError{
			Kind:    InvalidValue,
			Section: section,
			Option:  key,
			Detail:  fmt.Sprintf("%q is not a positive number of days", raw),
		}
	}
	return value, nil
}
