// Package runner orchestrates one job end to end: decide what level is
// needed, run the pre-run hook, archive it, prune what is now
// dispensable, run the post-run hook, and notify. Its ticker-driven Loop
// is grounded on the original tool's Scheduler (scheduler.go): a
// stopChan-controlled goroutine woken by a time.Ticker, rather than a
// cron expression.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/mzuther/lalikan/internal/archiver"
	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/catalog"
	"github.com/mzuther/lalikan/internal/config"
	"github.com/mzuther/lalikan/internal/decision"
	"github.com/mzuther/lalikan/internal/logging"
	"github.com/mzuther/lalikan/internal/notify"
	"github.com/mzuther/lalikan/internal/prune"
	"github.com/mzuther/lalikan/internal/properties"
)

// Job bundles one section's settings with the collaborators a Runner
// needs to evaluate and act on it.
type Job struct {
	Name     string
	Settings config.JobSettings
	Catalog  *catalog.Catalog
	Archiver archiver.Archiver
	Deleter  archiver.Deleter
	Slack    *notify.SlackSink
}

// Result is what a single Tick produces for one job, used by callers
// (the status dashboard, the CLI) that want to report what happened
// without re-deriving it.
type Result struct {
	Job       string
	Evaluated decision.Snapshot
	Acted     bool
	Level     backuplevel.Level
	Archived  properties.BackupProperties
	Pruned    []properties.BackupProperties
	Err       error
}

// Tick evaluates job at now and, if a backup is needed, runs the full
// pipeline: pre-run hook, archive, prune, post-run hook, notify. force
// mirrors the original CLI's "--force" switch: when no level is
// otherwise due, take a forced incremental instead of doing nothing.
func Tick(ctx context.Context, job Job, now time.Time, force bool) Result {
	dec := decision.New(job.Settings.StartTime, job.Settings.IntervalFull, job.Settings.IntervalDiff, job.Settings.IntervalIncr, now, job.Catalog)

	snap, err := dec.Evaluate(force)
	if err != nil {
		return Result{Job: job.Name, Err: err}
	}
	result := Result{Job: job.Name, Evaluated: snap}

	if !snap.NeededLevel.Present {
		return result
	}
	result.Acted = true
	result.Level = snap.NeededLevel.Level

	archiveLevel := snap.NeededLevel.Level
	if archiveLevel == backuplevel.ForcedIncr {
		archiveLevel = backuplevel.Incr
	}

	logging.For(job.Name).Info().Str("level", archiveLevel.String()).Msg("backup due")

	if err := notify.RunHook(ctx, job.Name, job.Settings.CommandPreRun); err != nil {
		result.Err = err
		return result
	}

	// A Diff is taken against the last Full; an Incr against the last
	// backup of any level.
	referenceLevel := backuplevel.Incr
	if archiveLevel == backuplevel.Diff {
		referenceLevel = backuplevel.Full
	}
	lastExisting, err := dec.LastExisting(referenceLevel)
	if err != nil {
		result.Err = err
		return result
	}
	reference := archiver.ReferenceFor(archiveLevel, lastExisting)

	archived, err := job.Archiver.Archive(ctx, job.Name, archiveLevel, reference)
	started := now
	if err != nil {
		result.Err = err
		runPostHooks(ctx, job, notify.Outcome{Job: job.Name, Level: archiveLevel, StartedAt: started, EndedAt: time.Now(), Err: err})
		return result
	}
	result.Archived = archived

	existing, err := job.Catalog.FindExisting(catalog.FilterAny, nil)
	if err != nil {
		result.Err = err
		return result
	}
	existing = append(existing, archived)

	toDelete := prune.Plan(archiveLevel, existing)
	for _, p := range toDelete {
		if err := job.Deleter.Delete(ctx, job.Name, p); err != nil {
			logging.For(job.Name).Error().Err(err).Str("backup", p.BaseName()).Msg("failed to delete pruned backup")
			continue
		}
		result.Pruned = append(result.Pruned, p)
	}

	outcome := notify.Outcome{Job: job.Name, Level: archiveLevel, StartedAt: started, EndedAt: time.Now()}
	runPostHooks(ctx, job, outcome)

	return result
}

func runPostHooks(ctx context.Context, job Job, outcome notify.Outcome) {
	if err := notify.RunHook(ctx, job.Name, job.Settings.CommandPostRun); err != nil {
		logging.For(job.Name).Error().Err(err).Msg("post-run hook failed")
	}
	if err := notify.RunNotificationHook(ctx, outcome, job.Settings.CommandNotify); err != nil {
		logging.For(job.Name).Error().Err(err).Msg("notification hook failed")
	}
	if job.Slack != nil {
		if err := job.Slack.Notify(outcome); err != nil {
			logging.For(job.Name).Error().Err(err).Msg("Slack notification failed")
		}
	}
}

// Loop runs Tick for every job once per interval until Stop is called,
// mirroring the original Scheduler's ticker-and-stopChan shape.
type Loop struct {
	Jobs     []Job
	Interval time.Duration
	Force    bool
	// OnResult, if set, is called after every Tick, letting callers
	// (the status dashboard) keep a live view of the latest outcome
	// without the runner package depending on them.
	OnResult func(Result)

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// Start launches the ticking goroutine. Calling Start twice without an
// intervening Stop is a no-op, matching the original's "already running"
// guard.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.stopChan = make(chan struct{})
	stopChan := l.stopChan
	l.mu.Unlock()

	logging.Infof("backup loop starting, interval %s, %d job(s)", l.Interval, len(l.Jobs))

	go func() {
		ticker := time.NewTicker(l.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopChan:
				return
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				for _, job := range l.Jobs {
					result := Tick(ctx, job, now, l.Force)
					if result.Err != nil {
						logging.For(job.Name).Error().Err(result.Err).Msg("tick failed")
					}
					if l.OnResult != nil {
						l.OnResult(result)
					}
				}
			}
		}
	}()
}

// Stop halts the loop. It is safe to call on a Loop that was never
// started.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	close(l.stopChan)
	l.running = false
}

// Running reports whether the loop's goroutine is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
