package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mzuther/lalikan/internal/archiver"
	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/catalog"
	"github.com/mzuther/lalikan/internal/config"
	"github.com/mzuther/lalikan/internal/decision"
	"github.com/mzuther/lalikan/internal/prune"
	"github.com/mzuther/lalikan/internal/runner"
	"github.com/mzuther/lalikan/internal/store"
)

// jobSections resolves the section names a command should act on: the
// single name given on the command line, or every non-Default section
// with job settings when none is given.
func jobSections(settings *config.Settings, only string) []string {
	if only != "" {
		return []string{only}
	}
	var sections []string
	for _, s := range settings.Sections() {
		if s == config.DefaultSection {
			continue
		}
		sections = append(sections, s)
	}
	return sections
}

func loadJob(settings *config.Settings, section string) (config.JobSettings, *catalog.Catalog, error) {
	job, err := settings.Job(section)
	if err != nil {
		return config.JobSettings{}, nil, err
	}
	return job, catalog.New(job.BackupDirectory), nil
}

func newScheduleCommand(configPath *string) *cobra.Command {
	var job string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the next scheduled Full backup for one or every job",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			now := time.Now()
			for _, section := range jobSections(settings, job) {
				js, _, err := loadJob(settings, section)
				if err != nil {
					return fmt.Errorf("%s: %w", section, err)
				}
				dec := decision.New(js.StartTime, js.IntervalFull, js.IntervalDiff, js.IntervalIncr, now, nil)
				snap, err := dec.Evaluate(false)
				if err != nil {
					return fmt.Errorf("%s: %w", section, err)
				}
				fmt.Printf("%s: next full %s\n", section, snap.NextFull.DateString())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&job, "job", "", "only report on this section (default: every configured job)")
	return cmd
}

func newStatusCommand(configPath *string) *cobra.Command {
	var job string
	var force bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether each job is due for a backup right now",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			now := time.Now()
			for _, section := range jobSections(settings, job) {
				js, cat, err := loadJob(settings, section)
				if err != nil {
					return fmt.Errorf("%s: %w", section, err)
				}
				dec := decision.New(js.StartTime, js.IntervalFull, js.IntervalDiff, js.IntervalIncr, now, cat)
				snap, err := dec.Evaluate(force)
				if err != nil {
					return fmt.Errorf("%s: %w", section, err)
				}
				if snap.NeededLevel.Present {
					fmt.Printf("%s: %s backup due (%.1f days overdue)\n", section, snap.NeededLevel.Level, overdueFor(snap, snap.NeededLevel.Level))
				} else {
					fmt.Printf("%s: up to date\n", section)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&job, "job", "", "only report on this section (default: every configured job)")
	cmd.Flags().BoolVar(&force, "force", false, "treat an idle schedule as due for a forced incremental")
	return cmd
}

func overdueFor(snap decision.Snapshot, level backuplevel.Level) float64 {
	switch level {
	case backuplevel.Diff:
		return snap.DaysOverdueDiff
	case backuplevel.Incr, backuplevel.ForcedIncr:
		return snap.DaysOverdueIncr
	default:
		return snap.DaysOverdueFull
	}
}

func newPrunePlanCommand(configPath *string) *cobra.Command {
	var job string
	var level string
	cmd := &cobra.Command{
		Use:   "prune-plan",
		Short: "Show which existing backups a newly completed backup of a given level would make dispensable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if job == "" {
				return fmt.Errorf("--job is required")
			}
			settings, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			js, cat, err := loadJob(settings, job)
			if err != nil {
				return err
			}

			newLevel, err := backuplevel.FromSuffix(level)
			if err != nil {
				return err
			}

			existing, err := cat.FindExisting(catalog.FilterAny, nil)
			if err != nil {
				return err
			}
			_ = js

			for _, p := range prune.Plan(newLevel, existing) {
				fmt.Println(p.BaseName())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&job, "job", "", "the section to plan pruning for")
	cmd.Flags().StringVar(&level, "level", "incr", "the level of the hypothetical new backup (full, diff, incr)")
	return cmd
}

func newRunCommand(configPath, journalPath *string) *cobra.Command {
	var job string
	var force bool
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline once for one or every due job",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			var journal *store.Store
			if !dryRun {
				journal, err = store.Open(*journalPath)
				if err != nil {
					return err
				}
				defer journal.Close()
			}

			ctx := context.Background()
			now := time.Now()

			for _, section := range jobSections(settings, job) {
				js, cat, err := loadJob(settings, section)
				if err != nil {
					return fmt.Errorf("%s: %w", section, err)
				}

				var del archiver.Deleter = archiver.NullDeleter{}
				if dryRun {
					del = &archiver.RecordingDeleter{}
				}

				runnerJob := runner.Job{
					Name:     section,
					Settings: js,
					Catalog:  cat,
					Archiver: archiver.NullArchiver{},
					Deleter:  del,
				}

				result := runner.Tick(ctx, runnerJob, now, force)

				if journal != nil && result.Acted {
					runID, externalID, beginErr := journal.BeginRun(section, result.Level, now)
					if beginErr == nil {
						_ = journal.FinishRun(runID, time.Now(), result.Err, len(result.Pruned))
						fmt.Printf("%s: run id %s\n", section, externalID)
					}
				}
				if result.Err != nil {
					return fmt.Errorf("%s: %w", section, result.Err)
				}
				if result.Acted {
					fmt.Printf("%s: ran %s backup, pruned %d\n", section, result.Level, len(result.Pruned))
				} else {
					fmt.Printf("%s: nothing due\n", section)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&job, "job", "", "only run this section (default: every configured job)")
	cmd.Flags().BoolVar(&force, "force", false, "force a backup even if nothing is due")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate and report without touching the journal or deleting anything")
	return cmd
}
