package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mzuther/lalikan/internal/archiver"
	"github.com/mzuther/lalikan/internal/catalog"
	"github.com/mzuther/lalikan/internal/config"
	"github.com/mzuther/lalikan/internal/decision"
	"github.com/mzuther/lalikan/internal/logging"
	"github.com/mzuther/lalikan/internal/runner"
	"github.com/mzuther/lalikan/internal/status"
	"github.com/mzuther/lalikan/internal/store"
)

func newServeCommand(configPath, journalPath *string) *cobra.Command {
	var addr string
	var interval time.Duration
	var logDir string
	var dashboardUser string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backup loop continuously and serve the status dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Init(logging.Options{Dir: logDir, FileName: "lalikan.log", RetentionDays: 30, Console: true}); err != nil {
				return err
			}

			settings, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			journal, err := store.Open(*journalPath)
			if err != nil {
				return err
			}
			defer journal.Close()

			var snapshotsMu sync.RWMutex
			snapshots := make(map[string]decision.Snapshot)

			var jobs []runner.Job
			var jobNames []string
			for _, section := range jobSections(settings, "") {
				js, err := settings.Job(section)
				if err != nil {
					return fmt.Errorf("%s: %w", section, err)
				}
				jobs = append(jobs, runner.Job{
					Name:     section,
					Settings: js,
					Catalog:  catalog.New(js.BackupDirectory),
					Archiver: archiver.NullArchiver{},
					Deleter:  archiver.NullDeleter{},
				})
				jobNames = append(jobNames, section)
			}

			passwordHash := os.Getenv("LALIKAN_DASHBOARD_PASSWORD_HASH")
			dashboard := status.NewServer(
				status.Credentials{Username: dashboardUser, PasswordHash: passwordHash},
				func(job string) (decision.Snapshot, bool) {
					snapshotsMu.RLock()
					defer snapshotsMu.RUnlock()
					snap, ok := snapshots[job]
					return snap, ok
				},
				jobNames,
			)

			loop := &runner.Loop{
				Jobs:     jobs,
				Interval: interval,
				OnResult: func(result runner.Result) {
					snapshotsMu.Lock()
					snapshots[result.Job] = result.Evaluated
					snapshotsMu.Unlock()
				},
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			loop.Start(ctx)
			defer loop.Stop()

			logging.Infof("serving dashboard on %s", addr)
			server := &http.Server{Addr: addr, Handler: dashboard.Handler()}
			return server.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to serve the status dashboard on")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "how often to evaluate every job")
	cmd.Flags().StringVar(&logDir, "log-dir", "logs", "directory rotated log files are written to")
	cmd.Flags().StringVar(&dashboardUser, "dashboard-user", "admin", "dashboard login username")
	return cmd
}
