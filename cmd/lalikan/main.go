// Command lalikan decides, for one or every configured backup job,
// whether a Full, Differential or Incremental backup is due, and can
// run the decision through to completion: archiving, pruning and
// notifying. It is the spiritual successor of the original Lalikan.py
// CLI entry point, rebuilt around cobra the way the rest of this
// corpus's command-line tools are.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is injected at build time via -ldflags, the same mechanism
// the original tool used for its own Version variable.
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var journalPath string

	root := &cobra.Command{
		Use:     "lalikan",
		Short:   "Decide and drive Full/Differential/Incremental backup schedules",
		Version: version,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "lalikan.toml", "path to the configuration file")
	root.PersistentFlags().StringVar(&journalPath, "journal", "lalikan.db", "path to the run journal sqlite file")

	root.AddCommand(newScheduleCommand(&configPath))
	root.AddCommand(newStatusCommand(&configPath))
	root.AddCommand(newRunCommand(&configPath, &journalPath))
	root.AddCommand(newPrunePlanCommand(&configPath))
	root.AddCommand(newServeCommand(&configPath, &journalPath))

	return root
}
