// Package cli implements the neuronotes command-line interface, a thin
// client of the storage facade, backups and sync.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/neuronotes/internal/usererr"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// NewRootCmd creates the top-level "neuronotes" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "neuronotes",
		Short: "Local-first notes, calendar and kanban storage",
		Long: "neuronotes manages workspaces, notes, calendar events and kanban boards\n" +
			"in a local store, with backups and optional sync to a hosted database.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsApp(cmd) {
				return nil
			}
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: per-user config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: per-user data dir)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "also log to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newStatusCmd(a),
		newFlushCmd(a),
		newWorkspaceCmd(a),
		newNoteCmd(a),
		newEventCmd(a),
		newBackupCmd(a),
		newSyncCmd(a),
	)
	return root, a
}

// needsApp reports whether cmd touches the store. Version, help and shell
// completion do not.
func needsApp(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return false
	}
	return !cmd.HasParent() || cmd.Parent().Name() != "completion"
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root, a := newRoot()
	err := root.Execute()
	if err != nil {
		// A failed command skips the post-run hook.
		_ = a.close(root.Context())
	}
	os.Exit(report(a, err))
}

// report prints err for the user and returns the exit code. Usage errors
// are printed as is; anything else is sanitized and the raw error logged.
func report(a *app, err error) int {
	if err == nil {
		return exitSuccess
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(os.Stderr, "Error:", ue.msg)
		return exitUserError
	}
	fmt.Fprintln(os.Stderr, "Error:", usererr.Sanitize(a.log, err))
	switch usererr.Classify(err) {
	case usererr.InvalidInput, usererr.NotFound:
		return exitUserError
	}
	return exitSysError
}

// usageError is a command-line mistake whose message is safe to print.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}
