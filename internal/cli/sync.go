package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/neuronotes/internal/remotesync"
	"github.com/mesh-intelligence/neuronotes/internal/schema"
)

// syncResult is the JSON output of the sync command.
type syncResult struct {
	Pushed        int      `json:"pushed"`
	Pulled        int      `json:"pulled"`
	DeletedRemote int      `json:"deletedRemote"`
	DeletedLocal  int      `json:"deletedLocal"`
	Ties          int      `json:"ties"`
	Errors        []string `json:"errors,omitempty"`
	LastSync      int64    `json:"lastSync,omitempty"`
}

func newSyncCmd(a *app) *cobra.Command {
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local store with the hosted database",
		Long: "Reconcile the local store with the hosted database, newest change wins.\n" +
			"The database is set by remote.dsn and remote.user_id, usually through\n" +
			"NEURONOTES_REMOTE_DSN and NEURONOTES_REMOTE_USER_ID.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.cfg.Remote.DSN == "" {
				return usageErrorf("no remote configured: set remote.dsn and remote.user_id")
			}
			if migrateFirst {
				if err := schema.MigrateHosted(a.cfg.Remote.DSN); err != nil {
					return err
				}
			}
			remote, err := remotesync.ConnectPostgres(ctx, a.cfg.Remote.DSN, a.cfg.Remote.UserID)
			if err != nil {
				return err
			}
			defer remote.Close()

			syncer := remotesync.NewSyncer(remotesync.Options{
				Local:  a.store,
				Remote: remote,
				KV:     a.kv,
				Logger: a.log,
			})
			rep, err := syncer.Sync(ctx)
			if err != nil {
				return err
			}
			if err := a.store.Flush(ctx); err != nil {
				return err
			}
			return printSyncReport(cmd, a.flags.jsonMode, rep)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending hosted schema migrations first")
	return cmd
}

func printSyncReport(cmd *cobra.Command, jsonMode bool, rep *remotesync.Report) error {
	res := syncResult{
		Pushed:        rep.Pushed,
		Pulled:        rep.Pulled,
		DeletedRemote: rep.DeletedRemote,
		DeletedLocal:  rep.DeletedLocal,
		Ties:          rep.Ties,
		LastSync:      rep.LastSync,
	}
	for i := range rep.Errors {
		res.Errors = append(res.Errors, rep.Errors[i].Error())
	}

	out := cmd.OutOrStdout()
	if jsonMode {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Pushed %d, pulled %d, deleted %d remote and %d local\n",
			res.Pushed, res.Pulled, res.DeletedRemote, res.DeletedLocal)
		for _, e := range res.Errors {
			fmt.Fprintf(out, "  failed: %s\n", e)
		}
		if res.LastSync > 0 {
			fmt.Fprintf(out, "In sync as of %s\n", time.UnixMilli(res.LastSync).Format(time.RFC3339))
		}
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("%d rows failed to sync", len(res.Errors))
	}
	return nil
}
