package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/neuronotes/internal/backup"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore backups",
	}
	cmd.AddCommand(
		newBackupCreateCmd(a),
		newBackupListCmd(a),
		newBackupRmCmd(a),
		newBackupPruneCmd(a),
		newBackupRestoreCmd(a),
		newBackupImportCmd(a),
		newBackupExportCmd(a),
		newBackupAutoCmd(a),
	)
	return cmd
}

// backupErr turns manager errors a user can act on into usage errors.
func backupErr(id string, err error) error {
	var ie *backup.ImportError
	switch {
	case errors.Is(err, backup.ErrNotFound):
		return usageErrorf("backup %s not found", id)
	case errors.As(err, &ie):
		return usageErrorf("not a backup file: %s", ie.Reason)
	}
	return err
}

func newBackupCreateCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot every workspace into a new backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.backups.Create(cmd.Context(), backup.TypeManual, description)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), doc.Metadata)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created backup %s (%d entities, %d bytes)\n",
				doc.Metadata.ID, doc.Data.Len(), doc.Metadata.Size)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "free-form note stored with the backup")
	return cmd
}

func newBackupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := a.backups.List()
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				if all == nil {
					all = []backup.Metadata{}
				}
				return printJSON(cmd.OutOrStdout(), all)
			}
			t := newTable("ID", "DATE", "TYPE", "SIZE", "DESCRIPTION")
			for _, m := range all {
				date := time.UnixMilli(m.Timestamp).Format("2006-01-02 15:04:05")
				t.add(m.ID, date, m.Type, fmt.Sprint(m.Size), truncate(m.Description, 40))
			}
			t.print(cmd.OutOrStdout(), "backup", "No backups found.")
			return nil
		},
	}
}

func newBackupRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.backups.Delete(args[0]); err != nil {
				return backupErr(args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted backup %s\n", args[0])
			return nil
		},
	}
}

func newBackupPruneCmd(a *app) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return usageErrorf("--keep must not be negative")
			}
			n, err := a.backups.Prune(keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d backup(s)\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 10, "number of backups to keep")
	return cmd
}

func newBackupRestoreCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace all data with the contents of a backup",
		Long:  "Replace all data with the contents of a backup. Everything not in the\nbackup is lost, so --yes is required.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return usageErrorf("restore replaces all data; rerun with --yes to confirm")
			}
			if err := a.backups.Restore(cmd.Context(), args[0]); err != nil {
				return backupErr(args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored backup %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm replacing all data")
	return cmd
}

func newBackupImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Store an external backup file; - reads stdin",
		Long: "Store an external backup file. Full documents, {\"data\": ...} wrappers and\n" +
			"bare store arrays are accepted. The live data is not touched; restore\n" +
			"the imported backup to apply it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			doc, err := a.backups.Import(raw)
			if err != nil {
				return backupErr(args[0], err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), doc.Metadata)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported backup %s (%d entities)\n", doc.Metadata.ID, doc.Data.Len())
			return nil
		},
	}
}

func newBackupExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a backup to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" || out == "-" {
				return backupErr(args[0], a.backups.Export(args[0], cmd.OutOrStdout()))
			}
			f, err := os.Create(out)
			if err != nil {
				return usageErrorf("cannot create %s: %v", out, err)
			}
			if err := a.backups.Export(args[0], f); err != nil {
				f.Close()
				os.Remove(out)
				return backupErr(args[0], err)
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newBackupAutoCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Create automatic backups on an interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.BackupInterval()
			}
			if interval <= 0 {
				return usageErrorf("no backup interval: set backup.auto_interval_m or pass --interval")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Backing up every %s; interrupt to stop\n", interval)
			backup.NewScheduler(a.backups, interval).Run(ctx)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between backups (default: from config)")
	return cmd
}
