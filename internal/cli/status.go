package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/neuronotes/internal/embedded"
	"github.com/mesh-intelligence/neuronotes/internal/remotesync"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// status is the output of the status command.
type status struct {
	Backend    string         `json:"backend"`
	DataDir    string         `json:"dataDir"`
	Mode       string         `json:"mode"`
	Counts     map[string]int `json:"counts"`
	Tombstones int            `json:"tombstones"`
	LastSync   int64          `json:"lastSync,omitempty"`
	Saves      int            `json:"saves,omitempty"`
	SaveErrors int            `json:"saveErrors,omitempty"`
	LastSize   int            `json:"lastSize,omitempty"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active backend and what it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := a.store.Snapshot(ctx)
			if err != nil {
				return err
			}
			tombs, err := a.store.Tombstones(ctx)
			if err != nil {
				return err
			}
			last, err := remotesync.NewSyncer(remotesync.Options{KV: a.kv, Logger: a.log}).LastSync(ctx)
			if err != nil {
				return err
			}

			st := status{
				Backend:    a.store.Kind(),
				DataDir:    a.dataDir,
				Mode:       a.cfg.Mode,
				Tombstones: len(tombs),
				LastSync:   last,
				Counts: map[string]int{
					types.StoreWorkspaces:     len(d.Workspaces),
					types.StoreFolders:        len(d.Folders),
					types.StoreNotes:          len(d.Notes),
					types.StoreCalendarEvents: len(d.CalendarEvents),
					types.StoreKanban:         len(d.Kanban),
					types.StoreSettings:       len(d.Settings),
				},
			}
			if b, err := a.store.Backend(ctx); err == nil {
				if eb, ok := b.(*embedded.Backend); ok {
					s := eb.Stats()
					st.Saves, st.SaveErrors, st.LastSize = s.Saves, s.Failures, s.LastSize
				}
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(out, st)
			}
			field := func(label string, format string, v ...any) {
				fmt.Fprintf(out, "%-16s"+format+"\n", append([]any{label + ":"}, v...)...)
			}
			field("backend", "%s (%s)", st.Backend, st.Mode)
			field("data dir", "%s", st.DataDir)
			for _, name := range types.StoreNames {
				field(name, "%d", st.Counts[name])
			}
			field("tombstones", "%d", st.Tombstones)
			if st.LastSync > 0 {
				field("last sync", "%s", time.UnixMilli(st.LastSync).Format(time.RFC3339))
			} else {
				field("last sync", "never")
			}
			return nil
		},
	}
}
