package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

func newWorkspaceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces",
	}
	cmd.AddCommand(
		newWorkspaceListCmd(a),
		newWorkspaceAddCmd(a),
		newWorkspaceRmCmd(a),
		newWorkspaceUseCmd(a),
	)
	return cmd
}

func newWorkspaceListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces; the active one is marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			all, err := a.store.GetAllWorkspaces(ctx)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), all)
			}
			active, _ := a.store.ActiveWorkspace(ctx)
			t := newTable("", "ID", "NAME", "ORDER")
			for _, w := range all {
				mark := ""
				if w.ID == active {
					mark = "*"
				}
				t.add(mark, w.ID, truncate(w.Name, 40), strconv.Itoa(w.Order))
			}
			t.print(cmd.OutOrStdout(), "workspace", "No workspaces found. Run 'neuronotes init'.")
			return nil
		},
	}
}

func newWorkspaceAddCmd(a *app) *cobra.Command {
	var order int
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("order") {
				all, err := a.store.GetAllWorkspaces(ctx)
				if err != nil {
					return err
				}
				order = len(all)
			}
			w := &types.Workspace{Name: args[0], Order: order}
			if err := a.store.PutWorkspace(ctx, w); err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), w)
			}
			fmt.Fprintln(cmd.OutOrStdout(), w.ID)
			return nil
		},
	}
	cmd.Flags().IntVar(&order, "order", 0, "position among workspaces (default: last)")
	return cmd
}

func newWorkspaceRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a workspace and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.store.DeleteWorkspace(cmd.Context(), args[0])
			if errors.Is(err, types.ErrLastWorkspace) {
				return usageErrorf("%s is the only workspace; add another before deleting it", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted workspace %s\n", args[0])
			return nil
		},
	}
}

func newWorkspaceUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Make a workspace the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.SetActiveWorkspace(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active workspace is %s\n", args[0])
			return nil
		},
	}
}
