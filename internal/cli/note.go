package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

func newNoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes",
	}
	cmd.AddCommand(
		newNoteListCmd(a),
		newNoteShowCmd(a),
		newNotePutCmd(a),
		newNoteRmCmd(a),
	)
	return cmd
}

func newNoteListCmd(a *app) *cobra.Command {
	var workspace, folder string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes of a workspace without their content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := a.workspace(ctx, workspace)
			if err != nil {
				return err
			}
			notes, err := a.store.ListNoteSummaries(ctx, ws)
			if err != nil {
				return err
			}
			if folder != "" {
				kept := notes[:0]
				for _, n := range notes {
					if n.FolderID != nil && *n.FolderID == folder {
						kept = append(kept, n)
					}
				}
				notes = kept
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), notes)
			}
			t := newTable("ID", "TITLE", "TYPE", "UPDATED")
			for _, n := range notes {
				t.add(n.ID, truncate(n.Title, 40), n.Type, time.UnixMilli(n.UpdatedAt).Format("2006-01-02 15:04"))
			}
			t.print(cmd.OutOrStdout(), "note", "No notes found.")
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id (default: active workspace)")
	cmd.Flags().StringVar(&folder, "folder", "", "only notes filed in this folder")
	return cmd
}

func newNoteShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note with its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.store.GetNoteByID(cmd.Context(), args[0])
			if errors.Is(err, types.ErrNotFound) {
				return usageErrorf("note %s not found", args[0])
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(out, n)
			}
			fmt.Fprintf(out, "# %s\n\n", n.Title)
			if n.Type == types.NoteTypeSpreadsheet {
				return printJSON(out, n.Spreadsheet)
			}
			fmt.Fprintln(out, n.ContentHTML)
			return nil
		},
	}
}

// notePutFlags are the flags of note put.
type notePutFlags struct {
	id, title, content, contentFile string
	sheetFile, workspace, folder    string
	noteType                        string
	order                           int
}

func newNotePutCmd(a *app) *cobra.Command {
	var f notePutFlags
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Create a note, or update the one named by --id",
		Long: "Create a note, or update the one named by --id. Only the fields given\n" +
			"as flags change; without --content, --content-file or --sheet-file the\n" +
			"stored content is kept.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			n := &types.Note{ID: f.id, ContentState: types.ContentLoaded}
			var existingType string
			if f.id != "" {
				existing, err := a.store.GetNoteByID(ctx, f.id)
				switch {
				case err == nil:
					n = existing
					existingType = existing.Type
					// Leave the body to the store unless it is being replaced.
					n.ContentHTML, n.Spreadsheet = "", nil
					n.ContentState = types.ContentNotLoaded
				case !errors.Is(err, types.ErrNotFound):
					return err
				}
			}

			flags := cmd.Flags()
			if n.WorkspaceID == "" || flags.Changed("workspace") {
				ws, err := a.workspace(ctx, f.workspace)
				if err != nil {
					return err
				}
				n.WorkspaceID = ws
			}
			if flags.Changed("title") {
				n.Title = f.title
			}
			if flags.Changed("type") {
				n.Type = f.noteType
			}
			if flags.Changed("order") {
				n.Order = f.order
			}
			if flags.Changed("folder") {
				n.FolderID = &f.folder
			}
			if err := f.readContent(cmd.InOrStdin(), n, flags.Changed); err != nil {
				return err
			}

			if err := a.store.PutNote(ctx, n); err != nil {
				if errors.Is(err, types.ErrInvalidType) {
					return usageErrorf("unknown note type %q (want text or spreadsheet)", f.noteType)
				}
				if errors.Is(err, types.ErrTypeFixed) {
					return usageErrorf("note %s is already a %s note; its type cannot change", n.ID, existingType)
				}
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), n)
			}
			fmt.Fprintln(cmd.OutOrStdout(), n.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.id, "id", "", "note id (default: a new note)")
	cmd.Flags().StringVar(&f.title, "title", "", "note title")
	cmd.Flags().StringVar(&f.content, "content", "", "HTML content")
	cmd.Flags().StringVar(&f.contentFile, "content-file", "", "read HTML content from a file, - for stdin")
	cmd.Flags().StringVar(&f.sheetFile, "sheet-file", "", "read spreadsheet JSON from a file, - for stdin")
	cmd.Flags().StringVar(&f.workspace, "workspace", "", "workspace id (default: active workspace)")
	cmd.Flags().StringVar(&f.folder, "folder", "", "folder id, empty to unfile")
	cmd.Flags().StringVar(&f.noteType, "type", "", "text or spreadsheet (default: text)")
	cmd.Flags().IntVar(&f.order, "order", 0, "position within the workspace")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file", "sheet-file")
	return cmd
}

// readContent fills the payload of n from the content flags, marking it
// loaded so an explicitly empty body is written.
func (f notePutFlags) readContent(stdin io.Reader, n *types.Note, changed func(string) bool) error {
	switch {
	case changed("content"):
		n.ContentHTML = f.content
	case changed("content-file"):
		data, err := readInput(stdin, f.contentFile)
		if err != nil {
			return err
		}
		n.ContentHTML = string(data)
	case changed("sheet-file"):
		data, err := readInput(stdin, f.sheetFile)
		if err != nil {
			return err
		}
		var sheet types.Spreadsheet
		if err := json.Unmarshal(data, &sheet); err != nil {
			return usageErrorf("spreadsheet file is not valid JSON: %v", err)
		}
		n.Spreadsheet = &sheet
		n.Type = types.NoteTypeSpreadsheet
	default:
		return nil
	}
	n.ContentState = types.ContentLoaded
	return nil
}

// readInput reads path, or stdin when path is "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, usageErrorf("cannot read %s: %v", path, err)
	}
	return data, nil
}

func newNoteRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.DeleteNote(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %s\n", args[0])
			return nil
		},
	}
}
