package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/unotes/internal/model"
)

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			by, _ := cmd.Flags().GetString("sort")
			if by != "created" && by != "title" {
				return fail("list", fmt.Errorf("%w: sort %q (valid: created, title)", model.ErrInvalidInput, by))
			}
			if err := a.loadNotes(cmd.Context()); err != nil {
				return fail("list", err)
			}

			ns := a.manager.Snapshot()
			sortNotes(ns, by)
			a.printNotes(cmd.OutOrStdout(), ns)
			return nil
		},
	}
	cmd.Flags().String("sort", "created", "Sort by: created or title")
	return cmd
}

func sortNotes(ns []model.Note, by string) {
	sort.SliceStable(ns, func(i, j int) bool {
		if by == "title" {
			return strings.ToLower(ns[i].Title) < strings.ToLower(ns[j].Title)
		}
		return ns[i].CreatedAt.Before(ns[j].CreatedAt)
	})
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Fetch one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireSession(ctx); err != nil {
				return fail("get", err)
			}
			token, err := a.resolver.AccessToken(ctx)
			if err != nil {
				return fail("get", err)
			}
			n, err := a.notesAPI.Get(ctx, token, args[0])
			if err != nil {
				return fail("get", err)
			}
			a.printNote(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [content]",
		Short: "Create a note",
		Long:  "Create a note. Content can be a positional arg or piped via stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			in := model.CreateInput{Title: title}

			if len(args) > 0 {
				in.Content = strings.Join(args, " ")
			} else {
				content, err := a.readStdin()
				if err != nil {
					return fail("read stdin", err)
				}
				in.Content = content
			}

			var err error
			if in.Priority, err = priorityFlag(cmd); err != nil {
				return fail("create", err)
			}
			if in.CompletionTime, err = dueFlag(cmd); err != nil {
				return fail("create", err)
			}
			if err := in.Validate(); err != nil {
				return fail("create", err)
			}

			if err := a.requireSession(cmd.Context()); err != nil {
				return fail("create", err)
			}
			n, err := a.manager.Create(cmd.Context(), in)
			if err != nil {
				return fail("create", err)
			}
			a.printNote(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().StringP("title", "t", "", "Title (required)")
	cmd.Flags().StringP("priority", "p", "", "Priority: low, medium, high")
	cmd.Flags().String("due", "", "Completion time (RFC 3339)")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a note",
		Long:  "Change fields of a note. Only the given flags are changed; other fields keep their values.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.Patch
			if cmd.Flags().Changed("title") {
				v, _ := cmd.Flags().GetString("title")
				patch.Title = &v
			}
			if cmd.Flags().Changed("content") {
				v, _ := cmd.Flags().GetString("content")
				patch.Content = &v
			}
			var err error
			if patch.Priority, err = priorityFlag(cmd); err != nil {
				return fail("edit", err)
			}
			if patch.CompletionTime, err = dueFlag(cmd); err != nil {
				return fail("edit", err)
			}
			if err := patch.Validate(); err != nil {
				return fail("edit", err)
			}

			if err := a.loadNotes(cmd.Context()); err != nil {
				return fail("edit", err)
			}
			n, err := a.manager.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return fail("edit", err)
			}
			a.printNote(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().StringP("title", "t", "", "New title")
	cmd.Flags().String("content", "", "New content")
	cmd.Flags().StringP("priority", "p", "", "New priority: low, medium, high")
	cmd.Flags().String("due", "", "New completion time (RFC 3339)")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return fail("rm", err)
			}
			if err := a.manager.Delete(cmd.Context(), args[0]); err != nil {
				return fail("rm", err)
			}
			a.printFields(cmd.OutOrStdout(), []string{"deleted"}, map[string]any{"deleted": args[0]})
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export notes as JSON",
		Long:  "Export all notes as newline-delimited JSON, oldest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadNotes(cmd.Context()); err != nil {
				return fail("export", err)
			}
			ns := a.manager.Snapshot()
			sortNotes(ns, "created")

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, n := range ns {
				if err := enc.Encode(n); err != nil {
					return fail("export", err)
				}
			}
			return nil
		},
	}
}

func priorityFlag(cmd *cobra.Command) (*model.Priority, error) {
	if !cmd.Flags().Changed("priority") {
		return nil, nil
	}
	v, _ := cmd.Flags().GetString("priority")
	return model.ParsePriority(v)
}

func dueFlag(cmd *cobra.Command) (*time.Time, error) {
	if !cmd.Flags().Changed("due") {
		return nil, nil
	}
	v, _ := cmd.Flags().GetString("due")
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("%w: due %q is not RFC 3339", model.ErrInvalidInput, v)
	}
	return &t, nil
}

// readStdin returns piped input, or "" when stdin is a terminal.
func (a *app) readStdin() (string, error) {
	if f, ok := a.stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	b, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\n"), nil
}

