package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/unotes/internal/model"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import notes from JSON",
		Long: "Import notes from stdin. Accepts the newline-delimited format produced by export, or a JSON array. " +
			"Each note is created anew; ids and creation times are assigned by the service.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(a.stdin)
			if err != nil {
				return fail("read stdin", err)
			}
			in, err := parseImport(data)
			if err != nil {
				return fail("parse json", err)
			}
			for i, n := range in {
				if err := n.Validate(); err != nil {
					return fail("import", fmt.Errorf("note %d: %w", i+1, err))
				}
			}

			if err := a.requireSession(cmd.Context()); err != nil {
				return fail("import", err)
			}
			imported := 0
			for _, n := range in {
				if _, err := a.manager.Create(cmd.Context(), n); err != nil {
					a.printFields(cmd.OutOrStdout(), []string{"ok", "imported"}, map[string]any{"ok": false, "imported": imported})
					return fail("import", err)
				}
				imported++
			}
			a.printFields(cmd.OutOrStdout(), []string{"ok", "imported"}, map[string]any{"ok": true, "imported": imported})
			return nil
		},
	}
}

func parseImport(data []byte) ([]model.CreateInput, error) {
	data = bytes.TrimSpace(data)
	var ns []model.Note
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &ns); err != nil {
			return nil, err
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		for dec.More() {
			var n model.Note
			if err := dec.Decode(&n); err != nil {
				return nil, err
			}
			ns = append(ns, n)
		}
	}

	out := make([]model.CreateInput, 0, len(ns))
	for _, n := range ns {
		out = append(out, model.CreateInput{
			Title:          n.Title,
			Content:        n.Content,
			Priority:       n.Priority,
			CompletionTime: n.CompletionTime,
		})
	}
	return out, nil
}
