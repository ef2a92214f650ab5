package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rcliao/unotes/internal/model"
)

func printJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

// printNotes writes notes as a JSON array, or one line per note in text
// format.
func (a *app) printNotes(w io.Writer, ns []model.Note) {
	if a.flags.format == "text" {
		for _, n := range ns {
			fmt.Fprintln(w, noteLine(n))
		}
		return
	}
	printJSON(w, ns)
}

func (a *app) printNote(w io.Writer, n model.Note) {
	if a.flags.format == "text" {
		fmt.Fprintln(w, noteLine(n))
		if n.Content != "" {
			fmt.Fprintln(w, n.Content)
		}
		return
	}
	printJSON(w, n)
}

// printFields writes a flat status object. Keys are printed in the given
// order in text format.
func (a *app) printFields(w io.Writer, keys []string, fields map[string]any) {
	if a.flags.format == "text" {
		for _, k := range keys {
			if v, ok := fields[k]; ok {
				fmt.Fprintf(w, "%s: %v\n", k, v)
			}
		}
		return
	}
	printJSON(w, fields)
}

func noteLine(n model.Note) string {
	parts := []string{n.ID, n.Title}
	if n.Priority != nil {
		parts = append(parts, "["+string(*n.Priority)+"]")
	}
	if n.CompletionTime != nil {
		parts = append(parts, "due "+n.CompletionTime.Format(time.RFC3339))
	}
	return strings.Join(parts, "\t")
}
