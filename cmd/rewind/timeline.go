package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"rewind-go/internal/app"
	"rewind-go/internal/rewind"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// timeline command
var timelineCmd = &cobra.Command{
	Use:   "timeline [RANGE]",
	Short: "Show recorded changes, newest first",
	Long: `Show recorded changes, newest first.

RANGE selects sequence ids inclusively: N..M, N.., ..M or a single N.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		var raw string
		if len(args) > 0 {
			raw = args[0]
		}
		r, err := app.ParseRange(raw, limit)
		if err != nil {
			return err
		}

		project, err := projectRoot(cmd)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Timeline(cmd.Context(), project, r)
		if err != nil {
			return err
		}

		if asJSON {
			return outputJSON(cmd.OutOrStdout(), entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No entries.")
			return nil
		}
		outputTable(cmd.OutOrStdout(), entries, time.Now())
		return nil
	},
}

type timelineOutputEntry struct {
	Seq         int64             `json:"seq"`
	CreatedAt   string            `json:"created_at"`
	Type        string            `json:"type"`
	Path        string            `json:"path,omitempty"`
	Description string            `json:"description"`
	BeforeHash  string            `json:"before_hash,omitempty"`
	AfterHash   string            `json:"after_hash,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func outputJSON(w io.Writer, entries []*rewind.Entry) error {
	output := make([]timelineOutputEntry, 0, len(entries))
	for _, e := range entries {
		output = append(output, timelineOutputEntry{
			Seq:         e.Seq,
			CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
			Type:        string(e.Type),
			Path:        e.Path,
			Description: e.Description,
			BeforeHash:  e.BeforeHash,
			AfterHash:   e.AfterHash,
			Metadata:    e.Metadata,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 100
}

// Fixed column widths: seq, relative time and entry type.
const (
	seqWidth  = 6
	whenWidth = 16
	typeWidth = 10
)

// textWidths splits what the terminal has left between the path and
// description columns.
func textWidths(termWidth int) (pathWidth, descWidth int) {
	// Five columns with a border and padding around each.
	available := termWidth - 5*3 - 1 - seqWidth - whenWidth - typeWidth
	pathWidth = available * 2 / 5
	if pathWidth < 12 {
		pathWidth = 12
	}
	descWidth = available - pathWidth
	if descWidth < 15 {
		descWidth = 15
	}
	return pathWidth, descWidth
}

func outputTable(w io.Writer, entries []*rewind.Entry, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	pathWidth, descWidth := textWidths(getTerminalWidth())

	t.AppendHeader(table.Row{"Seq", "When", "Type", "Path", "Description"})
	for _, e := range entries {
		p := e.Path
		if old := e.OldPath(); e.Type == rewind.EntryRename && old != "" {
			p = old + " -> " + e.Path
		}
		t.AppendRow(table.Row{
			e.Seq,
			humanize.RelTime(e.CreatedAt, now, "ago", "from now"),
			string(e.Type),
			runewidth.Truncate(p, pathWidth, "…"),
			runewidth.Truncate(e.Description, descWidth, "…"),
		})
	}
	t.Render()
}
