package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Color modes accepted by TableOptions.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

const coveredDigits = 3

// TableOptions control WriteTable.
type TableOptions struct {
	// Color is auto, always or never. Auto follows fatih/color terminal detection.
	Color string
}

type palette struct {
	accepted, rejected, invalid *color.Color
}

func newPalette(mode string) palette {
	p := palette{
		accepted: color.New(color.FgGreen),
		rejected: color.New(color.FgRed, color.Bold),
		invalid:  color.New(color.FgYellow),
	}

	for _, c := range []*color.Color{p.accepted, p.rejected, p.invalid} {
		switch mode {
		case ColorAlways:
			c.EnableColor()
		case ColorNever:
			c.DisableColor()
		}
	}

	return p
}

func (p palette) status(s Status) string {
	switch s {
	case StatusAccepted:
		return p.accepted.Sprint(s)
	case StatusRejected:
		return p.rejected.Sprint(s)
	default:
		return p.invalid.Sprint(s)
	}
}

// WriteTable writes one table row per candidate followed by a summary line.
func WriteTable(w io.Writer, run *Run, opts TableOptions) error {
	colors := newPalette(opts.Color)

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Source", "Label", "Start", "End", "Status", "Detail"})

	for _, row := range run.Rows {
		tbl.AppendRow(table.Row{
			location(row.Source, row.Line),
			row.Label,
			formatBound(row.Start),
			formatBound(row.End),
			colors.status(row.Status),
			detail(row),
		})
	}

	if _, err := fmt.Fprintln(w, tbl.Render()); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	_, err := fmt.Fprintf(w, "%s accepted, %s rejected, %s invalid, %s covered\n",
		humanize.Comma(int64(run.Summary.Accepted)),
		humanize.Comma(int64(run.Summary.Rejected)),
		humanize.Comma(int64(run.Summary.Invalid)),
		humanize.CommafWithDigits(run.Summary.Covered, coveredDigits),
	)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}

func detail(row Row) string {
	switch {
	case row.Error != "":
		return row.Error
	case row.BlockedBy != nil:
		blocker := fmt.Sprintf("overlaps [%s, %s)", formatBound(row.BlockedBy.Start), formatBound(row.BlockedBy.End))
		if row.BlockedBy.Label != "" {
			blocker += " " + strconv.Quote(row.BlockedBy.Label)
		}

		if loc := location(row.BlockedBy.Source, row.BlockedBy.Line); loc != "" {
			blocker += " at " + loc
		}

		return blocker
	default:
		return ""
	}
}

func location(source string, line int) string {
	switch {
	case source == "" && line == 0:
		return ""
	case line == 0:
		return source
	default:
		return source + ":" + strconv.Itoa(line)
	}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
