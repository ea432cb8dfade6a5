package commands

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/ledger"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/observability"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/rangefile"
)

const noValue = "-"

// NewNeighborsCommand creates the neighbors command.
func NewNeighborsCommand() *cobra.Command {
	var inputFormat string

	cmd := &cobra.Command{
		Use:   "neighbors <file> <time>...",
		Short: "Show the reserved ranges around time points",
		Long: `Reserve the ranges of one document, then print for every time point the
closest reserved start before it, the closest reserved start after it and the
range containing it. Times are numbers or RFC 3339 timestamps.`,
		Args: cobra.MinimumNArgs(2), //nolint:mnd // file plus at least one time
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNeighbors(cmd, args[0], args[1:], inputFormat)
		},
	}

	cmd.Flags().StringVar(&inputFormat, "input-format", "", "Input format: auto, yaml, json, csv (default from config)")

	return cmd
}

func runNeighbors(cmd *cobra.Command, path string, rawTimes []string, inputFormat string) error {
	times := make([]float64, len(rawTimes))

	for i, raw := range rawTimes {
		t, err := rangefile.ParseBound(raw)
		if err != nil {
			return fmt.Errorf("time %q: %w", raw, err)
		}

		times[i] = t
	}

	sess, err := startSession(cmd, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer sess.close()

	if inputFormat == "" {
		inputFormat = sess.cfg.Input.Format
	}

	doc, err := rangefile.Load(path, rangefile.Options{
		Format:         rangefile.Format(inputFormat),
		ValidateSchema: sess.cfg.Input.ValidateSchema,
	})
	if err != nil {
		return err
	}

	led := ledger.New(ledger.WithLogger(sess.providers.Logger), ledger.WithTracer(sess.providers.Tracer))

	for _, entry := range doc.Entries {
		booking := ledger.Booking{Label: entry.Label, Source: doc.Source, Line: entry.Line}

		if _, err := led.Reserve(cmd.Context(), entry.Start, entry.End, booking); err != nil {
			sess.providers.Logger.Warn("entry skipped", "line", entry.Line, "error", err)
		}
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Time", "Prev start", "Next start", "Owner"})

	for _, t := range times {
		hood := led.Neighbors(cmd.Context(), t)

		tbl.AppendRow(table.Row{
			formatFloat(t),
			optionalFloat(hood.PrevStart, hood.HasPrev),
			optionalFloat(hood.NextStart, hood.HasNext),
			ownerText(hood.Owner),
		})
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
	if err != nil {
		return fmt.Errorf("write neighbors table: %w", err)
	}

	return nil
}

func optionalFloat(v float64, ok bool) string {
	if !ok {
		return noValue
	}

	return formatFloat(v)
}

func ownerText(r *ledger.Range) string {
	if r == nil {
		return noValue
	}

	if label := r.Payload().Label; label != "" {
		return r.String() + " " + strconv.Quote(label)
	}

	return r.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
