package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/ledger"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/observability"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/rangefile"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/report"
)

// Report formats accepted by --format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatPlot  = "plot"
)

// Sentinel errors.
var (
	ErrUnknownReportFormat = errors.New("unknown report format")
	ErrRangesRejected      = errors.New("ranges rejected")
)

// CheckCommand holds the flags of the check command.
type CheckCommand struct {
	format      string
	inputFormat string
	output      string
	color       string
	title       string
	metrics     bool
	strict      bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cc := &CheckCommand{}

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Reserve ranges from documents and report conflicts",
		Long: `Load YAML, JSON or CSV range documents (optionally .lz4 compressed) and
reserve every entry, in file order, into one ledger. Entries overlapping an
earlier reservation are rejected and reported with the range that blocked them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: cc.run,
	}

	cmd.Flags().StringVar(&cc.format, "format", "", "Report format: table, json, yaml, plot (default from config)")
	cmd.Flags().StringVar(&cc.inputFormat, "input-format", "", "Input format: auto, yaml, json, csv (default from config)")
	cmd.Flags().StringVarP(&cc.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&cc.color, "color", "", "Table colors: auto, always, never (default from config)")
	cmd.Flags().StringVar(&cc.title, "title", "", "Plot title (default from config)")
	cmd.Flags().BoolVar(&cc.metrics, "metrics", false, "Dump Prometheus metrics of the run to stderr")
	cmd.Flags().BoolVar(&cc.strict, "strict", false, "Fail when any range is rejected or invalid")

	return cmd
}

func (cc *CheckCommand) run(cmd *cobra.Command, args []string) error {
	sess, err := startSession(cmd, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer sess.close()

	if err := cc.applyConfigDefaults(sess); err != nil {
		return err
	}

	meter := sess.providers.Meter

	var prom *observability.PrometheusProvider

	if cc.metrics {
		prom, err = observability.NewPrometheusProvider()
		if err != nil {
			return err
		}

		defer func() {
			if shutdownErr := prom.Shutdown(cmd.Context()); shutdownErr != nil {
				sess.providers.Logger.Warn("prometheus shutdown failed", "error", shutdownErr)
			}
		}()

		meter = prom.Meter(meterName)
	}

	metrics, err := observability.NewMetrics(meter)
	if err != nil {
		return err
	}

	led := ledger.New(
		ledger.WithLogger(sess.providers.Logger),
		ledger.WithTracer(sess.providers.Tracer),
		ledger.WithMetrics(metrics),
	)

	run, err := cc.reserveAll(cmd, sess, led, args)
	if err != nil {
		return err
	}

	sess.providers.Logger.Info("check completed",
		"files", len(args), "accepted", run.Summary.Accepted,
		"rejected", run.Summary.Rejected, "invalid", run.Summary.Invalid)

	if err := cc.writeReport(cmd.OutOrStdout(), run); err != nil {
		return err
	}

	if prom != nil {
		if err := prom.WriteText(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	if cc.strict && !run.Clean() {
		return fmt.Errorf("%w: %d rejected, %d invalid", ErrRangesRejected, run.Summary.Rejected, run.Summary.Invalid)
	}

	return nil
}

// applyConfigDefaults fills unset flags from the config and rejects an
// unknown report format before any input is read or output created.
func (cc *CheckCommand) applyConfigDefaults(sess *session) error {
	if cc.format == "" {
		cc.format = sess.cfg.Report.Format
	}

	if cc.inputFormat == "" {
		cc.inputFormat = sess.cfg.Input.Format
	}

	if cc.color == "" {
		cc.color = sess.cfg.Report.Color
	}

	if cc.title == "" {
		cc.title = sess.cfg.Report.PlotTitle
	}

	switch cc.format {
	case FormatTable, FormatJSON, FormatYAML, FormatPlot:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownReportFormat, cc.format)
	}
}

func (cc *CheckCommand) reserveAll(cmd *cobra.Command, sess *session, led *ledger.Ledger, paths []string) (*report.Run, error) {
	opts := rangefile.Options{
		Format:         rangefile.Format(cc.inputFormat),
		ValidateSchema: sess.cfg.Input.ValidateSchema,
	}

	run := &report.Run{}

	for _, path := range paths {
		doc, err := rangefile.Load(path, opts)
		if err != nil {
			return nil, err
		}

		sess.providers.Logger.Debug("document loaded", "source", doc.Source, "format", doc.Format, "entries", len(doc.Entries))

		for _, entry := range doc.Entries {
			booking := ledger.Booking{Label: entry.Label, Source: doc.Source, Line: entry.Line}

			out, err := led.Reserve(cmd.Context(), entry.Start, entry.End, booking)
			if err != nil {
				run.RecordInvalid(booking, entry.Start, entry.End, err)

				continue
			}

			run.Record(out)
		}
	}

	return run, nil
}

func (cc *CheckCommand) writeReport(stdout io.Writer, run *report.Run) (err error) {
	w := stdout

	if cc.output != "" {
		file, createErr := os.Create(cc.output)
		if createErr != nil {
			return fmt.Errorf("create report file: %w", createErr)
		}

		defer func() {
			if closeErr := file.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close report file: %w", closeErr)
			}
		}()

		w = file
	}

	switch cc.format {
	case FormatTable:
		return report.WriteTable(w, run, report.TableOptions{Color: cc.color})
	case FormatJSON:
		return report.WriteJSON(w, run)
	case FormatYAML:
		return report.WriteYAML(w, run)
	case FormatPlot:
		return report.WritePlot(w, run, cc.title)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownReportFormat, cc.format)
	}
}
