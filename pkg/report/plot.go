package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "100%"
	chartHeight = "480px"
	axisRotate  = 45

	// emptyPoint renders as a gap in echarts series.
	emptyPoint = "-"
)

// WritePlot writes an HTML page with two charts: candidate durations by start,
// split into accepted and rejected series, and the cumulative covered length.
func WritePlot(w io.Writer, run *Run, title string) error {
	rows := make([]Row, 0, len(run.Rows))
	for _, row := range run.Rows {
		if row.Status != StatusInvalid {
			rows = append(rows, row)
		}
	}

	slices.SortStableFunc(rows, func(a, b Row) int { return cmp.Compare(a.Start, b.Start) })

	labels := make([]string, len(rows))
	accepted := make([]opts.BarData, len(rows))
	rejected := make([]opts.BarData, len(rows))
	covered := make([]opts.LineData, len(rows))

	total := 0.0

	for i, row := range rows {
		labels[i] = formatBound(row.Start)
		accepted[i] = opts.BarData{Value: emptyPoint}
		rejected[i] = opts.BarData{Value: emptyPoint}

		if row.Status == StatusAccepted {
			accepted[i] = opts.BarData{Value: row.End - row.Start, Name: row.Label}
			total += row.End - row.Start
		} else {
			rejected[i] = opts.BarData{Value: row.End - row.Start, Name: row.Label}
		}

		covered[i] = opts.LineData{Value: total}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "Range length by start"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "5%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "start", AxisLabel: &opts.AxisLabel{Rotate: axisRotate}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "length"}),
	)
	bar.SetXAxis(labels).
		AddSeries("Accepted", accepted, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#3ba272"})).
		AddSeries("Rejected", rejected, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ee6666"}))

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Covered length"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "start", AxisLabel: &opts.AxisLabel{Rotate: axisRotate}}),
	)
	line.SetXAxis(labels).AddSeries("Covered", covered, charts.WithLineChartOpts(opts.LineChart{Step: "end"}))

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(bar, line)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}
