package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/psyphy-data/gripmmi/internal/grip"
)

// RenderForcesPage writes an interactive go-echarts line chart of the
// force traces. Missing values are passed as nulls so echarts breaks the
// line at stream gaps.
func RenderForcesPage(w io.Writer, samples []grip.Sample) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "GRIP forces",
			Theme:     "dark",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Grip and load forces",
			Subtitle: fmt.Sprintf("samples=%d", len(samples)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "force (N)"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	line.SetXAxis(timeAxis(samples))
	for _, tr := range forceSeries {
		line.AddSeries(tr.name, lineData(samples, tr.extract),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render forces page: %w", err)
	}
	return nil
}

// RenderVisibilityPage writes an interactive chart of the marker group
// visibility codes and the packet-received trace.
func RenderVisibilityPage(w io.Writer, samples []grip.Sample) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "GRIP visibility",
			Theme:     "dark",
			Width:     "1200px",
			Height:    "400px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Marker visibility"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	visibilitySeries := []series{
		{"manipulandum", func(s *grip.Sample) float64 { return s.ManipulandumVisibility }},
		{"frame", func(s *grip.Sample) float64 { return s.FrameVisibility }},
		{"wrist", func(s *grip.Sample) float64 { return s.WristVisibility }},
		{"packets", func(s *grip.Sample) float64 { return s.PacketReceived }},
	}

	line.SetXAxis(timeAxis(samples))
	for _, tr := range visibilitySeries {
		line.AddSeries(tr.name, lineData(samples, tr.extract),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Symbol: "circle"}))
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render visibility page: %w", err)
	}
	return nil
}

func timeAxis(samples []grip.Sample) []string {
	axis := make([]string, len(samples))
	for i := range samples {
		if grip.IsMissing(samples[i].Time) {
			axis[i] = ""
			continue
		}
		axis[i] = fmt.Sprintf("%.2f", samples[i].Time)
	}
	return axis
}

func lineData(samples []grip.Sample, extract func(*grip.Sample) float64) []opts.LineData {
	data := make([]opts.LineData, len(samples))
	for i := range samples {
		v := extract(&samples[i])
		if grip.IsMissing(samples[i].Time) || grip.IsMissing(v) {
			data[i] = opts.LineData{Value: nil}
			continue
		}
		data[i] = opts.LineData{Value: v}
	}
	return data
}
