// Package monitor renders reconstructed telemetry as strip charts: static
// PNGs for the quick-look endpoints and go-echarts HTML pages for
// interactive browsing.
package monitor

import (
	"fmt"
	"image/color"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/psyphy-data/gripmmi/internal/grip"
	"github.com/psyphy-data/gripmmi/internal/vecmath"
)

var seriesColors = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
}

// series is one named trace extracted from the sample sequence. Missing
// values break the trace into separate segments rather than drawing
// through the gap.
type series struct {
	name    string
	extract func(*grip.Sample) float64
}

var forceSeries = []series{
	{"grip", func(s *grip.Sample) float64 { return s.GripForce }},
	{"load", func(s *grip.Sample) float64 { return s.LoadForceMagnitude }},
	{"normal 1", func(s *grip.Sample) float64 { return s.NormalForce[0] }},
	{"normal 2", func(s *grip.Sample) float64 { return s.NormalForce[1] }},
}

var positionSeries = []series{
	{"x", func(s *grip.Sample) float64 { return s.Position[vecmath.X] }},
	{"y", func(s *grip.Sample) float64 { return s.Position[vecmath.Y] }},
	{"z", func(s *grip.Sample) float64 { return s.Position[vecmath.Z] }},
}

// RenderForceStrip writes a PNG strip chart of the force traces.
func RenderForceStrip(w io.Writer, samples []grip.Sample) error {
	return renderStrip(w, samples, "Grip and load forces", "force (N)", forceSeries)
}

// RenderPositionStrip writes a PNG strip chart of the manipulandum
// position components.
func RenderPositionStrip(w io.Writer, samples []grip.Sample) error {
	return renderStrip(w, samples, "Manipulandum position", "position (mm)", positionSeries)
}

func renderStrip(w io.Writer, samples []grip.Sample, title, yLabel string, traces []series) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	var all []float64
	for si, tr := range traces {
		segments := traceSegments(samples, tr.extract)
		first := true
		for _, seg := range segments {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return fmt.Errorf("build %s trace: %w", tr.name, err)
			}
			line.Width = vg.Points(1)
			line.Color = seriesColors[si%len(seriesColors)]
			p.Add(line)
			if first {
				p.Legend.Add(tr.name, line)
				first = false
			}
			for _, xy := range seg {
				all = append(all, xy.Y)
			}
		}
	}

	if lo, hi, ok := robustRange(all); ok {
		p.Y.Min = lo
		p.Y.Max = hi
	}

	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render strip chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write strip chart: %w", err)
	}
	return nil
}

// traceSegments splits one quantity into contiguous runs of valid points,
// so stream gaps show as breaks in the line.
func traceSegments(samples []grip.Sample, extract func(*grip.Sample) float64) []plotter.XYs {
	var segments []plotter.XYs
	var current plotter.XYs
	for i := range samples {
		s := &samples[i]
		v := extract(s)
		if grip.IsMissing(s.Time) || grip.IsMissing(v) {
			if len(current) > 0 {
				segments = append(segments, current)
				current = nil
			}
			continue
		}
		current = append(current, plotter.XY{X: s.Time, Y: v})
	}
	if len(current) > 0 {
		segments = append(segments, current)
	}
	return segments
}

// robustRange picks a display range from the 2nd and 98th percentiles with
// padding, so a handful of spikes cannot flatten the rest of the chart.
func robustRange(values []float64) (lo, hi float64, ok bool) {
	if len(values) < 2 {
		return 0, 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	lo = stat.Quantile(0.02, stat.Empirical, sorted, nil)
	hi = stat.Quantile(0.98, stat.Empirical, sorted, nil)
	if hi <= lo {
		return 0, 0, false
	}
	pad := (hi - lo) * 0.1
	return lo - pad, hi + pad, true
}
