package web

import (
	"fmt"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/sweeney/solar-tracker/internal/status"
)

const (
	graphWidth  = 600
	graphHeight = 240
	graphMargin = 30
)

// renderGraph draws the filtered east, west and brightness resistances over
// the history window as a PNG. Resistance is plotted on a log scale with
// bright (low ohms) at the top. Periods with the motor running are shaded.
func renderGraph(w io.Writer, history []status.Sample) error {
	dc := gg.NewContext(graphWidth, graphHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	plotW := float64(graphWidth - 2*graphMargin)
	plotH := float64(graphHeight - 2*graphMargin)

	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(1)
	dc.DrawRectangle(graphMargin, graphMargin, plotW, plotH)
	dc.Stroke()

	if len(history) < 2 {
		dc.SetRGB(0.3, 0.3, 0.3)
		dc.DrawStringAnchored("collecting samples", graphWidth/2, graphHeight/2, 0.5, 0.5)
		return dc.EncodePNG(w)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range history {
		for _, v := range []float64{s.East, s.West, s.Brightness} {
			lv := math.Log10(math.Max(v, 1))
			lo = math.Min(lo, lv)
			hi = math.Max(hi, lv)
		}
	}
	if hi-lo < 0.1 {
		hi, lo = hi+0.05, lo-0.05
	}

	t0 := history[0].At
	span := history[len(history)-1].At.Sub(t0).Seconds()
	if span <= 0 {
		span = 1
	}
	x := func(s status.Sample) float64 {
		return graphMargin + plotW*s.At.Sub(t0).Seconds()/span
	}
	y := func(v float64) float64 {
		lv := math.Log10(math.Max(v, 1))
		return graphMargin + plotH*(lv-lo)/(hi-lo)
	}

	dc.SetRGBA(1, 0.8, 0, 0.25)
	for i := 1; i < len(history); i++ {
		if history[i].Moving {
			x0, x1 := x(history[i-1]), x(history[i])
			dc.DrawRectangle(x0, graphMargin, x1-x0, plotH)
			dc.Fill()
		}
	}

	series := []struct {
		r, g, b float64
		value   func(status.Sample) float64
	}{
		{0.85, 0.3, 0.1, func(s status.Sample) float64 { return s.East }},
		{0.1, 0.35, 0.85, func(s status.Sample) float64 { return s.West }},
		{0.2, 0.2, 0.2, func(s status.Sample) float64 { return s.Brightness }},
	}
	dc.SetLineWidth(1.5)
	for _, sr := range series {
		dc.SetRGB(sr.r, sr.g, sr.b)
		dc.MoveTo(x(history[0]), y(sr.value(history[0])))
		for _, s := range history[1:] {
			dc.LineTo(x(s), y(sr.value(s)))
		}
		dc.Stroke()
	}

	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawString(fmt.Sprintf("%.0f ohm", math.Pow(10, lo)), 2, graphMargin-8)
	dc.DrawString(fmt.Sprintf("%.0f ohm", math.Pow(10, hi)), 2, graphHeight-8)
	dc.DrawString("east", graphWidth-150, graphMargin-8)
	dc.DrawString("west", graphWidth-100, graphMargin-8)
	dc.DrawString("avg", graphWidth-50, graphMargin-8)
	return dc.EncodePNG(w)
}
