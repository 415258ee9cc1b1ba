// Package charts renders sweep results as PNG convergence plots.
package charts

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"ndsphere/internal"
	"ndsphere/internal/errors"
	"ndsphere/internal/sweep"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	dpi = 300

	// logFloor bounds how far below a point its error bar may reach on a
	// log axis, as a fraction of the point's value.
	logFloor = 0.05
)

var logger = internal.NewDefaultLogger("Charts")

// Relative error range of a log panel with nothing positive to draw.
const (
	emptyLogMin = 1e-3
	emptyLogMax = 1
)

// errPoints pairs curve points with their vertical error bars.
type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

// Convergence writes a two-panel figure, log-log on the left and linear on
// the right, of relative error against sqrt(N) for every dimension.
func Convergence(res *sweep.Result, path string) error {
	left, err := newPanel(res.Series, true)
	if err != nil {
		return errors.Wrap(err, "failed to build log-log panel")
	}
	left.Title.Text = "Log-Log Scale"

	right, err := newPanel(res.Series, false)
	if err != nil {
		return errors.Wrap(err, "failed to build linear panel")
	}
	right.Title.Text = "Linear Scale"

	img := vgimg.NewWith(vgimg.UseWH(28*vg.Centimeter, 12*vg.Centimeter), vgimg.UseDPI(dpi))
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadTop:    vg.Centimeter,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
		PadX:      vg.Centimeter,
	}
	title := fmt.Sprintf("Relative Error vs sqrt(N) for Monte Carlo Hypersphere Volume (r=%v)", res.Plan.Radius)
	dc.FillText(draw.TextStyle{
		Color:   color.Black,
		Font:    left.Title.TextStyle.Font,
		Handler: left.Title.TextStyle.Handler,
		XAlign:  draw.XCenter,
		YAlign:  draw.YTop,
	}, vg.Point{X: dc.Center().X, Y: dc.Max.Y - vg.Millimeter*2}, title)

	canvases := plot.Align([][]*plot.Plot{{left, right}}, tiles, dc)
	left.Draw(canvases[0][0])
	right.Draw(canvases[0][1])

	return writePNG(img, path)
}

// Detail writes a log-log plot of one dimension's relative error curve.
func Detail(res *sweep.Result, dim int, path string) error {
	series, ok := res.SeriesFor(dim)
	if !ok {
		return errors.InvalidInput(fmt.Sprintf("sweep has no series for d=%d", dim))
	}

	p, err := newPanel([]sweep.Series{series}, true)
	if err != nil {
		return errors.Wrapf(err, "failed to build detail plot for d=%d", dim)
	}
	p.Title.Text = fmt.Sprintf("Monte Carlo Relative Error vs sqrt(N) (%dD only)", dim)
	if series.RelErrorFit.Points >= 2 {
		p.Title.Text += fmt.Sprintf("\nfitted slope %.3f", series.RelErrorFit.Slope)
	}

	if err := p.Save(14*vg.Centimeter, 12*vg.Centimeter, path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}

func newPanel(series []sweep.Series, logScale bool) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "sqrt(N)"
	p.Y.Label.Text = "Relative Error"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	if logScale {
		p.X.Scale = plot.LogScale{}
		p.Y.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	drawn := 0
	for i, s := range series {
		data := curve(s, logScale)
		if len(data.XYs) == 0 {
			p.Legend.Add(fmt.Sprintf("d=%d: no positive values", s.Dim))
			continue
		}

		line, points, err := plotter.NewLinePoints(data.XYs)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)

		bars, err := plotter.NewYErrorBars(data)
		if err != nil {
			return nil, err
		}
		bars.Color = plotutil.Color(i)
		bars.CapWidth = vg.Millimeter * 1.5

		p.Add(line, points, bars)
		p.Legend.Add(fmt.Sprintf("d=%d", s.Dim), line, points)
		drawn++
	}

	if logScale {
		if drawn == 0 {
			logger.Warn("no positive relative errors, drawing an empty log-log panel")
			p.X.Min, p.X.Max = sqrtNRange(series)
			p.Y.Min, p.Y.Max = emptyLogMin, emptyLogMax
		}
		widenDegenerate(&p.X)
		widenDegenerate(&p.Y)
	}
	return p, nil
}

// sqrtNRange spans the positive sqrt(N) values of every series, or [1, 10]
// when there are none.
func sqrtNRange(series []sweep.Series) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, pt := range s.Points {
			if pt.SqrtN > 0 && !math.IsInf(pt.SqrtN, 0) {
				lo = math.Min(lo, pt.SqrtN)
				hi = math.Max(hi, pt.SqrtN)
			}
		}
	}
	if lo > hi {
		return 1, 10
	}
	return lo, hi
}
