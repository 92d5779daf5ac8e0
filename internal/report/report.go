// Package report renders sweep results for human inspection: an
// interactive HTML scatter of the candidate families and refined
// roots, PNG heatmaps of the residual fields, and summary statistics.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lensing/internal/lensing"
)

// WriteHTML renders the candidate families and refined roots in
// (rc, log|d|) space as an interactive scatter chart.
func WriteHTML(path string, res *lensing.SweepResult[float64]) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Image sweep",
			Subtitle: fmt.Sprintf("θ-candidates=%d φ-candidates=%d roots=%d",
				len(res.ThetaRoots), len(res.PhiRoots), len(res.Roots)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "rc", Type: "value", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "log|d|", Type: "value"}),
	)

	scatter.AddSeries("θ candidates", scatterData(res.ThetaRoots),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	scatter.AddSeries("φ candidates", scatterData(res.PhiRoots),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	roots := make([][2]float64, len(res.Roots))
	for i, r := range res.Roots {
		roots[i] = [2]float64{r.Rc, r.LogAbsD}
	}
	scatter.AddSeries("refined roots", scatterData(roots),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()
	if err := scatter.Render(f); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func scatterData(pts [][2]float64) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(pts))
	for _, p := range pts {
		data = append(data, opts.ScatterData{Value: []interface{}{p[0], p[1]}})
	}
	return data
}

// WriteDeltaPlots saves heatmaps of the Δθ and Δφ grids as
// delta_theta.png and delta_phi.png under dir. NaN cells (invalid
// rays) are left blank.
func WriteDeltaPlots(dir string, res *lensing.SweepResult[float64], rcList, lgdList []float64) error {
	plots := []struct {
		name  string
		title string
		grid  *lensing.Grid[float64]
	}{
		{"delta_theta.png", "Δθ = θ_f − θ_o", res.DeltaTheta},
		{"delta_phi.png", "Δφ = sin((φ_f − φ_o)/2)", res.DeltaPhi},
	}
	for _, pl := range plots {
		if err := writeHeatmap(filepath.Join(dir, pl.name), pl.title, pl.grid, rcList, lgdList); err != nil {
			return err
		}
	}
	return nil
}

func writeHeatmap(path, title string, g *lensing.Grid[float64], rcList, lgdList []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "rc"
	p.Y.Label.Text = "log|d|"

	pal := moreland.SmoothBlueRed().Palette(255)
	h := plotter.NewHeatMap(&deltaGrid{g: g, xs: rcList, ys: lgdList}, pal)

	// Symmetric colour range about zero so the sign boundary reads as
	// the white midline.
	maxAbs := 0.0
	for _, v := range g.Data {
		if !math.IsNaN(v) && math.Abs(v) > maxAbs {
			maxAbs = math.Abs(v)
		}
	}
	if maxAbs == 0 {
		maxAbs = 1
	}
	h.Min, h.Max = -maxAbs, maxAbs

	p.Add(h)
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save heatmap %s: %w", path, err)
	}
	return nil
}

// deltaGrid adapts a sweep grid to plotter.GridXYZ. Grid rows map to
// the y axis (log|d|), columns to x (rc).
type deltaGrid struct {
	g  *lensing.Grid[float64]
	xs []float64
	ys []float64
}

func (d *deltaGrid) Dims() (c, r int)   { return d.g.Cols, d.g.Rows }
func (d *deltaGrid) Z(c, r int) float64 { return d.g.At(r, c) }
func (d *deltaGrid) X(c int) float64    { return d.xs[c] }
func (d *deltaGrid) Y(r int) float64    { return d.ys[r] }

var _ plotter.GridXYZ = (*deltaGrid)(nil)

// Summary condenses a sweep's residual fields.
type Summary struct {
	ValidFraction  float64 // share of grid cells with a Normal trace
	MeanAbsDTheta  float64
	StdAbsDTheta   float64
	ThetaCandCount int
	PhiCandCount   int
	RootCount      int
}

// Summarize computes summary statistics over the finite samples of a
// sweep result.
func Summarize(res *lensing.SweepResult[float64]) Summary {
	var absDT []float64
	valid := 0
	for _, v := range res.DeltaTheta.Data {
		if math.IsNaN(v) {
			continue
		}
		valid++
		absDT = append(absDT, math.Abs(v))
	}
	s := Summary{
		ThetaCandCount: len(res.ThetaRoots),
		PhiCandCount:   len(res.PhiRoots),
		RootCount:      len(res.Roots),
	}
	if n := len(res.DeltaTheta.Data); n > 0 {
		s.ValidFraction = float64(valid) / float64(n)
	}
	if len(absDT) > 0 {
		s.MeanAbsDTheta = stat.Mean(absDT, nil)
		s.StdAbsDTheta = math.Sqrt(stat.Variance(absDT, nil))
	}
	return s
}
