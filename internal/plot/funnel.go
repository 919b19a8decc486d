package plot

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/metapool/metapool/pkg/types"
)

// Funnel builds the funnel plot: per-study effect size against its
// standard error, with the Y axis inverted so the most precise studies
// sit at the top, and the pseudo-confidence funnel opening downward
// around the summary effect.
func Funnel(effects []types.Effect, sum types.Summary) (*plot.Plot, error) {
	if len(effects) == 0 {
		return nil, fmt.Errorf("plot: funnel: no effects to draw: %w", types.ErrInvalidInput)
	}

	p := plot.New()
	p.Title.Text = "Funnel plot"
	p.X.Label.Text = "Hedges' g"
	p.Y.Label.Text = "Standard error"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	maxSE := 0.0
	pts := make(plotter.XYs, len(effects))
	for i, e := range effects {
		se := math.Sqrt(e.Variance)
		pts[i] = plotter.XY{X: e.G, Y: se}
		if se > maxSE {
			maxSE = se
		}
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("plot: funnel: scatter: %w", err)
	}
	scatter.GlyphStyle = draw.GlyphStyle{
		Shape:  draw.CircleGlyph{},
		Radius: vg.Points(3),
		Color:  studyColor,
	}
	p.Add(scatter)

	// Center line at the summary effect and the pseudo-CI funnel around
	// it: at each standard error the bounds are θ̂ ± z·se.
	z := distuv.UnitNormal.Quantile(0.5 + sum.Level/2)
	top := maxSE * 1.1

	center, err := plotter.NewLine(plotter.XYs{{X: sum.Effect, Y: 0}, {X: sum.Effect, Y: top}})
	if err != nil {
		return nil, fmt.Errorf("plot: funnel: center line: %w", err)
	}
	center.LineStyle.Color = summaryColor
	p.Add(center)

	for _, sign := range []float64{-1, 1} {
		edge, err := plotter.NewLine(plotter.XYs{
			{X: sum.Effect, Y: 0},
			{X: sum.Effect + sign*z*top, Y: top},
		})
		if err != nil {
			return nil, fmt.Errorf("plot: funnel: funnel edge: %w", err)
		}
		edge.LineStyle.Color = guideColor
		edge.LineStyle.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		p.Add(edge)
	}

	p.Y.Min = 0
	p.Y.Max = top

	return p, nil
}

// Default figure dimensions.
const (
	figWidth  = 6 * vg.Inch
	figHeight = 4 * vg.Inch
)

// WriteAll renders the forest and funnel plots into dir, once per
// requested format, and returns the written file paths.
func WriteAll(dir string, formats []string, effects []types.Effect, sum types.Summary) ([]string, error) {
	forest, err := Forest(effects, sum)
	if err != nil {
		return nil, err
	}
	funnel, err := Funnel(effects, sum)
	if err != nil {
		return nil, err
	}

	figures := []struct {
		name string
		p    *plot.Plot
	}{
		{"forest", forest},
		{"funnel", funnel},
	}

	var written []string
	for _, format := range formats {
		for _, fig := range figures {
			path := filepath.Join(dir, fig.name+"."+format)
			if err := fig.p.Save(figWidth, figHeight, path); err != nil {
				return nil, fmt.Errorf("plot: save %s: %w", path, err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}
