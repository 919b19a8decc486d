package plot

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/metapool/metapool/pkg/types"
)

// Box radius bounds in points; per-study boxes interpolate between the
// two by relative weight.
const (
	minBoxRadius = 2.0
	maxBoxRadius = 6.0
)

var (
	studyColor   = color.RGBA{R: 0x2b, G: 0x5c, B: 0x8a, A: 0xff}
	summaryColor = color.RGBA{R: 0x8a, G: 0x2b, B: 0x2b, A: 0xff}
	guideColor   = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
)

// Forest builds the forest plot for an ordered effect collection and
// its pooled summary. Studies are drawn top-to-bottom in input order
// with the summary diamond on the bottom row.
func Forest(effects []types.Effect, sum types.Summary) (*plot.Plot, error) {
	if len(effects) == 0 {
		return nil, fmt.Errorf("plot: forest: no effects to draw: %w", types.ErrInvalidInput)
	}

	p := plot.New()
	p.Title.Text = "Fixed-effect meta-analysis"
	p.X.Label.Text = "Hedges' g"

	k := len(effects)
	z := distuv.UnitNormal.Quantile(0.5 + sum.Level/2)

	// Row 0 holds the summary; studies stack above it in input order,
	// first study on top.
	names := make([]string, k+1)
	names[0] = "Summary"
	for i, e := range effects {
		names[k-i] = e.Study.Label()
	}
	p.NominalY(names...)

	// Zero-effect reference line.
	zero, err := plotter.NewLine(plotter.XYs{{X: 0, Y: -0.5}, {X: 0, Y: float64(k) + 0.5}})
	if err != nil {
		return nil, fmt.Errorf("plot: forest: reference line: %w", err)
	}
	zero.LineStyle.Color = guideColor
	zero.LineStyle.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	p.Add(zero)

	maxW := 0.0
	for _, e := range effects {
		if w := e.Weight(); w > maxW {
			maxW = w
		}
	}

	for i, e := range effects {
		row := float64(k - i)
		se := math.Sqrt(e.Variance)

		// CI whisker.
		whisker, err := plotter.NewLine(plotter.XYs{
			{X: e.G - z*se, Y: row},
			{X: e.G + z*se, Y: row},
		})
		if err != nil {
			return nil, fmt.Errorf("plot: forest: whisker %s: %w", e.Study.Author, err)
		}
		whisker.LineStyle.Color = studyColor
		p.Add(whisker)

		// Weight box: area tracks the inverse-variance weight, so the
		// radius scales with its square root.
		box, err := plotter.NewScatter(plotter.XYs{{X: e.G, Y: row}})
		if err != nil {
			return nil, fmt.Errorf("plot: forest: box %s: %w", e.Study.Author, err)
		}
		rel := math.Sqrt(e.Weight() / maxW)
		box.GlyphStyle = draw.GlyphStyle{
			Shape:  draw.BoxGlyph{},
			Radius: vg.Points(minBoxRadius + rel*(maxBoxRadius-minBoxRadius)),
			Color:  studyColor,
		}
		p.Add(box)
	}

	diamond, err := summaryDiamond(sum)
	if err != nil {
		return nil, err
	}
	p.Add(diamond)

	return p, nil
}

// summaryDiamond draws the pooled estimate on row 0: the horizontal
// vertices sit on the confidence bounds, the vertical ones mark the
// point estimate.
func summaryDiamond(sum types.Summary) (*plotter.Polygon, error) {
	const halfHeight = 0.25
	poly, err := plotter.NewPolygon(plotter.XYs{
		{X: sum.CILow, Y: 0},
		{X: sum.Effect, Y: halfHeight},
		{X: sum.CIHigh, Y: 0},
		{X: sum.Effect, Y: -halfHeight},
	})
	if err != nil {
		return nil, fmt.Errorf("plot: forest: summary diamond: %w", err)
	}
	poly.Color = summaryColor
	poly.LineStyle.Color = summaryColor
	return poly, nil
}
