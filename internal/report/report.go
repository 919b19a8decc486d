package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/metapool/metapool/internal/effectsize"
	"github.com/metapool/metapool/pkg/types"
)

// homogeneityAlpha is the conventional threshold the heterogeneity
// paragraph is worded around. Reporting convention only.
const homogeneityAlpha = 0.05

// Write renders the markdown report for run to w.
func Write(w io.Writer, run types.Run) error {
	if len(run.Effects) == 0 {
		return fmt.Errorf("report: run has no effects: %w", types.ErrInvalidInput)
	}

	var b strings.Builder

	title := run.Label
	if title == "" {
		title = "Fixed-effect meta-analysis"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Dataset: `%s` — %d studies, analyzed %s.\n\n",
		run.Dataset, len(run.Effects), run.CreatedAt.Format("2006-01-02 15:04 MST"))

	b.WriteString("## Effect sizes\n\n")
	b.WriteString("| Study | n (tx) | n (cont) | m (tx) | m (cont) | g | Var | Weight % | Magnitude |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")

	var sumW float64
	for _, e := range run.Effects {
		sumW += e.Weight()
	}
	for _, e := range run.Effects {
		s := e.Study
		fmt.Fprintf(&b, "| %s | %d | %d | %.2f | %.2f | %.3f | %.4f | %.1f | %s |\n",
			s.Label(), s.NTx, s.NCont, s.MTx, s.MCont,
			e.G, e.Variance, 100*e.Weight()/sumW, effectsize.Magnitude(e.G))
	}
	b.WriteString("\n")

	writeSummary(&b, run.Summary)

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

func writeSummary(b *strings.Builder, sum types.Summary) {
	b.WriteString("## Pooled result\n\n")
	fmt.Fprintf(b, "Summary effect (Hedges' g): **%.3f** (SE %.3f), %g%% CI [%.3f, %.3f], k = %d.\n\n",
		sum.Effect, sum.SE, sum.Level*100, sum.CILow, sum.CIHigh, sum.K)
	fmt.Fprintf(b, "The pooled effect is of %s magnitude by the conventional bands.\n\n",
		effectsize.Magnitude(sum.Effect))

	b.WriteString("## Heterogeneity\n\n")
	if sum.Degenerate {
		b.WriteString("Only one study was pooled; the homogeneity test has zero degrees " +
			"of freedom and is not reported.\n")
		return
	}

	fmt.Fprintf(b, "Q = %.3f on %d degrees of freedom, p = %.3f. ", sum.Q, sum.DF, sum.P)
	if sum.P > homogeneityAlpha {
		b.WriteString("The test gives no evidence against homogeneity, consistent with " +
			"the fixed-effect assumption that all studies estimate one common true effect.\n")
	} else {
		b.WriteString("The test suggests more between-study variability than sampling " +
			"error alone predicts; a fixed-effect summary should be interpreted with " +
			"caution for this set.\n")
	}
}

// WriteFile renders the report into dir as report.md and returns the
// written path.
func WriteFile(dir string, run types.Run) (string, error) {
	path := filepath.Join(dir, "report.md")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create: %w", err)
	}
	defer f.Close()

	if err := Write(f, run); err != nil {
		return "", err
	}
	return path, nil
}
