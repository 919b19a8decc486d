package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/metapool/metapool/internal/config"
	"github.com/metapool/metapool/internal/dataset"
	"github.com/metapool/metapool/internal/effectsize"
	"github.com/metapool/metapool/internal/plot"
	"github.com/metapool/metapool/internal/pooling"
	"github.com/metapool/metapool/internal/report"
	"github.com/metapool/metapool/pkg/types"
)

// Pipeline executes analysis runs for one configured dataset.
type Pipeline struct {
	cfg config.AnalysisConfig

	now   func() time.Time // injectable for deterministic tests
	newID func() string
}

// New returns a Pipeline for the given analysis configuration.
func New(cfg config.AnalysisConfig) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Run performs one full analysis pass and returns the immutable run
// snapshot. Any failure — unreadable table, malformed row, degenerate
// statistics — aborts the run; no partial artifacts are reported.
func (p *Pipeline) Run() (types.Run, error) {
	studies, err := dataset.Load(p.cfg.Dataset)
	if err != nil {
		return types.Run{}, fmt.Errorf("pipeline: %w", err)
	}

	effects, err := effectsize.ComputeAll(studies)
	if err != nil {
		return types.Run{}, fmt.Errorf("pipeline: %w", err)
	}

	sum, err := pooling.FixedEffect(effects, p.cfg.ConfidenceLevel)
	if err != nil {
		return types.Run{}, fmt.Errorf("pipeline: %w", err)
	}

	run := types.Run{
		ID:        p.newID(),
		Label:     p.label(),
		CreatedAt: p.now().UTC(),
		Dataset:   p.cfg.Dataset,
		Effects:   effects,
		Summary:   sum,
	}

	if err := p.writeArtifacts(run); err != nil {
		return types.Run{}, err
	}

	slog.Info("pipeline: run complete",
		"run", run.ID,
		"k", sum.K,
		"effect", sum.Effect,
		"q_p", sum.P,
		"degenerate", sum.Degenerate,
	)
	return run, nil
}

// writeArtifacts renders the plots and the markdown report into the
// output directory.
func (p *Pipeline) writeArtifacts(run types.Run) error {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("pipeline: output dir: %w", err)
	}

	written, err := plot.WriteAll(p.cfg.OutputDir, p.cfg.PlotFormats, run.Effects, run.Summary)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	reportPath, err := report.WriteFile(p.cfg.OutputDir, run)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	slog.Debug("pipeline: artifacts written",
		"plots", len(written), "report", reportPath)
	return nil
}

// label falls back to the dataset file name when no label is configured.
func (p *Pipeline) label() string {
	if p.cfg.Label != "" {
		return p.cfg.Label
	}
	return filepath.Base(p.cfg.Dataset)
}

// Watch runs once immediately, then re-runs after every settled change
// to the dataset file, handing each new snapshot to onRun. A failed
// re-run is logged and the previous snapshot remains the latest — the
// caller never sees a partial run. Watch blocks until ctx is cancelled.
func (p *Pipeline) Watch(ctx context.Context, debounce time.Duration, onRun func(types.Run)) error {
	run, err := p.Run()
	if err != nil {
		return err
	}
	onRun(run)

	return config.WatchFile(ctx, p.cfg.Dataset, debounce, func() {
		run, err := p.Run()
		if err != nil {
			slog.Error("pipeline: re-run failed — keeping previous snapshot",
				"dataset", p.cfg.Dataset, "err", err)
			return
		}
		onRun(run)
	})
}
