package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/metapool/metapool/internal/config"
	"github.com/metapool/metapool/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to config file; flags below override its analysis section")
	dataset := flag.String("dataset", "", "path to the study CSV table")
	label := flag.String("label", "", "analysis label used in the report and stored runs")
	level := flag.Float64("level", 0, "two-sided confidence level, e.g. 0.95")
	outDir := flag.String("out", "", "output directory for plots and the markdown report")
	formats := flag.String("formats", "", "comma-separated plot formats: png,svg,pdf")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath, *dataset, *label, *level, *outDir, *formats)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("metapool starting",
		"dataset", cfg.Dataset,
		"confidence_level", cfg.ConfidenceLevel,
		"output_dir", cfg.OutputDir,
	)

	run, err := pipeline.New(*cfg).Run()
	if err != nil {
		slog.Error("analysis failed", "err", err)
		os.Exit(1)
	}

	s := run.Summary
	slog.Info("analysis complete",
		"run_id", run.ID,
		"studies", s.K,
		"effect", s.Effect,
		"ci_low", s.CILow,
		"ci_high", s.CIHigh,
		"q", s.Q,
		"p", s.P,
	)
	fmt.Printf("pooled g = %.3f  [%.3f, %.3f]  (k=%d)\n", s.Effect, s.CILow, s.CIHigh, s.K)
}

// loadConfig builds the analysis settings from an optional config file
// plus command-line overrides. Without a config file the dataset flag
// is required and everything else falls back to defaults.
func loadConfig(path, dataset, label string, level float64, outDir, formats string) (*config.AnalysisConfig, error) {
	var cfg config.AnalysisConfig
	if path != "" {
		full, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = full.Analysis
	} else {
		cfg = config.AnalysisConfig{
			ConfidenceLevel: config.DefaultConfidenceLevel,
			OutputDir:       config.DefaultOutputDir,
			PlotFormats:     []string{"png", "svg"},
		}
	}

	if dataset != "" {
		cfg.Dataset = dataset
	}
	if label != "" {
		cfg.Label = label
	}
	if level != 0 {
		cfg.ConfidenceLevel = level
	}
	if outDir != "" {
		cfg.OutputDir = outDir
	}
	if formats != "" {
		cfg.PlotFormats = strings.Split(formats, ",")
	}

	if cfg.Dataset == "" {
		return nil, fmt.Errorf("no dataset: pass -dataset or set analysis.dataset in the config file")
	}
	return &cfg, nil
}
