package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultConfidenceLevel = 0.95
	DefaultOutputDir       = "report"
	DefaultHTTPPort        = 8080
	DefaultStorePath       = "metapool.db"
	DefaultDebounce        = 2 * time.Second
)

// defaultPlotFormats are the image formats rendered when the config
// does not name any.
var defaultPlotFormats = []string{"png", "svg"}

// Config is the top-level configuration for both the CLI and the server.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Server   ServerConfig   `yaml:"server"`
}

// AnalysisConfig holds the settings of one analysis pipeline.
type AnalysisConfig struct {
	// Dataset is the path of the study CSV table.
	Dataset string `yaml:"dataset"`

	// Label names the analysis in reports and stored runs. Defaults to
	// the dataset file name.
	Label string `yaml:"label"`

	// ConfidenceLevel is the two-sided confidence level for summary
	// intervals, e.g. 0.95.
	ConfidenceLevel float64 `yaml:"confidence_level"`

	// OutputDir receives the rendered plots and the markdown report.
	OutputDir string `yaml:"output_dir"`

	// PlotFormats lists the image formats to render: png | svg | pdf.
	PlotFormats []string `yaml:"plot_formats"`
}

// ServerConfig holds the report server's settings.
type ServerConfig struct {
	// HTTPPort is the port the JSON API, WebSocket stream, and metrics
	// endpoint listen on.
	HTTPPort int `yaml:"http_port"`

	// StorePath is the SQLite database file holding run snapshots.
	StorePath string `yaml:"store_path"`

	// Watch re-runs the analysis whenever the dataset file changes.
	Watch bool `yaml:"watch"`

	// Debounce is how long to wait after the last dataset write before
	// re-running, so multi-chunk saves trigger a single run.
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			ConfidenceLevel: DefaultConfidenceLevel,
			OutputDir:       DefaultOutputDir,
			PlotFormats:     defaultPlotFormats,
		},
		Server: ServerConfig{
			HTTPPort:  DefaultHTTPPort,
			StorePath: DefaultStorePath,
			Debounce:  DefaultDebounce,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Analysis.Dataset == "" {
		return fmt.Errorf("analysis.dataset is required")
	}
	if cfg.Analysis.ConfidenceLevel <= 0 || cfg.Analysis.ConfidenceLevel >= 1 {
		return fmt.Errorf("analysis.confidence_level %g must be inside (0,1)", cfg.Analysis.ConfidenceLevel)
	}
	if len(cfg.Analysis.PlotFormats) == 0 {
		return fmt.Errorf("analysis.plot_formats must name at least one format")
	}
	for _, f := range cfg.Analysis.PlotFormats {
		switch f {
		case "png", "svg", "pdf":
		default:
			return fmt.Errorf("analysis.plot_formats: unknown format %q", f)
		}
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", cfg.Server.HTTPPort)
	}
	if cfg.Server.StorePath == "" {
		return fmt.Errorf("server.store_path is required")
	}
	if cfg.Server.Debounce <= 0 {
		return fmt.Errorf("server.debounce must be positive")
	}
	return nil
}
