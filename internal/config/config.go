// Package config defines service configuration and its loading.
//
// Values are layered: defaults from New, then an optional YAML file named by
// LADDER_CONFIG, then LADDER_* environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/ladder/internal/domain/analytics"
	"github.com/okian/ladder/internal/domain/compression"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/rating"
	"github.com/okian/ladder/internal/domain/rivalry"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataDir holds the snapshot store.
	DataDir string `koanf:"data_dir"`
	// OutputDir receives the published CSV artifacts.
	OutputDir string `koanf:"output_dir"`
	// StoreDriver is csv or sqlite.
	StoreDriver string `koanf:"store_driver"`
	// SQLitePath overrides the database location; defaults to DataDir/ladder.db.
	SQLitePath string `koanf:"sqlite_path"`

	// Dataset is the lineage replayed when none is named: full or recent.
	Dataset string `koanf:"dataset"`
	// RecentSince is the first day (YYYY-MM-DD) of the recent dataset.
	RecentSince string `koanf:"recent_since"`

	// RatingModel is pairwise or daily.
	RatingModel    string  `koanf:"rating_model"`
	RatioWeighting bool    `koanf:"ratio_weighting"`
	LogScaling     bool    `koanf:"log_scaling"`
	LogScaleFactor float64 `koanf:"log_scale_factor"`

	// CompressionMode is hybrid or soft.
	CompressionMode string `koanf:"compression_mode"`

	ActivityWindowDays int `koanf:"activity_window_days"`
	MinGamesForRanking int `koanf:"min_games_for_ranking"`

	RivalryMinEncounters int `koanf:"rivalry_min_encounters"`
	RivalryTopN          int `koanf:"rivalry_top_n"`

	// IngestRatePerSec and IngestBurst throttle POST /snapshots.
	IngestRatePerSec float64 `koanf:"ingest_rate_per_sec"`
	IngestBurst      int     `koanf:"ingest_burst"`
}

// New creates a Config holding the defaults.
func New() *Config {
	p := rating.DefaultParams()
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		DataDir:              "data",
		OutputDir:            "out",
		StoreDriver:          "csv",
		Dataset:              string(model.DatasetFull),
		RatingModel:          string(rating.KindPairwise),
		RatioWeighting:       p.RatioWeighting,
		LogScaling:           p.LogScaling,
		LogScaleFactor:       p.LogScaleFactor,
		CompressionMode:      string(compression.ModeHybrid),
		ActivityWindowDays:   analytics.DefaultActivityWindowDays,
		MinGamesForRanking:   analytics.DefaultMinGames,
		RivalryMinEncounters: rivalry.DefaultMinEncounters,
		RivalryTopN:          rivalry.DefaultTopN,
		IngestRatePerSec:     1,
		IngestBurst:          5,
	}
}

// Validate reports every invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []string
	if c.Addr == "" {
		problems = append(problems, "addr must not be empty")
	}
	if c.DataDir == "" {
		problems = append(problems, "data_dir must not be empty")
	}
	if c.OutputDir == "" {
		problems = append(problems, "output_dir must not be empty")
	}
	switch strings.ToLower(c.StoreDriver) {
	case "csv", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("store_driver %q must be csv or sqlite", c.StoreDriver))
	}
	if _, err := model.ParseDataset(c.Dataset); err != nil {
		problems = append(problems, err.Error())
	}
	if c.RecentSince != "" {
		if _, err := model.ParseDay(c.RecentSince); err != nil {
			problems = append(problems, fmt.Sprintf("recent_since %q is not YYYY-MM-DD", c.RecentSince))
		}
	}
	if _, err := rating.NewModel(rating.Kind(c.RatingModel)); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogScaleFactor <= 0 {
		problems = append(problems, "log_scale_factor must be positive")
	}
	if _, err := compression.ParseMode(c.CompressionMode); err != nil {
		problems = append(problems, err.Error())
	}
	if c.ActivityWindowDays < 0 || c.MinGamesForRanking < 0 {
		problems = append(problems, "activity_window_days and min_games_for_ranking must not be negative")
	}
	if c.RivalryMinEncounters < 1 || c.RivalryTopN < 1 {
		problems = append(problems, "rivalry_min_encounters and rivalry_top_n must be at least 1")
	}
	if c.IngestRatePerSec <= 0 || c.IngestBurst < 1 {
		problems = append(problems, "ingest_rate_per_sec must be positive and ingest_burst at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// StorePath returns the file backing the configured snapshot store.
func (c *Config) StorePath() string {
	if strings.EqualFold(c.StoreDriver, "sqlite") {
		if c.SQLitePath != "" {
			return c.SQLitePath
		}
		return filepath.Join(c.DataDir, "ladder.db")
	}
	return filepath.Join(c.DataDir, "snapshots.csv")
}

// RatingParams returns engine tuning with the configured switches applied.
func (c *Config) RatingParams() rating.Params {
	p := rating.DefaultParams()
	p.RatioWeighting = c.RatioWeighting
	p.LogScaling = c.LogScaling
	p.LogScaleFactor = c.LogScaleFactor
	return p
}

// Gate returns the activity gate.
func (c *Config) Gate() analytics.Gate {
	return analytics.Gate{WindowDays: c.ActivityWindowDays, MinGames: c.MinGamesForRanking}
}

// Cutoff returns the first day of the recent dataset, if configured.
func (c *Config) Cutoff() (time.Time, bool) {
	if c.RecentSince == "" {
		return time.Time{}, false
	}
	d, err := model.ParseDay(c.RecentSince)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
