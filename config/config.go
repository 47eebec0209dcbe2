// Package config loads settings for both binaries: defaults, then an
// optional YAML file, then a .env file, then the environment.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/ezoic/tasador/dataset"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/pkg/log"
	"github.com/ezoic/tasador/trainer"
	"github.com/ezoic/tasador/valuation"
)

// Config is the full configuration tree.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Train  TrainConfig  `yaml:"train"`
}

// LogConfig configures pkg/log.
type LogConfig struct {
	Level  string `yaml:"level" env:"TASADOR_LOG_LEVEL"`
	Format string `yaml:"format" env:"TASADOR_LOG_FORMAT"`
	File   string `yaml:"file" env:"TASADOR_LOG_FILE"`
}

// ServerConfig configures the estimator web server.
type ServerConfig struct {
	Port         string        `yaml:"port" env:"TASADOR_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"TASADOR_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"TASADOR_WRITE_TIMEOUT"`
}

// ModelConfig locates the artifact and the optional menu CSV.
type ModelConfig struct {
	Path        string  `yaml:"path" env:"TASADOR_MODEL_PATH"`
	MenuCSV     string  `yaml:"menu_csv" env:"TASADOR_MENU_CSV"`
	ErrorMargin float64 `yaml:"error_margin" env:"TASADOR_ERROR_MARGIN"`
}

// TrainConfig configures the trainer.
type TrainConfig struct {
	Input         string        `yaml:"input" env:"TASADOR_TRAIN_INPUT"`
	Output        string        `yaml:"output" env:"TASADOR_TRAIN_OUTPUT"`
	Report        string        `yaml:"report" env:"TASADOR_TRAIN_REPORT"`
	Plot          string        `yaml:"plot" env:"TASADOR_TRAIN_PLOT"`
	TopModels     int           `yaml:"top_models" env:"TASADOR_TRAIN_TOP_MODELS"`
	ReferenceYear int           `yaml:"reference_year" env:"TASADOR_TRAIN_REFERENCE_YEAR"`
	TestRatio     float64       `yaml:"test_ratio" env:"TASADOR_TRAIN_TEST_RATIO"`
	Seed          uint64        `yaml:"seed" env:"TASADOR_TRAIN_SEED"`
	BaselineAlpha float64       `yaml:"baseline_alpha" env:"TASADOR_TRAIN_BASELINE_ALPHA"`
	Scaler        string        `yaml:"scaler" env:"TASADOR_TRAIN_SCALER"`
	C             float64       `yaml:"c" env:"TASADOR_TRAIN_C"`
	Epsilon       float64       `yaml:"epsilon" env:"TASADOR_TRAIN_EPSILON"`
	Gamma         string        `yaml:"gamma" env:"TASADOR_TRAIN_GAMMA"`
	Tol           float64       `yaml:"tol" env:"TASADOR_TRAIN_TOL"`
	CacheMB       float64       `yaml:"cache_mb" env:"TASADOR_TRAIN_CACHE_MB"`
	MaxIter       int           `yaml:"max_iter" env:"TASADOR_TRAIN_MAX_ITER"`
	Rules         dataset.Rules `yaml:"rules"`
}

// Default returns the built-in configuration.
func Default() *Config {
	t := trainer.DefaultOptions()
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Model: ModelConfig{
			Path:        t.Output,
			ErrorMargin: valuation.DefaultErrorMargin,
		},
		Train: TrainConfig{
			Output:        t.Output,
			TopModels:     t.TopModels,
			ReferenceYear: t.ReferenceYear,
			TestRatio:     t.TestRatio,
			Seed:          t.Seed,
			BaselineAlpha: t.BaselineAlpha,
			Scaler:        t.Scaler,
			C:             t.C,
			Epsilon:       t.Epsilon,
			Gamma:         t.Gamma,
			Tol:           t.Tol,
			CacheMB:       t.CacheMB,
			MaxIter:       t.MaxIter,
			Rules:         t.Rules,
		},
	}
}

// Load builds the configuration. path names an optional YAML file; when it
// is empty only defaults, .env and the environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	// a missing .env file is normal
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	return cfg, nil
}

// LogOptions converts the log section for log.Setup.
func (c LogConfig) LogOptions() log.Options {
	return log.Options{Level: c.Level, Format: c.Format, File: c.File}
}

// TrainerOptions converts the train section for trainer.Train.
func (c TrainConfig) TrainerOptions() trainer.Options {
	return trainer.Options{
		Input:         c.Input,
		Output:        c.Output,
		Report:        c.Report,
		Plot:          c.Plot,
		TopModels:     c.TopModels,
		ReferenceYear: c.ReferenceYear,
		TestRatio:     c.TestRatio,
		Seed:          c.Seed,
		Rules:         c.Rules,
		BaselineAlpha: c.BaselineAlpha,
		Scaler:        c.Scaler,
		C:             c.C,
		Epsilon:       c.Epsilon,
		Gamma:         c.Gamma,
		Tol:           c.Tol,
		CacheMB:       c.CacheMB,
		MaxIter:       c.MaxIter,
	}
}
