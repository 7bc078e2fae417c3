// Package config loads the biotica YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alexshd/biotica"
	"github.com/alexshd/biotica/internal/logging"
)

// Environment variables applied on top of the file.
const (
	EnvDB           = "BIOTICA_DB"
	EnvAddr         = "BIOTICA_ADDR"
	EnvKafkaBrokers = "BIOTICA_KAFKA_BROKERS"
)

// Config is the root of the configuration file.
type Config struct {
	// Weights by parameter name. Empty means the published default table.
	Weights    map[string]float64 `yaml:"weights,omitempty"`
	Thresholds biotica.Thresholds `yaml:"thresholds"`
	Detector   DetectorConfig     `yaml:"detector"`
	Store      StoreConfig        `yaml:"store"`
	Server     ServerConfig       `yaml:"server"`
	Alerts     AlertConfig        `yaml:"alerts"`
	Log        logging.Options    `yaml:"log"`
}

// DetectorConfig extends the detector settings with the trend test name and
// the history length kept per plot by the server.
type DetectorConfig struct {
	biotica.DetectorConfig `yaml:",inline"`
	TrendTest              string `yaml:"trend_test"`
	HistorySize            int    `yaml:"history_size"`
}

// StoreConfig locates the result archive.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Workers      int           `yaml:"workers"`
}

// AlertConfig configures the Kafka alert publisher.
type AlertConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	// MinAction is the least severe governor action that is published.
	MinAction string `yaml:"min_action"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Thresholds: biotica.DefaultThresholds(),
		Detector: DetectorConfig{
			DetectorConfig: biotica.DefaultDetectorConfig(),
			TrendTest:      "kendall",
			HistorySize:    biotica.DefaultHistorySize,
		},
		Store: StoreConfig{Path: "biotica.db"},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Alerts: AlertConfig{
			Topic:     "biotica.alerts",
			MinAction: string(biotica.ActionIntervene),
		},
		Log: logging.Options{Level: "info", Format: logging.FormatText},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path yields the defaults with overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDB); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Alerts.Brokers = brokers
		c.Alerts.Enabled = len(brokers) > 0
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.WeightTable(); err != nil {
		errs = append(errs, err)
	}
	t := c.Thresholds
	if !(t.Pristine > t.Functional && t.Functional > t.Impaired && t.Impaired > t.Degraded) {
		errs = append(errs, fmt.Errorf("thresholds must be strictly decreasing, got %+v", t))
	}
	if err := c.Detector.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := biotica.LookupTrendTester(c.Detector.TrendTest); err != nil {
		errs = append(errs, err)
	}
	if c.Alerts.Enabled {
		if len(c.Alerts.Brokers) == 0 {
			errs = append(errs, errors.New("alerts enabled without brokers"))
		}
		if strings.TrimSpace(c.Alerts.Topic) == "" {
			errs = append(errs, errors.New("alerts enabled without a topic"))
		}
	}
	if _, err := ParseAction(c.Alerts.MinAction); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// WeightTable converts the weights section.
func (c Config) WeightTable() (biotica.WeightTable, error) {
	if len(c.Weights) == 0 {
		return biotica.DefaultWeights(), nil
	}
	m := make(map[biotica.Parameter]float64, len(c.Weights))
	for name, w := range c.Weights {
		p, err := biotica.ParseParameter(name)
		if err != nil {
			return biotica.WeightTable{}, fmt.Errorf("weights: %w", err)
		}
		m[p] = w
	}
	return biotica.NewWeightTable(m)
}

// Engine builds an engine from the weights and thresholds sections.
func (c Config) Engine(opts ...biotica.EngineOption) (*biotica.Engine, error) {
	w, err := c.WeightTable()
	if err != nil {
		return nil, err
	}
	base := []biotica.EngineOption{biotica.WithWeights(w), biotica.WithThresholds(c.Thresholds)}
	return biotica.NewEngine(append(base, opts...)...), nil
}

// NewDetector builds a detector with the configured trend test.
func (c Config) NewDetector(opts ...biotica.DetectorOption) (*biotica.Detector, error) {
	tester, err := biotica.LookupTrendTester(c.Detector.TrendTest)
	if err != nil {
		return nil, err
	}
	return biotica.NewDetector(c.Detector.DetectorConfig, append([]biotica.DetectorOption{biotica.WithTrendTester(tester)}, opts...)...)
}

// ParseAction accepts a governor action name in any letter case.
func ParseAction(s string) (biotica.ActionType, error) {
	a := biotica.ActionType(strings.ToUpper(strings.TrimSpace(s)))
	if a.Rank() < 0 {
		return "", fmt.Errorf("unknown governor action %q", s)
	}
	return a, nil
}
