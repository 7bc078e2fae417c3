package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexshd/biotica"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "biotica.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Detector.Window != 24 {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
weights:
  vca: 0.5
  MDI: 0.5
thresholds:
  pristine: 0.9
  functional: 0.8
  impaired: 0.65
  degraded: 0.5
detector:
  window: 30
  lag: 2
  min_points: 60
  significance: 0.01
  detrend: false
  history_size: 120
server:
  addr: ":9090"
  read_timeout: 5s
  workers: 4
alerts:
  min_action: restore
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Detector.Window != 30 || cfg.Detector.Lag != 2 || cfg.Detector.Detrend {
		t.Errorf("Detector section not applied: %+v", cfg.Detector)
	}
	if cfg.Detector.TrendTest != "kendall" {
		t.Errorf("Unset keys should keep defaults, got trend test %q", cfg.Detector.TrendTest)
	}
	if cfg.Server.ReadTimeout != 5*time.Second || cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("Unexpected timeouts %v / %v", cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}
	if cfg.Thresholds.Impaired != 0.65 {
		t.Errorf("Expected impaired bound 0.65, got %g", cfg.Thresholds.Impaired)
	}

	w, err := cfg.WeightTable()
	if err != nil {
		t.Fatalf("WeightTable failed: %v", err)
	}
	if w.Len() != 2 || !w.Has(biotica.VCA) {
		t.Errorf("Expected VCA and MDI weights, got %v", w.Map())
	}

	e, err := cfg.Engine()
	if err != nil {
		t.Fatalf("Engine failed: %v", err)
	}
	r, err := e.Compute(biotica.Values(map[biotica.Parameter]float64{biotica.VCA: 0.7, biotica.MDI: 0.7}), true)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if r.Classification != biotica.Impaired {
		t.Errorf("Expected 0.70 to be IMPAIRED under the configured bounds, got %s", r.Classification)
	}

	d, err := cfg.NewDetector()
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	if d.Config().MinPoints != 60 {
		t.Errorf("Expected min points 60, got %d", d.Config().MinPoints)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv(EnvDB, "/tmp/other.db")
	t.Setenv(EnvAddr, "127.0.0.1:7000")
	t.Setenv(EnvKafkaBrokers, "k1:9092, k2:9092,")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Path != "/tmp/other.db" || cfg.Server.Addr != "127.0.0.1:7000" {
		t.Errorf("Environment not applied: %+v", cfg)
	}
	if !cfg.Alerts.Enabled || len(cfg.Alerts.Brokers) != 2 || cfg.Alerts.Brokers[1] != "k2:9092" {
		t.Errorf("Expected two brokers and alerts enabled, got %+v", cfg.Alerts)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"unknown weight", func(c *Config) { c.Weights = map[string]float64{"NDVI": 1} }, "unknown parameter"},
		{"negative weight", func(c *Config) { c.Weights = map[string]float64{"VCA": -1} }, "non-negative"},
		{"thresholds order", func(c *Config) { c.Thresholds.Impaired = 0.8 }, "strictly decreasing"},
		{"detector window", func(c *Config) { c.Detector.Window = 1 }, "window"},
		{"trend test", func(c *Config) { c.Detector.TrendTest = "spearman" }, "unknown trend test"},
		{"alerts without brokers", func(c *Config) { c.Alerts.Enabled = true }, "without brokers"},
		{"min action", func(c *Config) { c.Alerts.MinAction = "panic" }, "unknown governor action"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Expected error for a missing file")
	}
	if _, err := Load(writeConfig(t, "detector: [1, 2")); err == nil {
		t.Errorf("Expected error for malformed YAML")
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" intervene ")
	if err != nil || a != biotica.ActionIntervene {
		t.Errorf("Expected INTERVENE, got %q %v", a, err)
	}
	if _, err := ParseAction(""); err == nil {
		t.Errorf("Expected error for an empty action")
	}
}
