package biotica

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func defaultDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(DefaultDetectorConfig())
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	return d
}

func TestDetector_InsufficientData(t *testing.T) {
	r := defaultDetector(t).Detect(ar1Series(6, 10), nil)

	if r.Status != StatusInsufficientData || !r.Degraded() {
		t.Fatalf("Expected insufficient_data, got %s", r.Status)
	}
	if r.WarningLevel != 0 || r.CriticalSlowingDown || r.Metrics != nil {
		t.Errorf("Degraded result must carry no evidence: %+v", r)
	}
	if msg, _ := r.Metadata["error"].(string); !strings.Contains(msg, "10 < 50") {
		t.Errorf("Expected explanatory note, got %q", msg)
	}
	t.Logf("✓ %v", r.Metadata["error"])
}

func TestDetector_DropsNaN(t *testing.T) {
	series := ar1Series(6, 60)
	for i := 0; i < 20; i++ {
		series[i*3] = math.NaN()
	}
	r := defaultDetector(t).Detect(series, nil)
	if r.Status != StatusInsufficientData {
		t.Errorf("Expected 40 valid points to be insufficient, got %s", r.Status)
	}
}

func TestDetector_Unavailable(t *testing.T) {
	d, err := NewDetector(DefaultDetectorConfig(), WithTrendTester(nil))
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	r := d.DetectNamed("NDVI", ar1Series(6, 200), nil)
	if r.Status != StatusUnavailable || r.WarningLevel != 0 {
		t.Errorf("Expected unavailable with level 0, got %s level %d", r.Status, r.WarningLevel)
	}
	if r.Metadata["variable_name"] != "NDVI" {
		t.Errorf("Expected variable name in metadata, got %v", r.Metadata["variable_name"])
	}
}

func TestDetector_ApproachingTransition(t *testing.T) {
	d := defaultDetector(t)

	for seed := uint64(1); seed <= 20; seed++ {
		r := d.Detect(ar1Series(seed, 200), nil)
		if r.Status != StatusOK {
			t.Fatalf("Seed %d: expected ok, got %s", seed, r.Status)
		}
		if r.WarningLevel < 1 {
			t.Errorf("Seed %d: expected a warning, got level %d (variance τ=%.3f)",
				seed, r.WarningLevel, r.VarianceTrend)
		}
		if r.VarianceTrend <= 0 {
			t.Errorf("Seed %d: expected rising variance, got τ=%.3f", seed, r.VarianceTrend)
		}
	}
}

func TestDetector_CriticalSlowingDown(t *testing.T) {
	r := defaultDetector(t).Detect(ar1Series(6, 200), nil)
	PrintTipping(t, r)

	AssertWarningLevel(t, r, 3, 3)
	if !r.CriticalSlowingDown {
		t.Errorf("Expected critical slowing down")
	}
	if r.EstimatedMonths != 12 {
		t.Errorf("Expected 12 months, got %d", r.EstimatedMonths)
	}
	AssertScoreNear(t, r.Confidence, 1, 1e-12)

	m := r.Metrics
	if m == nil {
		t.Fatal("Expected metrics")
	}
	if m.NPoints != 200 || m.WindowSize != 24 {
		t.Errorf("Expected 200 points and window 24, got %d and %d", m.NPoints, m.WindowSize)
	}
	if m.Variance.Ratio <= 1 {
		t.Errorf("Expected variance ratio > 1, got %g", m.Variance.Ratio)
	}
	if len(m.Indicators) < 2 || m.Indicators[0] != "variance_increase" {
		t.Errorf("Unexpected indicators %v", m.Indicators)
	}
}

// Seeds known to stay quiet; the rate over many seeds is checked in
// TestDetector_ErrorRates.
func TestDetector_StationaryNoise(t *testing.T) {
	d := defaultDetector(t)
	for _, seed := range []uint64{1, 5, 19} {
		r := d.Detect(whiteNoise(seed, 200), nil)
		AssertWarningLevel(t, r, 0, 0)
		if len(r.Metrics.Indicators) != 0 {
			t.Errorf("Seed %d: expected no indicators, got %v", seed, r.Metrics.Indicators)
		}
	}
}

// Overlapping windows make the per-indicator p-values optimistic, so a
// stationary series still reaches level 2 now and then. The rates below hold
// over 300 seeds: about 13% of white-noise series reach level 2 and every
// AR(1) series reaches level 1.
func TestDetector_ErrorRates(t *testing.T) {
	if testing.Short() {
		t.Skip("multi-seed detector sweep")
	}
	const (
		seeds             = 300
		maxFalsePositives = 0.25
		minSensitivity    = 0.95
	)
	d := defaultDetector(t)

	falsePositives, detected := 0, 0
	for seed := uint64(1); seed <= seeds; seed++ {
		if d.Detect(whiteNoise(seed, 200), nil).WarningLevel >= CriticalWarningLevel {
			falsePositives++
		}
		if d.Detect(ar1Series(seed, 200), nil).WarningLevel >= 1 {
			detected++
		}
	}

	fpRate := float64(falsePositives) / seeds
	sensitivity := float64(detected) / seeds
	if fpRate > maxFalsePositives {
		t.Errorf("Expected white-noise level>=2 rate <= %.2f, got %.3f (%d/%d)", maxFalsePositives, fpRate, falsePositives, seeds)
	}
	if sensitivity < minSensitivity {
		t.Errorf("Expected AR(1) level>=1 rate >= %.2f, got %.3f (%d/%d)", minSensitivity, sensitivity, detected, seeds)
	}
	t.Logf("✓ False positives %.3f, sensitivity %.3f over %d seeds", fpRate, sensitivity, seeds)
}

func TestDetector_TimestampScaling(t *testing.T) {
	d := defaultDetector(t)
	series := ar1Series(6, 200)

	daily := make([]float64, 200)
	bimonthly := make([]float64, 200)
	yearly := make([]float64, 200)
	for i := range daily {
		daily[i] = float64(i)
		bimonthly[i] = float64(i) * 60
		yearly[i] = float64(i) * 365
	}

	tests := []struct {
		name  string
		times []float64
		want  int
	}{
		{"no timestamps", nil, 12},
		{"monthly", monthly(200), 12},
		{"daily", daily, 1},
		{"bimonthly interpolates", bimonthly, 24}, // 12 steps × 60/30.44
		{"yearly", yearly, 144},
		{"length mismatch ignored", daily[:50], 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Detect(series, tt.times).EstimatedMonths; got != tt.want {
				t.Errorf("Expected %d months, got %d", tt.want, got)
			}
		})
	}
}

func TestDetector_Accumulation(t *testing.T) {
	constant := func(tau, p float64) TrendTester {
		return TrendTesterFunc(func([]float64) TrendTest { return TrendTest{Tau: tau, PValue: p} })
	}

	tests := []struct {
		name       string
		tau, p     float64
		level      int
		indicators []string
		months     int
		confidence float64
	}{
		{"strong significant", 0.5, 0.001, 2,
			[]string{"variance_increase", "autocorrelation_increase", "skewness_change"}, 12, 0.8},
		{"weak trends", 0.15, 0.5, 1,
			[]string{"variance_increase_trend", "autocorrelation_trend"}, 36, 0.2},
		{"falling", -0.35, 0.001, 1,
			[]string{"skewness_change", "recovery_slowing"}, 12, 0.6},
		{"flat", 0, 1, 0, []string{}, 60, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := MustDetector(DefaultDetectorConfig(), WithTrendTester(constant(tt.tau, tt.p)))
			r := d.Detect(whiteNoise(1, 60), nil)

			AssertWarningLevel(t, r, tt.level, tt.level)
			if strings.Join(r.Metrics.Indicators, ",") != strings.Join(tt.indicators, ",") {
				t.Errorf("Expected indicators %v, got %v", tt.indicators, r.Metrics.Indicators)
			}
			if r.EstimatedMonths != tt.months {
				t.Errorf("Expected %d months, got %d", tt.months, r.EstimatedMonths)
			}
			AssertScoreNear(t, r.Confidence, tt.confidence, 1e-12)
		})
	}
}

func TestDetectorConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*DetectorConfig)
	}{
		{"window too small", func(c *DetectorConfig) { c.Window = 2 }},
		{"lag zero", func(c *DetectorConfig) { c.Lag = 0 }},
		{"lag too large", func(c *DetectorConfig) { c.Lag = 23 }},
		{"min points below window", func(c *DetectorConfig) { c.MinPoints = 25 }},
		{"significance zero", func(c *DetectorConfig) { c.Significance = 0 }},
		{"significance one", func(c *DetectorConfig) { c.Significance = 1 }},
	}

	if err := DefaultDetectorConfig().Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	for _, tt := range tests {
		cfg := DefaultDetectorConfig()
		tt.modify(&cfg)
		if _, err := NewDetector(cfg); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestDetector_Multivariate(t *testing.T) {
	cols := map[string][]float64{
		"VCA": ar1Series(6, 200),
		"MDI": whiteNoise(1, 200),
		"PTS": whiteNoise(5, 20),
	}
	got := defaultDetector(t).DetectMultivariate(cols, monthly(200))

	if len(got) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(got))
	}
	if got["VCA"].WarningLevel != 3 {
		t.Errorf("VCA: expected level 3, got %d", got["VCA"].WarningLevel)
	}
	if got["MDI"].WarningLevel != 0 {
		t.Errorf("MDI: expected level 0, got %d", got["MDI"].WarningLevel)
	}
	if got["PTS"].Status != StatusInsufficientData {
		t.Errorf("PTS: expected insufficient data, got %s", got["PTS"].Status)
	}
	for name, r := range got {
		if r.Metadata["variable_name"] != name {
			t.Errorf("%s: metadata names %v", name, r.Metadata["variable_name"])
		}
	}
}

func TestTippingPointResult_ToMap(t *testing.T) {
	d := defaultDetector(t)

	full := d.Detect(ar1Series(6, 200), nil).ToMap()
	metrics := full["metrics"].(map[string]interface{})
	variance := metrics["variance"].(map[string]interface{})
	if _, ok := variance["ratio"]; !ok {
		t.Errorf("Expected variance ratio in map")
	}
	if _, ok := metrics["autocorrelation"].(map[string]interface{})["ratio"]; ok {
		t.Errorf("Autocorrelation should carry no ratio")
	}
	if full["status"] != "ok" || full["warning_level"] != 3 {
		t.Errorf("Unexpected status/level: %v %v", full["status"], full["warning_level"])
	}

	short := d.Detect(ar1Series(6, 10), nil).ToMap()
	if m := short["metrics"].(map[string]interface{}); len(m) != 0 {
		t.Errorf("Expected empty metrics for insufficient data, got %v", m)
	}
}

func TestTippingPointResult_JSON(t *testing.T) {
	r := defaultDetector(t).Detect(ar1Series(6, 200), monthly(200))
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back TippingPointResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.WarningLevel != r.WarningLevel || back.EstimatedMonths != r.EstimatedMonths ||
		back.VarianceTrend != r.VarianceTrend || back.Status != r.Status {
		t.Errorf("Round trip mismatch: %+v vs %+v", back, r)
	}
	if back.Metrics == nil || back.Metrics.NPoints != 200 {
		t.Errorf("Expected metrics to survive the round trip")
	}
}
