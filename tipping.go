package biotica

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
)

// ErrEmptySeries is returned when an analysis receives no usable data.
var ErrEmptySeries = errors.New("empty series")

// DetectionStatus distinguishes a full analysis from the degraded variants.
type DetectionStatus string

const (
	StatusOK               DetectionStatus = "ok"
	StatusInsufficientData DetectionStatus = "insufficient_data" // fewer valid points than MinPoints
	StatusUnavailable      DetectionStatus = "unavailable"       // no trend tester configured
)

// Warning level bounds.
const (
	MaxWarningLevel      = 3
	CriticalWarningLevel = 2 // critical slowing down at or above this level
)

// IndicatorTrend is the trend of one rolling indicator across windows.
type IndicatorTrend struct {
	Trend   float64 `json:"trend"`
	PValue  float64 `json:"p_value"`
	Current float64 `json:"current"`
	Initial float64 `json:"initial"`
	Ratio   float64 `json:"ratio,omitempty"` // current/initial, variance only
}

func (t IndicatorTrend) toMap(withRatio bool) map[string]interface{} {
	m := map[string]interface{}{
		"trend":   t.Trend,
		"p_value": t.PValue,
		"current": t.Current,
		"initial": t.Initial,
	}
	if withRatio {
		m["ratio"] = t.Ratio
	}
	return m
}

// TippingMetrics holds the per-indicator detail of a full analysis.
type TippingMetrics struct {
	Variance        IndicatorTrend `json:"variance"`
	Autocorrelation IndicatorTrend `json:"autocorrelation"`
	Skewness        IndicatorTrend `json:"skewness"`
	RecoveryRate    IndicatorTrend `json:"recovery_rate"`
	Indicators      []string       `json:"indicators"`
	NPoints         int            `json:"n_points"`
	WindowSize      int            `json:"window_size"`
}

// TippingPointResult is the outcome of one detection call. Metrics is nil
// unless Status is StatusOK.
type TippingPointResult struct {
	Status               DetectionStatus        `json:"status"`
	CriticalSlowingDown  bool                   `json:"critical_slowing_down"`
	WarningLevel         int                    `json:"warning_level"`
	VarianceTrend        float64                `json:"variance_trend"`
	AutocorrelationTrend float64                `json:"autocorrelation_trend"`
	SkewnessTrend        float64                `json:"skewness_trend"`
	RecoveryRateTrend    float64                `json:"recovery_rate_trend"`
	EstimatedMonths      int                    `json:"estimated_months"`
	Confidence           float64                `json:"confidence"`
	Metrics              *TippingMetrics        `json:"metrics,omitempty"`
	Metadata             map[string]interface{} `json:"metadata"`
}

// Degraded reports whether the result carries no evidence either way.
func (r TippingPointResult) Degraded() bool {
	return r.Status != StatusOK
}

// ToMap renders the result as a plain key-value structure.
func (r TippingPointResult) ToMap() map[string]interface{} {
	metrics := map[string]interface{}{}
	if r.Metrics != nil {
		indicators := make([]interface{}, len(r.Metrics.Indicators))
		for i, s := range r.Metrics.Indicators {
			indicators[i] = s
		}
		metrics = map[string]interface{}{
			"variance":        r.Metrics.Variance.toMap(true),
			"autocorrelation": r.Metrics.Autocorrelation.toMap(false),
			"skewness":        r.Metrics.Skewness.toMap(false),
			"recovery_rate":   r.Metrics.RecoveryRate.toMap(false),
			"indicators":      indicators,
			"n_points":        r.Metrics.NPoints,
			"window_size":     r.Metrics.WindowSize,
		}
	}
	return map[string]interface{}{
		"status":                string(r.Status),
		"critical_slowing_down": r.CriticalSlowingDown,
		"warning_level":         r.WarningLevel,
		"variance_trend":        r.VarianceTrend,
		"autocorrelation_trend": r.AutocorrelationTrend,
		"skewness_trend":        r.SkewnessTrend,
		"recovery_rate_trend":   r.RecoveryRateTrend,
		"estimated_months":      r.EstimatedMonths,
		"confidence":            r.Confidence,
		"metrics":               metrics,
		"metadata":              r.Metadata,
	}
}

// DetectorConfig is fixed at construction and reused across calls.
type DetectorConfig struct {
	Window       int     `yaml:"window" json:"window"`
	Lag          int     `yaml:"lag" json:"lag"`
	MinPoints    int     `yaml:"min_points" json:"min_points"`
	Significance float64 `yaml:"significance" json:"significance"`
	Detrend      bool    `yaml:"detrend" json:"detrend"`
}

// DefaultDetectorConfig returns W=24, L=1, Nmin=50, α=0.05 with detrending.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Window:       24,
		Lag:          1,
		MinPoints:    50,
		Significance: 0.05,
		Detrend:      true,
	}
}

// Validate checks that the configuration yields at least two rolling windows.
func (c DetectorConfig) Validate() error {
	if c.Window < 3 {
		return fmt.Errorf("detector window %d: must be at least 3", c.Window)
	}
	if c.Lag < 1 || c.Lag >= c.Window-1 {
		return fmt.Errorf("detector lag %d: must be in [1, %d)", c.Lag, c.Window-1)
	}
	if c.MinPoints < c.Window+2 {
		return fmt.Errorf("detector min points %d: must be at least window+2 (%d)", c.MinPoints, c.Window+2)
	}
	if c.Significance <= 0 || c.Significance >= 1 {
		return fmt.Errorf("detector significance %g: must be in (0,1)", c.Significance)
	}
	return nil
}

// Detector looks for critical slowing down in a scalar series. It keeps no
// state between calls and is safe for concurrent use.
type Detector struct {
	cfg    DetectorConfig
	tester TrendTester
	logger *slog.Logger
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithTrendTester replaces the Kendall tester. A nil tester makes every
// detection return StatusUnavailable.
func WithTrendTester(t TrendTester) DetectorOption {
	return func(d *Detector) { d.tester = t }
}

// WithDetectorLogger sets the detector logger. The default discards output.
func WithDetectorLogger(l *slog.Logger) DetectorOption {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDetector validates cfg and builds a detector.
func NewDetector(cfg DetectorConfig, opts ...DetectorOption) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{
		cfg:    cfg,
		tester: KendallTester{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// MustDetector is NewDetector that panics on an invalid configuration.
func MustDetector(cfg DetectorConfig, opts ...DetectorOption) *Detector {
	d, err := NewDetector(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Config returns the detector configuration.
func (d *Detector) Config() DetectorConfig {
	return d.cfg
}

// Detect analyzes series as the variable "IBR". See DetectNamed.
func (d *Detector) Detect(series, timestamps []float64) TippingPointResult {
	return d.DetectNamed("IBR", series, timestamps)
}

// DetectNamed analyzes series for early-warning signals.
//
// NaN observations are dropped together with their timestamps. Timestamps
// are in days and only scale the time-to-tipping estimate; they are ignored
// when their length differs from the series.
//
// Four indicators are computed over rolling windows of the (detrended)
// series: variance, lag-L autocorrelation, skewness and a spectral recovery
// rate. Each is tested for trend against window index and the evidence is
// accumulated:
//
//	variance, autocorrelation: +1 if τ > 0.2 and p < α, else +0.5 if τ > 0.1
//	skewness:                  +0.5 if |τ| > 0.15 and p < α
//	recovery rate:             +0.5 if τ < -0.15 and p < α
//
// The sum is floored and capped at 3.
func (d *Detector) DetectNamed(name string, series, timestamps []float64) TippingPointResult {
	if d.tester == nil {
		return d.unavailable(name)
	}

	if len(timestamps) != len(series) {
		timestamps = nil
	}
	values := make([]float64, 0, len(series))
	var times []float64
	if timestamps != nil {
		times = make([]float64, 0, len(series))
	}
	for i, v := range series {
		if math.IsNaN(v) {
			continue
		}
		values = append(values, v)
		if timestamps != nil {
			times = append(times, timestamps[i])
		}
	}

	n := len(values)
	if n < d.cfg.MinPoints {
		d.logger.Debug("tipping point analysis skipped",
			"variable", name, "n_points", n, "min_points", d.cfg.MinPoints)
		return TippingPointResult{
			Status: StatusInsufficientData,
			Metadata: map[string]interface{}{
				"variable_name": name,
				"error":         fmt.Sprintf("Insufficient data: %d < %d", n, d.cfg.MinPoints),
			},
		}
	}

	if d.cfg.Detrend {
		values = detrend(values)
	}

	w := d.cfg.Window
	nWindows := n - w
	variances := make([]float64, nWindows)
	autocorrs := make([]float64, nWindows)
	skews := make([]float64, nWindows)
	recoveries := make([]float64, nWindows)
	for i := 0; i < nWindows; i++ {
		segment := values[i : i+w]
		variances[i] = variance(segment)
		autocorrs[i] = lagAutocorrelation(segment, d.cfg.Lag)
		skews[i] = skewness(segment)
		recoveries[i] = spectralRecoveryRate(segment)
	}

	tVar := d.tester.Test(variances)
	tAC := d.tester.Test(autocorrs)
	tSkew := d.tester.Test(skews)
	tRec := d.tester.Test(recoveries)

	alpha := d.cfg.Significance
	var level float64
	var indicators []string

	switch {
	case tVar.Tau > 0.2 && tVar.PValue < alpha:
		level++
		indicators = append(indicators, "variance_increase")
	case tVar.Tau > 0.1:
		level += 0.5
		indicators = append(indicators, "variance_increase_trend")
	}
	switch {
	case tAC.Tau > 0.2 && tAC.PValue < alpha:
		level++
		indicators = append(indicators, "autocorrelation_increase")
	case tAC.Tau > 0.1:
		level += 0.5
		indicators = append(indicators, "autocorrelation_trend")
	}
	if math.Abs(tSkew.Tau) > 0.15 && tSkew.PValue < alpha {
		level += 0.5
		indicators = append(indicators, "skewness_change")
	}
	if tRec.Tau < -0.15 && tRec.PValue < alpha {
		level += 0.5
		indicators = append(indicators, "recovery_slowing")
	}

	warningLevel := int(math.Floor(level))
	if warningLevel > MaxWarningLevel {
		warningLevel = MaxWarningLevel
	}
	if indicators == nil {
		indicators = []string{}
	}

	varianceRatio := 1.0
	if variances[0] > 0 {
		varianceRatio = variances[nWindows-1] / variances[0]
	}

	result := TippingPointResult{
		Status:               StatusOK,
		CriticalSlowingDown:  warningLevel >= CriticalWarningLevel,
		WarningLevel:         warningLevel,
		VarianceTrend:        tVar.Tau,
		AutocorrelationTrend: tAC.Tau,
		SkewnessTrend:        tSkew.Tau,
		RecoveryRateTrend:    tRec.Tau,
		EstimatedMonths:      estimateMonths(tVar.Tau, tAC.Tau, times),
		Confidence:           detectionConfidence(warningLevel, tVar.PValue, tAC.PValue, n),
		Metrics: &TippingMetrics{
			Variance:        trendOf(tVar, variances, varianceRatio),
			Autocorrelation: trendOf(tAC, autocorrs, 0),
			Skewness:        trendOf(tSkew, skews, 0),
			RecoveryRate:    trendOf(tRec, recoveries, 0),
			Indicators:      indicators,
			NPoints:         n,
			WindowSize:      w,
		},
		Metadata: map[string]interface{}{
			"variable_name":      name,
			"detrended":          d.cfg.Detrend,
			"lag":                d.cfg.Lag,
			"significance_level": alpha,
		},
	}

	d.logger.Debug("tipping point analysis",
		"variable", name,
		"n_points", n,
		"warning_level", warningLevel,
		"variance_tau", tVar.Tau,
		"autocorrelation_tau", tAC.Tau)

	return result
}

func (d *Detector) unavailable(name string) TippingPointResult {
	return TippingPointResult{
		Status: StatusUnavailable,
		Metadata: map[string]interface{}{
			"variable_name": name,
			"error":         "trend test not available",
		},
	}
}

func trendOf(t TrendTest, values []float64, ratio float64) IndicatorTrend {
	return IndicatorTrend{
		Trend:   t.Tau,
		PValue:  t.PValue,
		Current: values[len(values)-1],
		Initial: values[0],
		Ratio:   ratio,
	}
}

// estimateMonths maps trend strength to a coarse horizon in observation
// steps (12/24/36/60) and converts steps to months using the median spacing
// of times, in days. Without times each step is one month.
//
// Daily, monthly and annual spacings give the usual /30.44, 1:1 and ×12
// conversions; intermediate spacings interpolate linearly between them
// rather than snapping to the nearest of the three (a 60-day step counts as
// about two months).
func estimateMonths(tauVar, tauAC float64, times []float64) int {
	strength := (math.Abs(tauVar) + math.Abs(tauAC)) / 2

	var steps float64
	switch {
	case strength > 0.3:
		steps = 12
	case strength > 0.2:
		steps = 24
	case strength > 0.1:
		steps = 36
	default:
		steps = 60
	}

	monthsPerStep := 1.0
	if len(times) > 1 {
		diffs := make([]float64, len(times)-1)
		for i := 1; i < len(times); i++ {
			diffs[i-1] = times[i] - times[i-1]
		}
		if step := median(diffs); step > 0 {
			monthsPerStep = step / DaysPerMonth
		}
	}

	months := int(math.Round(steps * monthsPerStep))
	if months < 1 {
		months = 1
	}
	return months
}

// DaysPerMonth is the mean Gregorian month length.
const DaysPerMonth = 30.44

func detectionConfidence(level int, pVar, pAC float64, n int) float64 {
	c := float64(level) * 0.2
	for _, p := range []float64{pVar, pAC} {
		switch {
		case p < 0.01:
			c += 0.2
		case p < 0.05:
			c += 0.1
		}
	}
	switch {
	case n > 200:
		c += 0.2
	case n > 100:
		c += 0.1
	}
	return math.Min(c, 1)
}

// DetectMultivariate runs an independent detection per named column, sharing
// timestamps. Columns are analyzed concurrently.
func (d *Detector) DetectMultivariate(columns map[string][]float64, timestamps []float64) map[string]TippingPointResult {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]TippingPointResult, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = d.DetectNamed(name, columns[name], timestamps)
		}(i, name)
	}
	wg.Wait()

	out := make(map[string]TippingPointResult, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}
