package biotica

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownMethod is returned for an unrecognised early-warning method.
var ErrUnknownMethod = errors.New("unknown early-warning method")

// EWSMethod selects which rolling indicators Analyze computes.
type EWSMethod string

const (
	MethodAll             EWSMethod = "all"
	MethodVariance        EWSMethod = "variance"
	MethodAutocorrelation EWSMethod = "autocorrelation"
	MethodSkewness        EWSMethod = "skewness"
	MethodKurtosis        EWSMethod = "kurtosis"
)

// ParseEWSMethod validates a method name. The empty string selects MethodAll.
func ParseEWSMethod(s string) (EWSMethod, error) {
	switch m := EWSMethod(s); m {
	case "":
		return MethodAll, nil
	case MethodAll, MethodVariance, MethodAutocorrelation, MethodSkewness, MethodKurtosis:
		return m, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownMethod)
	}
}

func (m EWSMethod) includes(other EWSMethod) bool {
	return m == MethodAll || m == other
}

// MaxEWSWindow caps the rolling window of Analyze.
const MaxEWSWindow = 50

// IndicatorSeries is one rolling indicator and its trend.
type IndicatorSeries struct {
	Trend  float64   `json:"trend"`
	PValue float64   `json:"p_value"`
	Values []float64 `json:"values"`
}

// CombinedSignal aggregates the variance, autocorrelation and skewness trends.
type CombinedSignal struct {
	Score          float64 `json:"score"`
	Interpretation string  `json:"interpretation"`
}

// EWSReport is the output of EarlyWarningSignals.Analyze. Indicators not
// selected by the method are nil.
type EWSReport struct {
	Method          EWSMethod        `json:"method"`
	Window          int              `json:"window"`
	Variance        *IndicatorSeries `json:"variance,omitempty"`
	Autocorrelation *IndicatorSeries `json:"autocorrelation,omitempty"`
	Skewness        *IndicatorSeries `json:"skewness,omitempty"`
	Kurtosis        *IndicatorSeries `json:"kurtosis,omitempty"`
	Combined        *CombinedSignal  `json:"combined,omitempty"`
}

// EarlyWarningSignals is a broader rolling-indicator analysis than Detector:
// it adds kurtosis, reports the full indicator series and sizes its window
// from the data.
type EarlyWarningSignals struct {
	tester TrendTester
}

// NewEarlyWarningSignals creates an analyzer using tester, or Kendall's tau if nil.
func NewEarlyWarningSignals(tester TrendTester) *EarlyWarningSignals {
	if tester == nil {
		tester = KendallTester{}
	}
	return &EarlyWarningSignals{tester: tester}
}

// Analyze detrends series, computes the selected rolling indicators over a
// window of min(50, N/4) samples and tests each for trend. With MethodAll it
// also reports the combined score: the fraction of {variance τ > 0.2,
// autocorrelation τ > 0.2, |skewness τ| > 0.15} that hold.
//
// NaN observations are dropped first. A series too short for a window of
// three samples is an error.
func (e *EarlyWarningSignals) Analyze(series []float64, method EWSMethod) (EWSReport, error) {
	method, err := ParseEWSMethod(string(method))
	if err != nil {
		return EWSReport{}, err
	}

	values := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	window := min(MaxEWSWindow, len(values)/4)
	if window < 3 {
		return EWSReport{}, fmt.Errorf("early-warning analysis of %d points: %w", len(values), ErrEmptySeries)
	}

	detrended := detrend(values)
	report := EWSReport{Method: method, Window: window}

	if method.includes(MethodVariance) {
		report.Variance = e.indicator(rolling(detrended, window, variance))
	}
	if method.includes(MethodAutocorrelation) {
		report.Autocorrelation = e.indicator(rolling(detrended, window, func(seg []float64) float64 {
			return lagAutocorrelation(seg, 1)
		}))
	}
	if method.includes(MethodSkewness) {
		report.Skewness = e.indicator(rolling(detrended, window, skewness))
	}
	if method.includes(MethodKurtosis) {
		report.Kurtosis = e.indicator(rolling(detrended, window, excessKurtosis))
	}

	if method == MethodAll {
		var hits int
		if report.Variance.Trend > 0.2 {
			hits++
		}
		if report.Autocorrelation.Trend > 0.2 {
			hits++
		}
		if math.Abs(report.Skewness.Trend) > 0.15 {
			hits++
		}
		score := float64(hits) / 3
		report.Combined = &CombinedSignal{
			Score:          score,
			Interpretation: InterpretEWSScore(score),
		}
	}

	return report, nil
}

func (e *EarlyWarningSignals) indicator(values []float64) *IndicatorSeries {
	t := e.tester.Test(values)
	return &IndicatorSeries{Trend: t.Tau, PValue: t.PValue, Values: values}
}

// rolling applies stat to every window of length w, N-w+1 windows in all.
func rolling(x []float64, w int, stat func([]float64) float64) []float64 {
	out := make([]float64, len(x)-w+1)
	for i := range out {
		out[i] = stat(x[i : i+w])
	}
	return out
}

// InterpretEWSScore renders a combined score as a risk statement.
func InterpretEWSScore(score float64) string {
	switch {
	case score > 0.7:
		return "High risk - strong early warning signals"
	case score > 0.4:
		return "Moderate risk - some warning signals detected"
	case score > 0.1:
		return "Low risk - weak warning signals"
	default:
		return "No clear warning signals"
	}
}
