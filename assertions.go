package biotica

import (
	"math"
	"sort"
	"testing"
)

// DefaultScoreTolerance is the absolute tolerance used when comparing scores
// that should be exact up to floating-point summation order.
const DefaultScoreTolerance = 1e-10

// AssertClassification verifies the tier of a result.
func AssertClassification(t *testing.T, r IBRResult, want Classification) {
	t.Helper()

	if r.Classification != want {
		t.Errorf("Expected %s, got %s (normalized score %.6f)",
			want, r.Classification, r.NormalizedScore)
		return
	}
	t.Logf("✓ %s at normalized score %.4f", r.Classification, r.NormalizedScore)
}

// AssertScoreNear verifies |got - want| ≤ tol.
func AssertScoreNear(t *testing.T, got, want, tol float64) {
	t.Helper()

	if math.Abs(got-want) > tol {
		t.Errorf("Score mismatch: got %.12f, want %.12f (tolerance %g)", got, want, tol)
	}
}

// AssertWeightedSum recomputes the composite from params and weights and
// checks the result's raw and normalized scores and contributions.
//
// Mathematical property:
//
//	score = Σ vᵢwᵢ, normalized = score / Σ wᵢ over parameters in both sets
func AssertWeightedSum(t *testing.T, params map[Parameter]float64, weights WeightTable, r IBRResult) {
	t.Helper()

	var raw, total float64
	for p, v := range params {
		w, ok := weights.Weight(p)
		if !ok {
			continue
		}
		raw += v * w
		total += w
		if c, ok := r.Contributions[p]; !ok {
			t.Errorf("Missing contribution for %s", p)
		} else {
			AssertScoreNear(t, c, v*w, DefaultScoreTolerance)
		}
	}
	want := 0.0
	if total > 0 {
		want = raw / total
	}

	AssertScoreNear(t, r.Score, raw, DefaultScoreTolerance)
	AssertScoreNear(t, r.NormalizedScore, want, DefaultScoreTolerance)
	t.Logf("✓ Weighted sum: score %.6f over total weight %.4f → %.6f", raw, total, want)
}

// AssertHasWarning verifies that ws contains code, naming param when param
// is non-empty.
func AssertHasWarning(t *testing.T, ws Warnings, code WarningCode, param Parameter) {
	t.Helper()

	for _, w := range ws {
		if w.Code == code && (param == "" || w.Parameter == param) {
			return
		}
	}
	if param == "" {
		t.Errorf("Expected a %s warning, got %v", code, ws)
	} else {
		t.Errorf("Expected a %s warning for %s, got %v", code, param, ws)
	}
}

// AssertMissing verifies that ws names exactly the missing parameters want.
func AssertMissing(t *testing.T, ws Warnings, want ...Parameter) {
	t.Helper()

	got := ws.Parameters(WarnMissingParameter)
	sorted := append([]Parameter(nil), want...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if len(got) != len(sorted) {
		t.Errorf("Expected %d missing parameters %v, got %d: %v", len(sorted), sorted, len(got), got)
		return
	}
	for i := range got {
		if got[i] != sorted[i] {
			t.Errorf("Expected missing %v, got %v", sorted, got)
			return
		}
	}
}

// AssertWarningLevel verifies lo ≤ WarningLevel ≤ hi and that the
// critical-slowing-down flag agrees with the level.
func AssertWarningLevel(t *testing.T, r TippingPointResult, lo, hi int) {
	t.Helper()

	if r.WarningLevel < lo || r.WarningLevel > hi {
		t.Errorf("Warning level %d outside [%d, %d] (variance τ=%.3f, autocorrelation τ=%.3f)",
			r.WarningLevel, lo, hi, r.VarianceTrend, r.AutocorrelationTrend)
	}
	if r.CriticalSlowingDown != (r.WarningLevel >= CriticalWarningLevel) {
		t.Errorf("Critical slowing down %v inconsistent with warning level %d",
			r.CriticalSlowingDown, r.WarningLevel)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		t.Errorf("Confidence %.3f outside [0,1]", r.Confidence)
	}
	t.Logf("✓ Warning level %d/3 (expected %d..%d)", r.WarningLevel, lo, hi)
}

// PrintTipping logs a detection result in detail.
func PrintTipping(t *testing.T, r TippingPointResult) {
	t.Helper()

	t.Logf("\n=== Tipping Point Analysis ===")
	t.Logf("Status:               %s", r.Status)
	t.Logf("Warning level:        %d/3 (critical slowing down: %v)", r.WarningLevel, r.CriticalSlowingDown)
	t.Logf("Variance τ:           %+.3f", r.VarianceTrend)
	t.Logf("Autocorrelation τ:    %+.3f", r.AutocorrelationTrend)
	t.Logf("Skewness τ:           %+.3f", r.SkewnessTrend)
	t.Logf("Recovery rate τ:      %+.3f", r.RecoveryRateTrend)
	t.Logf("Estimated months:     %d", r.EstimatedMonths)
	t.Logf("Confidence:           %.1f%%", r.Confidence*100)
	if r.Metrics != nil {
		t.Logf("Indicators:           %v", r.Metrics.Indicators)
	}
}
