package biotica

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

// ErrUnknownTrendTest is returned when a trend test name is not registered.
var ErrUnknownTrendTest = errors.New("unknown trend test")

// TrendTest is the outcome of a monotonic trend test of a series against its
// index. Tau lies in [-1,1]; PValue is two-sided.
type TrendTest struct {
	Tau    float64 `json:"tau"`
	PValue float64 `json:"p_value"`
}

// TrendTester tests a series for a monotonic trend.
//
// The detector resolves one TrendTester at construction. Without one it
// degrades to the unavailable result instead of failing.
type TrendTester interface {
	Test(series []float64) TrendTest
}

// TrendTesterFunc adapts a function to TrendTester.
type TrendTesterFunc func(series []float64) TrendTest

func (f TrendTesterFunc) Test(series []float64) TrendTest { return f(series) }

// KendallTester is Kendall's tau-b against the sample index with the
// tie-corrected normal approximation for the p-value.
type KendallTester struct{}

// Test implements TrendTester. Degenerate input (fewer than two points or a
// constant series) yields tau 0 and p 1.
func (KendallTester) Test(series []float64) TrendTest {
	index := make([]float64, len(series))
	for i := range index {
		index[i] = float64(i)
	}
	tau, p, ok := kendallTau(index, series)
	if !ok {
		return TrendTest{Tau: 0, PValue: 1}
	}
	return TrendTest{Tau: tau, PValue: p}
}

// kendallTau computes Kendall's tau-b of x and y and its two-sided p-value.
//
//	τ_b = (C - D) / √((n₀-n₁)(n₀-n₂))
//
// The variance of C - D includes the tie terms so that tied windows (for
// example constant autocorrelation) do not inflate significance.
func kendallTau(x, y []float64) (tau, p float64, ok bool) {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0, 1, false
	}

	var s float64 // C - D
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			dx := sign(x[i] - x[j])
			dy := sign(y[i] - y[j])
			s += dx * dy
		}
	}

	xt, xv0, xv1 := tieTerms(x)
	yt, yv0, yv1 := tieTerms(y)

	nf := float64(n)
	n0 := nf * (nf - 1) / 2
	if n0 == xt || n0 == yt {
		return 0, 1, false
	}
	tau = s / math.Sqrt(n0-xt) / math.Sqrt(n0-yt)

	m := nf * (nf - 1)
	v := (m*(2*nf+5)-xv1-yv1)/18 + (2*xt*yt)/m
	if n > 2 {
		v += xv0 * yv0 / (9 * m * (nf - 2))
	}
	if v <= 0 {
		return tau, 1, true
	}
	z := s / math.Sqrt(v)
	p = math.Erfc(math.Abs(z) / math.Sqrt2)
	return clamp(tau, -1, 1), clamp(p, 0, 1), true
}

// tieTerms returns Σt(t-1)/2, Σt(t-1)(t-2) and Σt(t-1)(2t+5) over groups of
// tied values of size t.
func tieTerms(x []float64) (pairs, v0, v1 float64) {
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)

	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if t := float64(j - i); t > 1 {
			pairs += t * (t - 1) / 2
			v0 += t * (t - 1) * (t - 2)
			v1 += t * (t - 1) * (2*t + 5)
		}
		i = j
	}
	return pairs, v0, v1
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// TrendRegistry maps names to trend testers so configuration can select one.
type TrendRegistry struct {
	mu      sync.RWMutex
	testers map[string]TrendTester
}

// NewTrendRegistry creates a registry holding the "kendall" tester.
func NewTrendRegistry() *TrendRegistry {
	r := &TrendRegistry{testers: make(map[string]TrendTester)}
	r.Register("kendall", KendallTester{})
	return r
}

// Register adds or replaces a named tester.
func (r *TrendRegistry) Register(name string, t TrendTester) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.testers[name] = t
}

// Lookup returns the named tester. The name "none" resolves to a nil tester
// without error, which makes a detector report itself unavailable.
func (r *TrendRegistry) Lookup(name string) (TrendTester, error) {
	if name == "none" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.testers[name]
	if !ok {
		return nil, fmt.Errorf("trend test %q: %w", name, ErrUnknownTrendTest)
	}
	return t, nil
}

// Names lists registered testers in sorted order.
func (r *TrendRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.testers))
	for name := range r.testers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var globalTrends = NewTrendRegistry()

// RegisterTrendTester adds a tester to the global registry.
func RegisterTrendTester(name string, t TrendTester) {
	globalTrends.Register(name, t)
}

// LookupTrendTester resolves a tester from the global registry.
func LookupTrendTester(name string) (TrendTester, error) {
	return globalTrends.Lookup(name)
}
