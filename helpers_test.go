package biotica

import (
	"math"
	"time"
)

// splitmix is a small deterministic generator so that synthetic series are
// identical on every platform and Go release.
type splitmix struct {
	state uint64
}

func newSplitmix(seed uint64) *splitmix {
	return &splitmix{state: seed}
}

func (s *splitmix) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func (s *splitmix) float() float64 {
	return float64(s.next()>>11) / (1 << 53)
}

// normal draws a standard normal deviate (Box-Muller, cosine branch).
func (s *splitmix) normal() float64 {
	u1 := s.float()
	for u1 == 0 {
		u1 = s.float()
	}
	u2 := s.float()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// ar1Series approaches a transition: persistence 0.7 with noise whose
// amplitude grows 2% per step.
func ar1Series(seed uint64, n int) []float64 {
	rng := newSplitmix(seed)
	x := make([]float64, n)
	x[0] = rng.normal()
	for i := 1; i < n; i++ {
		x[i] = 0.7*x[i-1] + rng.normal()*(1+0.02*float64(i))
	}
	return x
}

// whiteNoise is a stationary series with no memory.
func whiteNoise(seed uint64, n int) []float64 {
	rng := newSplitmix(seed)
	x := make([]float64, n)
	for i := range x {
		x[i] = 0.1 * rng.normal()
	}
	return x
}

// samplePlot is a FUNCTIONAL plot with every parameter inside [0.20, 0.95].
func samplePlot() map[Parameter]float64 {
	return map[Parameter]float64{
		VCA: 0.85,
		MDI: 0.78,
		PTS: 0.82,
		HFI: 0.75,
		BNC: 0.80,
		SGH: 0.77,
		AES: 0.70,
		TMI: 0.83,
		RRC: 0.72,
	}
}

func uniformPlot(v float64) map[Parameter]float64 {
	m := make(map[Parameter]float64, 9)
	for _, p := range AllParameters() {
		m[p] = v
	}
	return m
}

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func monthly(n int) []float64 {
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i) * 30
	}
	return ts
}
