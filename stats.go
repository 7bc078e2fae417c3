package biotica

import (
	"math"
	"sort"
)

// Statistics summarizes a sample of scores.
type Statistics struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"std"` // population standard deviation
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
}

// CalculateStatistics computes descriptive statistics of values.
// An empty sample yields the zero value.
func CalculateStatistics(values []float64) Statistics {
	if len(values) == 0 {
		return Statistics{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Statistics{
		N:      len(sorted),
		Mean:   mean(sorted),
		Stddev: math.Sqrt(variance(sorted)),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P50:    medianSorted(sorted),
	}
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// variance is the population (biased) variance.
func variance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	m := mean(x)
	var ss float64
	for _, v := range x {
		d := v - m
		ss += d * d
	}
	return ss / float64(len(x))
}

// sampleVariance is the unbiased (n-1) variance.
func sampleVariance(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return variance(x) * float64(len(x)) / float64(len(x)-1)
}

// centralMoments returns the second, third and fourth central moments.
func centralMoments(x []float64) (m2, m3, m4 float64) {
	n := float64(len(x))
	if n == 0 {
		return 0, 0, 0
	}
	m := mean(x)
	for _, v := range x {
		d := v - m
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	return m2 / n, m3 / n, m4 / n
}

// skewness is the biased sample skewness m3/m2^1.5; 0 for a constant sample.
func skewness(x []float64) float64 {
	m2, m3, _ := centralMoments(x)
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// excessKurtosis is the biased Fisher kurtosis m4/m2² - 3; 0 for a constant sample.
func excessKurtosis(x []float64) float64 {
	m2, _, m4 := centralMoments(x)
	if m2 == 0 {
		return 0
	}
	return m4/(m2*m2) - 3
}

// pearson returns the correlation of x and y, or false when either side has
// zero variance or the lengths differ.
func pearson(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, false
	}
	mx, my := mean(x), mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	r := sxy / math.Sqrt(sxx*syy)
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

// lagAutocorrelation correlates a segment with itself shifted by lag.
// It is 0 when the segment is too short or the correlation is undefined.
func lagAutocorrelation(segment []float64, lag int) float64 {
	if lag <= 0 || len(segment) <= lag+1 {
		return 0
	}
	r, ok := pearson(segment[:len(segment)-lag], segment[lag:])
	if !ok {
		return 0
	}
	return r
}

// linearFit fits y = slope*i + intercept over i = 0..n-1 by least squares.
func linearFit(y []float64) (slope, intercept float64) {
	n := float64(len(y))
	if len(y) == 0 {
		return 0, 0
	}
	if len(y) == 1 {
		return 0, y[0]
	}

	var sumX, sumY, sumXX, sumXY float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXX += x * x
		sumXY += x * v
	}

	det := n*sumXX - sumX*sumX
	if math.Abs(det) < 1e-12 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / det
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// detrend removes the least-squares line from y.
func detrend(y []float64) []float64 {
	slope, intercept := linearFit(y)
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = v - (slope*float64(i) + intercept)
	}
	return out
}

func median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	return medianSorted(sorted)
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// spectralRecoveryRate is the share of a segment's power spectrum outside
// the low frequencies (|f| < 0.1 cycles/sample): 1 - mean(low)/mean(all).
// White noise scores near 0 and a segment dominated by slow wandering goes
// negative. An all-zero segment returns the neutral 0.5.
func spectralRecoveryRate(segment []float64) float64 {
	const neutral = 0.5
	n := len(segment)
	if n < 3 {
		return 0
	}

	var lowSum, totalSum float64
	var lowCount int
	for k := 0; k < n; k++ {
		var re, im float64
		for j, v := range segment {
			angle := -2 * math.Pi * float64(j*k%n) / float64(n)
			re += v * math.Cos(angle)
			im += v * math.Sin(angle)
		}
		power := re*re + im*im
		totalSum += power
		if math.Abs(fftFrequency(k, n)) < 0.1 {
			lowSum += power
			lowCount++
		}
	}

	if lowCount == 0 {
		return neutral
	}
	total := totalSum / float64(n)
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return neutral
	}
	rate := 1 - (lowSum/float64(lowCount))/total
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return neutral
	}
	return rate
}

// fftFrequency is the sample frequency of DFT bin k for length n, laid out
// as 0, 1/n, …, then the negative frequencies.
func fftFrequency(k, n int) float64 {
	half := (n - 1) / 2
	if k <= half {
		return float64(k) / float64(n)
	}
	return float64(k-n) / float64(n)
}
