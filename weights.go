package biotica

import (
	"fmt"
	"math"
	"sort"
)

// WeightTable maps parameters to non-negative weights.
// It is immutable once constructed, so several engines with different tables
// can share the package safely.
type WeightTable struct {
	weights map[Parameter]float64
	order   []Parameter
}

// NewWeightTable copies m into a new table.
// Negative, NaN or infinite weights are rejected.
func NewWeightTable(m map[Parameter]float64) (WeightTable, error) {
	w := WeightTable{weights: make(map[Parameter]float64, len(m))}
	for p, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return WeightTable{}, fmt.Errorf("weight for %s must be a non-negative number, got %v", p, v)
		}
		w.weights[p] = v
	}
	w.order = canonicalOrder(w.weights)
	return w, nil
}

// MustWeightTable is like NewWeightTable but panics on invalid input.
// Use it for literal tables known at compile time.
func MustWeightTable(m map[Parameter]float64) WeightTable {
	w, err := NewWeightTable(m)
	if err != nil {
		panic(fmt.Sprintf("biotica: %v", err))
	}
	return w
}

// DefaultWeights returns the published nine-parameter table (sums to 1.0).
func DefaultWeights() WeightTable {
	return MustWeightTable(map[Parameter]float64{
		VCA: 0.20,
		MDI: 0.15,
		PTS: 0.12,
		HFI: 0.11,
		BNC: 0.10,
		SGH: 0.09,
		AES: 0.08,
		TMI: 0.08,
		RRC: 0.07,
	})
}

// PriorUncertainties returns the literature prior standard deviation of each
// default weight.
func PriorUncertainties() map[Parameter]float64 {
	return map[Parameter]float64{
		VCA: 0.03,
		MDI: 0.04,
		PTS: 0.05,
		HFI: 0.04,
		BNC: 0.03,
		SGH: 0.05,
		AES: 0.06,
		TMI: 0.05,
		RRC: 0.06,
	}
}

// FallbackWeights builds a table for the named parameters from the default
// weights (0.1 for names without a default), renormalized to sum to 1.
func FallbackWeights(names []Parameter) WeightTable {
	defaults := DefaultWeights()
	m := make(map[Parameter]float64, len(names))
	var total float64
	for _, name := range names {
		v, ok := defaults.weights[name]
		if !ok {
			v = 0.1
		}
		m[name] = v
		total += v
	}
	if total > 0 {
		for name := range m {
			m[name] /= total
		}
	}
	return MustWeightTable(m)
}

// Weight returns the weight of p and whether p is in the table.
func (w WeightTable) Weight(p Parameter) (float64, bool) {
	v, ok := w.weights[p]
	return v, ok
}

// Has reports whether p carries a weight.
func (w WeightTable) Has(p Parameter) bool {
	_, ok := w.weights[p]
	return ok
}

// Parameters returns the table keys, known parameters first in canonical
// order and any others sorted by name.
func (w WeightTable) Parameters() []Parameter {
	out := make([]Parameter, len(w.order))
	copy(out, w.order)
	return out
}

// Len returns the number of weighted parameters.
func (w WeightTable) Len() int {
	return len(w.weights)
}

// Sum returns the total weight.
func (w WeightTable) Sum() float64 {
	var s float64
	for _, p := range w.order {
		s += w.weights[p]
	}
	return s
}

// Map returns a copy of the underlying weights.
func (w WeightTable) Map() map[Parameter]float64 {
	out := make(map[Parameter]float64, len(w.weights))
	for p, v := range w.weights {
		out[p] = v
	}
	return out
}

// Subset returns the weights of the present parameters renormalized to sum
// to 1, preserving their relative proportions. Parameters not in the table
// are ignored. An all-zero subset yields an empty map.
func (w WeightTable) Subset(present []Parameter) map[Parameter]float64 {
	out := make(map[Parameter]float64, len(present))
	var total float64
	for _, p := range present {
		v, ok := w.weights[p]
		if !ok {
			continue
		}
		out[p] = v
		total += v
	}
	if total == 0 {
		return map[Parameter]float64{}
	}
	for p := range out {
		out[p] /= total
	}
	return out
}

// canonicalOrder sorts keys so that iteration (and therefore floating-point
// accumulation) is deterministic.
func canonicalOrder(m map[Parameter]float64) []Parameter {
	rank := make(map[Parameter]int, 9)
	for i, p := range AllParameters() {
		rank[p] = i
	}
	keys := make([]Parameter, 0, len(m))
	for p := range m {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := rank[keys[i]]
		rj, jok := rank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
