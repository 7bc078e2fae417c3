package biotica

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Parameter names one of the nine ecological components of the IBR.
type Parameter string

const (
	VCA Parameter = "VCA" // Vegetative Carbon Absorption
	MDI Parameter = "MDI" // Microbial Diversity Index
	PTS Parameter = "PTS" // Phenological Time Shift
	HFI Parameter = "HFI" // Hydrological Flux Index
	BNC Parameter = "BNC" // Biogeochemical Nutrient Cycle
	SGH Parameter = "SGH" // Species Genetic Heterogeneity
	AES Parameter = "AES" // Anthropogenic Encroachment Score
	TMI Parameter = "TMI" // Trophic Metadata Integration
	RRC Parameter = "RRC" // Regenerative Recovery Capacity
)

// DefaultUncertainty is the one-sigma error assumed when a parameter value is
// supplied without its own uncertainty.
const DefaultUncertainty = 0.05

var (
	// ErrOutOfRange is returned by the strict setter for values outside [0,1].
	ErrOutOfRange = errors.New("parameter value out of range [0,1]")

	// ErrUnknownParameter is returned when a name does not parse as a Parameter.
	ErrUnknownParameter = errors.New("unknown parameter")
)

// AllParameters returns the nine parameters in canonical weight order.
func AllParameters() []Parameter {
	return []Parameter{VCA, MDI, PTS, HFI, BNC, SGH, AES, TMI, RRC}
}

// ParseParameter accepts a parameter name in any letter case.
func ParseParameter(name string) (Parameter, error) {
	p := Parameter(strings.ToUpper(strings.TrimSpace(name)))
	for _, known := range AllParameters() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownParameter, name)
}

// ParameterResult is the output contract of a per-parameter compute function:
// a value in [0,1] plus its one-sigma uncertainty.
type ParameterResult struct {
	Value       float64                `json:"value"`
	Uncertainty float64                `json:"uncertainty"`
	Confidence  float64                `json:"confidence"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ParameterValue is a parameter as loaded into a calculation. A zero
// Uncertainty is an exact measurement; a negative or NaN one is unset and
// scores with DefaultUncertainty.
type ParameterValue struct {
	Value       float64                `json:"value"`
	Uncertainty float64                `json:"uncertainty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Value wraps a bare number with the default uncertainty.
func Value(v float64) ParameterValue {
	return ParameterValue{Value: v, Uncertainty: DefaultUncertainty}
}

// Values converts a plain name→value map into ParameterValues with the
// default uncertainty.
func Values(m map[Parameter]float64) map[Parameter]ParameterValue {
	out := make(map[Parameter]ParameterValue, len(m))
	for p, v := range m {
		out[p] = Value(v)
	}
	return out
}

// uncertainty returns the stored uncertainty, falling back to the default
// when it is unset.
func (v ParameterValue) uncertainty() float64 {
	if v.Uncertainty < 0 || math.IsNaN(v.Uncertainty) {
		return DefaultUncertainty
	}
	return v.Uncertainty
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
