package biotica

import (
	"fmt"
)

// Calculator accumulates parameter values for one plot and scores them with
// an Engine. Unlike Engine it holds state and is not safe for concurrent use.
//
// SetParameter is the strict path: values outside [0,1] are rejected
// immediately. SetParameterResult is the permissive path: anything is
// accepted and range problems surface later as validation warnings.
type Calculator struct {
	engine *Engine
	meta   PlotMeta
	params map[Parameter]ParameterValue
}

// NewCalculator creates a calculator bound to engine (NewEngine() if nil).
func NewCalculator(engine *Engine, meta PlotMeta) *Calculator {
	if engine == nil {
		engine = NewEngine()
	}
	return &Calculator{
		engine: engine,
		meta:   meta,
		params: make(map[Parameter]ParameterValue),
	}
}

// SetParameter stores a single value. A non-positive uncertainty selects
// DefaultUncertainty.
func (c *Calculator) SetParameter(name Parameter, value, uncertainty float64) error {
	if !inUnitRange(value) {
		return fmt.Errorf("parameter %s value %g: %w", name, value, ErrOutOfRange)
	}
	if uncertainty <= 0 {
		uncertainty = DefaultUncertainty
	}
	c.params[name] = ParameterValue{Value: value, Uncertainty: uncertainty}
	return nil
}

// SetParameters stores several values through the strict setter. It stops at
// the first rejected value; values set before it are kept.
func (c *Calculator) SetParameters(values map[Parameter]float64) error {
	for _, p := range canonicalOrder(values) {
		if err := c.SetParameter(p, values[p], DefaultUncertainty); err != nil {
			return err
		}
	}
	return nil
}

// SetParameterResult stores the output of a per-parameter compute function.
func (c *Calculator) SetParameterResult(name Parameter, r ParameterResult) {
	c.params[name] = ParameterValue{
		Value:       r.Value,
		Uncertainty: r.Uncertainty,
		Metadata:    r.Metadata,
	}
}

// Parameters returns a copy of the loaded values.
func (c *Calculator) Parameters() map[Parameter]ParameterValue {
	out := make(map[Parameter]ParameterValue, len(c.params))
	for p, v := range c.params {
		out[p] = v
	}
	return out
}

// Reset clears all loaded values.
func (c *Calculator) Reset() {
	c.params = make(map[Parameter]ParameterValue)
}

// Validate checks the loaded values without scoring them.
func (c *Calculator) Validate() (bool, Warnings) {
	return c.engine.Validate(c.params)
}

// Compute scores the loaded values.
func (c *Calculator) Compute(validate bool) (IBRResult, error) {
	return c.engine.ComputePlot(c.meta, c.params, validate)
}

// ComputeFromRaw replaces the loaded values with every parameter derivable
// from raw and scores them with validation enabled. Parameters whose raw
// inputs are incomplete are left out; too many omissions fail validation.
func (c *Calculator) ComputeFromRaw(raw RawMeasurements) (IBRResult, error) {
	c.Reset()
	for p, r := range DeriveParameters(raw) {
		c.SetParameterResult(p, r)
	}
	return c.Compute(true)
}
