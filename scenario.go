package biotica

import (
	"errors"
	"fmt"
	"sort"
)

// Scenario is a named set of parameter overrides applied to a baseline.
type Scenario struct {
	Name      string                `json:"name"`
	Overrides map[Parameter]float64 `json:"overrides"`
}

// ScenarioOutcome is the score of one scenario and its gain over baseline.
type ScenarioOutcome struct {
	Name   string    `json:"name"`
	Result IBRResult `json:"result"`
	Gain   float64   `json:"gain"`
}

// ScenarioReport compares intervention scenarios against the baseline.
type ScenarioReport struct {
	Baseline IBRResult         `json:"baseline"`
	Outcomes []ScenarioOutcome `json:"outcomes"`
	Best     string            `json:"best"`
}

// SimulateScenarios scores base and every scenario applied on top of it.
// Scores are computed without validation so partial baselines work; override
// values must lie in [0,1]. Best names the scenario with the highest
// normalized score, the first one on ties, or "" if none beats baseline.
func (e *Engine) SimulateScenarios(base map[Parameter]float64, scenarios []Scenario) (ScenarioReport, error) {
	baseline, err := e.Compute(Values(base), false)
	if err != nil {
		return ScenarioReport{}, err
	}

	report := ScenarioReport{Baseline: baseline, Outcomes: make([]ScenarioOutcome, 0, len(scenarios))}
	bestScore := baseline.NormalizedScore
	for _, sc := range scenarios {
		params := make(map[Parameter]float64, len(base)+len(sc.Overrides))
		for p, v := range base {
			params[p] = v
		}
		for p, v := range sc.Overrides {
			if !inUnitRange(v) {
				return ScenarioReport{}, fmt.Errorf("scenario %q parameter %s value %g: %w", sc.Name, p, v, ErrOutOfRange)
			}
			params[p] = v
		}

		r, err := e.Compute(Values(params), false)
		if err != nil {
			return ScenarioReport{}, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		report.Outcomes = append(report.Outcomes, ScenarioOutcome{
			Name:   sc.Name,
			Result: r,
			Gain:   r.NormalizedScore - baseline.NormalizedScore,
		})
		if r.NormalizedScore > bestScore {
			bestScore = r.NormalizedScore
			report.Best = sc.Name
		}
	}
	return report, nil
}

// CriticalSensitivity marks a parameter whose full swing moves the score by
// more than a quarter of that swing.
const CriticalSensitivity = 0.25

// SensitivityResult describes how the score responds to one parameter.
type SensitivityResult struct {
	Parameter   Parameter `json:"parameter"`
	Values      []float64 `json:"values"`
	Scores      []float64 `json:"scores"`
	MinScore    float64   `json:"min_score"`
	MaxScore    float64   `json:"max_score"`
	Sensitivity float64   `json:"sensitivity"` // score range per unit of parameter range
	Critical    bool      `json:"critical"`
}

// Sensitivity varies param over steps evenly spaced values from lo to hi,
// holding the rest of base fixed, and reports (max - min score)/(hi - lo).
func (e *Engine) Sensitivity(base map[Parameter]float64, param Parameter, lo, hi float64, steps int) (SensitivityResult, error) {
	if steps < 2 {
		return SensitivityResult{}, errors.New("sensitivity needs at least 2 steps")
	}
	if hi <= lo {
		return SensitivityResult{}, fmt.Errorf("sensitivity range [%g, %g] is empty", lo, hi)
	}

	res := SensitivityResult{
		Parameter: param,
		Values:    make([]float64, steps),
		Scores:    make([]float64, steps),
	}
	params := make(map[Parameter]float64, len(base)+1)
	for p, v := range base {
		params[p] = v
	}
	for i := 0; i < steps; i++ {
		v := lo + (hi-lo)*float64(i)/float64(steps-1)
		params[param] = v
		r, err := e.Compute(Values(params), false)
		if err != nil {
			return SensitivityResult{}, err
		}
		res.Values[i] = v
		res.Scores[i] = r.NormalizedScore
	}

	s := CalculateStatistics(res.Scores)
	res.MinScore, res.MaxScore = s.Min, s.Max
	res.Sensitivity = (s.Max - s.Min) / (hi - lo)
	res.Critical = res.Sensitivity > CriticalSensitivity
	return res, nil
}

// SensitivityAll runs Sensitivity for every weighted parameter and orders the
// results from most to least sensitive.
func (e *Engine) SensitivityAll(base map[Parameter]float64, lo, hi float64, steps int) ([]SensitivityResult, error) {
	out := make([]SensitivityResult, 0, e.weights.Len())
	for _, p := range e.weights.Parameters() {
		r, err := e.Sensitivity(base, p, lo, hi, steps)
		if err != nil {
			return nil, fmt.Errorf("sensitivity of %s: %w", p, err)
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sensitivity > out[j].Sensitivity })
	return out, nil
}
