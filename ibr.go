package biotica

import (
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
)

// Classification is one of the five resilience tiers.
type Classification string

const (
	Pristine   Classification = "PRISTINE"   // normalized score > 0.88
	Functional Classification = "FUNCTIONAL" // 0.75 < s ≤ 0.88
	Impaired   Classification = "IMPAIRED"   // 0.60 < s ≤ 0.75
	Degraded   Classification = "DEGRADED"   // 0.45 < s ≤ 0.60
	Collapsed  Classification = "COLLAPSED"  // s ≤ 0.45
)

// AllClassifications returns the tiers from best to worst.
func AllClassifications() []Classification {
	return []Classification{Pristine, Functional, Impaired, Degraded, Collapsed}
}

// Thresholds are the exclusive lower bounds of each tier.
// A score belongs to the first tier (top-down) whose bound it strictly exceeds.
type Thresholds struct {
	Pristine   float64 `yaml:"pristine" json:"pristine"`
	Functional float64 `yaml:"functional" json:"functional"`
	Impaired   float64 `yaml:"impaired" json:"impaired"`
	Degraded   float64 `yaml:"degraded" json:"degraded"`
}

// DefaultThresholds returns the published tier bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pristine:   0.88,
		Functional: 0.75,
		Impaired:   0.60,
		Degraded:   0.45,
	}
}

// Classify maps a normalized score to its tier.
func (t Thresholds) Classify(score float64) Classification {
	switch {
	case score > t.Pristine:
		return Pristine
	case score > t.Functional:
		return Functional
	case score > t.Impaired:
		return Impaired
	case score > t.Degraded:
		return Degraded
	default:
		return Collapsed
	}
}

// Classify maps a normalized score to its tier using DefaultThresholds.
func Classify(score float64) Classification {
	return DefaultThresholds().Classify(score)
}

// BiomeCorrection adjusts a normalized score given the parameter values that
// produced it. The engine calls it before classification when configured.
type BiomeCorrection func(score float64, params map[Parameter]float64) float64

// PlotMeta identifies the plot a computation belongs to. Both fields are optional.
type PlotMeta struct {
	PlotID string `json:"plot_id,omitempty"`
	Biome  Biome  `json:"biome,omitempty"`
}

// IBRResult is the complete outcome of one composite computation.
type IBRResult struct {
	ID              string                 `json:"id"`
	Score           float64                `json:"score"`
	NormalizedScore float64                `json:"normalized_score"`
	Classification  Classification         `json:"classification"`
	Contributions   map[Parameter]float64  `json:"contributions"`
	Uncertainty     float64                `json:"uncertainty"`
	Confidence      float64                `json:"confidence"`
	Warnings        Warnings               `json:"warnings"`
	PlotID          string                 `json:"plot_id,omitempty"`
	Biome           Biome                  `json:"biome,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// ToMap renders the result as a plain key-value structure for reporting and
// export. Every field is present; absent plot id and biome are nil.
func (r IBRResult) ToMap() map[string]interface{} {
	contributions := make(map[string]interface{}, len(r.Contributions))
	for p, c := range r.Contributions {
		contributions[string(p)] = c
	}
	warnings := make([]interface{}, len(r.Warnings))
	for i, w := range r.Warnings {
		warnings[i] = map[string]interface{}{
			"code":      string(w.Code),
			"parameter": string(w.Parameter),
			"value":     w.Value,
			"message":   w.Message,
		}
	}
	var plotID, biome interface{}
	if r.PlotID != "" {
		plotID = r.PlotID
	}
	if r.Biome != "" {
		biome = string(r.Biome)
	}
	return map[string]interface{}{
		"id":               r.ID,
		"score":            r.Score,
		"normalized_score": r.NormalizedScore,
		"classification":   string(r.Classification),
		"contributions":    contributions,
		"uncertainty":      r.Uncertainty,
		"confidence":       r.Confidence,
		"warnings":         warnings,
		"plot_id":          plotID,
		"biome":            biome,
		"timestamp":        r.Timestamp.Format(time.RFC3339Nano),
		"metadata":         r.Metadata,
	}
}

// Engine computes IBR composites. Its configuration is fixed at
// construction and an Engine is safe for concurrent use.
type Engine struct {
	weights    WeightTable
	thresholds Thresholds
	correction BiomeCorrection
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWeights replaces the default weight table.
func WithWeights(w WeightTable) EngineOption {
	return func(e *Engine) { e.weights = w }
}

// WithThresholds replaces the default classification bounds.
func WithThresholds(t Thresholds) EngineOption {
	return func(e *Engine) { e.thresholds = t }
}

// WithBiomeCorrection installs a correction hook applied to the normalized
// score before classification.
func WithBiomeCorrection(fn BiomeCorrection) EngineOption {
	return func(e *Engine) { e.correction = fn }
}

// WithLogger sets the engine logger. The default discards output.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine with the default weights and thresholds.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		weights:    DefaultWeights(),
		thresholds: DefaultThresholds(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the engine's weight table.
func (e *Engine) Weights() WeightTable {
	return e.weights
}

// Thresholds returns the engine's classification bounds.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Validate checks a parameter batch against the weight table.
//
// Missing weighted parameters invalidate the batch. Extra parameters,
// out-of-range values and extreme-but-valid values only produce warnings.
func (e *Engine) Validate(params map[Parameter]ParameterValue) (bool, Warnings) {
	var warnings Warnings
	valid := true

	for _, p := range e.weights.Parameters() {
		if _, ok := params[p]; !ok {
			warnings = append(warnings, missingWarning(p))
			valid = false
		}
	}

	supplied := sortedKeys(params)
	for _, p := range supplied {
		if !e.weights.Has(p) {
			warnings = append(warnings, extraWarning(p))
		}
	}

	for _, p := range supplied {
		v := params[p].Value
		if !inUnitRange(v) {
			warnings = append(warnings, outOfRangeWarning(p, v))
		}
	}

	for _, p := range supplied {
		v := params[p].Value
		if v < CriticalLowValue || v > UnusuallyHighValue {
			warnings = append(warnings, extremeWarning(p, v))
		}
	}

	return valid, warnings
}

// Compute scores a parameter batch without plot metadata.
func (e *Engine) Compute(params map[Parameter]ParameterValue, validate bool) (IBRResult, error) {
	return e.ComputePlot(PlotMeta{}, params, validate)
}

// ComputePlot scores a parameter batch for one plot.
//
// Only parameters present in both params and the weight table contribute:
//
//	score      = Σ vᵢwᵢ
//	normalized = score / Σ wᵢ
//	σ          = √Σ wᵢ²σᵢ²
//
// With validate set, missing weighted parameters return a *ValidationError.
func (e *Engine) ComputePlot(meta PlotMeta, params map[Parameter]ParameterValue, validate bool) (IBRResult, error) {
	var warnings Warnings
	if validate {
		valid, ws := e.Validate(params)
		if !valid {
			e.logger.Warn("ibr validation failed",
				"plot_id", meta.PlotID,
				"missing", len(ws.Parameters(WarnMissingParameter)))
			return IBRResult{}, &ValidationError{Warnings: ws}
		}
		warnings = ws
	}

	var (
		raw           float64
		totalWeight   float64
		uncertaintySq float64
		used          = make(map[Parameter]float64, len(params))
		contributions = make(map[Parameter]float64, len(params))
	)
	for _, p := range e.weights.Parameters() {
		pv, ok := params[p]
		if !ok {
			continue
		}
		w, _ := e.weights.Weight(p)
		c := pv.Value * w
		raw += c
		totalWeight += w
		contributions[p] = c
		used[p] = pv.Value
		sigma := pv.uncertainty()
		uncertaintySq += w * w * sigma * sigma
	}

	normalized := 0.0
	if totalWeight > 0 {
		normalized = raw / totalWeight
	}
	corrected := false
	if e.correction != nil {
		normalized = e.correction(normalized, used)
		corrected = true
	}

	uncertainty := math.Sqrt(uncertaintySq)
	confidence := clamp(1-uncertainty, 0, 1)
	class := e.thresholds.Classify(normalized)

	if normalized < e.thresholds.Impaired {
		noticeClass := Degraded
		if normalized < e.thresholds.Degraded {
			noticeClass = Collapsed
		}
		warnings = append(warnings, noticeWarning(noticeClass, normalized))
	}

	result := IBRResult{
		ID:              e.newID(),
		Score:           raw,
		NormalizedScore: normalized,
		Classification:  class,
		Contributions:   contributions,
		Uncertainty:     uncertainty,
		Confidence:      confidence,
		Warnings:        warnings,
		PlotID:          meta.PlotID,
		Biome:           meta.Biome,
		Timestamp:       e.now(),
		Metadata: map[string]interface{}{
			"n_parameters":      len(used),
			"total_weight":      totalWeight,
			"validation_passed": validate,
			"biome_corrected":   corrected,
			"method":            "weighted_sum",
		},
	}

	e.logger.Debug("ibr computed",
		"plot_id", meta.PlotID,
		"score", normalized,
		"classification", class,
		"warnings", len(warnings))

	return result, nil
}

func sortedKeys(params map[Parameter]ParameterValue) []Parameter {
	m := make(map[Parameter]float64, len(params))
	for p := range params {
		m[p] = 0
	}
	return canonicalOrder(m)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
