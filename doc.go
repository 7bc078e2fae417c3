// Package biotica computes the Index of Biotic Resilience (IBR) and watches
// its time series for early warnings of ecosystem collapse.
//
// # Overview
//
// The IBR is a weighted composite of nine ecological parameters, each
// normalized to [0,1]:
//
//	VCA  Vegetative Carbon Absorption      0.20
//	MDI  Microbial Diversity Index         0.15
//	PTS  Phenological Time Shift           0.12
//	HFI  Hydrological Flux Index           0.11
//	BNC  Biogeochemical Nutrient Cycle     0.10
//	SGH  Species Genetic Heterogeneity     0.09
//	AES  Anthropogenic Encroachment Score  0.08
//	TMI  Trophic Metadata Integration      0.08
//	RRC  Regenerative Recovery Capacity    0.07
//
// The normalized score places a plot in one of five tiers:
//
//	PRISTINE    > 0.88
//	FUNCTIONAL  > 0.75
//	IMPAIRED    > 0.60
//	DEGRADED    > 0.45
//	COLLAPSED   ≤ 0.45
//
// # Architecture
//
// The package components:
//
//   - ibr, calculator   - Composite engine and stateful per-plot calculator
//   - weights, warning  - Immutable weight tables and structured warnings
//   - measures          - Derivation of parameters from raw field measurements
//   - tipping, spatial  - Critical slowing down detection, per series and per grid
//   - ews               - Rolling early-warning indicators with kurtosis
//   - biome             - Biome reference profiles, similarity and transition zones
//   - batch, scenario   - Concurrent batch scoring, interventions and sensitivity
//   - history, governor - Streamed score history and management decisions
//   - assertions        - Test helpers for scoring and detection properties
//
// # Quick Start
//
//	engine := biotica.NewEngine()
//	result, err := engine.Compute(biotica.Values(map[biotica.Parameter]float64{
//	    biotica.VCA: 0.85, biotica.MDI: 0.78, biotica.PTS: 0.82,
//	    biotica.HFI: 0.75, biotica.BNC: 0.80, biotica.SGH: 0.77,
//	    biotica.AES: 0.70, biotica.TMI: 0.83, biotica.RRC: 0.72,
//	}), true)
//	if err != nil {
//	    var verr *biotica.ValidationError
//	    if errors.As(err, &verr) {
//	        log.Fatalf("missing: %v", verr.Warnings.Parameters(biotica.WarnMissingParameter))
//	    }
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Classification) // FUNCTIONAL
//
// # Errors
//
// Failures come in three tiers:
//
//   - Fatal: an error return. ErrOutOfRange from the strict setter and
//     *ValidationError when required parameters are missing.
//   - Advisory: Warnings on an otherwise valid IBRResult.
//   - Degraded: a TippingPointResult whose Status is not StatusOK. It carries
//     warning level 0 and an explanation, and means "insufficient evidence".
//
// # Early Warnings
//
// Approaching a critical transition, a system recovers more slowly from
// perturbations. In a monthly IBR series this shows up as rising variance and
// rising lag-1 autocorrelation inside rolling windows:
//
//	detector := biotica.MustDetector(biotica.DefaultDetectorConfig())
//	tp := detector.Detect(scores, nil)
//	if tp.CriticalSlowingDown {
//	    log.Printf("warning level %d/3, about %d months", tp.WarningLevel, tp.EstimatedMonths)
//	}
//
// The engine, detector and registry hold only immutable configuration and are
// safe for concurrent use.
package biotica
