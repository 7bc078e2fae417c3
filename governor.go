package biotica

import (
	"fmt"
	"sync"
	"time"
)

// Governor turns successive assessments of one plot into a management
// action. It follows the normalized score and its rate of change, and
// escalates on tipping-point evidence.
//
// Control loop:
//   - Small, continuous attention while the plot is FUNCTIONAL or better
//   - Closer monitoring when the plot slips to IMPAIRED or warnings appear
//   - Intervention when critical slowing down is detected
//   - Restoration when the plot is DEGRADED
//   - Emergency response once COLLAPSED, held until the plot has recovered
type Governor struct {
	mu sync.Mutex

	thresholds Thresholds

	lastScore float64
	lastAt    time.Time
	assessed  int

	// Hysteresis: leaving emergency needs both time and real recovery.
	inEmergency       bool
	emergencyEntered  time.Time
	emergencyMinSpell time.Duration
	emergencyExit     float64

	emergencies   int
	interventions int
	restorations  int
}

// ActionType is the governor's decision.
type ActionType string

const (
	ActionMonitor   ActionType = "MONITOR"   // healthy, routine monitoring
	ActionWatch     ActionType = "WATCH"     // early signs, monitor closely
	ActionIntervene ActionType = "INTERVENE" // critical slowing down, act before the transition
	ActionRestore   ActionType = "RESTORE"   // degraded, active restoration
	ActionEmergency ActionType = "EMERGENCY" // collapsed or imminent collapse
)

// Rank orders actions from MONITOR (0) to EMERGENCY (4); unknown types are -1.
func (t ActionType) Rank() int {
	switch t {
	case ActionMonitor:
		return 0
	case ActionWatch:
		return 1
	case ActionIntervene:
		return 2
	case ActionRestore:
		return 3
	case ActionEmergency:
		return 4
	}
	return -1
}

// Action is a decision and its reasoning.
type Action struct {
	Type           ActionType     `json:"type"`
	Reason         string         `json:"reason"`
	Mitigation     string         `json:"mitigation"`
	PlotID         string         `json:"plot_id,omitempty"`
	Score          float64        `json:"score"`
	Classification Classification `json:"classification"`
	WarningLevel   int            `json:"warning_level"`
	Velocity       float64        `json:"velocity"` // score change per 30 days
	Timestamp      time.Time      `json:"timestamp"`
}

// Severe reports whether the action calls for more than monitoring.
func (a Action) Severe() bool {
	switch a.Type {
	case ActionIntervene, ActionRestore, ActionEmergency:
		return true
	}
	return false
}

// GovernorOption configures a Governor.
type GovernorOption func(*Governor)

// WithGovernorThresholds sets the classification bounds the governor reasons with.
func WithGovernorThresholds(t Thresholds) GovernorOption {
	return func(g *Governor) {
		g.thresholds = t
		g.emergencyExit = t.Impaired
	}
}

// WithEmergencyHold sets the minimum time spent in emergency once entered.
func WithEmergencyHold(d time.Duration) GovernorOption {
	return func(g *Governor) { g.emergencyMinSpell = d }
}

// NewGovernor creates a governor with the default thresholds. Emergency is
// held for at least 90 days and until the score exceeds the IMPAIRED bound.
func NewGovernor(opts ...GovernorOption) *Governor {
	t := DefaultThresholds()
	g := &Governor{
		thresholds:        t,
		emergencyMinSpell: 90 * 24 * time.Hour,
		emergencyExit:     t.Impaired,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Assess decides the action for result. tipping may be nil when no series
// analysis is available; degraded tipping results count as no evidence.
// Time is taken from result.Timestamp so that replaying history gives the
// same decisions.
func (g *Governor) Assess(result IBRResult, tipping *TippingPointResult) Action {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := result.Timestamp
	score := result.NormalizedScore

	var velocity float64
	if g.assessed > 0 {
		if days := now.Sub(g.lastAt).Hours() / 24; days > 0 {
			velocity = (score - g.lastScore) / days * 30
		}
	}
	g.lastScore, g.lastAt = score, now
	g.assessed++

	level := 0
	if tipping != nil && !tipping.Degraded() {
		level = tipping.WarningLevel
	}

	action := Action{
		PlotID:         result.PlotID,
		Score:          score,
		Classification: result.Classification,
		WarningLevel:   level,
		Velocity:       velocity,
		Timestamp:      now,
	}

	// EMERGENCY, with hysteresis on exit
	if g.inEmergency {
		held := now.Sub(g.emergencyEntered)
		if held >= g.emergencyMinSpell && score > g.emergencyExit && level < CriticalWarningLevel {
			g.inEmergency = false
		} else {
			action.Type = ActionEmergency
			action.Reason = fmt.Sprintf(
				"EMERGENCY (held): score=%.3f after %.0f days\n"+
					"  Exit needs %.0f days and score > %.2f without critical slowing down",
				score, held.Hours()/24, g.emergencyMinSpell.Hours()/24, g.emergencyExit)
			action.Mitigation = "Continue emergency measures until recovery is sustained"
			return action
		}
	}
	if result.Classification == Collapsed || (level >= MaxWarningLevel && score <= g.thresholds.Impaired) {
		if !g.inEmergency {
			g.inEmergency = true
			g.emergencyEntered = now
			g.emergencies++
		}
		action.Type = ActionEmergency
		action.Reason = fmt.Sprintf(
			"EMERGENCY: score=%.3f (%s), warning level %d/3\n"+
				"  Ecosystem function lost or transition imminent",
			score, result.Classification, level)
		action.Mitigation = "IMMEDIATE ACTIONS:\n" +
			"  1. Stop active pressures (harvest, grazing, drainage)\n" +
			"  2. Protect remaining refugia and seed sources\n" +
			"  3. Increase survey frequency to monthly"
		return action
	}

	// RESTORE: DEGRADED
	if result.Classification == Degraded {
		g.restorations++
		action.Type = ActionRestore
		action.Reason = fmt.Sprintf(
			"DEGRADED: score=%.3f (margin to collapse %.3f)\n"+
				"  Velocity: %+.4f per 30 days",
			score, score-g.thresholds.Degraded, velocity)
		action.Mitigation = "RESTORATION:\n" +
			"  1. Target the lowest-contributing parameters\n" +
			"  2. Run intervention scenarios before committing resources"
		return action
	}

	// INTERVENE: critical slowing down, or IMPAIRED and falling
	if level >= CriticalWarningLevel || (result.Classification == Impaired && velocity < 0) {
		g.interventions++
		action.Type = ActionIntervene
		action.Reason = fmt.Sprintf(
			"INTERVENE: score=%.3f, warning level %d/3, velocity %+.4f per 30 days",
			score, level, velocity)
		action.Mitigation = "Reduce pressures now; critical slowing down precedes abrupt loss"
		return action
	}

	// WATCH: IMPAIRED, weak signals or extreme parameter values
	if result.Classification == Impaired || level > 0 || result.Warnings.Has(WarnExtremeValue) {
		action.Type = ActionWatch
		action.Reason = fmt.Sprintf(
			"WATCH: score=%.3f (%s), warning level %d/3",
			score, result.Classification, level)
		action.Mitigation = "Monitor closely and review flagged parameters"
		return action
	}

	action.Type = ActionMonitor
	action.Reason = fmt.Sprintf("STABLE: score=%.3f (%s)", score, result.Classification)
	action.Mitigation = "No action required. Continue monitoring."
	return action
}

// InEmergency reports whether the governor is holding the emergency state.
func (g *Governor) InEmergency() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inEmergency
}

// Statistics returns operational counters.
func (g *Governor) Statistics() map[string]interface{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return map[string]interface{}{
		"assessments":   g.assessed,
		"last_score":    g.lastScore,
		"in_emergency":  g.inEmergency,
		"emergencies":   g.emergencies,
		"interventions": g.interventions,
		"restorations":  g.restorations,
	}
}
