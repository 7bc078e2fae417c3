package biotica

import (
	"testing"
	"time"
)

func assessed(score float64, days int) IBRResult {
	return IBRResult{
		PlotID:          "G-1",
		NormalizedScore: score,
		Classification:  Classify(score),
		Timestamp:       at(days),
	}
}

func tippingAt(level int) *TippingPointResult {
	return &TippingPointResult{
		Status:              StatusOK,
		WarningLevel:        level,
		CriticalSlowingDown: level >= CriticalWarningLevel,
	}
}

func TestGovernor_Ladder(t *testing.T) {
	extreme := assessed(0.80, 0)
	extreme.Warnings = Warnings{extremeWarning(VCA, 0.1)}

	tests := []struct {
		name    string
		result  IBRResult
		tipping *TippingPointResult
		want    ActionType
	}{
		{"functional", assessed(0.80, 0), nil, ActionMonitor},
		{"pristine with degraded tipping", assessed(0.92, 0), &TippingPointResult{Status: StatusInsufficientData}, ActionMonitor},
		{"extreme parameter", extreme, nil, ActionWatch},
		{"impaired", assessed(0.70, 0), nil, ActionWatch},
		{"weak signal", assessed(0.80, 0), tippingAt(1), ActionWatch},
		{"critical slowing down", assessed(0.80, 0), tippingAt(2), ActionIntervene},
		{"degraded", assessed(0.55, 0), nil, ActionRestore},
		{"collapsed", assessed(0.40, 0), nil, ActionEmergency},
		{"imminent", assessed(0.58, 0), tippingAt(3), ActionEmergency},
		{"strong signal but healthy", assessed(0.80, 0), tippingAt(3), ActionIntervene},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewGovernor().Assess(tt.result, tt.tipping)
			if a.Type != tt.want {
				t.Errorf("Expected %s, got %s\n%s", tt.want, a.Type, a.Reason)
			}
			if a.Reason == "" || a.Mitigation == "" {
				t.Errorf("Action must explain itself: %+v", a)
			}
			if a.PlotID != "G-1" {
				t.Errorf("Expected plot id G-1, got %q", a.PlotID)
			}
		})
	}
}

func TestGovernor_FallingImpaired(t *testing.T) {
	g := NewGovernor()

	first := g.Assess(assessed(0.70, 0), nil)
	if first.Type != ActionWatch || first.Velocity != 0 {
		t.Errorf("First assessment: expected WATCH with zero velocity, got %s %g", first.Type, first.Velocity)
	}

	second := g.Assess(assessed(0.64, 30), nil)
	if second.Type != ActionIntervene {
		t.Errorf("Falling impaired plot: expected INTERVENE, got %s", second.Type)
	}
	AssertScoreNear(t, second.Velocity, -0.06, 1e-12)

	third := g.Assess(assessed(0.68, 60), nil)
	if third.Type != ActionWatch {
		t.Errorf("Recovering impaired plot: expected WATCH, got %s", third.Type)
	}
}

func TestGovernor_EmergencyHysteresis(t *testing.T) {
	g := NewGovernor()

	if a := g.Assess(assessed(0.40, 0), nil); a.Type != ActionEmergency {
		t.Fatalf("Expected EMERGENCY, got %s", a.Type)
	}
	if !g.InEmergency() {
		t.Fatalf("Expected emergency state")
	}

	// Recovered score but hold time not served.
	if a := g.Assess(assessed(0.80, 30), nil); a.Type != ActionEmergency {
		t.Errorf("Expected EMERGENCY to be held at day 30, got %s", a.Type)
	}
	// Hold served but critical slowing down persists.
	if a := g.Assess(assessed(0.80, 95), tippingAt(2)); a.Type != ActionEmergency {
		t.Errorf("Expected EMERGENCY to be held under critical slowing down, got %s", a.Type)
	}
	// Hold served, recovered, no signal.
	if a := g.Assess(assessed(0.80, 100), nil); a.Type != ActionMonitor {
		t.Errorf("Expected MONITOR after recovery, got %s", a.Type)
	}
	if g.InEmergency() {
		t.Errorf("Expected emergency state to be cleared")
	}

	stats := g.Statistics()
	if stats["emergencies"] != 1 || stats["assessments"] != 4 || stats["in_emergency"] != false {
		t.Errorf("Unexpected statistics %v", stats)
	}
}

func TestGovernor_Options(t *testing.T) {
	g := NewGovernor(WithEmergencyHold(0))
	g.Assess(assessed(0.40, 0), nil)
	if a := g.Assess(assessed(0.70, 1), nil); a.Type != ActionWatch {
		t.Errorf("Expected immediate exit to WATCH without a hold, got %s", a.Type)
	}

	strict := Thresholds{Pristine: 0.95, Functional: 0.9, Impaired: 0.85, Degraded: 0.8}
	g = NewGovernor(WithGovernorThresholds(strict), WithEmergencyHold(time.Hour))
	r := assessed(0.82, 0)
	r.Classification = strict.Classify(r.NormalizedScore)
	if a := g.Assess(r, nil); a.Type != ActionRestore {
		t.Errorf("Expected RESTORE under strict thresholds, got %s", a.Type)
	}
}

func TestActionType_Rank(t *testing.T) {
	order := []ActionType{ActionMonitor, ActionWatch, ActionIntervene, ActionRestore, ActionEmergency}
	for i, a := range order {
		if a.Rank() != i {
			t.Errorf("%s: expected rank %d, got %d", a, i, a.Rank())
		}
	}
	if ActionType("PANIC").Rank() != -1 {
		t.Errorf("Unknown action should rank -1")
	}

	if (Action{Type: ActionWatch}).Severe() || !(Action{Type: ActionRestore}).Severe() {
		t.Errorf("Only INTERVENE and above are severe")
	}
}
