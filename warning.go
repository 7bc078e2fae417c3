package biotica

import (
	"fmt"
	"sort"
	"strings"
)

// WarningCode classifies an advisory message attached to a result.
type WarningCode string

const (
	WarnMissingParameter WarningCode = "missing_parameter" // required parameter absent (invalidates strict compute)
	WarnExtraParameter   WarningCode = "extra_parameter"   // supplied but not weighted, ignored
	WarnOutOfRange       WarningCode = "out_of_range"      // value outside [0,1], still used
	WarnExtremeValue     WarningCode = "extreme_value"     // critical low (< 0.20) or unusually high (> 0.95)
	WarnThresholdNotice  WarningCode = "threshold_notice"  // COLLAPSED / DEGRADED notice after scoring
)

// Extreme-value bounds used by validation.
const (
	CriticalLowValue   = 0.20
	UnusuallyHighValue = 0.95
)

// Warning is a machine-checkable advisory. Message is the human rendering.
type Warning struct {
	Code      WarningCode `json:"code"`
	Parameter Parameter   `json:"parameter,omitempty"`
	Value     float64     `json:"value,omitempty"`
	Message   string      `json:"message"`
}

func (w Warning) String() string {
	return w.Message
}

func missingWarning(p Parameter) Warning {
	return Warning{
		Code:      WarnMissingParameter,
		Parameter: p,
		Message:   fmt.Sprintf("Missing parameter: %s", p),
	}
}

func extraWarning(p Parameter) Warning {
	return Warning{
		Code:      WarnExtraParameter,
		Parameter: p,
		Message:   fmt.Sprintf("Extra parameter (will be ignored): %s", p),
	}
}

func outOfRangeWarning(p Parameter, v float64) Warning {
	return Warning{
		Code:      WarnOutOfRange,
		Parameter: p,
		Value:     v,
		Message:   fmt.Sprintf("Parameter %s value %g out of range", p, v),
	}
}

func extremeWarning(p Parameter, v float64) Warning {
	msg := fmt.Sprintf("Unusually high value for %s: %.3f", p, v)
	if v < CriticalLowValue {
		msg = fmt.Sprintf("Critical low value for %s: %.3f", p, v)
	}
	return Warning{
		Code:      WarnExtremeValue,
		Parameter: p,
		Value:     v,
		Message:   msg,
	}
}

func noticeWarning(class Classification, score float64) Warning {
	msg := "WARNING: Ecosystem DEGRADED, intervention recommended"
	if class == Collapsed {
		msg = "CRITICAL: Ecosystem in COLLAPSED state"
	}
	return Warning{
		Code:    WarnThresholdNotice,
		Value:   score,
		Message: msg,
	}
}

// Warnings is a list of advisories with query helpers.
type Warnings []Warning

// Has reports whether any warning carries the code.
func (ws Warnings) Has(code WarningCode) bool {
	for _, w := range ws {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Parameters returns the sorted parameters named by warnings with the code.
func (ws Warnings) Parameters(code WarningCode) []Parameter {
	var out []Parameter
	for _, w := range ws {
		if w.Code == code && w.Parameter != "" {
			out = append(out, w.Parameter)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ValidationError is returned by a strict compute when required parameters
// are missing. It carries every warning produced by validation.
type ValidationError struct {
	Warnings Warnings
}

func (e *ValidationError) Error() string {
	missing := e.Warnings.Parameters(WarnMissingParameter)
	names := make([]string, len(missing))
	for i, p := range missing {
		names[i] = string(p)
	}
	return fmt.Sprintf("parameter validation failed: missing %s", strings.Join(names, ", "))
}
