package distribution

import (
	"fmt"
	"strings"
)

// Method selects how a shared service cost is split among properties.
type Method string

const (
	MethodEqual         Method = "equal"
	MethodArea          Method = "area"
	MethodByConsumption Method = "by_consumption"
	MethodCustomFormula Method = "custom_formula"
)

// Supported reports whether the method is one of the known methods.
func (m Method) Supported() bool {
	switch m {
	case MethodEqual, MethodArea, MethodByConsumption, MethodCustomFormula:
		return true
	}
	return false
}

func (m Method) requiresAreaData() bool        { return m == MethodArea }
func (m Method) requiresConsumptionData() bool { return m == MethodByConsumption }

// ServiceConfiguration describes one shared service and its distribution
// rules.
type ServiceConfiguration struct {
	Name     string
	Method   Method
	Formula  string // custom_formula only
	AreaType string // area only, informational (defaults to "total_area")
}

// Property is one cost-bearing unit. A zero AreaSqm means the area is
// unknown; HistoricalConsumption of zero is a valid measurement.
type Property struct {
	ID                    string
	AreaSqm               float64
	HistoricalConsumption float64
}

// Result is the outcome of one distribution. Shares maps property id to
// allocated amount. Metadata records the method used and any fallback taken;
// a fallback is reported here, never as an error.
type Result struct {
	Shares    map[string]float64
	TotalCost float64
	Metadata  map[string]any
}

// FallbackReason returns the fallback_reason metadata value, if any.
func (r Result) FallbackReason() string {
	reason, _ := r.Metadata["fallback_reason"].(string)
	return reason
}

// emptyResult is the distribution over zero properties.
func emptyResult() Result {
	return Result{
		Shares:    map[string]float64{},
		TotalCost: 0,
		Metadata:  map[string]any{"reason": "empty_properties"},
	}
}

// ValidationError reports why a distribution request was rejected before
// any method ran.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("distribution: validation failed: %s", strings.Join(e.Problems, "; "))
}
