package distribution

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"utility-billing/internal/formula"
)

// Distributor splits a shared service cost among properties according to
// the service configuration's method. Methods that cannot run with the data
// at hand fall back to an equal split and record the reason in the result
// metadata.
type Distributor struct {
	evaluator *formula.Evaluator
	logger    *log.Logger
}

// NewDistributor constructs a distributor.
func NewDistributor(evaluator *formula.Evaluator, logger *log.Logger) (*Distributor, error) {
	if evaluator == nil {
		return nil, errors.New("distributor: nil formula evaluator")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Distributor{evaluator: evaluator, logger: logger}, nil
}

// Distribute allocates totalCost among properties. The period label is
// recorded in consumption-method metadata. Validation failures return a
// *ValidationError; fallbacks do not.
func (d *Distributor) Distribute(config ServiceConfiguration, properties []Property, totalCost float64, periodLabel string) (Result, error) {
	var problems []string
	if totalCost < 0 {
		problems = append(problems, "total cost cannot be negative")
	}
	if !config.Method.Supported() {
		problems = append(problems, fmt.Sprintf("unsupported distribution method %q", config.Method))
	}
	problems = append(problems, d.ValidateProperties(config, properties)...)
	if len(problems) > 0 {
		return Result{}, &ValidationError{Problems: problems}
	}

	// Edge cases take priority over the configured method, in this order.
	if totalCost <= 0 {
		return zeroDistribution(properties), nil
	}
	if len(properties) == 0 {
		return emptyResult(), nil
	}
	if len(properties) == 1 {
		return Result{
			Shares:    map[string]float64{properties[0].ID: totalCost},
			TotalCost: totalCost,
			Metadata:  map[string]any{"reason": "single_property"},
		}, nil
	}

	switch config.Method {
	case MethodEqual:
		return distributeEqually(properties, totalCost), nil
	case MethodArea:
		return distributeByArea(properties, totalCost, config), nil
	case MethodByConsumption:
		return distributeByConsumption(properties, totalCost, periodLabel), nil
	case MethodCustomFormula:
		return d.distributeByFormula(properties, totalCost, config), nil
	}
	return Result{}, &ValidationError{Problems: []string{fmt.Sprintf("unsupported distribution method %q", config.Method)}}
}

// ValidateProperties returns the data problems that would prevent the
// configured method from running. An empty slice means the inputs are usable.
func (d *Distributor) ValidateProperties(config ServiceConfiguration, properties []Property) []string {
	var errs []string

	if config.Method.requiresAreaData() {
		for _, p := range properties {
			if p.AreaSqm <= 0 {
				errs = append(errs, fmt.Sprintf("property %s missing or invalid area data", p.ID))
			}
		}
	}

	if config.Method.requiresConsumptionData() {
		for _, p := range properties {
			if p.HistoricalConsumption < 0 {
				errs = append(errs, fmt.Sprintf("property %s missing or invalid consumption data", p.ID))
			}
		}
	}

	if config.Method == MethodCustomFormula {
		if config.Formula == "" {
			errs = append(errs, "custom formula is required but not provided")
		} else if !d.evaluator.Validate(config.Formula) {
			errs = append(errs, "invalid custom formula syntax")
		}
	}

	return errs
}

func distributeEqually(properties []Property, totalCost float64) Result {
	perProperty := totalCost / float64(len(properties))
	shares := make(map[string]float64, len(properties))
	for _, p := range properties {
		shares[p.ID] = perProperty
	}
	return Result{
		Shares:    shares,
		TotalCost: totalCost,
		Metadata:  map[string]any{"method": "equal", "amount_per_property": perProperty},
	}
}

func distributeByArea(properties []Property, totalCost float64, config ServiceConfiguration) Result {
	var totalArea float64
	for _, p := range properties {
		totalArea += p.AreaSqm
	}
	if totalArea <= 0 {
		result := distributeEqually(properties, totalCost)
		result.Metadata["fallback_reason"] = "no_area_data"
		return result
	}

	shares := make(map[string]float64, len(properties))
	for _, p := range properties {
		shares[p.ID] = totalCost * (p.AreaSqm / totalArea)
	}
	areaType := config.AreaType
	if areaType == "" {
		areaType = "total_area"
	}
	return Result{
		Shares:    shares,
		TotalCost: totalCost,
		Metadata: map[string]any{
			"method":     "area",
			"total_area": totalArea,
			"area_type":  areaType,
		},
	}
}

func distributeByConsumption(properties []Property, totalCost float64, periodLabel string) Result {
	var totalConsumption float64
	for _, p := range properties {
		totalConsumption += p.HistoricalConsumption
	}
	if totalConsumption <= 0 {
		result := distributeEqually(properties, totalCost)
		result.Metadata["fallback_reason"] = "no_consumption_data"
		return result
	}

	shares := make(map[string]float64, len(properties))
	for _, p := range properties {
		shares[p.ID] = totalCost * (p.HistoricalConsumption / totalConsumption)
	}
	return Result{
		Shares:    shares,
		TotalCost: totalCost,
		Metadata: map[string]any{
			"method":            "consumption",
			"total_consumption": totalConsumption,
			"billing_period":    periodLabel,
		},
	}
}

func (d *Distributor) distributeByFormula(properties []Property, totalCost float64, config ServiceConfiguration) Result {
	if config.Formula == "" {
		result := distributeEqually(properties, totalCost)
		result.Metadata["fallback_reason"] = "no_formula"
		return result
	}

	values := make(map[string]float64, len(properties))
	var totalValue float64
	for _, p := range properties {
		variables := map[string]float64{
			"area":        p.AreaSqm,
			"consumption": p.HistoricalConsumption,
			"property_id": numericPropertyID(p.ID),
		}
		value, err := d.evaluator.Evaluate(config.Formula, variables)
		if err != nil {
			d.logger.Printf("distribution: formula %q failed for property %s: %v", config.Formula, p.ID, err)
			result := distributeEqually(properties, totalCost)
			result.Metadata["fallback_reason"] = "formula_error"
			result.Metadata["error"] = err.Error()
			return result
		}
		values[p.ID] = value
		totalValue += value
	}

	if totalValue <= 0 {
		result := distributeEqually(properties, totalCost)
		result.Metadata["fallback_reason"] = "zero_formula_result"
		return result
	}

	shares := make(map[string]float64, len(properties))
	for _, p := range properties {
		shares[p.ID] = totalCost * (values[p.ID] / totalValue)
	}
	return Result{
		Shares:    shares,
		TotalCost: totalCost,
		Metadata: map[string]any{
			"method":              "custom_formula",
			"formula":             config.Formula,
			"total_formula_value": totalValue,
			"formula_values":      values,
		},
	}
}

func zeroDistribution(properties []Property) Result {
	shares := make(map[string]float64, len(properties))
	for _, p := range properties {
		shares[p.ID] = 0
	}
	return Result{
		Shares:    shares,
		TotalCost: 0,
		Metadata:  map[string]any{"reason": "zero_cost"},
	}
}

// numericPropertyID exposes the property id to formulas. Non-numeric ids
// evaluate to 0.
func numericPropertyID(id string) float64 {
	value, err := strconv.ParseFloat(id, 64)
	if err != nil {
		return 0
	}
	return value
}
