package application

import (
	"context"
	"errors"
	"log"

	billing "utility-billing/internal/billing/domain"
	"utility-billing/internal/distribution"
)

// BuildingPropertyLister loads the cost-bearing properties of a building.
type BuildingPropertyLister interface {
	ListByBuilding(ctx context.Context, buildingID string) ([]distribution.Property, error)
}

// CirculationCostSource returns the building's total hot water circulation
// cost for a billing period.
type CirculationCostSource interface {
	CirculationCost(ctx context.Context, buildingID string, period billing.BillingPeriod) (float64, error)
}

// CirculationService splits a building's hot water circulation cost across
// its properties and turns one property's share into an invoice item.
type CirculationService struct {
	properties  BuildingPropertyLister
	costs       CirculationCostSource
	distributor *distribution.Distributor
	config      distribution.ServiceConfiguration
	ids         IDGenerator
	logger      *log.Logger
}

// NewCirculationService constructs the service. The distribution config
// defaults to an equal split when its method is empty.
func NewCirculationService(
	properties BuildingPropertyLister,
	costs CirculationCostSource,
	distributor *distribution.Distributor,
	config distribution.ServiceConfiguration,
	ids IDGenerator,
	logger *log.Logger,
) (*CirculationService, error) {
	if properties == nil {
		return nil, errors.New("circulation service: nil property lister")
	}
	if costs == nil {
		return nil, errors.New("circulation service: nil cost source")
	}
	if distributor == nil {
		return nil, errors.New("circulation service: nil distributor")
	}
	if ids == nil {
		return nil, errors.New("circulation service: nil id generator")
	}
	if config.Method == "" {
		config.Method = distribution.MethodEqual
	}
	if config.Name == "" {
		config.Name = "hot_water_circulation"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CirculationService{
		properties:  properties,
		costs:       costs,
		distributor: distributor,
		config:      config,
		ids:         ids,
		logger:      logger,
	}, nil
}

// ItemFor returns the invoice item covering the property's share of the
// building's circulation cost, or nil when there is nothing to charge.
func (s *CirculationService) ItemFor(ctx context.Context, buildingID, propertyID string, period billing.BillingPeriod) (*billing.InvoiceItem, error) {
	totalCost, err := s.costs.CirculationCost(ctx, buildingID, period)
	if err != nil {
		return nil, err
	}
	if totalCost <= 0 {
		return nil, nil
	}

	properties, err := s.properties.ListByBuilding(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	if len(properties) == 0 {
		return nil, nil
	}

	result, err := s.distributor.Distribute(s.config, properties, totalCost, period.Label())
	if err != nil {
		return nil, err
	}
	if reason := result.FallbackReason(); reason != "" {
		s.logger.Printf("circulation: building %s fell back to equal split (%s)", buildingID, reason)
	}

	share, ok := result.Shares[propertyID]
	if !ok || share <= 0 {
		return nil, nil
	}
	share = billing.Round2(share)

	return &billing.InvoiceItem{
		ID:          s.ids.NewID(),
		Description: "Hot Water Circulation",
		Quantity:    1,
		Unit:        "month",
		UnitPrice:   share,
		Total:       share,
		Snapshot: billing.ReadingSnapshot{
			BuildingID:  buildingID,
			PropertyID:  propertyID,
			Calculation: "circulation",
		},
	}, nil
}
