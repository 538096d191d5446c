package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	billing "utility-billing/internal/billing/domain"
	tariff "utility-billing/internal/tariff/domain"
)

// ProviderFinder resolves the provider serving a utility service.
type ProviderFinder interface {
	FindProviderByService(ctx context.Context, serviceType tariff.ServiceType) (*tariff.Provider, error)
}

// TariffResolver resolves tariffs and prices consumption.
type TariffResolver interface {
	Resolve(ctx context.Context, providerID string, date time.Time) (*tariff.Tariff, error)
	CalculateCost(t *tariff.Tariff, consumption float64, at time.Time) float64
}

// CirculationCharger contributes the tenant's share of the building's hot
// water circulation cost.
type CirculationCharger interface {
	ItemFor(ctx context.Context, buildingID, propertyID string, period billing.BillingPeriod) (*billing.InvoiceItem, error)
}

// InvoiceGenerated is emitted after a draft invoice is persisted.
type InvoiceGenerated struct {
	InvoiceID   string
	TenantID    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	TotalAmount float64
	ItemCount   int
	OccurredAt  time.Time
}

// InvoiceFinalized is emitted when a draft invoice becomes immutable.
type InvoiceFinalized struct {
	InvoiceID   string
	TenantID    string
	TotalAmount float64
	FinalizedAt time.Time
	OccurredAt  time.Time
}

// EventPublisher emits billing events. A nil publisher disables eventing.
type EventPublisher interface {
	PublishInvoiceGenerated(ctx context.Context, event InvoiceGenerated) error
	PublishInvoiceFinalized(ctx context.Context, event InvoiceFinalized) error
}

// Metrics records billing instrumentation. A nil implementation is allowed.
type Metrics interface {
	ObserveInvoiceGeneration(outcome string, seconds float64)
	ObserveInvoiceFinalize(outcome string)
	ObserveMeterSkipped(reason string)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator mints invoice and item ids.
type IDGenerator interface {
	NewID() string
}

// BillingService generates and finalizes tenant invoices.
type BillingService struct {
	tenants     billing.TenantRepository
	meters      billing.MeterRepository
	readings    billing.ReadingRepository
	invoices    billing.InvoiceRepository
	providers   ProviderFinder
	resolver    TariffResolver
	circulation CirculationCharger
	publisher   EventPublisher
	metrics     Metrics
	ids         IDGenerator
	clock       Clock
	logger      *log.Logger
	config      Config
}

// NewBillingService constructs the service. Circulation charger, publisher
// and metrics are optional.
func NewBillingService(
	tenants billing.TenantRepository,
	meters billing.MeterRepository,
	readings billing.ReadingRepository,
	invoices billing.InvoiceRepository,
	providers ProviderFinder,
	resolver TariffResolver,
	ids IDGenerator,
	config Config,
	opts ...ServiceOption,
) (*BillingService, error) {
	if tenants == nil {
		return nil, errors.New("billing service: nil tenant repository")
	}
	if meters == nil {
		return nil, errors.New("billing service: nil meter repository")
	}
	if readings == nil {
		return nil, errors.New("billing service: nil reading repository")
	}
	if invoices == nil {
		return nil, errors.New("billing service: nil invoice repository")
	}
	if providers == nil {
		return nil, errors.New("billing service: nil provider finder")
	}
	if resolver == nil {
		return nil, errors.New("billing service: nil tariff resolver")
	}
	if ids == nil {
		return nil, errors.New("billing service: nil id generator")
	}

	s := &BillingService{
		tenants:   tenants,
		meters:    meters,
		readings:  readings,
		invoices:  invoices,
		providers: providers,
		resolver:  resolver,
		ids:       ids,
		clock:     SystemClock{},
		logger:    log.Default(),
		config:    config,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*BillingService)

// WithCirculationCharger enables hot water circulation items.
func WithCirculationCharger(charger CirculationCharger) ServiceOption {
	return func(s *BillingService) { s.circulation = charger }
}

// WithEventPublisher enables event emission.
func WithEventPublisher(publisher EventPublisher) ServiceOption {
	return func(s *BillingService) { s.publisher = publisher }
}

// WithMetrics enables instrumentation.
func WithMetrics(metrics Metrics) ServiceOption {
	return func(s *BillingService) { s.metrics = metrics }
}

// WithClock overrides the time source.
func WithClock(clock Clock) ServiceOption {
	return func(s *BillingService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *BillingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// GenerateInvoice builds and persists a draft invoice for the tenant over
// the period. Meters without boundary readings are skipped with a warning;
// a missing provider or tariff aborts the invoice. The invoice and all its
// items are written in one transaction.
func (s *BillingService) GenerateInvoice(ctx context.Context, tenantID string, periodStart, periodEnd time.Time) (*billing.Invoice, error) {
	started := s.clock.Now()

	invoice, err := s.generateInvoice(ctx, tenantID, periodStart, periodEnd)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	if s.metrics != nil {
		s.metrics.ObserveInvoiceGeneration(outcome, s.clock.Now().Sub(started).Seconds())
	}
	return invoice, err
}

func (s *BillingService) generateInvoice(ctx context.Context, tenantID string, periodStart, periodEnd time.Time) (*billing.Invoice, error) {
	period, err := billing.NewBillingPeriod(periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.PropertyID == "" {
		return nil, fmt.Errorf("tenant %s: %w", tenant.ID, billing.ErrNoProperty)
	}

	meters, err := s.meters.ListByProperty(ctx, tenant.PropertyID)
	if err != nil {
		return nil, err
	}
	if len(meters) == 0 {
		return nil, fmt.Errorf("property %s: %w", tenant.PropertyID, billing.ErrNoMeters)
	}

	now := s.clock.Now()
	invoice := &billing.Invoice{
		ID:          s.ids.NewID(),
		TenantID:    tenant.ID,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		DueDate:     period.End.AddDate(0, 0, s.config.DueDays),
		Currency:    s.config.Currency,
		Status:      billing.StatusDraft,
		CreatedAt:   now,
	}

	for _, meter := range meters {
		items, err := s.itemsForMeter(ctx, meter, period)
		if err != nil {
			var missing *billing.MissingReadingError
			if errors.As(err, &missing) {
				s.logger.Printf("billing: skipping meter %s (%s): %v", meter.ID, meter.Type, err)
				if s.metrics != nil {
					s.metrics.ObserveMeterSkipped("missing_reading")
				}
				continue
			}
			return nil, err
		}
		for _, item := range items {
			if err := invoice.AddItem(item); err != nil {
				return nil, err
			}
		}
	}

	if s.circulation != nil && tenant.BuildingID != "" {
		item, err := s.circulation.ItemFor(ctx, tenant.BuildingID, tenant.PropertyID, period)
		if err != nil {
			s.logger.Printf("billing: circulation charge failed for building %s: %v", tenant.BuildingID, err)
		} else if item != nil {
			if err := invoice.AddItem(*item); err != nil {
				return nil, err
			}
		}
	}

	if err := s.invoices.CreateWithItems(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Printf("billing: invoice %s generated for tenant %s, %d item(s), total %.2f",
		invoice.ID, invoice.TenantID, len(invoice.Items), invoice.TotalAmount)

	if s.publisher != nil {
		event := InvoiceGenerated{
			InvoiceID:   invoice.ID,
			TenantID:    invoice.TenantID,
			PeriodStart: invoice.PeriodStart,
			PeriodEnd:   invoice.PeriodEnd,
			TotalAmount: invoice.TotalAmount,
			ItemCount:   len(invoice.Items),
			OccurredAt:  s.clock.Now(),
		}
		if err := s.publisher.PublishInvoiceGenerated(ctx, event); err != nil {
			s.logger.Printf("billing: publish invoice generated: %v", err)
		}
	}

	return invoice, nil
}

// itemsForMeter builds the consumption items for one meter, one per zone
// with readings in the period for multi-zone meters, plus the water fixed
// fee where applicable.
func (s *BillingService) itemsForMeter(ctx context.Context, meter billing.Meter, period billing.BillingPeriod) ([]billing.InvoiceItem, error) {
	var items []billing.InvoiceItem

	zones := []string{""}
	if meter.SupportsZones {
		withReadings, err := s.readings.ZonesWithReadingsInRange(ctx, meter.ID, period.Start, period.End)
		if err != nil {
			return nil, err
		}
		if len(withReadings) > 0 {
			zones = withReadings
		}
	}

	waterTariffPriced := false
	for _, zone := range zones {
		item, tariffPriced, err := s.itemForZone(ctx, meter, zone, period)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, *item)
			if tariffPriced {
				waterTariffPriced = true
			}
		}
	}

	// The monthly fixed fee belongs to the supply+sewage composition. A
	// water tariff that prices consumption itself already covers it.
	if meter.Type.IsWater() && !waterTariffPriced {
		items = append(items, s.waterFixedFeeItem(meter))
	}

	return items, nil
}

// itemForZone prices one meter zone over the period. Non-positive
// consumption yields no item. The returned flag reports whether the
// resolved tariff priced the item; water falls back to the configured
// supply and sewage rates when the tariff carries no usable rate.
func (s *BillingService) itemForZone(ctx context.Context, meter billing.Meter, zone string, period billing.BillingPeriod) (*billing.InvoiceItem, bool, error) {
	startReading, err := s.readings.FindAtOrBefore(ctx, meter.ID, zone, period.Start)
	if err != nil {
		return nil, false, err
	}
	if startReading == nil {
		return nil, false, &billing.MissingReadingError{MeterID: meter.ID, Zone: zone, At: period.Start}
	}
	endReading, err := s.readings.FindAtOrBefore(ctx, meter.ID, zone, period.End)
	if err != nil {
		return nil, false, err
	}
	if endReading == nil {
		return nil, false, &billing.MissingReadingError{MeterID: meter.ID, Zone: zone, At: period.End}
	}

	consumption := endReading.Value - startReading.Value
	if consumption <= 0 {
		return nil, false, nil
	}

	provider, err := s.providers.FindProviderByService(ctx, meter.Type.ServiceType())
	if err != nil {
		return nil, false, fmt.Errorf("billing: no provider for service %s: %w", meter.Type.ServiceType(), err)
	}
	resolved, err := s.resolver.Resolve(ctx, provider.ID, period.End)
	if err != nil {
		return nil, false, fmt.Errorf("billing: resolve tariff for provider %s: %w", provider.ID, err)
	}

	var unitPrice, total float64
	tariffPriced := true
	if meter.Type.IsWater() && !resolved.Configuration.HasUsableRate() {
		tariffPriced = false
		total = billing.Round2(consumption * (s.config.Water.SupplyRate + s.config.Water.SewageRate))
		unitPrice = billing.Round4(total / consumption)
	} else {
		cost := s.resolver.CalculateCost(resolved, consumption, period.End)
		unitPrice = billing.Round4(cost / consumption)
		total = billing.Round2(cost)
	}

	description := meter.Type.Label()
	if zone != "" {
		description = fmt.Sprintf("%s (%s)", description, zone)
	}

	config := resolved.Configuration
	item := &billing.InvoiceItem{
		ID:          s.ids.NewID(),
		Description: description,
		Quantity:    billing.Round2(consumption),
		Unit:        meter.Type.Unit(),
		UnitPrice:   unitPrice,
		Total:       total,
		Snapshot: billing.ReadingSnapshot{
			MeterID:        meter.ID,
			MeterSerial:    meter.SerialNumber,
			StartReadingID: startReading.ID,
			StartValue:     startReading.Value,
			StartDate:      startReading.ReadingDate.Format("2006-01-02"),
			EndReadingID:   endReading.ID,
			EndValue:       endReading.Value,
			EndDate:        endReading.ReadingDate.Format("2006-01-02"),
			Zone:           zone,
			TariffID:       resolved.ID,
			TariffName:     resolved.Name,
			TariffConfig:   &config,
		},
	}
	return item, tariffPriced, nil
}

func (s *BillingService) waterFixedFeeItem(meter billing.Meter) billing.InvoiceItem {
	fee := billing.Round2(s.config.Water.FixedFee)
	return billing.InvoiceItem{
		ID:          s.ids.NewID(),
		Description: meter.Type.Label() + " - Fixed Fee",
		Quantity:    1,
		Unit:        "month",
		UnitPrice:   fee,
		Total:       fee,
		Snapshot: billing.ReadingSnapshot{
			MeterID:     meter.ID,
			MeterSerial: meter.SerialNumber,
			FeeType:     "fixed_monthly",
		},
	}
}

// FinalizeInvoice validates and freezes a draft invoice.
func (s *BillingService) FinalizeInvoice(ctx context.Context, invoiceID string) (*billing.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveInvoiceFinalize("error")
		}
		return nil, err
	}

	if err := invoice.Finalize(s.clock.Now()); err != nil {
		if s.metrics != nil {
			s.metrics.ObserveInvoiceFinalize("rejected")
		}
		return nil, err
	}
	if err := s.invoices.UpdateStatus(ctx, invoice); err != nil {
		if s.metrics != nil {
			s.metrics.ObserveInvoiceFinalize("error")
		}
		return nil, err
	}

	s.logger.Printf("billing: invoice %s finalized, total %.2f", invoice.ID, invoice.TotalAmount)
	if s.metrics != nil {
		s.metrics.ObserveInvoiceFinalize("success")
	}

	if s.publisher != nil {
		event := InvoiceFinalized{
			InvoiceID:   invoice.ID,
			TenantID:    invoice.TenantID,
			TotalAmount: invoice.TotalAmount,
			FinalizedAt: invoice.FinalizedAt,
			OccurredAt:  s.clock.Now(),
		}
		if err := s.publisher.PublishInvoiceFinalized(ctx, event); err != nil {
			s.logger.Printf("billing: publish invoice finalized: %v", err)
		}
	}

	return invoice, nil
}
