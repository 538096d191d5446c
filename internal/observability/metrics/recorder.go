package metrics

import "time"

// BillingRecorder adapts the package-level metric helpers to the billing
// service's Metrics dependency.
type BillingRecorder struct{}

func (BillingRecorder) ObserveInvoiceGeneration(outcome string, seconds float64) {
	ObserveInvoiceGenerate(outcome, time.Duration(seconds*float64(time.Second)))
}

func (BillingRecorder) ObserveInvoiceFinalize(outcome string) {
	IncInvoiceFinalize(outcome)
}

func (BillingRecorder) ObserveMeterSkipped(reason string) {
	IncMeterSkipped(reason)
}

func (BillingRecorder) IncTariffResolve(result string) {
	IncTariffResolve(result)
}

func (BillingRecorder) IncBatchTenant(result string) {
	IncBatchTenant(result)
}
