package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when business metrics are built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BusinessMetrics records bookkeeping activity. A nil *BusinessMetrics is
// valid and records nothing, so services can run without telemetry.
type BusinessMetrics struct {
	invoicesCreated      *Counter
	transactionsImported *Counter
	exportsGenerated     *Counter
	webhookEvents        *Counter
	bankSyncDuration     *Histogram
}

// NewBusinessMetrics creates the business counters on the given meter.
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		bm  BusinessMetrics
		err error
	)
	if bm.invoicesCreated, err = NewCounter(meter,
		"invoices_created_total", "Total number of invoices created", "{invoice}"); err != nil {
		return nil, err
	}
	if bm.transactionsImported, err = NewCounter(meter,
		"transactions_imported_total", "Total number of bank transactions imported", "{transaction}"); err != nil {
		return nil, err
	}
	if bm.exportsGenerated, err = NewCounter(meter,
		"exports_generated_total", "Total number of DATEV and ELSTER exports generated", "{export}"); err != nil {
		return nil, err
	}
	if bm.webhookEvents, err = NewCounter(meter,
		"webhook_events_processed_total", "Total number of billing webhook events processed", "{event}"); err != nil {
		return nil, err
	}
	if bm.bankSyncDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "bank_sync_duration_seconds",
		Description: "Duration of FinAPI account synchronisation",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return &bm, nil
}

// InvoiceCreated counts one new invoice.
func (bm *BusinessMetrics) InvoiceCreated(ctx context.Context, tenantID uuid.UUID) {
	if bm == nil {
		return
	}
	bm.invoicesCreated.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// TransactionsImported counts n transactions stored from the given source.
func (bm *BusinessMetrics) TransactionsImported(ctx context.Context, source string, n int) {
	if bm == nil || n <= 0 {
		return
	}
	bm.transactionsImported.Add(ctx, int64(n), AttrSource.String(source))
}

// ExportGenerated counts one generated export file.
func (bm *BusinessMetrics) ExportGenerated(ctx context.Context, exportType string) {
	if bm == nil {
		return
	}
	bm.exportsGenerated.Inc(ctx, AttrExportType.String(exportType))
}

// WebhookEventProcessed counts a billing webhook by type and outcome
// (processed, duplicate, ignored, failed).
func (bm *BusinessMetrics) WebhookEventProcessed(ctx context.Context, eventType, outcome string) {
	if bm == nil {
		return
	}
	bm.webhookEvents.Inc(ctx, AttrEventType.String(eventType), AttrOutcome.String(outcome))
}

// BankSyncFinished records how long one account sync took.
func (bm *BusinessMetrics) BankSyncFinished(ctx context.Context, d time.Duration, err error) {
	if bm == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	bm.bankSyncDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}
