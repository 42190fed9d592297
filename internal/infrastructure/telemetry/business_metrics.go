// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the ledger.
// It tracks purchase activity, billing flows, and budget health per chantier.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	achatCreatedTotal     *Counter
	achatMontantTotal     *Counter
	situationCreatedTotal *Counter
	factureEmiseTotal     *Counter
	paiementTotal         *Counter
	alerteDeclencheeTotal *Counter

	// Gauge metrics (point-in-time values)
	budgetConsommationPct *FloatGauge
	alertesOuvertesCount  *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	budgetProvider BudgetMetricsProvider
}

// BudgetMetricsProvider provides budget data for periodic metrics collection.
// This interface allows the telemetry layer to query budget state without
// depending on the budget domain directly.
type BudgetMetricsProvider interface {
	// GetConsommationPct returns the engagement/budget ratio (in percent) for a chantier
	GetConsommationPct(ctx context.Context, chantierID uuid.UUID) (float64, error)

	// GetOpenAlerteCount returns the number of open alerts for a chantier
	GetOpenAlerteCount(ctx context.Context, chantierID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	BudgetProvider  BudgetMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		stopChan:       make(chan struct{}),
		budgetProvider: cfg.BudgetProvider,
	}

	// Initialize counter metrics
	var err error

	// Purchase metrics
	bm.achatCreatedTotal, err = NewCounter(
		cfg.Meter,
		"ledger_achat_created_total",
		"Total number of achats created",
		"{achats}",
	)
	if err != nil {
		return nil, err
	}

	bm.achatMontantTotal, err = NewCounter(
		cfg.Meter,
		"ledger_achat_montant_total",
		"Total achat amount in centimes (montant HT)",
		"{centimes}",
	)
	if err != nil {
		return nil, err
	}

	// Billing metrics
	bm.situationCreatedTotal, err = NewCounter(
		cfg.Meter,
		"ledger_situation_created_total",
		"Total number of situations de travaux created",
		"{situations}",
	)
	if err != nil {
		return nil, err
	}

	bm.factureEmiseTotal, err = NewCounter(
		cfg.Meter,
		"ledger_facture_emise_total",
		"Total number of factures issued",
		"{factures}",
	)
	if err != nil {
		return nil, err
	}

	bm.paiementTotal, err = NewCounter(
		cfg.Meter,
		"ledger_paiement_total",
		"Total number of payments recorded against factures",
		"{paiements}",
	)
	if err != nil {
		return nil, err
	}

	// Alerting metrics
	bm.alerteDeclencheeTotal, err = NewCounter(
		cfg.Meter,
		"ledger_alerte_declenchee_total",
		"Total number of budget alerts triggered",
		"{alertes}",
	)
	if err != nil {
		return nil, err
	}

	// Budget gauge metrics
	bm.budgetConsommationPct, err = NewFloatGauge(
		cfg.Meter,
		"ledger_budget_consommation_pct",
		"Current engagement as a percentage of the initial budget",
		"%",
	)
	if err != nil {
		return nil, err
	}

	bm.alertesOuvertesCount, err = NewGauge(
		cfg.Meter,
		"ledger_alertes_ouvertes_count",
		"Number of currently open budget alerts",
		"{alertes}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Purchase Metrics
// =============================================================================

// RecordAchatCreated records an achat creation event.
// This should be called from the application layer when an achat is created.
func (bm *BusinessMetrics) RecordAchatCreated(ctx context.Context, chantierID uuid.UUID, typeAchat string) {
	bm.achatCreatedTotal.Inc(ctx,
		AttrChantierID.String(chantierID.String()),
		AttrTypeAchat.String(typeAchat),
	)
}

// RecordAchatMontant records the achat amount.
// Amount should be in the smallest currency unit (centimes).
func (bm *BusinessMetrics) RecordAchatMontant(ctx context.Context, chantierID uuid.UUID, typeAchat string, montantCentimes int64) {
	bm.achatMontantTotal.Add(ctx, montantCentimes,
		AttrChantierID.String(chantierID.String()),
		AttrTypeAchat.String(typeAchat),
	)
}

// RecordAchatWithMontant is a convenience method that records both achat count and amount.
func (bm *BusinessMetrics) RecordAchatWithMontant(ctx context.Context, chantierID uuid.UUID, typeAchat string, montantHT decimal.Decimal) {
	bm.RecordAchatCreated(ctx, chantierID, typeAchat)

	// Convert to centimes (multiply by 100)
	montantCentimes := montantHT.Mul(decimal.NewFromInt(100)).IntPart()
	bm.RecordAchatMontant(ctx, chantierID, typeAchat, montantCentimes)
}

// =============================================================================
// Billing Metrics
// =============================================================================

// RecordSituationCreated records the creation of a situation de travaux.
func (bm *BusinessMetrics) RecordSituationCreated(ctx context.Context, chantierID uuid.UUID) {
	bm.situationCreatedTotal.Inc(ctx,
		AttrChantierID.String(chantierID.String()),
	)
}

// RecordFactureEmise records an issued facture.
func (bm *BusinessMetrics) RecordFactureEmise(ctx context.Context, chantierID uuid.UUID) {
	bm.factureEmiseTotal.Inc(ctx,
		AttrChantierID.String(chantierID.String()),
	)
}

// RecordPaiement records a payment against a facture.
// statutFacture is the facture status after the payment was applied.
func (bm *BusinessMetrics) RecordPaiement(ctx context.Context, chantierID uuid.UUID, moyenPaiement string, statutFacture string) {
	bm.paiementTotal.Inc(ctx,
		AttrChantierID.String(chantierID.String()),
		AttrMoyenPaiement.String(moyenPaiement),
		AttrStatutFacture.String(statutFacture),
	)
}

// =============================================================================
// Alerting Metrics
// =============================================================================

// RecordAlerteDeclenchee records a triggered budget alert.
func (bm *BusinessMetrics) RecordAlerteDeclenchee(ctx context.Context, chantierID uuid.UUID, niveau string) {
	bm.alerteDeclencheeTotal.Inc(ctx,
		AttrChantierID.String(chantierID.String()),
		AttrNiveauAlerte.String(niveau),
	)
}

// =============================================================================
// Budget Metrics
// =============================================================================

// RecordBudgetConsommation records the current engagement/budget ratio for a chantier.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordBudgetConsommation(ctx context.Context, chantierID uuid.UUID, pct float64) {
	bm.budgetConsommationPct.Record(ctx, pct,
		AttrChantierID.String(chantierID.String()),
	)
}

// RecordAlertesOuvertes records the number of open alerts for a chantier.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordAlertesOuvertes(ctx context.Context, chantierID uuid.UUID, count int64) {
	bm.alertesOuvertesCount.Record(ctx, count,
		AttrChantierID.String(chantierID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// ChantierProvider provides chantier IDs for periodic metrics collection.
type ChantierProvider interface {
	GetActiveChantierIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects budget metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, chantierProvider ChantierProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, chantierProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, chantierProvider ChantierProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectBudgetMetrics(ctx, chantierProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectBudgetMetrics(ctx, chantierProvider)
		}
	}
}

// collectBudgetMetrics collects budget gauge metrics for all active chantiers.
func (bm *BusinessMetrics) collectBudgetMetrics(ctx context.Context, chantierProvider ChantierProvider) {
	if bm.budgetProvider == nil {
		bm.logger.Debug("No budget provider configured, skipping budget metrics collection")
		return
	}

	chantierIDs, err := chantierProvider.GetActiveChantierIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get chantier IDs for metrics collection", zap.Error(err))
		return
	}

	for _, chantierID := range chantierIDs {
		bm.collectChantierBudgetMetrics(ctx, chantierID)
	}
}

// collectChantierBudgetMetrics collects budget metrics for a single chantier.
func (bm *BusinessMetrics) collectChantierBudgetMetrics(ctx context.Context, chantierID uuid.UUID) {
	// Collect consommation ratio
	pct, err := bm.budgetProvider.GetConsommationPct(ctx, chantierID)
	if err != nil {
		bm.logger.Warn("Failed to get budget consommation for chantier",
			zap.String("chantier_id", chantierID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordBudgetConsommation(ctx, chantierID, pct)
	}

	// Collect open alert count
	openAlertes, err := bm.budgetProvider.GetOpenAlerteCount(ctx, chantierID)
	if err != nil {
		bm.logger.Warn("Failed to get open alerte count for chantier",
			zap.String("chantier_id", chantierID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordAlertesOuvertes(ctx, chantierID, openAlertes)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
