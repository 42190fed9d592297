package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/chantier/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func disabledMeterProvider(t *testing.T) *telemetry.MeterProvider {
	t.Helper()

	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "chantier-ledger",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, mp)
	return mp
}

// manualMeter returns a meter backed by a manual reader so tests can
// collect and inspect what the instrument helpers actually recorded.
func manualMeter(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider.Meter("ledger-test"), reader
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %q was not recorded", name)
	return metricdata.Metrics{}
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp := disabledMeterProvider(t)

	assert.False(t, mp.IsEnabled())

	cfg := mp.GetConfig()
	assert.Equal(t, "chantier-ledger", cfg.ServiceName)
	assert.False(t, cfg.Enabled)

	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	// Needs a running OTLP collector, so only exercised outside -short.
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		ExportInterval:    1 * time.Second,
		ServiceName:       "chantier-ledger",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, mp)

	assert.True(t, mp.IsEnabled())
	require.NotNil(t, mp.Meter("purchasing"))

	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestMeterProvider_Meter_Disabled(t *testing.T) {
	mp := disabledMeterProvider(t)

	// Falls back to the global no-op meter, never nil.
	require.NotNil(t, mp.Meter("purchasing"))
}

func TestMeterProvider_ForceFlush_Disabled(t *testing.T) {
	mp := disabledMeterProvider(t)

	assert.NoError(t, mp.ForceFlush(context.Background()))
}

func TestMeterProvider_Shutdown_CancelledContext(t *testing.T) {
	mp := disabledMeterProvider(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Disabled provider has nothing to flush, so a dead context is fine.
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewMeterProvider_InvalidEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logger := zaptest.NewLogger(t, zaptest.Level(zap.ErrorLevel))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           true,
		CollectorEndpoint: "invalid-host:99999",
		ExportInterval:    1 * time.Second,
		ServiceName:       "chantier-ledger",
	}, logger)
	if err != nil {
		// The gRPC exporter may fail eagerly here, which is acceptable.
		t.Logf("connection error: %v", err)
		return
	}

	_ = mp.Shutdown(context.Background())
}

func TestCounter_RecordsSum(t *testing.T) {
	ctx := context.Background()
	meter, reader := manualMeter(t)

	counter, err := telemetry.NewCounter(meter, "achats_confirmes_total", "Achats confirmed", "{achat}")
	require.NoError(t, err)

	counter.Add(ctx, 2, telemetry.AttrTypeAchat.String("MATERIAUX"))
	counter.Inc(ctx, telemetry.AttrTypeAchat.String("MATERIAUX"))

	m := collectMetric(t, reader, "achats_confirmes_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestCounter_SeparateSeriesPerAttribute(t *testing.T) {
	ctx := context.Background()
	meter, reader := manualMeter(t)

	counter, err := telemetry.NewCounter(meter, "factures_emises_total", "Factures issued", "{facture}")
	require.NoError(t, err)

	counter.Inc(ctx, telemetry.AttrStatutFacture.String("EMISE"))
	counter.Inc(ctx, telemetry.AttrStatutFacture.String("PAYEE"))
	counter.Inc(ctx, telemetry.AttrStatutFacture.String("PAYEE"))

	m := collectMetric(t, reader, "factures_emises_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)
}

func TestHistogram_RecordsDistribution(t *testing.T) {
	ctx := context.Background()
	meter, reader := manualMeter(t)

	histogram, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "montant_engage_eur",
		Description: "Montant engaged per achat in euros",
		Unit:        "EUR",
		Boundaries:  []float64{100, 1000, 10000, 100000},
	})
	require.NoError(t, err)

	histogram.Record(ctx, 250.00)
	histogram.Record(ctx, 12500.00)
	histogram.Record(ctx, 99.90)

	m := collectMetric(t, reader, "montant_engage_eur")
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count)
	assert.InDelta(t, 12849.90, hist.DataPoints[0].Sum, 0.001)
	assert.Equal(t, []float64{100, 1000, 10000, 100000}, hist.DataPoints[0].Bounds)
}

func TestHistogram_RecordDuration(t *testing.T) {
	ctx := context.Background()
	meter, reader := manualMeter(t)

	histogram, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "budget_recalcul_duration_seconds",
		Description: "Budget recalculation latency",
		Unit:        "s",
		Boundaries:  telemetry.DBDurationBuckets,
	})
	require.NoError(t, err)

	histogram.RecordDuration(ctx, 50*time.Millisecond)
	histogram.RecordDuration(ctx, 200*time.Millisecond)

	m := collectMetric(t, reader, "budget_recalcul_duration_seconds")
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.25, hist.DataPoints[0].Sum, 0.0001)
}

func TestHistogram_DefaultBoundaries(t *testing.T) {
	ctx := context.Background()
	meter, _ := manualMeter(t)

	// No explicit boundaries: SDK defaults apply, creation must not fail.
	histogram, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "export_duration_seconds",
		Description: "Accounting export latency",
		Unit:        "s",
	})
	require.NoError(t, err)
	require.NotNil(t, histogram)

	histogram.Record(ctx, 1.5)
}

func TestGauge_RecordsLastValue(t *testing.T) {
	ctx := context.Background()
	meter, reader := manualMeter(t)

	gauge, err := telemetry.NewGauge(meter, "outbox_pending_entries", "Pending outbox entries", "{entry}")
	require.NoError(t, err)

	gauge.Record(ctx, 12)
	gauge.Record(ctx, 4)

	m := collectMetric(t, reader, "outbox_pending_entries")
	data, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, int64(4), data.DataPoints[0].Value)
}

func TestFloatGauge_RecordsLastValue(t *testing.T) {
	ctx := context.Background()
	meter, reader := manualMeter(t)

	gauge, err := telemetry.NewFloatGauge(meter, "budget_consommation_ratio", "Budget consumption ratio", "1")
	require.NoError(t, err)

	gauge.Record(ctx, 0.45, attribute.String("lot", "gros-oeuvre"))
	gauge.Record(ctx, 0.82, attribute.String("lot", "gros-oeuvre"))

	m := collectMetric(t, reader, "budget_consommation_ratio")
	data, ok := m.Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.InDelta(t, 0.82, data.DataPoints[0].Value, 0.0001)
}

func TestSharedAttributeKeys(t *testing.T) {
	assert.Equal(t, "chantier_id", string(telemetry.AttrChantierID))
	assert.Equal(t, "user_id", string(telemetry.AttrUserID))
	assert.Equal(t, "http.method", string(telemetry.AttrHTTPMethod))
	assert.Equal(t, "http.status_code", string(telemetry.AttrHTTPStatusCode))
	assert.Equal(t, "http.route", string(telemetry.AttrHTTPRoute))
	assert.Equal(t, "db.operation", string(telemetry.AttrDBOperation))
	assert.Equal(t, "db.table", string(telemetry.AttrDBTable))
	assert.Equal(t, "db.pool.state", string(telemetry.AttrDBState))
	assert.Equal(t, "type_achat", string(telemetry.AttrTypeAchat))
	assert.Equal(t, "statut_achat", string(telemetry.AttrStatutAchat))
	assert.Equal(t, "moyen_paiement", string(telemetry.AttrMoyenPaiement))
	assert.Equal(t, "statut_facture", string(telemetry.AttrStatutFacture))
	assert.Equal(t, "niveau_alerte", string(telemetry.AttrNiveauAlerte))
	assert.Equal(t, "lot_id", string(telemetry.AttrLotID))
	assert.Equal(t, "fournisseur_id", string(telemetry.AttrFournisseurID))
}

func TestSharedBucketBoundaries(t *testing.T) {
	assert.Equal(t, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, telemetry.HTTPDurationBuckets)
	assert.Equal(t, []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}, telemetry.DBDurationBuckets)
	assert.Equal(t, []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1}, telemetry.SmallDurationBuckets)
}
