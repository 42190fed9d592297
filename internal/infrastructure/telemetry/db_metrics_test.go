package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

// counterValue sums the datapoints of a counter whose attributes contain all
// of the wanted key/values.
func counterValue(rm metricdata.ResourceMetrics, name string, want ...attribute.KeyValue) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				matches := true
				for _, kv := range want {
					v, ok := dp.Attributes.Value(kv.Key)
					if !ok || v.Emit() != kv.Value.Emit() {
						matches = false
						break
					}
				}
				if matches {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func findMetric(rm metricdata.ResourceMetrics, name string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics(t *testing.T) {
	_, provider := newTestMeter(t)
	meter := provider.Meter("test")

	t.Run("creates all instruments", func(t *testing.T) {
		metrics, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		assert.NotNil(t, metrics.poolConnections)
		assert.NotNil(t, metrics.poolConnectionsMax)
		assert.NotNil(t, metrics.queryTotal)
		assert.NotNil(t, metrics.queryDuration)
		assert.NotNil(t, metrics.queryErrors)
		assert.NotNil(t, metrics.slowQueryTotal)
	})

	t.Run("applies default config values", func(t *testing.T) {
		metrics, err := NewDBMetrics(meter, DBMetricsConfig{}, zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, 200*time.Millisecond, metrics.config.SlowQueryThreshold)
		assert.Equal(t, 15*time.Second, metrics.config.PoolStatsInterval)
	})

	t.Run("uses nop logger when nil", func(t *testing.T) {
		metrics, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), nil)
		require.NoError(t, err)
		require.NotNil(t, metrics.logger)
	})
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("counts queries per operation and table", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "SELECT", "achats", 5*time.Millisecond, nil)
		metrics.RecordQuery(ctx, "SELECT", "achats", 8*time.Millisecond, nil)
		metrics.RecordQuery(ctx, "INSERT", "factures_clients", 12*time.Millisecond, nil)

		rm := collect(t, reader)
		assert.Equal(t, int64(2), counterValue(rm, "db_query_total",
			AttrDBOperation.String("SELECT"), AttrDBTable.String("achats")))
		assert.Equal(t, int64(1), counterValue(rm, "db_query_total",
			AttrDBOperation.String("INSERT"), AttrDBTable.String("factures_clients")))
		assert.True(t, findMetric(rm, "db_query_duration_seconds"))
	})

	t.Run("folds tables the ledger does not own into other", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "SELECT", "schema_migrations", time.Millisecond, nil)
		metrics.RecordQuery(ctx, "SELECT", "", time.Millisecond, nil)

		rm := collect(t, reader)
		assert.Equal(t, int64(2), counterValue(rm, "db_query_total",
			AttrDBTable.String("other")))
	})

	t.Run("normalizes the operation label", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "select", "budgets", time.Millisecond, nil)
		metrics.RecordQuery(ctx, "", "budgets", time.Millisecond, nil)

		rm := collect(t, reader)
		assert.Equal(t, int64(1), counterValue(rm, "db_query_total",
			AttrDBOperation.String("SELECT")))
		assert.Equal(t, int64(1), counterValue(rm, "db_query_total",
			AttrDBOperation.String("UNKNOWN")))
	})

	t.Run("counts failed queries", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "UPDATE", "achats", 3*time.Millisecond, assert.AnError)

		rm := collect(t, reader)
		assert.Equal(t, int64(1), counterValue(rm, "db_query_errors_total",
			AttrDBOperation.String("UPDATE"), AttrDBTable.String("achats")))
	})

	t.Run("a lookup miss is not an error", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "SELECT", "fournisseurs", 2*time.Millisecond, gorm.ErrRecordNotFound)

		rm := collect(t, reader)
		assert.Equal(t, int64(0), counterValue(rm, "db_query_errors_total"))
		assert.Equal(t, int64(1), counterValue(rm, "db_query_total",
			AttrDBTable.String("fournisseurs")))
	})

	t.Run("counts queries over the slow threshold", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		metrics, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 100 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "SELECT", "situations_travaux", 250*time.Millisecond, nil)
		metrics.RecordQuery(ctx, "SELECT", "situations_travaux", 50*time.Millisecond, nil)

		rm := collect(t, reader)
		assert.Equal(t, int64(1), counterValue(rm, "db_slow_query_total",
			AttrDBTable.String("situations_travaux")))
	})
}

func TestNormalizeTableLabel(t *testing.T) {
	tests := []struct {
		table string
		want  string
	}{
		{"achats", "achats"},
		{"fournisseurs", "fournisseurs"},
		{"budgets", "budgets"},
		{"lots_budgetaires", "lots_budgetaires"},
		{"factures_clients", "factures_clients"},
		{"situations_travaux", "situations_travaux"},
		{"configurations_entreprise", "configurations_entreprise"},
		{"alertes", "alertes"},
		{"audit_log_entries", "audit_log_entries"},
		{"outbox_events", "outbox_events"},
		{"schema_migrations", "other"},
		{"pg_stat_activity", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeTableLabel(tt.table))
		})
	}
}

func TestDetectOperationType(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{`SELECT * FROM achats WHERE chantier_id = $1`, "SELECT"},
		{`  select numero FROM factures_clients`, "SELECT"},
		{`INSERT INTO alertes (id) VALUES ($1)`, "INSERT"},
		{`UPDATE budgets SET version = version + 1`, "UPDATE"},
		{`DELETE FROM outbox_events WHERE status = 'published'`, "DELETE"},
		{`TRUNCATE achats`, "OTHER"},
		{``, "OTHER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectOperationType(tt.sql), tt.sql)
	}
}

func newMetricsTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestDBMetricsPlugin(t *testing.T) {
	ctx := context.Background()

	t.Run("name", func(t *testing.T) {
		plugin := NewDBMetricsPlugin(nil, nil)
		assert.Equal(t, "ledger_db_metrics", plugin.Name())
	})

	t.Run("records a query routed through GORM", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		db, mock := newMetricsTestDB(t)
		require.NoError(t, db.Use(NewDBMetricsPlugin(metrics, zap.NewNop())))

		mock.ExpectQuery(`SELECT count`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		var count int64
		require.NoError(t, db.WithContext(ctx).Table("achats").Count(&count).Error)
		assert.Equal(t, int64(3), count)

		rm := collect(t, reader)
		assert.Equal(t, int64(1), counterValue(rm, "db_query_total",
			AttrDBOperation.String("SELECT"), AttrDBTable.String("achats")))
	})

	t.Run("counts a failed query", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		db, mock := newMetricsTestDB(t)
		require.NoError(t, db.Use(NewDBMetricsPlugin(metrics, zap.NewNop())))

		mock.ExpectQuery(`SELECT count`).WillReturnError(assert.AnError)

		var count int64
		assert.Error(t, db.WithContext(ctx).Table("factures_clients").Count(&count).Error)

		rm := collect(t, reader)
		assert.Equal(t, int64(1), counterValue(rm, "db_query_errors_total",
			AttrDBTable.String("factures_clients")))
	})
}

func TestDBMetrics_PoolStats(t *testing.T) {
	ctx := context.Background()
	reader, provider := newTestMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	metrics.SetSQLDB(mockDB)
	metrics.collectPoolStats(ctx)

	rm := collect(t, reader)
	assert.True(t, findMetric(rm, "db_pool_connections"))
	assert.True(t, findMetric(rm, "db_pool_connections_max"))
}

func TestDBMetrics_Stop(t *testing.T) {
	_, provider := newTestMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	// idempotent
	metrics.Stop()
	metrics.Stop()
}

func TestDBMetrics_StartPoolStatsCollection_WithoutDB(t *testing.T) {
	_, provider := newTestMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	// no SetSQLDB call, must not spawn the collector
	metrics.StartPoolStatsCollection(context.Background())
	metrics.Stop()
}

func TestRegisterDBMetrics(t *testing.T) {
	t.Run("disabled returns nil without error", func(t *testing.T) {
		db, _ := newMetricsTestDB(t)
		metrics, err := RegisterDBMetrics(db, nil, DBMetricsConfig{Enabled: false}, zap.NewNop())
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("missing meter provider returns nil without error", func(t *testing.T) {
		db, _ := newMetricsTestDB(t)
		metrics, err := RegisterDBMetrics(db, nil, DBMetricsConfig{Enabled: true}, zap.NewNop())
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})
}

func TestDBMetrics_ConcurrentRecording(t *testing.T) {
	ctx := context.Background()
	reader, provider := newTestMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			operation := []string{"SELECT", "INSERT", "UPDATE", "DELETE"}[i%4]
			table := []string{"achats", "budgets", "factures_clients", "alertes"}[i%4]
			metrics.RecordQuery(ctx, operation, table, time.Duration(i)*time.Millisecond, nil)
		}(i)
	}
	wg.Wait()

	rm := collect(t, reader)
	assert.Equal(t, int64(100), counterValue(rm, "db_query_total"))
}
