package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures database span generation.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL includes the full SQL statement in spans. Variables may
	// contain supplier names and amounts, so this stays off outside dev.
	LogFullSQL bool
	// SlowQueryThresh marks queries slower than this on the span (default 200ms).
	SlowQueryThresh time.Duration
	// DBSystem names the backing database (default "postgresql").
	DBSystem string
	// WithoutVariables strips bind variables from the recorded statement.
	WithoutVariables bool
}

// DefaultDBTracingConfig returns the default tracing configuration.
// Statements are recorded without bind variables.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin layers ledger span annotations over the otelgorm plugin:
// the touched table, rows affected, failed statements, and a slow query event
// when the configured threshold is crossed.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm installs otelgorm and the annotation callbacks on the
// GORM DB instance. A no-op when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if p.config.WithoutVariables || !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []error{
		cb.Create().Before("gorm:create").Register("ledger_db_tracing:before_create", markQueryStart),
		cb.Query().Before("gorm:query").Register("ledger_db_tracing:before_query", markQueryStart),
		cb.Update().Before("gorm:update").Register("ledger_db_tracing:before_update", markQueryStart),
		cb.Delete().Before("gorm:delete").Register("ledger_db_tracing:before_delete", markQueryStart),
		cb.Row().Before("gorm:row").Register("ledger_db_tracing:before_row", markQueryStart),
		cb.Raw().Before("gorm:raw").Register("ledger_db_tracing:before_raw", markQueryStart),
		cb.Create().After("gorm:create").Register("ledger_db_tracing:after_create", p.annotateSpan),
		cb.Query().After("gorm:query").Register("ledger_db_tracing:after_query", p.annotateSpan),
		cb.Update().After("gorm:update").Register("ledger_db_tracing:after_update", p.annotateSpan),
		cb.Delete().After("gorm:delete").Register("ledger_db_tracing:after_delete", p.annotateSpan),
		cb.Row().After("gorm:row").Register("ledger_db_tracing:after_row", p.annotateSpan),
		cb.Raw().After("gorm:raw").Register("ledger_db_tracing:after_raw", p.annotateSpan),
	}
	for _, err := range registrations {
		if err != nil {
			return err
		}
	}
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// annotateSpan enriches the active span after each statement.
func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// a lookup miss is normal control flow, not a span error
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		elapsed := time.Since(startTime)
		if elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

type contextKey string

const queryStartTimeKey contextKey = "query_start_time"
