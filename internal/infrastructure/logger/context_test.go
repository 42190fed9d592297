package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func devLogger(t *testing.T) *zap.Logger {
	t.Helper()

	log, err := NewForEnvironment("development")
	require.NoError(t, err)
	return log
}

// captureLogger returns a JSON logger writing into the returned buffer, so
// tests can assert on the exact fields an entry carries.
func captureLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&buf),
		zapcore.DebugLevel,
	)
	return zap.New(core), &buf
}

// recordingSpanContext starts a real (recorded) span so the span context is
// valid, unlike the noop tracer's.
func recordingSpanContext(t *testing.T) (context.Context, trace.Span) {
	t.Helper()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp.Tracer("ledger-test").Start(context.Background(), "achat.confirm")
}

// noopSpanContext starts a span whose context is invalid, which is what
// callers see when tracing is disabled.
func noopSpanContext(t *testing.T) (context.Context, trace.Span) {
	t.Helper()

	return noop.NewTracerProvider().Tracer("ledger-test").Start(context.Background(), "achat.confirm")
}

func TestWithContext_RoundTrip(t *testing.T) {
	log := devLogger(t)

	ctx := WithContext(context.Background(), log)

	assert.Same(t, log, FromContext(ctx))
}

func TestFromContext_Missing(t *testing.T) {
	log := FromContext(context.Background())

	// No-op fallback, safe to use.
	require.NotNil(t, log)
	assert.NotPanics(t, func() {
		log.Info("sans contexte")
		log.With(zap.String("chantier_id", "chantier-1")).Warn("toujours sans contexte")
	})
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), LoggerKey, "pas un logger")

	log := FromContext(ctx)
	require.NotNil(t, log)
	assert.NotPanics(t, func() { log.Info("ok") })
}

func TestWithRequestID(t *testing.T) {
	ctx, enriched := WithRequestID(context.Background(), devLogger(t), "req-42")

	assert.NotNil(t, enriched)
	assert.Equal(t, "req-42", GetRequestID(ctx))
}

func TestWithChantierID(t *testing.T) {
	ctx, enriched := WithChantierID(context.Background(), devLogger(t), "chantier-lyon-07")

	assert.NotNil(t, enriched)
	assert.Equal(t, "chantier-lyon-07", GetChantierID(ctx))
}

func TestWithUserID(t *testing.T) {
	ctx, enriched := WithUserID(context.Background(), devLogger(t), "chef-dupont")

	assert.NotNil(t, enriched)
	assert.Equal(t, "chef-dupont", GetUserID(ctx))
}

func TestGetters_EmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetChantierID(ctx))
	assert.Empty(t, GetUserID(ctx))
}

func TestContextChaining(t *testing.T) {
	log := devLogger(t)
	ctx := context.Background()

	ctx, log = WithRequestID(ctx, log, "req-1")
	ctx, log = WithChantierID(ctx, log, "chantier-1")
	ctx, log = WithUserID(ctx, log, "chef-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "chantier-1", GetChantierID(ctx))
	assert.Equal(t, "chef-1", GetUserID(ctx))
	assert.NotNil(t, log)
}

func TestContextKeys_Distinct(t *testing.T) {
	keys := []contextKey{LoggerKey, RequestIDKey, ChantierIDKey, UserIDKey}
	seen := make(map[contextKey]bool, len(keys))
	for _, k := range keys {
		assert.False(t, seen[k], "context key %q duplicated", k)
		seen[k] = true
	}
}

func TestWithRequestID_StoresEnrichedLogger(t *testing.T) {
	base, buf := captureLogger()

	ctx, _ := WithRequestID(context.Background(), base, "req-7")

	// The logger stored back in the context already carries request_id.
	FromContext(ctx).Info("achat confirme")
	assert.Contains(t, buf.String(), `"request_id":"req-7"`)
}

func TestWithRequestID_LastValueWins(t *testing.T) {
	log := devLogger(t)
	ctx := context.Background()

	ctx, _ = WithRequestID(ctx, log, "req-premier")
	ctx, _ = WithRequestID(ctx, log, "req-second")

	assert.Equal(t, "req-second", GetRequestID(ctx))
}

func TestGetTraceID(t *testing.T) {
	t.Run("no span", func(t *testing.T) {
		assert.Empty(t, GetTraceID(context.Background()))
	})

	t.Run("noop span has no valid context", func(t *testing.T) {
		ctx, span := noopSpanContext(t)
		defer span.End()

		assert.Empty(t, GetTraceID(ctx))
	})

	t.Run("recorded span", func(t *testing.T) {
		ctx, span := recordingSpanContext(t)
		defer span.End()

		assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
	})
}

func TestGetSpanID(t *testing.T) {
	t.Run("no span", func(t *testing.T) {
		assert.Empty(t, GetSpanID(context.Background()))
	})

	t.Run("noop span has no valid context", func(t *testing.T) {
		ctx, span := noopSpanContext(t)
		defer span.End()

		assert.Empty(t, GetSpanID(ctx))
	})

	t.Run("recorded span", func(t *testing.T) {
		ctx, span := recordingSpanContext(t)
		defer span.End()

		assert.Equal(t, span.SpanContext().SpanID().String(), GetSpanID(ctx))
	})
}

func TestWithTraceContext(t *testing.T) {
	base := zap.NewNop()

	t.Run("no span returns logger unchanged", func(t *testing.T) {
		assert.Same(t, base, WithTraceContext(context.Background(), base))
	})

	t.Run("invalid span context returns logger unchanged", func(t *testing.T) {
		ctx, span := noopSpanContext(t)
		defer span.End()

		assert.Same(t, base, WithTraceContext(ctx, base))
	})

	t.Run("valid span stamps trace fields", func(t *testing.T) {
		capture, buf := captureLogger()
		ctx, span := recordingSpanContext(t)
		defer span.End()

		WithTraceContext(ctx, capture).Info("budget recalcule")

		output := buf.String()
		assert.Contains(t, output, `"trace_id":"`+span.SpanContext().TraceID().String()+`"`)
		assert.Contains(t, output, `"span_id":"`+span.SpanContext().SpanID().String()+`"`)
	})
}

func TestL_ReturnsContextLogger(t *testing.T) {
	cl := L(context.Background())

	require.NotNil(t, cl)
	assert.NotNil(t, cl.ctx)
	assert.NotNil(t, cl.logger)
}

func TestL_UsesLoggerFromContext(t *testing.T) {
	base, buf := captureLogger()
	ctx := WithContext(context.Background(), base)

	L(ctx).Info("facture emise")

	assert.Contains(t, buf.String(), `"msg":"facture emise"`)
}

func TestWithLogger_UsesProvidedLogger(t *testing.T) {
	base := devLogger(t)

	cl := WithLogger(context.Background(), base)

	require.NotNil(t, cl)
	assert.Same(t, base, cl.logger)
}

func TestContextLogger_With(t *testing.T) {
	base, buf := captureLogger()
	cl := WithLogger(context.Background(), base)

	cl.With(zap.String("lot", "gros-oeuvre")).
		With(zap.String("fournisseur", "Lafarge")).
		Info("achat confirme")

	output := buf.String()
	assert.Contains(t, output, `"lot":"gros-oeuvre"`)
	assert.Contains(t, output, `"fournisseur":"Lafarge"`)
}

func TestContextLogger_LogLevels(t *testing.T) {
	cl := WithLogger(context.Background(), zap.NewNop())

	assert.NotPanics(t, func() {
		cl.Debug("debug")
		cl.Info("info")
		cl.Warn("warn")
		cl.Error("error")
	})
}

func TestContextLogger_ZapAndSugar(t *testing.T) {
	cl := WithLogger(context.Background(), zap.NewNop())

	require.NotNil(t, cl.Zap())
	require.NotNil(t, cl.Sugar())
	assert.NotPanics(t, func() {
		cl.Zap().Info("plain")
		cl.Sugar().Infof("sucre %s", "doux")
	})
}

func TestContextLogger_EnrichesWithContextFields(t *testing.T) {
	base, buf := captureLogger()

	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, base, "req-123")
	ctx, _ = WithChantierID(ctx, base, "chantier-456")
	ctx, _ = WithUserID(ctx, base, "chef-789")
	ctx = WithContext(ctx, base)

	L(ctx).Info("situation validee", zap.String("avancement", "42%"))

	output := buf.String()
	assert.Contains(t, output, `"request_id":"req-123"`)
	assert.Contains(t, output, `"chantier_id":"chantier-456"`)
	assert.Contains(t, output, `"user_id":"chef-789"`)
	assert.Contains(t, output, `"avancement":"42%"`)
	assert.Contains(t, output, `"msg":"situation validee"`)
}

func TestContextLogger_EnrichesWithTraceFields(t *testing.T) {
	base, buf := captureLogger()
	ctx, span := recordingSpanContext(t)
	defer span.End()

	WithLogger(ctx, base).Info("alerte declenchee")

	output := buf.String()
	assert.Contains(t, output, `"trace_id":"`+span.SpanContext().TraceID().String()+`"`)
	assert.Contains(t, output, `"span_id":"`+span.SpanContext().SpanID().String()+`"`)
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}

	assert.NotPanics(t, func() {
		cl.Info("sans logger")
	})
}

func TestContextLogger_EmptyContextFieldsOmitted(t *testing.T) {
	base, buf := captureLogger()

	WithLogger(context.Background(), base).Info("rien a enrichir")

	output := buf.String()
	assert.Contains(t, output, `"msg":"rien a enrichir"`)
	assert.NotContains(t, output, `"request_id"`)
	assert.NotContains(t, output, `"chantier_id"`)
	assert.NotContains(t, output, `"user_id"`)
	assert.NotContains(t, output, `"trace_id"`)
}

func TestContextLogger_PicksUpFieldsAddedAfterL(t *testing.T) {
	base, buf := captureLogger()
	ctx := WithContext(context.Background(), base)

	cl := L(ctx)

	// Correlation fields resolve at log time, so fields stored in the
	// underlying context values before L() are the only ones visible;
	// a fresh ContextLogger over the enriched context sees the new one.
	ctx2, _ := WithChantierID(cl.ctx, base, "chantier-apres")
	WithLogger(ctx2, base).Info("enrichi plus tard")

	assert.Contains(t, buf.String(), `"chantier_id":"chantier-apres"`)
}
