package telemetry_test

import (
	"context"
	"runtime/pprof"
	"strings"
	"sync"
	"testing"

	"github.com/chantier/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ctxLabel reads a pprof label from the context the wrapper handed to fn.
// Both pyroscope.TagWrapper and pprof.Do install standard pprof labels,
// so the same assertion covers both entry points.
func ctxLabel(c context.Context, key string) (string, bool) {
	return pprof.Label(c, key)
}

func TestWithProfilingLabels_EmptyLabels(t *testing.T) {
	called := false
	telemetry.WithProfilingLabels(context.Background(), nil, func(c context.Context) {
		called = true
	})
	assert.True(t, called)

	called = false
	telemetry.WithProfilingLabels(context.Background(), map[string]string{}, func(c context.Context) {
		called = true
	})
	assert.True(t, called)
}

func TestWithProfilingLabels_AppliesLabels(t *testing.T) {
	labels := map[string]string{
		"controller": "AchatHandler",
		"method":     "GET",
		"route":      "/api/v1/achats",
	}

	telemetry.WithProfilingLabels(context.Background(), labels, func(c context.Context) {
		v, ok := ctxLabel(c, "controller")
		require.True(t, ok)
		assert.Equal(t, "AchatHandler", v)

		v, ok = ctxLabel(c, "route")
		require.True(t, ok)
		assert.Equal(t, "/api/v1/achats", v)
	})
}

func TestWithProfilingLabels_SkipsHighCardinalityLabels(t *testing.T) {
	labels := map[string]string{
		"controller": "AchatHandler",
		"user_id":    "user-123",
		"request_id": "req-abc",
		"achat_id":   "achat-456",
	}

	telemetry.WithProfilingLabels(context.Background(), labels, func(c context.Context) {
		_, ok := ctxLabel(c, "controller")
		assert.True(t, ok)

		// Per-entity identifiers never reach the profiler.
		for _, key := range []string{"user_id", "request_id", "achat_id"} {
			_, ok := ctxLabel(c, key)
			assert.False(t, ok, "label %s should have been dropped", key)
		}
	})
}

func TestWithProfilingLabels_TruncatesLongValues(t *testing.T) {
	longValue := strings.Repeat("x", 200)

	telemetry.WithProfilingLabels(context.Background(), map[string]string{
		"controller": longValue,
	}, func(c context.Context) {
		v, ok := ctxLabel(c, "controller")
		require.True(t, ok)
		assert.Len(t, v, telemetry.MaxLabelValueLength)
	})
}

func TestWithProfilingLabels_SkipsEmptyKeysAndValues(t *testing.T) {
	labels := map[string]string{
		"controller": "AchatHandler",
		"method":     "",
		"":           "value",
	}

	telemetry.WithProfilingLabels(context.Background(), labels, func(c context.Context) {
		_, ok := ctxLabel(c, "controller")
		assert.True(t, ok)

		_, ok = ctxLabel(c, "method")
		assert.False(t, ok)
	})
}

func TestWithProfilingLabels_SanitizesKeys(t *testing.T) {
	labels := map[string]string{
		"My Custom-Key": "value",
	}

	telemetry.WithProfilingLabels(context.Background(), labels, func(c context.Context) {
		v, ok := ctxLabel(c, "my_custom_key")
		require.True(t, ok, "key should be lowercased with separators mapped to underscores")
		assert.Equal(t, "value", v)
	})
}

func TestWithPprofLabels_AppliesLabels(t *testing.T) {
	labels := map[string]string{
		"controller": "FactureHandler",
		"method":     "POST",
	}

	telemetry.WithPprofLabels(context.Background(), labels, func(c context.Context) {
		v, ok := ctxLabel(c, "controller")
		require.True(t, ok)
		assert.Equal(t, "FactureHandler", v)
	})
}

func TestWithPprofLabels_EmptyLabels(t *testing.T) {
	called := false
	telemetry.WithPprofLabels(context.Background(), nil, func(c context.Context) {
		called = true
	})
	assert.True(t, called)

	called = false
	telemetry.WithPprofLabels(context.Background(), map[string]string{}, func(c context.Context) {
		called = true
	})
	assert.True(t, called)
}

func TestProfilingScope_Builder(t *testing.T) {
	scope := telemetry.NewProfilingScope(nil)

	scope.WithController("AchatHandler").
		WithRoute("/api/v1/achats").
		WithMethod("GET").
		WithChantierID("chantier-123").
		WithOperation("ListAchats").
		WithRegion("db_query")

	labels := scope.Labels()

	assert.Equal(t, "AchatHandler", labels[telemetry.ProfilingLabelController])
	assert.Equal(t, "/api/v1/achats", labels[telemetry.ProfilingLabelRoute])
	assert.Equal(t, "GET", labels[telemetry.ProfilingLabelMethod])
	assert.Equal(t, "chantier-123", labels[telemetry.ProfilingLabelChantierID])
	assert.Equal(t, "ListAchats", labels[telemetry.ProfilingLabelOperation])
	assert.Equal(t, "db_query", labels[telemetry.ProfilingLabelRegion])
}

func TestProfilingScope_WithInitialLabels(t *testing.T) {
	scope := telemetry.NewProfilingScope(map[string]string{
		"controller": "BudgetHandler",
		"method":     "GET",
	})
	scope.WithRoute("/api/v1/budgets")

	labels := scope.Labels()

	assert.Equal(t, "BudgetHandler", labels["controller"])
	assert.Equal(t, "GET", labels["method"])
	assert.Equal(t, "/api/v1/budgets", labels["route"])
}

func TestProfilingScope_OverwriteLabel(t *testing.T) {
	scope := telemetry.NewProfilingScope(map[string]string{
		"controller": "BudgetHandler",
	})
	scope.WithController("AlerteHandler")

	assert.Equal(t, "AlerteHandler", scope.Labels()["controller"])
}

func TestProfilingScope_LabelsReturnsACopy(t *testing.T) {
	scope := telemetry.NewProfilingScope(nil)
	scope.WithController("AchatHandler")

	leaked := scope.Labels()
	leaked["controller"] = "Modified"

	assert.Equal(t, "AchatHandler", scope.Labels()["controller"])
}

func TestProfilingScope_ImmutableInitialLabels(t *testing.T) {
	initial := map[string]string{
		"controller": "BudgetHandler",
	}
	scope := telemetry.NewProfilingScope(initial)

	initial["controller"] = "Modified"

	assert.Equal(t, "BudgetHandler", scope.Labels()["controller"])
}

func TestProfilingScope_Run(t *testing.T) {
	scope := telemetry.NewProfilingScope(nil)
	scope.WithController("SituationHandler").WithMethod("POST")

	scope.Run(context.Background(), func(c context.Context) {
		v, ok := ctxLabel(c, "controller")
		require.True(t, ok)
		assert.Equal(t, "SituationHandler", v)
	})
}

func TestProfilingScope_WithCustomLabel(t *testing.T) {
	scope := telemetry.NewProfilingScope(nil)
	scope.WithLabel("moteur_calcul", "engagement")

	assert.Equal(t, "engagement", scope.Labels()["moteur_calcul"])
}

func TestHTTPRequestLabels(t *testing.T) {
	tests := []struct {
		name       string
		controller string
		route      string
		method     string
		chantierID string
		wantLen    int
	}{
		{"all_fields", "AchatHandler", "/api/v1/achats", "GET", "chantier-123", 4},
		{"empty_chantier", "AchatHandler", "/api/v1/achats", "GET", "", 3},
		{"only_controller", "AchatHandler", "", "", "", 1},
		{"all_empty", "", "", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := telemetry.HTTPRequestLabels(tt.controller, tt.route, tt.method, tt.chantierID)
			assert.Len(t, labels, tt.wantLen)

			if tt.controller != "" {
				assert.Equal(t, tt.controller, labels[telemetry.ProfilingLabelController])
			}
			if tt.route != "" {
				assert.Equal(t, tt.route, labels[telemetry.ProfilingLabelRoute])
			}
			if tt.method != "" {
				assert.Equal(t, tt.method, labels[telemetry.ProfilingLabelMethod])
			}
			if tt.chantierID != "" {
				assert.Equal(t, tt.chantierID, labels[telemetry.ProfilingLabelChantierID])
			}
		})
	}
}

func TestOperationLabels(t *testing.T) {
	t.Run("operation_only", func(t *testing.T) {
		labels := telemetry.OperationLabels("ConfirmAchat", nil)

		assert.Equal(t, "ConfirmAchat", labels[telemetry.ProfilingLabelOperation])
		assert.Len(t, labels, 1)
	})

	t.Run("with_extra_labels", func(t *testing.T) {
		labels := telemetry.OperationLabels("ConfirmAchat", map[string]string{
			"controller": "AchatHandler",
			"method":     "POST",
		})

		assert.Equal(t, "ConfirmAchat", labels[telemetry.ProfilingLabelOperation])
		assert.Equal(t, "AchatHandler", labels["controller"])
		assert.Equal(t, "POST", labels["method"])
		assert.Len(t, labels, 3)
	})
}

func TestRegionLabels(t *testing.T) {
	t.Run("region_only", func(t *testing.T) {
		labels := telemetry.RegionLabels("db_query", nil)

		assert.Equal(t, "db_query", labels[telemetry.ProfilingLabelRegion])
		assert.Len(t, labels, 1)
	})

	t.Run("with_extra_labels", func(t *testing.T) {
		labels := telemetry.RegionLabels("db_query", map[string]string{
			"operation": "ListAchats",
			"table":     "achats",
		})

		assert.Equal(t, "db_query", labels[telemetry.ProfilingLabelRegion])
		assert.Equal(t, "ListAchats", labels["operation"])
		assert.Equal(t, "achats", labels["table"])
		assert.Len(t, labels, 3)
	})
}

func TestProfilingLabelConstants(t *testing.T) {
	assert.Equal(t, "controller", telemetry.ProfilingLabelController)
	assert.Equal(t, "route", telemetry.ProfilingLabelRoute)
	assert.Equal(t, "method", telemetry.ProfilingLabelMethod)
	assert.Equal(t, "chantier_id", telemetry.ProfilingLabelChantierID)
	assert.Equal(t, "operation", telemetry.ProfilingLabelOperation)
	assert.Equal(t, "region", telemetry.ProfilingLabelRegion)
	assert.Equal(t, 128, telemetry.MaxLabelValueLength)
}

func TestHighCardinalityLabels(t *testing.T) {
	for _, label := range []string{
		"user_id", "request_id", "achat_id", "facture_id",
		"trace_id", "span_id", "session_id",
	} {
		assert.True(t, telemetry.HighCardinalityLabels[label],
			"label %s should be marked as high cardinality", label)
	}

	assert.False(t, telemetry.HighCardinalityLabels["chantier_id"],
		"chantier_id stays labelable, cardinality is bounded by the company's sites")
}

func TestNestedProfilingLabels(t *testing.T) {
	outer := map[string]string{"controller": "AchatHandler"}
	inner := map[string]string{"region": "db_query"}

	telemetry.WithProfilingLabels(context.Background(), outer, func(outerCtx context.Context) {
		telemetry.WithProfilingLabels(outerCtx, inner, func(innerCtx context.Context) {
			// Inner scope sees both its own label and the outer one.
			_, ok := ctxLabel(innerCtx, "region")
			assert.True(t, ok)
			_, ok = ctxLabel(innerCtx, "controller")
			assert.True(t, ok)
		})
	})
}

func TestWithProfilingLabels_ContextPropagation(t *testing.T) {
	type contextKey string
	key := contextKey("tenant")
	ctx := context.WithValue(context.Background(), key, "btp-sud")

	telemetry.WithProfilingLabels(ctx, map[string]string{
		"controller": "ExportHandler",
	}, func(c context.Context) {
		value := c.Value(key)
		require.NotNil(t, value)
		assert.Equal(t, "btp-sud", value)
	})
}

func TestWithProfilingLabels_Concurrent(t *testing.T) {
	const goroutines = 10
	var wg sync.WaitGroup

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			telemetry.WithProfilingLabels(context.Background(), map[string]string{
				"controller": "AchatHandler",
				"region":     "db_query",
			}, func(c context.Context) {
				_, ok := ctxLabel(c, "controller")
				assert.True(t, ok)
			})
		}()
	}

	wg.Wait()
}
