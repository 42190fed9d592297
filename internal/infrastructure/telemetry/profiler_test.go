package telemetry_test

import (
	"sync"
	"testing"

	"github.com/chantier/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	cfg := telemetry.ProfilerConfig{
		Enabled:         false,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "chantier-ledger",
	}

	profiler, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, profiler)

	assert.False(t, profiler.IsEnabled())
	assert.Equal(t, "chantier-ledger", profiler.GetConfig().ApplicationName)
	assert.False(t, profiler.GetConfig().Enabled)

	assert.NoError(t, profiler.Stop())
}

func TestNewProfiler_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		cfg     telemetry.ProfilerConfig
		wantErr string
	}{
		{
			name: "missing server address",
			cfg: telemetry.ProfilerConfig{
				Enabled:         true,
				ApplicationName: "chantier-ledger",
			},
			wantErr: "server address is required",
		},
		{
			name: "missing application name",
			cfg: telemetry.ProfilerConfig{
				Enabled:       true,
				ServerAddress: "http://localhost:4040",
			},
			wantErr: "application name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiler, err := telemetry.NewProfiler(tt.cfg, zaptest.NewLogger(t))
			require.Error(t, err)
			assert.Nil(t, profiler)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// Requires a running Pyroscope server, so it only runs outside -short.
func TestNewProfiler_EnabledIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := telemetry.ProfilerConfig{
		Enabled:             true,
		ServerAddress:       "http://localhost:4040",
		ApplicationName:     "chantier-ledger",
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}

	profiler, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, profiler)
	assert.True(t, profiler.IsEnabled())

	assert.NoError(t, profiler.Stop())
}

func TestProfiler_StopIdempotent(t *testing.T) {
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.NoError(t, profiler.Stop())
	}
}

func TestProfiler_StopConcurrent(t *testing.T) {
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = profiler.Stop()
		}()
	}
	wg.Wait()
}

func TestProfiler_GetConfigIsStable(t *testing.T) {
	cfg := telemetry.ProfilerConfig{
		Enabled:         false,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "chantier-ledger",
	}

	profiler, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	first := profiler.GetConfig()
	second := profiler.GetConfig()
	assert.Equal(t, first.ApplicationName, second.ApplicationName)
	assert.Equal(t, "chantier-ledger", second.ApplicationName)
}

func TestProfiler_ProfileTypeFlags(t *testing.T) {
	// Every config is kept disabled so the constructor never needs a real
	// Pyroscope server; what matters is that the flags survive into the
	// stored config.
	base := telemetry.ProfilerConfig{
		Enabled:         false,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "chantier-ledger",
	}

	tests := []struct {
		name   string
		mutate func(*telemetry.ProfilerConfig)
		check  func(*testing.T, telemetry.ProfilerConfig)
	}{
		{
			name:   "no profile types",
			mutate: func(cfg *telemetry.ProfilerConfig) {},
			check: func(t *testing.T, got telemetry.ProfilerConfig) {
				assert.False(t, got.ProfileCPU)
			},
		},
		{
			name: "cpu only",
			mutate: func(cfg *telemetry.ProfilerConfig) {
				cfg.ProfileCPU = true
			},
			check: func(t *testing.T, got telemetry.ProfilerConfig) {
				assert.True(t, got.ProfileCPU)
				assert.False(t, got.ProfileAllocSpace)
			},
		},
		{
			name: "memory only",
			mutate: func(cfg *telemetry.ProfilerConfig) {
				cfg.ProfileAllocObjects = true
				cfg.ProfileAllocSpace = true
			},
			check: func(t *testing.T, got telemetry.ProfilerConfig) {
				assert.True(t, got.ProfileAllocObjects)
				assert.True(t, got.ProfileAllocSpace)
			},
		},
		{
			name: "mutex profiling",
			mutate: func(cfg *telemetry.ProfilerConfig) {
				cfg.ProfileMutexCount = true
				cfg.ProfileMutexDuration = true
				cfg.MutexProfileFraction = 10
			},
			check: func(t *testing.T, got telemetry.ProfilerConfig) {
				assert.True(t, got.ProfileMutexCount)
				assert.True(t, got.ProfileMutexDuration)
				assert.Equal(t, 10, got.MutexProfileFraction)
			},
		},
		{
			name: "block profiling",
			mutate: func(cfg *telemetry.ProfilerConfig) {
				cfg.ProfileBlockCount = true
				cfg.ProfileBlockDuration = true
				cfg.BlockProfileRate = 10
			},
			check: func(t *testing.T, got telemetry.ProfilerConfig) {
				assert.True(t, got.ProfileBlockCount)
				assert.True(t, got.ProfileBlockDuration)
				assert.Equal(t, 10, got.BlockProfileRate)
			},
		},
		{
			name: "everything on",
			mutate: func(cfg *telemetry.ProfilerConfig) {
				cfg.ProfileCPU = true
				cfg.ProfileAllocObjects = true
				cfg.ProfileAllocSpace = true
				cfg.ProfileInuseObjects = true
				cfg.ProfileInuseSpace = true
				cfg.ProfileGoroutines = true
				cfg.ProfileMutexCount = true
				cfg.ProfileMutexDuration = true
				cfg.ProfileBlockCount = true
				cfg.ProfileBlockDuration = true
			},
			check: func(t *testing.T, got telemetry.ProfilerConfig) {
				assert.True(t, got.ProfileGoroutines)
				assert.True(t, got.ProfileInuseSpace)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)

			profiler, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			require.NotNil(t, profiler)
			assert.False(t, profiler.IsEnabled())

			tt.check(t, profiler.GetConfig())
			assert.NoError(t, profiler.Stop())
		})
	}
}

func TestProfiler_DisableGCRuns(t *testing.T) {
	cfg := telemetry.ProfilerConfig{
		Enabled:         false,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "chantier-ledger",
		DisableGCRuns:   true,
	}

	profiler, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, profiler.GetConfig().DisableGCRuns)
	assert.NoError(t, profiler.Stop())
}

func TestProfiler_BasicAuth(t *testing.T) {
	cfg := telemetry.ProfilerConfig{
		Enabled:           false,
		ServerAddress:     "http://localhost:4040",
		ApplicationName:   "chantier-ledger",
		BasicAuthUser:     "grafana-cloud-user",
		BasicAuthPassword: "grafana-cloud-key",
	}

	profiler, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	got := profiler.GetConfig()
	assert.Equal(t, "grafana-cloud-user", got.BasicAuthUser)
	assert.Equal(t, "grafana-cloud-key", got.BasicAuthPassword)

	assert.NoError(t, profiler.Stop())
}
