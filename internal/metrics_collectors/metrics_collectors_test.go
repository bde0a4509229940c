package metrics_collectors

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/benmeehan/edac-watchdog/internal/models"
	"github.com/benmeehan/edac-watchdog/pkg/file"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEDACMetricCollector_Collect(t *testing.T) {
	root := t.TempDir()
	mc0 := filepath.Join(root, "mc0")
	require.NoError(t, os.MkdirAll(mc0, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(mc0, "ue_count"), []byte("0\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(mc0, "ce_count"), []byte("12\n"), 0600))

	mc1 := filepath.Join(root, "mc1")
	require.NoError(t, os.MkdirAll(mc1, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(mc1, "ue_count"), []byte("garbage"), 0600))

	collector := &EDACMetricCollector{Logger: zerolog.Nop(), Root: root, FileClient: file.NewFileService()}
	value := collector.Collect(context.Background())

	counters, ok := value.([]models.EDACCounters)
	require.True(t, ok)
	require.Len(t, counters, 2)

	assert.Equal(t, "mc0", counters[0].Controller)
	require.NotNil(t, counters[0].UECount)
	assert.Equal(t, uint64(0), *counters[0].UECount)
	require.NotNil(t, counters[0].CECount)
	assert.Equal(t, uint64(12), *counters[0].CECount)

	assert.Equal(t, "mc1", counters[1].Controller)
	assert.Nil(t, counters[1].UECount)
	assert.Nil(t, counters[1].CECount)
}

func TestEDACMetricCollector_NoControllers(t *testing.T) {
	collector := &EDACMetricCollector{Logger: zerolog.Nop(), Root: t.TempDir(), FileClient: file.NewFileService()}
	assert.Nil(t, collector.Collect(context.Background()))
}

func TestEnabledByName(t *testing.T) {
	collector := &EDACMetricCollector{}

	assert.False(t, collector.IsEnabled(nil))
	assert.False(t, collector.IsEnabled(&models.DiagnosticsConfig{}))
	assert.True(t, collector.IsEnabled(&models.DiagnosticsConfig{Enabled: true}))
	assert.True(t, collector.IsEnabled(&models.DiagnosticsConfig{Enabled: true, Collectors: []string{"memory", "edac"}}))
	assert.False(t, collector.IsEnabled(&models.DiagnosticsConfig{Enabled: true, Collectors: []string{"memory"}}))
}

func TestSupportsGPIOUAPIv2(t *testing.T) {
	tests := []struct {
		release string
		want    bool
	}{
		{"6.1.0-13-amd64", true},
		{"5.10.0", true},
		{"5.15.0-1034-raspi", true},
		{"5.4.0-150-generic", false},
		{"4.19.94-ti-r42", false},
	}

	for _, tt := range tests {
		t.Run(tt.release, func(t *testing.T) {
			got, err := SupportsGPIOUAPIv2(tt.release)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := SupportsGPIOUAPIv2("not-a-kernel")
	assert.Error(t, err)
}

func TestMetricsRegistry_Names(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.Register(&MemoryMetricCollector{})
	registry.Register(&EDACMetricCollector{})
	registry.Register(&KernelMetricCollector{})

	assert.Equal(t, []string{"edac", "kernel", "memory"}, registry.Names())
	assert.Len(t, registry.GetCollectors(), 3)
}
