package metrics_collectors

import (
	"context"

	"github.com/benmeehan/edac-watchdog/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/mem"
)

// MemoryMetricCollector collects the operating system view of memory.
type MemoryMetricCollector struct {
	Logger zerolog.Logger
}

// Name returns the identifier for the memory metric collector.
func (m *MemoryMetricCollector) Name() string {
	return "memory"
}

// Collect retrieves total and used virtual memory.
func (m *MemoryMetricCollector) Collect(ctx context.Context) interface{} {
	memStats, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to retrieve memory statistics")
		return nil
	}

	m.Logger.Debug().
		Uint64("memory_total_bytes", memStats.Total).
		Float64("memory_usage_percent", memStats.UsedPercent).
		Msg("Memory usage collected successfully")

	return &models.VirtualMemory{
		TotalBytes:  memStats.Total,
		UsedPercent: memStats.UsedPercent,
	}
}

// IsEnabled checks if memory diagnostics are enabled in the configuration.
func (m *MemoryMetricCollector) IsEnabled(config *models.DiagnosticsConfig) bool {
	return enabledByName(config, m.Name())
}

// Unit specifies the unit for memory metrics.
func (m *MemoryMetricCollector) Unit() string {
	return "bytes"
}

// Description provides details of the memory metrics collected.
func (m *MemoryMetricCollector) Description() string {
	return "Total virtual memory and percentage in use."
}
