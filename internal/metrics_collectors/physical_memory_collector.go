package metrics_collectors

import (
	"context"

	"github.com/benmeehan/edac-watchdog/internal/models"
	"github.com/jaypipes/ghw"
	"github.com/rs/zerolog"
)

// PhysicalMemoryCollector reports the installed memory modules protected by ECC.
type PhysicalMemoryCollector struct {
	Logger zerolog.Logger
}

func (p *PhysicalMemoryCollector) Name() string {
	return "physical_memory"
}

func (p *PhysicalMemoryCollector) Collect(ctx context.Context) interface{} {
	info, err := ghw.Memory()
	if err != nil {
		p.Logger.Warn().Err(err).Msg("Failed to read physical memory inventory")
		return nil
	}

	return &models.MemoryInventory{
		TotalPhysicalBytes: info.TotalPhysicalBytes,
		TotalUsableBytes:   info.TotalUsableBytes,
		Modules:            len(info.Modules),
	}
}

func (p *PhysicalMemoryCollector) IsEnabled(config *models.DiagnosticsConfig) bool {
	return enabledByName(config, p.Name())
}

func (p *PhysicalMemoryCollector) Unit() string {
	return "bytes"
}

func (p *PhysicalMemoryCollector) Description() string {
	return "Installed physical memory and number of memory modules."
}
