package metrics_collectors

import (
	"context"

	"github.com/benmeehan/edac-watchdog/internal/models"
	"github.com/benmeehan/edac-watchdog/pkg/file"
	"github.com/benmeehan/edac-watchdog/pkg/sensor"
	"github.com/rs/zerolog"
)

// counterReadLimit bounds sysfs counter reads.
const counterReadLimit = 32

// EDACMetricCollector reports the corrected and uncorrected error counters of
// every memory controller.
type EDACMetricCollector struct {
	Logger     zerolog.Logger
	Root       string
	FileClient file.FileOperations
}

func (e *EDACMetricCollector) Name() string {
	return "edac"
}

func (e *EDACMetricCollector) Collect(ctx context.Context) interface{} {
	controllers, err := sensor.DiscoverControllers(e.Root)
	if err != nil {
		e.Logger.Error().Err(err).Str("root", e.Root).Msg("Failed to list EDAC memory controllers")
		return nil
	}
	if len(controllers) == 0 {
		e.Logger.Warn().Str("root", e.Root).Msg("No EDAC memory controllers found")
		return nil
	}

	counters := make([]models.EDACCounters, 0, len(controllers))
	for _, mc := range controllers {
		if ctx.Err() != nil {
			break
		}
		counters = append(counters, models.EDACCounters{
			Controller: mc.Name,
			UECount:    e.readCounter(mc.UECountPath),
			CECount:    e.readCounter(mc.CECountPath),
		})
	}
	return counters
}

func (e *EDACMetricCollector) readCounter(path string) *uint64 {
	exists, err := e.FileClient.IsFileExists(path)
	if err != nil || !exists {
		return nil
	}
	data, err := e.FileClient.ReadFileHead(path, counterReadLimit)
	if err != nil {
		e.Logger.Debug().Err(err).Str("path", path).Msg("Failed to read EDAC counter")
		return nil
	}
	value, err := sensor.ParseCount(data)
	if err != nil {
		e.Logger.Debug().Err(err).Str("path", path).Msg("Failed to parse EDAC counter")
		return nil
	}
	return &value
}

func (e *EDACMetricCollector) IsEnabled(config *models.DiagnosticsConfig) bool {
	return enabledByName(config, e.Name())
}

func (e *EDACMetricCollector) Unit() string {
	return "count"
}

func (e *EDACMetricCollector) Description() string {
	return "Uncorrectable and correctable error counts per EDAC memory controller."
}
