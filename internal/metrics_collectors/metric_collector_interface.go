package metrics_collectors

import (
	"context"

	"github.com/benmeehan/edac-watchdog/internal/models"
)

// MetricCollector defines the interface for collecting a specific platform fact.
type MetricCollector interface {
	Name() string                                    // Name of the metric (e.g., "memory", "edac")
	Collect(ctx context.Context) interface{}         // Collect the metric data, nil if unavailable
	IsEnabled(config *models.DiagnosticsConfig) bool // Check if the metric is enabled in the config
	Unit() string                                    // Unit of the metric (e.g., "bytes", "count")
	Description() string                             // Description of the metric
}

// enabledByName reports whether name is selected; an empty selection enables everything.
func enabledByName(config *models.DiagnosticsConfig, name string) bool {
	if config == nil || !config.Enabled {
		return false
	}
	if len(config.Collectors) == 0 {
		return true
	}
	for _, n := range config.Collectors {
		if n == name {
			return true
		}
	}
	return false
}
