package metrics_collectors

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/benmeehan/edac-watchdog/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/host"
)

// gpioUAPIv2 is the first kernel release with the GPIO character device v2 uAPI.
var gpioUAPIv2 = semver.MustParse("5.10.0")

// KernelMetricCollector reports the running kernel version.
type KernelMetricCollector struct {
	Logger zerolog.Logger
}

func (k *KernelMetricCollector) Name() string {
	return "kernel"
}

func (k *KernelMetricCollector) Collect(ctx context.Context) interface{} {
	release, err := host.KernelVersionWithContext(ctx)
	if err != nil {
		k.Logger.Error().Err(err).Msg("Failed to read kernel version")
		return nil
	}

	info := &models.KernelInfo{Version: release}
	supported, err := SupportsGPIOUAPIv2(release)
	if err != nil {
		k.Logger.Warn().Err(err).Str("kernel", release).Msg("Unrecognised kernel version")
		return info
	}
	info.GPIOUAPIv2 = supported
	if !supported {
		k.Logger.Warn().Str("kernel", release).Msg("Kernel predates GPIO uAPI v2, fail-safe line requests may fail")
	}
	return info
}

func (k *KernelMetricCollector) IsEnabled(config *models.DiagnosticsConfig) bool {
	return enabledByName(config, k.Name())
}

func (k *KernelMetricCollector) Unit() string {
	return "version"
}

func (k *KernelMetricCollector) Description() string {
	return "Kernel release and GPIO uAPI v2 availability."
}

// SupportsGPIOUAPIv2 reports whether a kernel release string such as
// "6.1.0-13-amd64" is at least 5.10.
func SupportsGPIOUAPIv2(release string) (bool, error) {
	v, err := semver.NewVersion(release)
	if err != nil {
		return false, err
	}
	// Distribution suffixes parse as prereleases; compare the release triple only.
	core := semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
	return !core.LessThan(gpioUAPIv2), nil
}
