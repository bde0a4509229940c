package services

import (
	"context"
	"sync"
	"time"

	"github.com/benmeehan/edac-watchdog/internal/metrics_collectors"
	"github.com/benmeehan/edac-watchdog/internal/models"
	"github.com/benmeehan/edac-watchdog/internal/utils"
	"github.com/benmeehan/edac-watchdog/pkg/file"
	"github.com/rs/zerolog"
)

// DiagnosticsService collects a one-off platform snapshot before monitoring
// starts. It never touches the fail-safe line.
type DiagnosticsService struct {
	config     models.DiagnosticsConfig
	runID      string
	fileClient file.FileOperations
	logger     zerolog.Logger
	registry   *metrics_collectors.MetricsRegistry
	workerPool *utils.WorkerPool
}

// NewDiagnosticsService initializes a DiagnosticsService with the default collectors.
func NewDiagnosticsService(config models.DiagnosticsConfig, runID string,
	fileClient file.FileOperations, logger zerolog.Logger) *DiagnosticsService {

	config.Collectors = utils.NormalizeNames(config.Collectors)

	service := &DiagnosticsService{
		config:     config,
		runID:      runID,
		fileClient: fileClient,
		logger:     logger,
		registry:   metrics_collectors.NewMetricsRegistry(),
		workerPool: utils.NewWorkerPool(4),
	}

	service.registerDefaultCollectors()
	service.warnUnknownCollectors()

	return service
}

// registerDefaultCollectors registers the default metric collectors.
func (d *DiagnosticsService) registerDefaultCollectors() {
	d.registry.Register(&metrics_collectors.MemoryMetricCollector{Logger: d.logger})
	d.registry.Register(&metrics_collectors.PhysicalMemoryCollector{Logger: d.logger})
	d.registry.Register(&metrics_collectors.KernelMetricCollector{Logger: d.logger})
	d.registry.Register(&metrics_collectors.EDACMetricCollector{
		Logger:     d.logger,
		Root:       d.config.EDACRoot,
		FileClient: d.fileClient,
	})
}

// Register adds or replaces a collector.
func (d *DiagnosticsService) Register(collector metrics_collectors.MetricCollector) {
	d.registry.Register(collector)
}

func (d *DiagnosticsService) warnUnknownCollectors() {
	known := utils.SliceToSet(d.registry.Names())
	for _, name := range d.config.Collectors {
		if _, ok := known[name]; !ok {
			d.logger.Warn().Str("collector", name).Strs("known", d.registry.Names()).Msg("Unknown diagnostics collector")
		}
	}
}

// Snapshot runs every enabled collector concurrently. Collectors still running
// when the timeout elapses are left out of the snapshot.
func (d *DiagnosticsService) Snapshot(ctx context.Context) *models.PlatformSnapshot {
	snapshot := &models.PlatformSnapshot{
		Timestamp: time.Now().UTC(),
		RunID:     d.runID,
		Metrics:   make(map[string]models.Metric),
	}
	if !d.config.Enabled {
		return snapshot
	}

	timeout := d.config.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var wg sync.WaitGroup
	metricsMutex := &sync.Mutex{}
	collected := make(map[string]models.Metric)

	for name, collector := range d.registry.GetCollectors() {
		if !collector.IsEnabled(&d.config) {
			continue
		}
		wg.Add(1)
		submitted := d.workerPool.Submit(func() {
			defer wg.Done()
			value := collector.Collect(ctx)
			if value == nil {
				return
			}

			metricsMutex.Lock()
			defer metricsMutex.Unlock()
			collected[name] = models.Metric{Value: value, Unit: collector.Unit()}
		})
		if !submitted {
			wg.Done()
		}
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		d.logger.Warn().Dur("timeout", timeout).Msg("Diagnostics collection timed out")
	}

	metricsMutex.Lock()
	for name, metric := range collected {
		snapshot.Metrics[name] = metric
	}
	metricsMutex.Unlock()

	return snapshot
}

// LogSnapshot collects a snapshot and writes it to the log.
func (d *DiagnosticsService) LogSnapshot(ctx context.Context) *models.PlatformSnapshot {
	snapshot := d.Snapshot(ctx)
	if !d.config.Enabled {
		d.logger.Debug().Msg("Diagnostics disabled")
		return snapshot
	}
	d.logger.Info().Interface("diagnostics", snapshot).Msg("Platform diagnostics collected")
	return snapshot
}

// Close stops the worker pool. It waits for running collectors until ctx is
// done; collectors that ignore cancellation are then left to finish on their own.
func (d *DiagnosticsService) Close(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		d.workerPool.Shutdown()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		d.logger.Warn().Err(ctx.Err()).Msg("Abandoning diagnostics collectors still running")
		return ctx.Err()
	}
}
