package models

import "time"

// DiagnosticsConfig selects the platform facts logged at startup.
type DiagnosticsConfig struct {
	Enabled    bool          `yaml:"enabled"`    // Enable/disable the startup snapshot
	EDACRoot   string        `yaml:"edac_root"`  // Directory holding the mc* controllers
	Collectors []string      `yaml:"collectors"` // Collector names to run; empty runs all
	Timeout    time.Duration `yaml:"timeout"`    // Upper bound for the whole snapshot
}

// Metric is a single collected value with its unit.
type Metric struct {
	Value any    `json:"value"`
	Unit  string `json:"unit"`
}

// PlatformSnapshot holds the diagnostics collected at a specific time.
type PlatformSnapshot struct {
	Timestamp time.Time         `json:"timestamp"`
	RunID     string            `json:"run_id"`
	Metrics   map[string]Metric `json:"metrics"`
}

// VirtualMemory is the operating system view of memory.
type VirtualMemory struct {
	TotalBytes  uint64  `json:"total_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// MemoryInventory describes the installed physical memory.
type MemoryInventory struct {
	TotalPhysicalBytes int64 `json:"total_physical_bytes"`
	TotalUsableBytes   int64 `json:"total_usable_bytes"`
	Modules            int   `json:"modules"`
}

// KernelInfo reports the running kernel and whether it offers the GPIO v2 uAPI.
type KernelInfo struct {
	Version    string `json:"version"`
	GPIOUAPIv2 bool   `json:"gpio_uapi_v2"`
}

// EDACCounters holds the error counters of one memory controller.
type EDACCounters struct {
	Controller string  `json:"controller"`
	UECount    *uint64 `json:"ue_count,omitempty"`
	CECount    *uint64 `json:"ce_count,omitempty"`
}
