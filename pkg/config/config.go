// Package config loads the two configuration surfaces the monitor core
// depends on: the JSON services file (the frozen set of monitored
// endpoints) and an optional YAML ops file carrying daemon-level defaults,
// in the same load-then-override-with-env style the teacher repo uses for
// its own per-component configuration.
//
// Managing the services file on disk (create/show/add/remove/update) is an
// external CLI concern and out of scope here; this package only loads and
// validates it.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/nightwatch/monitor/pkg/monitorerr"
)

// Config is the parsed, validated services file: the root JSON object with
// a single "services" key.
type Config struct {
	Services []*ServiceDescriptor `json:"services"`
}

// LoadServices reads and validates the JSON services file at path. Every
// validation failure is fatal at startup, per the error handling design.
func LoadServices(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("configuration file %q is not valid JSON: %w", path, err)
	}

	for i, svc := range cfg.Services {
		// last_checked_at is ignored on load regardless of what the file contains.
		svc.LastCheckedAt = nil
		if err := svc.Validate(); err != nil {
			return nil, fmt.Errorf("service #%d is invalid: %w", i, err)
		}
	}

	return &cfg, nil
}

// Sorted returns the descriptors ordered by their (url, method,
// check_regex, regex) sort key, for human-facing startup logging.
func (c *Config) Sorted() []*ServiceDescriptor {
	out := make([]*ServiceDescriptor, len(c.Services))
	copy(out, c.Services)
	sort.Slice(out, func(i, j int) bool {
		return out[i].SortKey() < out[j].SortKey()
	})
	return out
}

// EstimateWorkload logs the average and total requests-per-second implied
// by the configured descriptors, matching the original source's
// estimate_workload. It is observational only and never errors.
func EstimateWorkload(services []*ServiceDescriptor) (totalRPS, avgRPS float64) {
	if len(services) == 0 {
		return 0, 0
	}
	for _, svc := range services {
		totalRPS += 1.0 / float64(svc.IntervalSec)
	}
	avgRPS = totalRPS / float64(len(services))
	log.Printf("WARNING | config | average requests per second (RPS) across all services: %.4f", avgRPS)
	log.Printf("WARNING | config | total requests per second (RPS) across all services: %.4f", totalRPS)
	return totalRPS, avgRPS
}

// OpsConfig carries daemon-level defaults that are not part of the frozen
// service set: logging verbosity and export defaults used when the
// corresponding startup flag is not supplied. It is loaded from an
// optional YAML file, in the teacher's config style.
type OpsConfig struct {
	LogVerbosity    string `yaml:"log_verbosity"`
	ExportBatchSize int    `yaml:"export_batch_size"`
	ExportIntervalS int    `yaml:"export_interval_seconds"`
	SystemdNotify   bool   `yaml:"systemd_notify"`
}

// DefaultOpsConfig mirrors the original source's DEFAULT_BATCH_SIZE /
// EXPORT_INTERVAL_SECONDS constants.
func DefaultOpsConfig() OpsConfig {
	return OpsConfig{
		LogVerbosity:    "warning",
		ExportBatchSize: DefaultBatchSize,
		ExportIntervalS: DefaultExportIntervalSeconds,
		SystemdNotify:   false,
	}
}

// LoadOpsConfig loads an optional YAML ops file. A missing file is not an
// error: the caller falls back to DefaultOpsConfig. Environment variables
// (MONITOR_LOG_VERBOSITY, MONITOR_EXPORT_BATCH_SIZE,
// MONITOR_EXPORT_INTERVAL_SECONDS, MONITOR_SYSTEMD_NOTIFY) override
// whatever the file contains, in the same overrideWithEnv style the
// teacher applies to its own configs.
func LoadOpsConfig(path string) (OpsConfig, error) {
	cfg := DefaultOpsConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return overrideOpsConfigFromEnv(cfg), nil
			}
			return cfg, fmt.Errorf("failed to read ops configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("ops configuration file %q is not valid YAML: %w", path, err)
		}
	}

	return overrideOpsConfigFromEnv(cfg), nil
}

func overrideOpsConfigFromEnv(cfg OpsConfig) OpsConfig {
	if val := os.Getenv("MONITOR_LOG_VERBOSITY"); val != "" {
		cfg.LogVerbosity = val
	}
	if val := os.Getenv("MONITOR_EXPORT_BATCH_SIZE"); val != "" {
		var n int
		if _, err := fmt.Sscanf(val, "%d", &n); err == nil {
			cfg.ExportBatchSize = n
		}
	}
	if val := os.Getenv("MONITOR_EXPORT_INTERVAL_SECONDS"); val != "" {
		var n int
		if _, err := fmt.Sscanf(val, "%d", &n); err == nil {
			cfg.ExportIntervalS = n
		}
	}
	if val := os.Getenv("MONITOR_SYSTEMD_NOTIFY"); val != "" {
		cfg.SystemdNotify = val == "true" || val == "1"
	}
	return cfg
}

const (
	// MinBatchSize and MaxBatchSize bound export_batch_size.
	MinBatchSize = 1
	MaxBatchSize = 50000

	// MinExportIntervalSeconds and MaxExportIntervalSeconds bound
	// export_interval.
	MinExportIntervalSeconds = 1
	MaxExportIntervalSeconds = 3600

	// DefaultBatchSize and DefaultExportIntervalSeconds are sensible
	// defaults used when neither a flag nor the ops file set a value.
	DefaultBatchSize             = 5000
	DefaultExportIntervalSeconds = 5
)

// ValidateExportBatchSize enforces [MinBatchSize, MaxBatchSize].
func ValidateExportBatchSize(size int) error {
	if size < MinBatchSize || size > MaxBatchSize {
		return fmt.Errorf("%w: must be between %d and %d, got %d", monitorerr.ErrInvalidBatchSize, MinBatchSize, MaxBatchSize, size)
	}
	return nil
}

// ValidateExportInterval enforces [MinExportIntervalSeconds, MaxExportIntervalSeconds].
func ValidateExportInterval(seconds int) error {
	if seconds < MinExportIntervalSeconds || seconds > MaxExportIntervalSeconds {
		return fmt.Errorf("%w: must be between %d and %d seconds, got %d", monitorerr.ErrInvalidExportInterval, MinExportIntervalSeconds, MaxExportIntervalSeconds, seconds)
	}
	return nil
}

const (
	systemdSocketPath    = "/run/systemd/notify"
	systemdNotifyMessage = "READY=1"
)

// NotifySystemd sends the READY=1 datagram to systemd's notify socket when
// enabled is true. It is a no-op (logged) when disabled, matching the
// original source's notify_systemd boundary call.
func NotifySystemd(enabled bool) error {
	if !enabled {
		log.Println("WARNING | config | systemd notification is disabled")
		return nil
	}

	conn, err := net.Dial("unixgram", systemdSocketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd notify socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(systemdNotifyMessage)); err != nil {
		return fmt.Errorf("failed to notify systemd: %w", err)
	}

	log.Println("WARNING | config | systemd was notified, ready to rock")
	return nil
}
