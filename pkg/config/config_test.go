package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadServices_Valid(t *testing.T) {
	path := writeTempFile(t, "services.json", `{
		"services": [
			{"url": "https://example.com/", "method": "GET", "interval_sec": 5, "timeout": 5, "check_regex": true, "regex": "hello"},
			{"url": "http://example.org/", "method": "HEAD", "interval_sec": 30, "timeout": 10, "check_regex": false}
		]
	}`)

	cfg, err := LoadServices(path)
	require.NoError(t, err)
	require.Len(t, cfg.Services, 2)
	assert.Equal(t, "hello", cfg.Services[0].Regex)
	assert.Nil(t, cfg.Services[0].LastCheckedAt)
}

func TestLoadServices_IgnoresLastCheckedAtOnLoad(t *testing.T) {
	path := writeTempFile(t, "services.json", `{
		"services": [
			{"url": "https://example.com/", "method": "GET", "interval_sec": 5, "timeout": 5, "last_checked_at": "2020-01-01T00:00:00Z"}
		]
	}`)

	cfg, err := LoadServices(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Services[0].LastCheckedAt)
}

func TestLoadServices_RejectsInvalidMethod(t *testing.T) {
	path := writeTempFile(t, "services.json", `{"services": [{"url": "https://example.com/", "method": "DELETE", "interval_sec": 5, "timeout": 5}]}`)

	_, err := LoadServices(path)
	assert.Error(t, err)
}

func TestLoadServices_RejectsMissingRegexWhenRequired(t *testing.T) {
	path := writeTempFile(t, "services.json", `{"services": [{"url": "https://example.com/", "method": "GET", "interval_sec": 5, "timeout": 5, "check_regex": true}]}`)

	_, err := LoadServices(path)
	assert.Error(t, err)
}

func TestLoadServices_RejectsIntervalOutOfRange(t *testing.T) {
	path := writeTempFile(t, "services.json", `{"services": [{"url": "https://example.com/", "method": "GET", "interval_sec": 1, "timeout": 5}]}`)

	_, err := LoadServices(path)
	assert.Error(t, err)
}

func TestLoadServices_MissingFile(t *testing.T) {
	_, err := LoadServices(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}

func TestLoadServices_InvalidJSON(t *testing.T) {
	path := writeTempFile(t, "services.json", `not json`)
	_, err := LoadServices(path)
	assert.Error(t, err)
}

func TestConfig_Sorted(t *testing.T) {
	cfg := &Config{Services: []*ServiceDescriptor{
		{URL: "https://z.example.com/", Method: MethodGet},
		{URL: "https://a.example.com/", Method: MethodGet},
	}}

	sorted := cfg.Sorted()
	assert.Equal(t, "https://a.example.com/", sorted[0].URL)
	assert.Equal(t, "https://z.example.com/", sorted[1].URL)
}

func TestEstimateWorkload(t *testing.T) {
	total, avg := EstimateWorkload([]*ServiceDescriptor{
		{IntervalSec: 10},
		{IntervalSec: 10},
	})
	assert.InDelta(t, 0.2, total, 0.0001)
	assert.InDelta(t, 0.1, avg, 0.0001)
}

func TestEstimateWorkload_NoServices(t *testing.T) {
	total, avg := EstimateWorkload(nil)
	assert.Zero(t, total)
	assert.Zero(t, avg)
}

func TestLoadOpsConfig_DefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadOpsConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, cfg.ExportBatchSize)
}

func TestLoadOpsConfig_ParsesYAML(t *testing.T) {
	path := writeTempFile(t, "ops.yaml", "export_batch_size: 100\nexport_interval_seconds: 2\nlog_verbosity: debug\n")
	cfg, err := LoadOpsConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.ExportBatchSize)
	assert.Equal(t, 2, cfg.ExportIntervalS)
	assert.Equal(t, "debug", cfg.LogVerbosity)
}

func TestLoadOpsConfig_EnvOverridesFile(t *testing.T) {
	path := writeTempFile(t, "ops.yaml", "export_batch_size: 100\n")
	t.Setenv("MONITOR_EXPORT_BATCH_SIZE", "250")

	cfg, err := LoadOpsConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.ExportBatchSize)
}

func TestValidateExportBatchSize(t *testing.T) {
	assert.NoError(t, ValidateExportBatchSize(1))
	assert.NoError(t, ValidateExportBatchSize(MaxBatchSize))
	assert.Error(t, ValidateExportBatchSize(0))
	assert.Error(t, ValidateExportBatchSize(MaxBatchSize+1))
}

func TestValidateExportInterval(t *testing.T) {
	assert.NoError(t, ValidateExportInterval(1))
	assert.Error(t, ValidateExportInterval(0))
	assert.Error(t, ValidateExportInterval(MaxExportIntervalSeconds+1))
}

func TestNotifySystemd_Disabled(t *testing.T) {
	assert.NoError(t, NotifySystemd(false))
}

func TestServiceDescriptor_PriorityValue(t *testing.T) {
	now := time.Now().UTC()

	fresh := &ServiceDescriptor{IntervalSec: 10}
	assert.Equal(t, 0.0, fresh.PriorityValue(now))

	last := now.Add(-4 * time.Second)
	checked := &ServiceDescriptor{IntervalSec: 10, LastCheckedAt: &last}
	assert.InDelta(t, 6.0, checked.PriorityValue(now), 0.01)
}

func TestServiceDescriptor_Equal(t *testing.T) {
	a := &ServiceDescriptor{URL: "https://example.com/", Method: MethodGet, CheckRegex: true, Regex: "x"}
	b := &ServiceDescriptor{URL: "https://example.com/", Method: MethodGet, CheckRegex: true, Regex: "x"}
	c := &ServiceDescriptor{URL: "https://example.com/", Method: MethodHead, CheckRegex: true, Regex: "x"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
