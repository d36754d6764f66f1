// Package monitorerr collects the sentinel errors the core distinguishes
// between, per the error handling design: a flat set of descriptive errors
// wrapped with fmt.Errorf, matched with errors.Is/errors.As, rather than a
// typed exception hierarchy.
package monitorerr

import "errors"

var (
	// ErrNoServices is returned at startup when the configuration file
	// contains zero service descriptors.
	ErrNoServices = errors.New("configuration contains no services")

	// ErrMissingDSN is returned at startup when DATABASE_URI is absent or
	// empty.
	ErrMissingDSN = errors.New("DATABASE_URI environment variable is not set")

	// ErrInvalidBatchSize is returned when export_batch_size falls outside
	// [MinBatchSize, MaxBatchSize].
	ErrInvalidBatchSize = errors.New("export batch size out of range")

	// ErrInvalidExportInterval is returned when export_interval falls
	// outside [MinExportIntervalSeconds, MaxExportIntervalSeconds].
	ErrInvalidExportInterval = errors.New("export interval out of range")

	// ErrReconnectAttemptsExceeded is the fatal error surfaced by the
	// Exporter once the reconnect counter exceeds MaxReconnectionAttempts.
	ErrReconnectAttemptsExceeded = errors.New("reconnection attempts exceeded")

	// ErrNotConnected is returned by the store adapter when Create is
	// attempted without a live pool.
	ErrNotConnected = errors.New("store adapter is not connected")
)

// ConnError wraps a connection-class failure (network/TLS/DNS/timeout) so
// that the Exporter can distinguish it, via errors.As, from any other
// failure returned by the store adapter.
type ConnError struct {
	Err error
}

func (e *ConnError) Error() string {
	return "connection error: " + e.Err.Error()
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// IsConnError reports whether err is (or wraps) a *ConnError.
func IsConnError(err error) bool {
	var ce *ConnError
	return errors.As(err, &ce)
}
