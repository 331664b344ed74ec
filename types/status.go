// Package types defines the enumerations shared by the reporter, the CLI
// and the notification adapters.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"fmt"
	"strings"
)

// EmptyID is the sentinel identifier meaning "no active item of this kind".
// It is never a valid server-issued identifier.
const EmptyID = "empty id"

// ItemStatus is the outcome status of a launch or test item.
// The set is opaque to the reporter; it is passed through to the service.
type ItemStatus string

// Item statuses accepted by the service.
const (
	StatusPassed      ItemStatus = "PASSED"
	StatusFailed      ItemStatus = "FAILED"
	StatusStopped     ItemStatus = "STOPPED"
	StatusSkipped     ItemStatus = "SKIPPED"
	StatusCancelled   ItemStatus = "CANCELLED"
	StatusInterrupted ItemStatus = "INTERRUPTED"
	StatusInfo        ItemStatus = "INFO"
	StatusWarn        ItemStatus = "WARN"
)

var allStatuses = []ItemStatus{
	StatusPassed,
	StatusFailed,
	StatusStopped,
	StatusSkipped,
	StatusCancelled,
	StatusInterrupted,
	StatusInfo,
	StatusWarn,
}

// ParseItemStatus parses a status name case-insensitively.
func ParseItemStatus(s string) (ItemStatus, error) {
	upper := ItemStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range allStatuses {
		if st == upper {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid item status: %q", s)
}

// LaunchMode selects how the service displays a launch.
type LaunchMode string

// Launch modes.
const (
	LaunchModeDefault LaunchMode = "DEFAULT"
	LaunchModeDebug   LaunchMode = "DEBUG"
)

// ParseLaunchMode parses a launch mode. Empty input yields LaunchModeDefault.
func ParseLaunchMode(s string) (LaunchMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(LaunchModeDefault):
		return LaunchModeDefault, nil
	case string(LaunchModeDebug):
		return LaunchModeDebug, nil
	default:
		return "", fmt.Errorf("invalid launch mode: %q (must be DEFAULT or DEBUG)", s)
	}
}

// LogLevel is the severity attached to a log entry.
type LogLevel string

// Log levels understood by the service.
const (
	LogLevelTrace   LogLevel = "trace"
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarn    LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelFatal   LogLevel = "fatal"
	LogLevelUnknown LogLevel = "unknown"
)

// ParseLogLevel parses a log level case-insensitively.
// Empty input yields LogLevelInfo.
func ParseLogLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LogLevelInfo, nil
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn,
		LogLevelError, LogLevelFatal, LogLevelUnknown:
		return l, nil
	default:
		return "", fmt.Errorf("invalid log level: %q", s)
	}
}
