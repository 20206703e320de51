package types

// RunMode is the mode the process is booted in
type RunMode string

const (
	// RunModeCron runs due automation tasks once and exits; intended to be
	// driven by system cron at least once per minute
	RunModeCron RunMode = "cron"
	// RunModeTask runs a single named task regardless of schedule
	RunModeTask RunMode = "task"
)

// LogLevel is the level of the log
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
