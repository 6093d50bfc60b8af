package domain

// TargetState is the lifecycle state of one target's most recent build.
type TargetState string

const (
	// TargetUnbuilt indicates no build attempt has happened yet.
	TargetUnbuilt TargetState = "unbuilt"
	// TargetBuilding indicates a build attempt is in flight.
	TargetBuilding TargetState = "building"
	// TargetBuilt indicates the last attempt succeeded.
	TargetBuilt TargetState = "built"
	// TargetFailed indicates the last attempt failed.
	TargetFailed TargetState = "failed"
)

// IsTerminal reports whether the state ends a build attempt.
func (s TargetState) IsTerminal() bool {
	return s == TargetBuilt || s == TargetFailed
}

// LogLevel represents the severity of a log message, mirroring the standard slog levels.
type LogLevel int

const (
	// LogLevelDebug represents debug-level verbosity.
	LogLevelDebug LogLevel = -4
	// LogLevelInfo represents informational verbosity.
	LogLevelInfo LogLevel = 0
	// LogLevelWarn represents warning verbosity.
	LogLevelWarn LogLevel = 4
	// LogLevelError represents error verbosity.
	LogLevelError LogLevel = 8
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}
