package domain

import "go.trai.ch/zerr"

var (
	// ErrTaskAlreadyExists is returned when a task name is registered twice.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrMissingDependency is returned when a series references a task that was never registered.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when series tasks reference each other in a loop.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTaskNotFound is returned when a requested task is not registered.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrNoTargets is returned when a configuration declares no targets at all.
	ErrNoTargets = zerr.New("no targets configured")

	// ErrInvalidTargetName is returned for empty target names or names containing whitespace.
	ErrInvalidTargetName = zerr.New("invalid target name")

	// ErrDuplicateTarget is returned when the same target is listed twice.
	ErrDuplicateTarget = zerr.New("duplicate target")

	// ErrTargetInMultipleGroups is returned when one target is assigned to two cache groups.
	ErrTargetInMultipleGroups = zerr.New("target assigned to multiple cache groups")

	// ErrUnknownTarget is returned when an operation names a target outside the configured set.
	ErrUnknownTarget = zerr.New("unknown target")

	// ErrBuildFailed is returned when the bundler reports an error and no error handler is set.
	ErrBuildFailed = zerr.New("build failed")

	// ErrMissingCollaborator is returned when a required port (bundler, sink, entry resolver) is nil.
	ErrMissingCollaborator = zerr.New("missing collaborator")

	// ErrConfigNotFound is returned when no configuration file can be located.
	ErrConfigNotFound = zerr.New("configuration file not found")

	// ErrInvalidConfig is returned when a configuration file is well-formed YAML but semantically invalid.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrProjectAlreadyOpen is returned when an App serving one project is asked to operate on another.
	ErrProjectAlreadyOpen = zerr.New("another project is already open")
)
