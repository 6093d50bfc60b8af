package domain

// DefaultTaskPrefix is used when no task-name prefix is configured.
const DefaultTaskPrefix = "bundle"

// TaskNamer derives harness task names from targets and cache groups.
//
// Target tasks are "<prefix>:<target>", named groups "<prefix>-group:<name>"
// and the default group is the bare "<prefix>-group". The two prefixes differ
// before the separator and the default group has no separator at all, so the
// three families never collide.
type TaskNamer struct {
	prefix string
}

// NewTaskNamer returns a namer for prefix, falling back to DefaultTaskPrefix.
func NewTaskNamer(prefix string) TaskNamer {
	if prefix == "" {
		prefix = DefaultTaskPrefix
	}
	return TaskNamer{prefix: prefix}
}

// Target returns the task name building target.
func (n TaskNamer) Target(target string) string {
	return n.prefix + ":" + target
}

// Group returns the task name of the aggregate task for group g.
func (n TaskNamer) Group(g GroupID) string {
	if g.IsDefault() {
		return n.prefix + "-group"
	}
	return n.prefix + "-group:" + g.Name()
}
