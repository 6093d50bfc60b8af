package domain

// TaskKind distinguishes leaf tasks from aggregate tasks.
type TaskKind int

const (
	// TaskKindLeaf is a task backed by a function (one target build).
	TaskKindLeaf TaskKind = iota
	// TaskKindSeries is an aggregate task running its steps one after another.
	TaskKindSeries
)

// Task is a named unit of work registered with the task harness.
// Series tasks list the tasks they run, in order, as Steps.
type Task struct {
	Name  InternedString
	Kind  TaskKind
	Steps []InternedString
}
