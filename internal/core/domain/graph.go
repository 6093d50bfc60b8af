// Package domain contains the core domain models: targets, cache groups,
// module records and the task registry graph.
package domain

import (
	"iter"
	"strings"

	"go.trai.ch/zerr"
)

// Graph is the registry of named tasks. Series tasks reference other tasks
// through their steps, which makes the registry a dependency graph.
type Graph struct {
	tasks          map[InternedString]Task
	order          []InternedString
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		tasks: make(map[InternedString]Task),
	}
}

// AddTask adds a task to the graph.
// It returns an error if a task with the same name already exists.
func (g *Graph) AddTask(t *Task) error {
	if _, exists := g.tasks[t.Name]; exists {
		return zerr.With(zerr.Wrap(ErrTaskAlreadyExists, "cannot register task"), "task_name", t.Name.String())
	}
	g.tasks[t.Name] = *t
	g.order = append(g.order, t.Name)
	g.executionOrder = nil
	return nil
}

// Task looks up a task by name.
func (g *Graph) Task(name InternedString) (Task, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

// TaskCount returns the number of registered tasks.
func (g *Graph) TaskCount() int {
	return len(g.tasks)
}

// Validate checks that every series step exists and that no series
// (transitively) contains itself. It populates the execution order used by Walk.
func (g *Graph) Validate() error {
	executionOrder := make([]InternedString, 0, len(g.tasks))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		task, exists := g.tasks[u]
		if !exists {
			return zerr.With(zerr.Wrap(ErrMissingDependency, "invalid series"), "dependency", u.String())
		}

		for _, step := range task.Steps {
			if visited[step] == 1 {
				return buildCycleError(path, step)
			}
			if visited[step] == 0 {
				if err := visit(step); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		executionOrder = append(executionOrder, u)
		return nil
	}

	// Registration order keeps Walk deterministic.
	for _, name := range g.order {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	g.executionOrder = executionOrder
	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func buildCycleError(path []InternedString, dep InternedString) error {
	startIdx := 0
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	parts := make([]string, 0, len(path)-startIdx+1)
	for _, node := range path[startIdx:] {
		parts = append(parts, node.String())
	}
	parts = append(parts, dep.String())
	return zerr.With(zerr.Wrap(ErrCycleDetected, "invalid series"), "cycle", strings.Join(parts, " -> "))
}

// Walk returns an iterator that yields tasks with every series after its steps.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.tasks[name]) {
				return
			}
		}
	}
}
