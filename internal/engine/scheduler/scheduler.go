// Package scheduler implements the task harness: a registry of named tasks
// that can be run alone, in series, or in parallel.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"go.trai.ch/rebundle/internal/core/domain"
	"go.trai.ch/rebundle/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	// StatusPending indicates the task has not run yet.
	StatusPending TaskStatus = "Pending"
	// StatusRunning indicates the task is currently executing.
	StatusRunning TaskStatus = "Running"
	// StatusCompleted indicates the last run finished successfully.
	StatusCompleted TaskStatus = "Completed"
	// StatusFailed indicates the last run failed.
	StatusFailed TaskStatus = "Failed"
)

// TaskFunc is the body of a leaf task.
type TaskFunc func(ctx context.Context) error

// Scheduler is the task registry.
type Scheduler struct {
	telemetry ports.Telemetry

	mu         sync.RWMutex
	graph      *domain.Graph
	funcs      map[domain.InternedString]TaskFunc
	taskStatus map[domain.InternedString]TaskStatus
}

// NewScheduler creates an empty Scheduler recording executions on telemetry.
func NewScheduler(telemetry ports.Telemetry) *Scheduler {
	return &Scheduler{
		telemetry:  telemetry,
		graph:      domain.NewGraph(),
		funcs:      make(map[domain.InternedString]TaskFunc),
		taskStatus: make(map[domain.InternedString]TaskStatus),
	}
}

// Register adds a leaf task. Names are unique across leaf and series tasks.
func (s *Scheduler) Register(name string, fn TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := domain.NewInternedString(name)
	if err := s.graph.AddTask(&domain.Task{Name: id, Kind: domain.TaskKindLeaf}); err != nil {
		return err
	}
	s.funcs[id] = fn
	s.taskStatus[id] = StatusPending
	return s.graph.Validate()
}

// Series adds a task that runs members one after another. Every member must
// already be registered.
func (s *Scheduler) Series(name string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := domain.NewInternedStrings(members)
	for _, step := range steps {
		if _, ok := s.graph.Task(step); !ok {
			return zerr.With(
				zerr.With(zerr.Wrap(domain.ErrMissingDependency, "cannot register series"), "task", name),
				"dependency", step.String(),
			)
		}
	}

	id := domain.NewInternedString(name)
	if err := s.graph.AddTask(&domain.Task{Name: id, Kind: domain.TaskKindSeries, Steps: steps}); err != nil {
		return err
	}
	s.taskStatus[id] = StatusPending
	return s.graph.Validate()
}

// Has reports whether a task called name is registered.
func (s *Scheduler) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.graph.Task(domain.NewInternedString(name))
	return ok
}

// Tasks returns every task name with series listed after their steps.
func (s *Scheduler) Tasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, s.graph.TaskCount())
	for task := range s.graph.Walk() {
		names = append(names, task.Name.String())
	}
	return names
}

// Status returns the status of the named task.
func (s *Scheduler) Status(name string) (TaskStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.taskStatus[domain.NewInternedString(name)]
	return st, ok
}

func (s *Scheduler) updateStatus(name domain.InternedString, status TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskStatus[name] = status
}

func (s *Scheduler) lookup(name string) (domain.Task, TaskFunc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := domain.NewInternedString(name)
	task, ok := s.graph.Task(id)
	if !ok {
		return domain.Task{}, nil, zerr.With(zerr.Wrap(domain.ErrTaskNotFound, "cannot run task"), "task", name)
	}
	return task, s.funcs[id], nil
}

// Run executes the named task and waits for it to finish.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	task, fn, err := s.lookup(name)
	if err != nil {
		return err
	}

	var opts []ports.VertexOption
	if task.Kind == domain.TaskKindSeries {
		opts = append(opts, ports.WithInternal())
	}
	ctx, vertex := s.telemetry.Record(ctx, name, opts...)

	s.updateStatus(task.Name, StatusRunning)
	if task.Kind == domain.TaskKindSeries {
		err = s.runSteps(ctx, task.Steps)
	} else {
		err = fn(ctx)
		if err != nil {
			err = zerr.With(zerr.Wrap(err, "task execution failed"), "task", name)
		}
	}

	vertex.Complete(err)
	if err != nil {
		s.updateStatus(task.Name, StatusFailed)
		return err
	}
	s.updateStatus(task.Name, StatusCompleted)
	return nil
}

func (s *Scheduler) runSteps(ctx context.Context, steps []domain.InternedString) error {
	for _, step := range steps {
		if err := s.Run(ctx, step.String()); err != nil {
			return err
		}
	}
	return nil
}

// RunSeries runs the named tasks one after another and stops at the first failure.
func (s *Scheduler) RunSeries(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := s.Run(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// RunParallel runs each named task on its own goroutine. The first failure
// cancels the context the remaining tasks run with. RunParallel still waits
// for every task and returns all of their failures joined together.
func (s *Scheduler) RunParallel(ctx context.Context, names ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	errs := make([]error, len(names))
	for i, name := range names {
		g.Go(func() error {
			errs[i] = s.Run(ctx, name)
			return errs[i]
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}
	return errors.Join(errs...)
}
