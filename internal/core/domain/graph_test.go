package domain_test

import (
	"errors"
	"testing"

	"go.trai.ch/rebundle/internal/core/domain"
	"go.trai.ch/zerr"
)

func series(name string, steps ...string) *domain.Task {
	return &domain.Task{
		Name:  domain.NewInternedString(name),
		Kind:  domain.TaskKindSeries,
		Steps: domain.NewInternedStrings(steps),
	}
}

func leaf(name string) *domain.Task {
	return &domain.Task{Name: domain.NewInternedString(name)}
}

func TestGraph_AddTask(t *testing.T) {
	g := domain.NewGraph()
	task := leaf("bundle:app")

	if err := g.AddTask(task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := g.AddTask(task)
	if err == nil {
		t.Fatal("expected error when adding duplicate task, got nil")
	}
	if !errors.Is(err, domain.ErrTaskAlreadyExists) {
		t.Errorf("expected ErrTaskAlreadyExists, got %v", err)
	}
	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	if name, ok := zErr.Metadata()["task_name"].(string); !ok || name != "bundle:app" {
		t.Errorf("expected metadata task_name=bundle:app, got %v", zErr.Metadata()["task_name"])
	}
}

func TestGraph_Validate_Cycle(t *testing.T) {
	g := domain.NewGraph()
	if err := g.AddTask(series("A", "B")); err != nil {
		t.Fatalf("failed to add task A: %v", err)
	}
	if err := g.AddTask(series("B", "A")); err != nil {
		t.Fatalf("failed to add task B: %v", err)
	}

	err := g.Validate()
	if err == nil {
		t.Fatal("expected error for cycle, got nil")
	}
	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	if cycle, ok := zErr.Metadata()["cycle"].(string); !ok || cycle != "A -> B -> A" {
		t.Errorf("expected cycle metadata 'A -> B -> A', got %v", zErr.Metadata()["cycle"])
	}
}

func TestGraph_Validate_MissingStep(t *testing.T) {
	g := domain.NewGraph()
	if err := g.AddTask(series("group", "missing")); err != nil {
		t.Fatalf("failed to add task: %v", err)
	}

	err := g.Validate()
	if !errors.Is(err, domain.ErrMissingDependency) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}
}

func TestGraph_Walk(t *testing.T) {
	g := domain.NewGraph()
	// Series registered before its steps still walks after them.
	for _, task := range []*domain.Task{series("group", "b", "a"), leaf("a"), leaf("b"), leaf("c")} {
		if err := g.AddTask(task); err != nil {
			t.Fatalf("failed to add task %s: %v", task.Name, err)
		}
	}

	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	var executed []string
	for task := range g.Walk() {
		executed = append(executed, task.Name.String())
	}

	want := []string{"b", "a", "group", "c"}
	if len(executed) != len(want) {
		t.Fatalf("expected %d tasks, got %v", len(want), executed)
	}
	for i := range want {
		if executed[i] != want[i] {
			t.Errorf("unexpected execution order: %v", executed)
			break
		}
	}
	if g.TaskCount() != 4 {
		t.Errorf("expected 4 tasks, got %d", g.TaskCount())
	}
}
