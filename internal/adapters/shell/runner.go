// Package shell runs the external bundler command.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/rebundle/internal/core/ports"
	"go.trai.ch/zerr"
)

// Command is one process invocation.
type Command struct {
	Args []string
	Dir  string
	// Env overrides entries of the inherited process environment.
	Env    map[string]string
	Stdout io.Writer
}

// Runner executes commands using os/exec.
type Runner struct {
	logger ports.Logger
}

// NewRunner creates a new Runner. Stderr of every command is forwarded to
// logger line by line and, inside a telemetry vertex, recorded on it too.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes c and waits for it to exit.
func (r *Runner) Run(ctx context.Context, c Command) error {
	if len(c.Args) == 0 {
		return zerr.New("empty command")
	}

	name := c.Args[0]
	env := resolveEnvironment(os.Environ(), c.Env)

	executable := name
	switch {
	case filepath.IsAbs(name):
	case strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator):
		// Relative paths like ./scripts/bundle.sh are relative to the working directory.
		if abs, err := filepath.Abs(filepath.Join(c.Dir, name)); err == nil {
			executable = abs
		}
	default:
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, c.Args[1:]...) //nolint:gosec // user provided command
	cmd.Args[0] = name
	cmd.Dir = c.Dir
	cmd.Env = env

	cmd.Stdout = c.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = io.Discard
	}

	stderr := &lineWriter{logger: r.logger, command: name}
	cmd.Stderr = stderr
	if v, ok := ports.VertexFromContext(ctx); ok {
		cmd.Stderr = io.MultiWriter(v.Stderr(), stderr)
	}

	err := cmd.Run()
	stderr.Flush()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return zerr.With(zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode), "command", name)
	}
	return nil
}

// lineWriter forwards complete lines to the logger.
type lineWriter struct {
	logger  ports.Logger
	command string

	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimSuffix(line, "\n"))
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line string) {
	if line == "" {
		return
	}
	w.logger.Warn(line, "command", w.command)
}

// resolveEnvironment applies overrides to the system environment and returns
// a deterministic KEY=VALUE list.
func resolveEnvironment(sysEnv []string, overrides map[string]string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(overrides))
	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}
	maps.Copy(envMap, overrides)

	result := make([]string, 0, len(envMap))
	for _, k := range slices.Sorted(maps.Keys(envMap)) {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches for an executable in the directories named by the PATH
// entry of env rather than the current process environment.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if v, ok := strings.CutPrefix(e, "PATH="); ok {
			path = v
			break
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
