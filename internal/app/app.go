// Package app implements the application layer for rebundle.
package app

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/rebundle/internal/adapters/fs"    //nolint:depguard // Wired in app layer
	"go.trai.ch/rebundle/internal/adapters/shell" //nolint:depguard // Wired in app layer
	"go.trai.ch/rebundle/internal/core/domain"
	"go.trai.ch/rebundle/internal/core/ports"
	"go.trai.ch/rebundle/internal/engine/orchestrator"
	"go.trai.ch/rebundle/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// App represents the main application logic. An App serves one project:
// the first operation loads it and registers its tasks, and later operations
// reuse that session so the module tracker outlives a single call.
type App struct {
	configLoader ports.ConfigLoader
	cache        ports.CacheStore
	harness      *scheduler.Scheduler
	runner       *shell.Runner
	hasher       ports.Hasher
	walker       *fs.Walker
	logger       ports.Logger

	mu      sync.Mutex
	session *session
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	cache ports.CacheStore,
	harness *scheduler.Scheduler,
	runner *shell.Runner,
	hasher ports.Hasher,
	walker *fs.Walker,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		cache:        cache,
		harness:      harness,
		runner:       runner,
		hasher:       hasher,
		walker:       walker,
		logger:       log,
	}
}

// BuildOptions configuration for the Build method.
type BuildOptions struct {
	ConfigPath string
	Sequential bool
}

// ChangedOptions configuration for the Changed method.
type ChangedOptions struct {
	ConfigPath string
	Paths      []string
}

// Build runs every target once and returns the build summary.
func (a *App) Build(ctx context.Context, opts BuildOptions) ([]domain.BuildInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.open(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if err := s.build(ctx, opts.Sequential); err != nil {
		return s.orch.Report(), err
	}
	return s.orch.Report(), nil
}

// Changed rebuilds the targets affected by paths. A session that has never
// built runs an initial build of every target first. Directories expand to
// the files below them and paths matching the configured ignore patterns are
// dropped.
func (a *App) Changed(ctx context.Context, opts ChangedOptions) ([]domain.BuildInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.open(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if !s.built {
		if err := s.build(ctx, false); err != nil {
			return s.orch.Report(), err
		}
	}

	paths := a.normalize(s.project, opts.Paths)
	if err := s.orch.ChangedPaths(ctx, paths); err != nil {
		return s.orch.Report(), zerr.Wrap(err, "rebuild failed")
	}
	return s.orch.Report(), nil
}

// Tasks returns the harness task names of every target followed by every
// cache group.
func (a *App) Tasks(_ context.Context, configPath string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.open(configPath)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(s.project.Targets))
	for _, t := range s.orch.Registry().Targets() {
		names = append(names, s.orch.TaskName(t))
	}
	return append(names, s.orch.GroupTaskNames()...), nil
}

type session struct {
	key     string
	project *domain.Project
	orch    *orchestrator.Orchestrator
	built   bool
}

func (s *session) build(ctx context.Context, sequential bool) error {
	s.built = true
	run := s.orch.RunAll
	if sequential {
		run = s.orch.RunAllSequential
	}
	if err := run(ctx); err != nil {
		return zerr.Wrap(err, "build execution failed")
	}
	return nil
}

// open returns the session for configPath, loading the project on first use.
// The caller holds a.mu.
func (a *App) open(configPath string) (*session, error) {
	if configPath == "" {
		configPath = "."
	}
	key, err := filepath.Abs(configPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve configuration path")
	}

	if a.session != nil {
		if a.session.key != key {
			return nil, zerr.With(zerr.With(
				zerr.Wrap(domain.ErrProjectAlreadyOpen, "cannot switch projects"),
				"open", a.session.key), "requested", key)
		}
		return a.session, nil
	}

	project, err := a.configLoader.Load(configPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	bundler := shell.NewBundler(a.runner, a.hasher, a.logger, shell.BundlerConfig{
		Root: project.Root,
		Cmd:  project.Bundler.Cmd,
		Env:  project.Bundler.Env,
	})

	cfg := orchestrator.Config{
		Targets:     project.Targets,
		CacheGroups: project.CacheGroups,
		SkipCache:   project.SkipCache,
		Entry:       entryResolver(project),
		Options:     optionsProvider(project),
		Output:      fs.NewSink(project.OutDir, project.OutFile),
		TaskPrefix:  project.TaskPrefix,
	}
	if project.OnError == domain.ErrorPolicyContinue {
		cfg.ErrorHandler = func(target string, err error) {
			a.logger.Error(err, "target", target)
		}
	}

	orch, err := orchestrator.New(cfg, orchestrator.Deps{
		Bundler: bundler,
		Cache:   a.cache,
		Harness: a.harness,
		Logger:  a.logger,
	})
	if err != nil {
		return nil, zerr.Wrap(err, "invalid build configuration")
	}
	if err := orch.RegisterAll(); err != nil {
		return nil, zerr.Wrap(err, "failed to register build tasks")
	}

	a.session = &session{key: key, project: project, orch: orch}
	return a.session, nil
}

// entryResolver substitutes the target name into the configured entry
// template. Entries are relative to the project root, like module identifiers.
func entryResolver(p *domain.Project) ports.EntryResolver {
	return ports.EntryResolverFunc(func(target string) (domain.EntryConfig, error) {
		entry := strings.ReplaceAll(p.Entry, fs.TargetPlaceholder, target)
		if entry == "" {
			return domain.EntryConfig{}, zerr.With(
				zerr.Wrap(domain.ErrInvalidConfig, "empty entry"), "target", target)
		}
		return domain.EntryConfig{Inputs: []string{filepath.ToSlash(entry)}}, nil
	})
}

// optionsProvider lays the per-target options over the shared ones.
func optionsProvider(p *domain.Project) ports.OptionsProvider {
	return ports.OptionsProviderFunc(func(target string) (domain.BundlerOptions, error) {
		out := make(domain.BundlerOptions, len(p.Options))
		for k, v := range p.Options {
			out[k] = v
		}
		for k, v := range p.TargetOptions[target] {
			out[k] = v
		}
		return out, nil
	})
}

// normalize turns the changed paths into root-relative slash paths, the form
// the bundler reports module identifiers in.
func (a *App) normalize(p *domain.Project, paths []string) []string {
	var out []string
	add := func(abs string) {
		rel, err := filepath.Rel(p.Root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			a.logger.Debug("ignoring path outside project", "path", abs)
			return
		}
		rel = filepath.ToSlash(rel)
		if fs.Ignored(rel, p.Ignore) {
			a.logger.Debug("ignoring path", "path", rel)
			return
		}
		if !slices.Contains(out, rel) {
			out = append(out, rel)
		}
	}

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			a.logger.Warn("cannot resolve path", "path", path, "error", err)
			continue
		}
		if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
			for file := range a.walker.WalkFiles(abs, nil) {
				add(file)
			}
			continue
		}
		add(abs)
	}
	return out
}
