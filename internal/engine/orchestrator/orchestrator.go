// Package orchestrator coordinates incremental target builds: it registers
// one build task per target and one aggregate task per cache group, keeps the
// group caches and dependency sets up to date, and selects the targets a
// changed path affects.
package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.trai.ch/rebundle/internal/core/domain"
	"go.trai.ch/rebundle/internal/core/ports"
	"go.trai.ch/rebundle/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// ErrorHandler receives build errors instead of the task harness.
type ErrorHandler func(target string, err error)

// Config is the caller-supplied build configuration.
type Config struct {
	Targets     []string
	CacheGroups []domain.GroupSpec
	// SkipCache lists targets that never read or write their group cache.
	SkipCache []string
	Entry     ports.EntryResolver
	// Options is optional; nil means no caller options.
	Options ports.OptionsProvider
	Output  ports.OutputSink
	// ErrorHandler is optional; when set, failed builds complete successfully
	// from the harness's point of view.
	ErrorHandler ErrorHandler
	TaskPrefix   string
}

// Deps are the collaborators the orchestrator drives.
type Deps struct {
	Bundler ports.Bundler
	Cache   ports.CacheStore
	Harness *scheduler.Scheduler
	Logger  ports.Logger
}

// Orchestrator owns the build bookkeeping of one set of targets.
type Orchestrator struct {
	cfg      Config
	registry *domain.GroupRegistry
	namer    domain.TaskNamer
	skip     map[string]struct{}
	tracker  *Tracker

	bundler ports.Bundler
	cache   ports.CacheStore
	harness *scheduler.Scheduler
	logger  ports.Logger

	registerOnce sync.Once
	registerErr  error

	mu    sync.RWMutex
	infos map[string]domain.BuildInfo
}

// New validates cfg and returns an Orchestrator. Nothing is registered with
// the harness until RegisterAll, so a configuration error leaves it untouched.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	registry, err := domain.NewGroupRegistry(cfg.Targets, cfg.CacheGroups)
	if err != nil {
		return nil, err
	}

	for _, c := range []struct {
		name    string
		missing bool
	}{
		{"bundler", deps.Bundler == nil},
		{"cache", deps.Cache == nil},
		{"harness", deps.Harness == nil},
		{"logger", deps.Logger == nil},
		{"entry", cfg.Entry == nil},
		{"output", cfg.Output == nil},
	} {
		if c.missing {
			return nil, zerr.With(zerr.Wrap(domain.ErrMissingCollaborator, "invalid orchestrator"), "collaborator", c.name)
		}
	}

	if cfg.Options == nil {
		cfg.Options = ports.StaticOptions(nil)
	}

	skip := make(map[string]struct{}, len(cfg.SkipCache))
	for _, t := range cfg.SkipCache {
		if registry.Has(t) {
			skip[t] = struct{}{}
		}
	}

	o := &Orchestrator{
		cfg:      cfg,
		registry: registry,
		namer:    domain.NewTaskNamer(cfg.TaskPrefix),
		skip:     skip,
		tracker:  NewTracker(),
		bundler:  deps.Bundler,
		cache:    deps.Cache,
		harness:  deps.Harness,
		logger:   deps.Logger,
		infos:    make(map[string]domain.BuildInfo, len(cfg.Targets)),
	}
	for _, t := range registry.Targets() {
		g, _ := registry.GroupOf(t)
		o.infos[t] = domain.BuildInfo{Target: t, Group: g.String(), State: domain.TargetUnbuilt}
	}
	return o, nil
}

// Registry returns the target to cache group assignment.
func (o *Orchestrator) Registry() *domain.GroupRegistry {
	return o.registry
}

// TaskName returns the harness task name building target.
func (o *Orchestrator) TaskName(target string) string {
	return o.namer.Target(target)
}

// GroupTaskName returns the harness task name of the aggregate task of g.
func (o *Orchestrator) GroupTaskName(g domain.GroupID) string {
	return o.namer.Group(g)
}

// GroupTaskNames returns the aggregate task names in group registration order.
func (o *Orchestrator) GroupTaskNames() []string {
	names := make([]string, 0, o.registry.GroupCount())
	for g := range o.registry.Groups() {
		names = append(names, o.namer.Group(g))
	}
	return names
}

// RegisterAll registers one build task per target and one aggregate task per
// cache group. It is safe to call more than once.
func (o *Orchestrator) RegisterAll() error {
	o.registerOnce.Do(func() {
		o.registerErr = o.register()
	})
	return o.registerErr
}

func (o *Orchestrator) register() error {
	for _, target := range o.registry.Targets() {
		if err := o.harness.Register(o.namer.Target(target), func(ctx context.Context) error {
			return o.build(ctx, target)
		}); err != nil {
			return err
		}
	}

	for g := range o.registry.Groups() {
		members := o.registry.Members(g)
		steps := make([]string, 0, len(members))
		for _, t := range members {
			steps = append(steps, o.namer.Target(t))
		}
		if err := o.harness.Series(o.namer.Group(g), steps...); err != nil {
			return err
		}
	}
	return nil
}

// RunAll runs every cache group concurrently; targets inside a group build
// one after another.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	if err := o.RegisterAll(); err != nil {
		return err
	}
	return o.harness.RunParallel(ctx, o.GroupTaskNames()...)
}

// RunAllSequential runs every cache group one at a time in registration order.
func (o *Orchestrator) RunAllSequential(ctx context.Context) error {
	if err := o.RegisterAll(); err != nil {
		return err
	}
	return o.harness.RunSeries(ctx, o.GroupTaskNames()...)
}

// Affected returns the targets a change to any of paths requires rebuilding,
// in target order.
func (o *Orchestrator) Affected(paths ...string) []string {
	var affected []string
	for _, t := range o.registry.Targets() {
		if slices.ContainsFunc(paths, func(p string) bool { return o.tracker.IsAffected(t, p) }) {
			affected = append(affected, t)
		}
	}
	return affected
}

// Changed rebuilds the targets affected by path, strictly one at a time.
func (o *Orchestrator) Changed(ctx context.Context, path string) error {
	return o.ChangedPaths(ctx, []string{path})
}

// ChangedPaths rebuilds every target affected by at least one of paths,
// strictly one at a time.
func (o *Orchestrator) ChangedPaths(ctx context.Context, paths []string) error {
	if err := o.RegisterAll(); err != nil {
		return err
	}

	affected := o.Affected(paths...)
	if len(affected) == 0 {
		o.logger.Debug("no targets affected", "paths", paths)
		return nil
	}
	o.logger.Info("rebuilding affected targets", "targets", affected, "paths", paths)

	names := make([]string, 0, len(affected))
	for _, t := range affected {
		names = append(names, o.namer.Target(t))
	}
	return o.harness.RunSeries(ctx, names...)
}

// State returns the lifecycle state of target.
func (o *Orchestrator) State(target string) domain.TargetState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	info, ok := o.infos[target]
	if !ok {
		return domain.TargetUnbuilt
	}
	return info.State
}

// Dependencies returns the module identifiers of target's latest bundle and
// whether that bundle completed.
func (o *Orchestrator) Dependencies(target string) ([]string, bool) {
	return o.tracker.Dependencies(target)
}

// Report returns the latest build summary of every target in target order.
func (o *Orchestrator) Report() []domain.BuildInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]domain.BuildInfo, 0, len(o.infos))
	for _, t := range o.registry.Targets() {
		out = append(out, o.infos[t])
	}
	return out
}

func (o *Orchestrator) setInfo(info domain.BuildInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.infos[info.Target] = info
}

func (o *Orchestrator) build(ctx context.Context, target string) error {
	group, ok := o.registry.GroupOf(target)
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrUnknownTarget, "cannot build"), "target", target)
	}
	_, skip := o.skip[target]

	start := time.Now()
	info := domain.BuildInfo{Target: target, Group: group.String(), State: domain.TargetBuilding}
	o.setInfo(info)
	o.tracker.Reset(target)
	o.logger.Debug("build started", "target", target, "group", group.String(), "skip_cache", skip)

	result, seeded, err := o.bundle(ctx, target, group, skip)
	if err == nil {
		err = o.record(ctx, target, group, skip, result)
	}

	info.Duration = time.Since(start)
	if err != nil {
		info.State = domain.TargetFailed
		info.Err = err
		o.setInfo(info)
		return o.fail(target, err)
	}

	info.State = domain.TargetBuilt
	info.ModuleCount = len(result.Modules)
	for _, m := range result.Modules {
		if _, hit := seeded[m.ID]; hit {
			info.Cached++
		}
	}
	o.setInfo(info)
	o.logger.Info("build finished",
		"target", target,
		"modules", info.ModuleCount,
		"cached", info.Cached,
		"duration", info.Duration,
	)
	return nil
}

// bundle prepares the request for target and calls the bundler. The seed is
// only read from the cache store once the call is about to be issued.
func (o *Orchestrator) bundle(
	ctx context.Context,
	target string,
	group domain.GroupID,
	skip bool,
) (*domain.BundleResult, map[string]struct{}, error) {
	entry, err := o.cfg.Entry.Entry(target)
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to resolve entry")
	}
	caller, err := o.cfg.Options.Options(target)
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to resolve bundler options")
	}

	req := &domain.BundleRequest{
		Target:  target,
		Entry:   entry,
		Options: domain.MergeOptions(entry, caller),
	}
	seeded := make(map[string]struct{})
	if !skip {
		req.Cache = o.cache.Snapshot(group)
		for _, rec := range req.Cache {
			seeded[rec.ID] = struct{}{}
		}
	}

	result, err := o.bundler.Bundle(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if result == nil {
		result = &domain.BundleResult{}
	}
	return result, seeded, nil
}

func (o *Orchestrator) record(
	ctx context.Context,
	target string,
	group domain.GroupID,
	skip bool,
	result *domain.BundleResult,
) error {
	if !skip {
		o.cache.Get(group, true)
	}
	for _, m := range result.Modules {
		o.tracker.Add(target, m.ID)
		if !skip {
			o.cache.Record(group, m)
		}
	}

	if result.Output != nil {
		if err := o.cfg.Output.Write(ctx, target, result.Output); err != nil {
			return zerr.Wrap(err, "failed to write bundle output")
		}
	}
	o.tracker.Complete(target)
	return nil
}

// fail routes a build error to the error handler, or wraps it for the harness.
func (o *Orchestrator) fail(target string, err error) error {
	if o.cfg.ErrorHandler != nil {
		o.logger.Warn("build failed", "target", target, "error", err.Error())
		o.cfg.ErrorHandler(target, err)
		return nil
	}
	return zerr.With(zerr.Wrap(fmt.Errorf("%w: %w", domain.ErrBuildFailed, err), "cannot bundle target"), "target", target)
}
