package orchestrator_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rebundle/internal/adapters/cas"
	"go.trai.ch/rebundle/internal/adapters/telemetry"
	"go.trai.ch/rebundle/internal/core/domain"
	"go.trai.ch/rebundle/internal/core/ports"
	"go.trai.ch/rebundle/internal/core/ports/mocks"
	"go.trai.ch/rebundle/internal/engine/orchestrator"
	"go.trai.ch/rebundle/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	bundler *mocks.MockBundler
	sink    *mocks.MockOutputSink
	store   *cas.Store
	harness *scheduler.Scheduler
	logger  *mocks.MockLogger

	mu       sync.Mutex
	requests []*domain.BundleRequest
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any(), gomock.Any()).AnyTimes()

	return &fixture{
		bundler: mocks.NewMockBundler(ctrl),
		sink:    mocks.NewMockOutputSink(ctrl),
		store:   cas.NewStore(),
		harness: scheduler.NewScheduler(telemetry.NewNoOp()),
		logger:  log,
	}
}

func (f *fixture) deps() orchestrator.Deps {
	return orchestrator.Deps{
		Bundler: f.bundler,
		Cache:   f.store,
		Harness: f.harness,
		Logger:  f.logger,
	}
}

func (f *fixture) config(targets ...string) orchestrator.Config {
	return orchestrator.Config{
		Targets: targets,
		Entry: ports.EntryResolverFunc(func(target string) (domain.EntryConfig, error) {
			return domain.EntryConfig{Inputs: []string{"src/" + target + ".js"}}, nil
		}),
		Output: f.sink,
	}
}

// reports makes the bundler answer each target with a fixed module list and
// remember every request it receives.
func (f *fixture) reports(modules map[string][]string) {
	f.bundler.EXPECT().Bundle(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *domain.BundleRequest) (*domain.BundleResult, error) {
			f.mu.Lock()
			f.requests = append(f.requests, req)
			f.mu.Unlock()
			return &domain.BundleResult{Modules: records(modules[req.Target]...)}, nil
		},
	).AnyTimes()
}

func (f *fixture) requestsFor(target string) []*domain.BundleRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.BundleRequest
	for _, r := range f.requests {
		if r.Target == target {
			out = append(out, r)
		}
	}
	return out
}

func records(ids ...string) []domain.ModuleRecord {
	out := make([]domain.ModuleRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.ModuleRecord{ID: id, Payload: []byte("compiled " + id)})
	}
	return out
}

func seedIDs(req *domain.BundleRequest) []string {
	ids := make([]string, 0, len(req.Cache))
	for _, rec := range req.Cache {
		ids = append(ids, rec.ID)
	}
	return ids
}

func TestNew_TargetInTwoGroupsRegistersNothing(t *testing.T) {
	f := newFixture(t)
	cfg := f.config("app", "vendor")
	cfg.CacheGroups = []domain.GroupSpec{
		{Name: "a", Targets: []string{"vendor"}},
		{Name: "b", Targets: []string{"app", "vendor"}},
	}

	o, err := orchestrator.New(cfg, f.deps())
	require.Nil(t, o)
	require.ErrorIs(t, err, domain.ErrTargetInMultipleGroups)

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	meta := zErr.Metadata()
	assert.Equal(t, "vendor", meta["target"])
	assert.Equal(t, "a", meta["group"])
	assert.Equal(t, "b", meta["other_group"])

	assert.Empty(t, f.harness.Tasks())
}

func TestNew_MissingCollaborator(t *testing.T) {
	f := newFixture(t)
	cfg := f.config("app")
	cfg.Output = nil

	_, err := orchestrator.New(cfg, f.deps())
	require.ErrorIs(t, err, domain.ErrMissingCollaborator)
	assert.Empty(t, f.harness.Tasks())
}

func TestRegisterAll_TaskNames(t *testing.T) {
	f := newFixture(t)
	cfg := f.config("app", "vendor")
	cfg.CacheGroups = []domain.GroupSpec{{Name: "v", Targets: []string{"vendor"}}}

	o, err := orchestrator.New(cfg, f.deps())
	require.NoError(t, err)
	require.NoError(t, o.RegisterAll())
	require.NoError(t, o.RegisterAll())

	assert.Equal(t, []string{"bundle:app", "bundle:vendor", "bundle-group:v", "bundle-group"}, f.harness.Tasks())
	assert.Equal(t, "bundle:app", o.TaskName("app"))
	assert.Equal(t, "bundle-group:v", o.GroupTaskName(domain.NamedGroup("v")))
	assert.Equal(t, "bundle-group", o.GroupTaskName(domain.DefaultGroup))
	assert.Equal(t, []string{"bundle-group:v", "bundle-group"}, o.GroupTaskNames())
}

func TestRegisterAll_CustomPrefix(t *testing.T) {
	f := newFixture(t)
	cfg := f.config("app")
	cfg.TaskPrefix = "js"

	o, err := orchestrator.New(cfg, f.deps())
	require.NoError(t, err)
	require.NoError(t, o.RegisterAll())

	assert.Equal(t, []string{"js:app", "js-group"}, f.harness.Tasks())
}

func TestBuild_TracksReportedModulesAndResetsOnRebuild(t *testing.T) {
	f := newFixture(t)
	modules := map[string][]string{"app": {"m1", "m2"}}
	f.bundler.EXPECT().Bundle(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *domain.BundleRequest) (*domain.BundleResult, error) {
			return &domain.BundleResult{Modules: records(modules[req.Target]...)}, nil
		},
	).Times(2)

	o, err := orchestrator.New(f.config("app"), f.deps())
	require.NoError(t, err)

	assert.Equal(t, domain.TargetUnbuilt, o.State("app"))
	assert.Equal(t, []string{"app"}, o.Affected("anything.js"), "unknown targets are always affected")

	require.NoError(t, o.RunAll(context.Background()))
	assert.Equal(t, domain.TargetBuilt, o.State("app"))
	assert.Equal(t, []string{"app"}, o.Affected("m1"))
	assert.Equal(t, []string{"app"}, o.Affected("m2"))
	assert.Empty(t, o.Affected("m3"))

	modules["app"] = []string{"m1"}
	require.NoError(t, o.Changed(context.Background(), "m2"))

	assert.Empty(t, o.Affected("m2"))
	deps, complete := o.Dependencies("app")
	assert.True(t, complete)
	assert.Equal(t, []string{"m1"}, deps)
}

func TestBuild_SharedGroupSeedsLaterTargets(t *testing.T) {
	f := newFixture(t)
	f.reports(map[string][]string{
		"app":  {"src/app.js", "src/x.js"},
		"spec": {"src/spec.js", "src/x.js"},
	})

	o, err := orchestrator.New(f.config("app", "spec"), f.deps())
	require.NoError(t, err)
	require.NoError(t, o.RunAll(context.Background()))

	appReqs := f.requestsFor("app")
	specReqs := f.requestsFor("spec")
	require.Len(t, appReqs, 1)
	require.Len(t, specReqs, 1)

	assert.Nil(t, appReqs[0].Cache, "first build of the group is cold")
	assert.Equal(t, []string{"src/app.js", "src/x.js"}, seedIDs(specReqs[0]))
	assert.Equal(t, []byte("compiled src/x.js"), specReqs[0].Cache[1].Payload)

	report := o.Report()
	require.Len(t, report, 2)
	assert.Equal(t, "spec", report[1].Target)
	assert.Equal(t, 2, report[1].ModuleCount)
	assert.Equal(t, 1, report[1].Cached)
	assert.Equal(t, "<default>", report[1].Group)
}

func TestBuild_IsolatedGroupsNeverShareSeeds(t *testing.T) {
	f := newFixture(t)
	f.reports(map[string][]string{
		"app":    {"src/app.js", "src/shared.js"},
		"vendor": {"node_modules/lib.js"},
	})
	cfg := f.config("app", "vendor")
	cfg.CacheGroups = []domain.GroupSpec{{Name: "v", Targets: []string{"vendor"}}}

	o, err := orchestrator.New(cfg, f.deps())
	require.NoError(t, err)

	require.NoError(t, o.RunAll(context.Background()))
	require.NoError(t, o.RunAllSequential(context.Background()))

	appReqs := f.requestsFor("app")
	vendorReqs := f.requestsFor("vendor")
	require.Len(t, appReqs, 2)
	require.Len(t, vendorReqs, 2)

	assert.Equal(t, []string{"src/app.js", "src/shared.js"}, seedIDs(appReqs[1]))
	assert.Equal(t, []string{"node_modules/lib.js"}, seedIDs(vendorReqs[1]))

	assert.Len(t, f.store.Snapshot(domain.DefaultGroup), 2)
	assert.Len(t, f.store.Snapshot(domain.NamedGroup("v")), 1)
}

func TestBuild_SkipCacheNeverTouchesGroupCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newFixture(t)
	f.reports(map[string][]string{"spec": {"src/spec.js"}})

	// No expectations: any call on the store fails the test.
	store := mocks.NewMockCacheStore(ctrl)
	deps := f.deps()
	deps.Cache = store

	cfg := f.config("spec")
	cfg.SkipCache = []string{"spec"}

	o, err := orchestrator.New(cfg, deps)
	require.NoError(t, err)
	require.NoError(t, o.RunAll(context.Background()))
	require.NoError(t, o.Changed(context.Background(), "src/spec.js"))

	for _, req := range f.requestsFor("spec") {
		assert.Nil(t, req.Cache)
	}
	assert.Equal(t, []string{"spec"}, o.Affected("src/spec.js"), "dependencies are still tracked")
}

func TestBuild_SkipCacheTargetDoesNotContributeToGroup(t *testing.T) {
	f := newFixture(t)
	f.reports(map[string][]string{
		"spec": {"src/spec.js"},
		"app":  {"src/app.js"},
	})
	cfg := f.config("spec", "app")
	cfg.SkipCache = []string{"spec", "not-a-target"}

	o, err := orchestrator.New(cfg, f.deps())
	require.NoError(t, err)
	require.NoError(t, o.RunAllSequential(context.Background()))
	require.NoError(t, o.RunAllSequential(context.Background()))

	appReqs := f.requestsFor("app")
	require.Len(t, appReqs, 2)
	assert.Nil(t, appReqs[0].Cache)
	assert.Equal(t, []string{"src/app.js"}, seedIDs(appReqs[1]))

	for _, req := range f.requestsFor("spec") {
		assert.Nil(t, req.Cache)
	}
	assert.Equal(t, records("src/app.js"), f.store.Snapshot(domain.DefaultGroup))
}

func TestBuild_ErrorPropagatesWithoutHandler(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("unexpected token")
	f.bundler.EXPECT().Bundle(gomock.Any(), gomock.Any()).Return(nil, boom)

	o, err := orchestrator.New(f.config("spec"), f.deps())
	require.NoError(t, err)

	err = o.RunAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, domain.ErrBuildFailed)
	assert.Equal(t, domain.TargetFailed, o.State("spec"))

	st, _ := f.harness.Status("bundle:spec")
	assert.Equal(t, scheduler.StatusFailed, st)
}

func TestBuild_ErrorHandlerSwallowsAndKeepsTargetUnknown(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("unexpected token")
	f.bundler.EXPECT().Bundle(gomock.Any(), gomock.Any()).Return(nil, boom).Times(2)

	var handled []error
	cfg := f.config("spec")
	cfg.ErrorHandler = func(target string, err error) {
		assert.Equal(t, "spec", target)
		handled = append(handled, err)
	}

	o, err := orchestrator.New(cfg, f.deps())
	require.NoError(t, err)

	require.NoError(t, o.RunAll(context.Background()))
	require.Len(t, handled, 1)
	assert.ErrorIs(t, handled[0], boom)

	st, _ := f.harness.Status("bundle:spec")
	assert.Equal(t, scheduler.StatusCompleted, st)
	assert.Equal(t, domain.TargetFailed, o.State("spec"))

	deps, complete := o.Dependencies("spec")
	assert.Empty(t, deps)
	assert.False(t, complete)

	require.NoError(t, o.Changed(context.Background(), "README.md"))
	assert.Len(t, handled, 2, "a failed target is retried on every change")
}

func TestBuild_ErrorHandlerLetsGroupContinue(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	f.bundler.EXPECT().Bundle(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *domain.BundleRequest) (*domain.BundleResult, error) {
			if req.Target == "a" {
				return nil, boom
			}
			return &domain.BundleResult{Modules: records("b.js")}, nil
		},
	).Times(2)

	cfg := f.config("a", "b")
	cfg.ErrorHandler = func(string, error) {}

	o, err := orchestrator.New(cfg, f.deps())
	require.NoError(t, err)
	require.NoError(t, o.RunAll(context.Background()))

	assert.Equal(t, domain.TargetFailed, o.State("a"))
	assert.Equal(t, domain.TargetBuilt, o.State("b"))
}

func TestBuild_FailureWithoutHandlerStopsGroup(t *testing.T) {
	f := newFixture(t)
	f.bundler.EXPECT().Bundle(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom")).Times(1)

	o, err := orchestrator.New(f.config("a", "b"), f.deps())
	require.NoError(t, err)
	require.Error(t, o.RunAll(context.Background()))

	assert.Equal(t, domain.TargetFailed, o.State("a"))
	assert.Equal(t, domain.TargetUnbuilt, o.State("b"))
}

func TestBuild_PipesOutputToSink(t *testing.T) {
	f := newFixture(t)
	f.bundler.EXPECT().Bundle(gomock.Any(), gomock.Any()).Return(&domain.BundleResult{
		Modules: records("src/app.js"),
		Output:  strings.NewReader("console.log(1)"),
	}, nil)
	f.sink.EXPECT().Write(gomock.Any(), "app", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, r io.Reader) error {
			b, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, "console.log(1)", string(b))
			return nil
		},
	)

	o, err := orchestrator.New(f.config("app"), f.deps())
	require.NoError(t, err)
	require.NoError(t, o.RunAll(context.Background()))
}

func TestBuild_SinkFailureFailsBuild(t *testing.T) {
	f := newFixture(t)
	f.bundler.EXPECT().Bundle(gomock.Any(), gomock.Any()).Return(&domain.BundleResult{
		Modules: records("src/app.js"),
		Output:  strings.NewReader("x"),
	}, nil)
	diskFull := errors.New("no space left on device")
	f.sink.EXPECT().Write(gomock.Any(), "app", gomock.Any()).Return(diskFull)

	o, err := orchestrator.New(f.config("app"), f.deps())
	require.NoError(t, err)

	err = o.RunAll(context.Background())
	require.ErrorIs(t, err, diskFull)
	assert.Equal(t, domain.TargetFailed, o.State("app"))
	assert.Equal(t, []string{"app"}, o.Affected("unrelated.js"))
}

func TestBuild_MergesOptions(t *testing.T) {
	f := newFixture(t)
	f.reports(nil)

	cfg := f.config("app", "spec")
	cfg.Options = ports.OptionsProviderFunc(func(target string) (domain.BundlerOptions, error) {
		opts := domain.BundlerOptions{"format": "esm", "cache": "ignored"}
		if target == "spec" {
			opts["input"] = []string{"test/spec.js"}
		}
		return opts, nil
	})

	o, err := orchestrator.New(cfg, f.deps())
	require.NoError(t, err)
	require.NoError(t, o.RunAll(context.Background()))

	app := f.requestsFor("app")[0]
	assert.Equal(t, domain.BundlerOptions{"format": "esm", "input": []string{"src/app.js"}}, app.Options)
	assert.Equal(t, domain.EntryConfig{Inputs: []string{"src/app.js"}}, app.Entry)

	spec := f.requestsFor("spec")[0]
	assert.Equal(t, []string{"test/spec.js"}, spec.Options["input"])
	assert.NotContains(t, spec.Options, "cache")
}

func TestBuild_EntryErrorIsBuildError(t *testing.T) {
	f := newFixture(t)
	cfg := f.config("app")
	missing := errors.New("no entry")
	cfg.Entry = ports.EntryResolverFunc(func(string) (domain.EntryConfig, error) {
		return domain.EntryConfig{}, missing
	})

	o, err := orchestrator.New(cfg, f.deps())
	require.NoError(t, err)

	err = o.RunAll(context.Background())
	require.ErrorIs(t, err, missing)
	assert.ErrorIs(t, err, domain.ErrBuildFailed)
}

func TestChanged_NoAffectedTargetsIsNoop(t *testing.T) {
	f := newFixture(t)
	f.reports(map[string][]string{"app": {"src/app.js"}})

	o, err := orchestrator.New(f.config("app"), f.deps())
	require.NoError(t, err)
	require.NoError(t, o.RunAll(context.Background()))

	require.NoError(t, o.Changed(context.Background(), "docs/readme.md"))
	assert.Len(t, f.requestsFor("app"), 1)
}

func TestChangedPaths_RebuildsUnionInTargetOrder(t *testing.T) {
	f := newFixture(t)
	f.reports(map[string][]string{
		"a": {"a.js", "shared.js"},
		"b": {"b.js"},
		"c": {"c.js", "shared.js"},
	})
	cfg := f.config("a", "b", "c")
	cfg.CacheGroups = []domain.GroupSpec{{Name: "g", Targets: []string{"c"}}}

	o, err := orchestrator.New(cfg, f.deps())
	require.NoError(t, err)
	require.NoError(t, o.RunAllSequential(context.Background()))

	f.mu.Lock()
	f.requests = nil
	f.mu.Unlock()

	assert.Equal(t, []string{"a", "c"}, o.Affected("shared.js"))
	require.NoError(t, o.ChangedPaths(context.Background(), []string{"b.js", "c.js"}))

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.requests, 2)
	assert.Equal(t, "b", f.requests[0].Target)
	assert.Equal(t, "c", f.requests[1].Target)
}

func TestChanged_BuildsAreStrictlySequential(t *testing.T) {
	f := newFixture(t)

	var inFlight, maxInFlight atomic.Int32
	var order []string
	f.bundler.EXPECT().Bundle(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *domain.BundleRequest) (*domain.BundleResult, error) {
			n := inFlight.Add(1)
			if n > maxInFlight.Load() {
				maxInFlight.Store(n)
			}
			order = append(order, req.Target)
			inFlight.Add(-1)
			return &domain.BundleResult{}, nil
		},
	).Times(4)

	cfg := f.config("a", "b", "c", "d")
	cfg.CacheGroups = []domain.GroupSpec{
		{Name: "one", Targets: []string{"b"}},
		{Name: "two", Targets: []string{"d"}},
	}

	o, err := orchestrator.New(cfg, f.deps())
	require.NoError(t, err)
	require.NoError(t, o.Changed(context.Background(), "any.js"))

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, []string{"a", "b", "c", "d"}, order, "target order, not group order")
}

func TestRunAll_GroupsRunConcurrently(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)

		release := make(chan struct{})
		var started atomic.Int32
		f.bundler.EXPECT().Bundle(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ *domain.BundleRequest) (*domain.BundleResult, error) {
				started.Add(1)
				<-release
				return &domain.BundleResult{}, nil
			},
		).Times(4)

		cfg := f.config("a", "b", "c", "d")
		cfg.CacheGroups = []domain.GroupSpec{{Name: "v", Targets: []string{"c", "d"}}}

		o, err := orchestrator.New(cfg, f.deps())
		require.NoError(t, err)

		done := make(chan error)
		go func() { done <- o.RunAll(context.Background()) }()

		synctest.Wait()
		assert.Equal(t, int32(2), started.Load(), "one build in flight per group")
		assert.Equal(t, domain.TargetBuilding, o.State("a"))
		assert.Equal(t, domain.TargetBuilding, o.State("c"))
		assert.Equal(t, domain.TargetUnbuilt, o.State("b"))

		close(release)
		require.NoError(t, <-done)
		for _, target := range []string{"a", "b", "c", "d"} {
			assert.Equal(t, domain.TargetBuilt, o.State(target))
		}
	})
}
