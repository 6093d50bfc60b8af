// Package config loads rebundle.yaml into a domain.Project.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/rebundle/internal/core/domain"
	"go.trai.ch/rebundle/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader for rebundle.yaml files.
type Loader struct {
	logger ports.Logger
}

// NewLoader creates a Loader reporting non-fatal problems to logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads the configuration at path. When path is a directory, the
// nearest rebundle.yaml in it or one of its parents is used.
func (l *Loader) Load(path string) (*domain.Project, error) {
	file, err := discover(path)
	if err != nil {
		return nil, err
	}
	return l.load(file)
}

func discover(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", zerr.Wrap(err, "failed to resolve config path")
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}
	if !info.IsDir() {
		return abs, nil
	}

	for dir := abs; ; {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", zerr.With(zerr.Wrap(err, "failed to read config file"), "path", candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "cannot load configuration"), "start", abs)
		}
		dir = parent
	}
}

func (l *Loader) load(file string) (*domain.Project, error) {
	data, err := os.ReadFile(file) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", file)
	}

	var rf Rebundlefile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", file)
	}

	p, err := l.toProject(&rf, filepath.Dir(file))
	if err != nil {
		return nil, zerr.With(err, "path", file)
	}
	return p, nil
}

func invalid(msg, key string, value any) error {
	return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, msg), key, value)
}

func (l *Loader) toProject(rf *Rebundlefile, root string) (*domain.Project, error) {
	if rf.Version != SupportedVersion {
		return nil, invalid("unsupported config version", "version", rf.Version)
	}
	if err := domain.ValidateTargets(rf.Targets); err != nil {
		return nil, err
	}
	if len(rf.Bundler.Cmd) == 0 {
		return nil, invalid("bundler.cmd must not be empty", "field", "bundler.cmd")
	}

	groups, err := decodeCacheGroups(&rf.CacheGroups)
	if err != nil {
		return nil, err
	}

	policy := domain.ErrorPolicy(rf.OnError)
	switch policy {
	case "":
		policy = domain.ErrorPolicyFail
	case domain.ErrorPolicyFail, domain.ErrorPolicyContinue:
	default:
		return nil, invalid("onError must be fail or continue", "onError", rf.OnError)
	}

	for _, pattern := range rf.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, invalid("invalid ignore pattern", "pattern", pattern)
		}
	}

	known := make(map[string]struct{}, len(rf.Targets))
	for _, t := range rf.Targets {
		known[t] = struct{}{}
	}
	for _, g := range groups {
		for _, t := range g.Targets {
			if _, ok := known[t]; !ok {
				l.logger.Warn("cache group lists unknown target", "group", g.Name, "target", t)
			}
		}
	}

	targetOptions := make(map[string]domain.BundlerOptions, len(rf.TargetOptions))
	for t, opts := range rf.TargetOptions {
		if _, ok := known[t]; !ok {
			l.logger.Warn("ignoring options for unknown target", "target", t)
			continue
		}
		targetOptions[t] = opts
	}

	p := &domain.Project{
		Root:          root,
		Targets:       rf.Targets,
		CacheGroups:   groups,
		SkipCache:     rf.SkipCache,
		Entry:         withDefault(rf.Entry, defaultEntry),
		OutDir:        withDefault(rf.OutDir, defaultOutDir),
		OutFile:       withDefault(rf.OutFile, defaultOutFile),
		Bundler:       domain.BundlerCommand{Cmd: rf.Bundler.Cmd, Env: rf.Bundler.Env},
		Options:       rf.Options,
		TargetOptions: targetOptions,
		Ignore:        rf.Ignore,
		OnError:       policy,
		TaskPrefix:    rf.TaskPrefix,
	}
	if !filepath.IsAbs(p.OutDir) {
		p.OutDir = filepath.Join(root, p.OutDir)
	}
	return p, nil
}

// decodeCacheGroups reads a mapping of group name to target list, keeping
// the declaration order of the groups.
func decodeCacheGroups(node *yaml.Node) ([]domain.GroupSpec, error) {
	if node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, invalid("cacheGroups must be a mapping", "line", node.Line)
	}

	groups := make([]domain.GroupSpec, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		var targets []string
		if err := value.Decode(&targets); err != nil {
			return nil, zerr.With(invalid("cache group must list target names", "group", key.Value), "line", value.Line)
		}
		groups = append(groups, domain.GroupSpec{Name: key.Value, Targets: targets})
	}
	return groups, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
