package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	rfs "go.trai.ch/rebundle/internal/adapters/fs"
	"go.trai.ch/rebundle/internal/core/domain"
	"go.trai.ch/rebundle/internal/core/ports"
	"go.trai.ch/zerr"
)

// Environment variables passed to the bundler command.
const (
	EnvTarget   = "BUNDLE_TARGET"
	EnvEntry    = "BUNDLE_ENTRY"
	EnvOptions  = "BUNDLE_OPTIONS"
	EnvCache    = "BUNDLE_CACHE"
	EnvMetafile = "BUNDLE_METAFILE"
)

var _ ports.Bundler = (*Bundler)(nil)

// BundlerConfig describes the command invoked once per target build.
type BundlerConfig struct {
	Root string
	Cmd  []string
	Env  map[string]string
}

// Bundler implements ports.Bundler by running an external command.
//
// The command receives the target, its entry inputs (joined with the OS path
// list separator), the merged options as JSON and the path of a JSON file
// holding the cache seed. It writes the bundle to stdout and an esbuild-style
// metafile to $BUNDLE_METAFILE; every metafile input becomes a module record.
type Bundler struct {
	runner *Runner
	hasher ports.Hasher
	logger ports.Logger
	cfg    BundlerConfig
}

// NewBundler creates a Bundler.
func NewBundler(runner *Runner, hasher ports.Hasher, logger ports.Logger, cfg BundlerConfig) *Bundler {
	return &Bundler{runner: runner, hasher: hasher, logger: logger, cfg: cfg}
}

// metafile is the subset of an esbuild metafile the bundler reads.
type metafile struct {
	Inputs map[string]json.RawMessage `json:"inputs"`
}

// modulePayload is the record payload kept for each module.
type modulePayload struct {
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
}

// Bundle runs the command for req.Target.
func (b *Bundler) Bundle(ctx context.Context, req *domain.BundleRequest) (*domain.BundleResult, error) {
	work, err := os.MkdirTemp("", "rebundle-*")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create work directory")
	}
	defer func() { _ = os.RemoveAll(work) }()

	cachePath := filepath.Join(work, "cache.json")
	if err := writeJSON(cachePath, seedOrEmpty(req.Cache)); err != nil {
		return nil, err
	}
	options, err := json.Marshal(req.Options)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to encode bundler options"), "target", req.Target)
	}
	metaPath := filepath.Join(work, "meta.json")

	env := make(map[string]string, len(b.cfg.Env)+5)
	maps.Copy(env, b.cfg.Env)
	env[EnvTarget] = req.Target
	env[EnvEntry] = strings.Join(req.Entry.Inputs, string(os.PathListSeparator))
	env[EnvOptions] = string(options)
	env[EnvCache] = cachePath
	env[EnvMetafile] = metaPath

	var stdout bytes.Buffer
	if err := b.runner.Run(ctx, Command{
		Args:   b.cfg.Cmd,
		Dir:    b.cfg.Root,
		Env:    env,
		Stdout: &stdout,
	}); err != nil {
		return nil, zerr.With(err, "target", req.Target)
	}

	modules, err := b.modules(metaPath, req)
	if err != nil {
		return nil, zerr.With(err, "target", req.Target)
	}
	return &domain.BundleResult{Modules: modules, Output: &stdout}, nil
}

func (b *Bundler) modules(metaPath string, req *domain.BundleRequest) ([]domain.ModuleRecord, error) {
	data, err := os.ReadFile(metaPath) //nolint:gosec // path is inside our own work directory
	if errors.Is(err, fs.ErrNotExist) {
		b.logger.Warn("bundler wrote no metafile", "target", req.Target)
		return nil, nil
	}
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read metafile")
	}

	var meta metafile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, zerr.Wrap(err, "failed to parse metafile")
	}

	ids := slices.Sorted(maps.Keys(meta.Inputs))
	records := make([]domain.ModuleRecord, 0, len(ids))
	for _, id := range ids {
		payload, err := b.payload(id)
		if err != nil {
			return nil, err
		}
		records = append(records, domain.ModuleRecord{ID: id, Payload: payload})
	}
	return records, nil
}

// payload describes the module source on disk. Virtual modules that do not
// exist as files get no payload.
func (b *Bundler) payload(id string) ([]byte, error) {
	path := id
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.cfg.Root, filepath.FromSlash(id))
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, nil //nolint:nilerr // virtual module
	}

	sum, err := b.hasher.ComputeFileHash(path)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(modulePayload{Digest: rfs.FormatDigest(sum), Size: info.Size()})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode module payload")
	}
	return payload, nil
}

func seedOrEmpty(seed []domain.ModuleRecord) []domain.ModuleRecord {
	if seed == nil {
		return []domain.ModuleRecord{}
	}
	return seed
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return zerr.Wrap(err, "failed to encode cache seed")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write cache seed"), "path", path)
	}
	return nil
}
