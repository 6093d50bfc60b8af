package config

import "gopkg.in/yaml.v3"

// FileName is the configuration file discovered by the loader.
const FileName = "rebundle.yaml"

// SupportedVersion is the only configuration schema version understood.
const SupportedVersion = "1"

// Rebundlefile represents the structure of the rebundle.yaml configuration file.
type Rebundlefile struct {
	Version string   `yaml:"version"`
	Targets []string `yaml:"targets"`
	// CacheGroups is kept as a node so group declaration order survives decoding.
	CacheGroups   yaml.Node                 `yaml:"cacheGroups"`
	SkipCache     []string                  `yaml:"skipCache"`
	Entry         string                    `yaml:"entry"`
	OutDir        string                    `yaml:"outDir"`
	OutFile       string                    `yaml:"outFile"`
	Bundler       BundlerDTO                `yaml:"bundler"`
	Options       map[string]any            `yaml:"options"`
	TargetOptions map[string]map[string]any `yaml:"targetOptions"`
	Ignore        []string                  `yaml:"ignore"`
	OnError       string                    `yaml:"onError"`
	TaskPrefix    string                    `yaml:"taskPrefix"`
}

// BundlerDTO describes the external bundler command.
type BundlerDTO struct {
	Cmd []string          `yaml:"cmd"`
	Env map[string]string `yaml:"env"`
}

const (
	defaultEntry   = "src/{target}.js"
	defaultOutDir  = "dist"
	defaultOutFile = "{target}.js"
)
