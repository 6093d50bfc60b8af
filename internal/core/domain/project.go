package domain

// ErrorPolicy decides what happens when a target build fails.
type ErrorPolicy string

const (
	// ErrorPolicyFail propagates build errors and fails the run.
	ErrorPolicyFail ErrorPolicy = "fail"
	// ErrorPolicyContinue reports build errors and keeps going.
	ErrorPolicyContinue ErrorPolicy = "continue"
)

// BundlerCommand is the external command invoked once per target build.
type BundlerCommand struct {
	Cmd []string
	Env map[string]string
}

// Project is the loaded rebundle configuration.
type Project struct {
	Root          string
	Targets       []string
	CacheGroups   []GroupSpec
	SkipCache     []string
	Entry         string
	OutDir        string
	OutFile       string
	Bundler       BundlerCommand
	Options       BundlerOptions
	TargetOptions map[string]BundlerOptions
	Ignore        []string
	OnError       ErrorPolicy
	TaskPrefix    string
}
