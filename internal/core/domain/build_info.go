package domain

import "time"

// BuildInfo summarizes the most recent build attempt of a target.
type BuildInfo struct {
	Target      string        `json:"target"`
	Group       string        `json:"group"`
	State       TargetState   `json:"state"`
	ModuleCount int           `json:"module_count,omitzero"`
	Cached      int           `json:"cached,omitzero"`
	Duration    time.Duration `json:"duration,omitzero"`
	Err         error         `json:"-"`
}
