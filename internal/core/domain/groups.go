package domain

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"unicode"

	"go.trai.ch/zerr"
)

// GroupID identifies a cache group. Caller-named groups and the implicit
// default group are distinct values, so no group name can alias the default.
type GroupID struct {
	name      string
	isDefault bool
}

// DefaultGroup is the group holding every target without an explicit assignment.
var DefaultGroup = GroupID{isDefault: true}

// NamedGroup returns the identifier of a caller-named cache group.
func NamedGroup(name string) GroupID {
	return GroupID{name: name}
}

// Name returns the caller-chosen name, or "" for the default group.
func (g GroupID) Name() string {
	return g.name
}

// IsDefault reports whether g is the implicit default group.
func (g GroupID) IsDefault() bool {
	return g.isDefault
}

// String renders the group for logs and error metadata.
func (g GroupID) String() string {
	if g.isDefault {
		return "<default>"
	}
	return g.name
}

// GroupSpec declares one named cache group and the targets sharing it.
type GroupSpec struct {
	Name    string
	Targets []string
}

// GroupRegistry is the immutable assignment of targets to cache groups.
type GroupRegistry struct {
	targets       []string
	targetToGroup map[string]GroupID
	groupTargets  map[GroupID][]string
	groups        []GroupID
}

// ValidateTargets checks that the target universe is non-empty, contains no
// duplicates, and that every name is non-empty and free of whitespace.
func ValidateTargets(targets []string) error {
	if len(targets) == 0 {
		return zerr.Wrap(ErrNoTargets, "invalid targets")
	}
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if t == "" || strings.IndexFunc(t, unicode.IsSpace) >= 0 {
			return zerr.With(zerr.Wrap(ErrInvalidTargetName, "invalid targets"), "target", t)
		}
		if _, dup := seen[t]; dup {
			return zerr.With(zerr.Wrap(ErrDuplicateTarget, "invalid targets"), "target", t)
		}
		seen[t] = struct{}{}
	}
	return nil
}

// NewGroupRegistry partitions targets into cache groups.
//
// Group members that are not in targets are dropped, and groups left without
// members are discarded. A target declared by two surviving groups is a
// configuration error. Every remaining target joins the default group, which
// is only created when at least one target needs it.
func NewGroupRegistry(targets []string, specs []GroupSpec) (*GroupRegistry, error) {
	if err := ValidateTargets(targets); err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		known[t] = struct{}{}
	}

	r := &GroupRegistry{
		targets:       slices.Clone(targets),
		targetToGroup: make(map[string]GroupID, len(targets)),
		groupTargets:  make(map[GroupID][]string),
	}

	for _, spec := range specs {
		id := NamedGroup(spec.Name)
		// Repeated declarations of one name extend the same group.
		members, declared := r.groupTargets[id]
		for _, t := range spec.Targets {
			if _, ok := known[t]; !ok {
				continue
			}
			if prev, assigned := r.targetToGroup[t]; assigned {
				if prev == id {
					continue
				}
				msg := fmt.Sprintf("target %q is listed in cache groups %q and %q", t, prev.String(), id.String())
				err := zerr.With(zerr.Wrap(ErrTargetInMultipleGroups, msg), "target", t)
				err = zerr.With(err, "group", prev.String())
				return nil, zerr.With(err, "other_group", id.String())
			}
			r.targetToGroup[t] = id
			members = append(members, t)
		}
		if len(members) == 0 {
			continue
		}
		r.groupTargets[id] = members
		if !declared {
			r.groups = append(r.groups, id)
		}
	}

	for _, t := range targets {
		if _, assigned := r.targetToGroup[t]; assigned {
			continue
		}
		if _, ok := r.groupTargets[DefaultGroup]; !ok {
			r.groups = append(r.groups, DefaultGroup)
		}
		r.targetToGroup[t] = DefaultGroup
		r.groupTargets[DefaultGroup] = append(r.groupTargets[DefaultGroup], t)
	}

	return r, nil
}

// Targets returns the target universe in configuration order.
func (r *GroupRegistry) Targets() []string {
	return slices.Clone(r.targets)
}

// Has reports whether target is part of the universe.
func (r *GroupRegistry) Has(target string) bool {
	_, ok := r.targetToGroup[target]
	return ok
}

// GroupOf returns the cache group of target.
func (r *GroupRegistry) GroupOf(target string) (GroupID, bool) {
	g, ok := r.targetToGroup[target]
	return g, ok
}

// Members returns the targets of group g in their fixed build order.
func (r *GroupRegistry) Members(g GroupID) []string {
	return slices.Clone(r.groupTargets[g])
}

// Groups yields every non-empty group in registration order:
// named groups as declared, then the default group.
func (r *GroupRegistry) Groups() iter.Seq[GroupID] {
	return slices.Values(r.groups)
}

// GroupCount returns the number of non-empty groups.
func (r *GroupRegistry) GroupCount() int {
	return len(r.groups)
}
