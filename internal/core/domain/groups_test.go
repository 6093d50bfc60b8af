package domain_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rebundle/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestNewGroupRegistry_DefaultGroupOnly(t *testing.T) {
	r, err := domain.NewGroupRegistry([]string{"app", "spec"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []domain.GroupID{domain.DefaultGroup}, slices.Collect(r.Groups()))
	assert.Equal(t, []string{"app", "spec"}, r.Members(domain.DefaultGroup))

	g, ok := r.GroupOf("spec")
	require.True(t, ok)
	assert.True(t, g.IsDefault())
}

func TestNewGroupRegistry_NamedAndDefault(t *testing.T) {
	r, err := domain.NewGroupRegistry(
		[]string{"app", "vendor", "spec", "polyfills"},
		[]domain.GroupSpec{
			{Name: "v", Targets: []string{"vendor", "polyfills"}},
		},
	)
	require.NoError(t, err)

	assert.Equal(t,
		[]domain.GroupID{domain.NamedGroup("v"), domain.DefaultGroup},
		slices.Collect(r.Groups()),
	)
	assert.Equal(t, []string{"vendor", "polyfills"}, r.Members(domain.NamedGroup("v")))
	assert.Equal(t, []string{"app", "spec"}, r.Members(domain.DefaultGroup))
}

func TestNewGroupRegistry_NoDefaultWhenAllAssigned(t *testing.T) {
	r, err := domain.NewGroupRegistry(
		[]string{"a", "b"},
		[]domain.GroupSpec{{Name: "x", Targets: []string{"a"}}, {Name: "y", Targets: []string{"b"}}},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, r.GroupCount())
	assert.Empty(t, r.Members(domain.DefaultGroup))
}

func TestNewGroupRegistry_UnknownMembersDiscarded(t *testing.T) {
	r, err := domain.NewGroupRegistry(
		[]string{"app"},
		[]domain.GroupSpec{
			{Name: "ghost", Targets: []string{"not-built"}},
			{Name: "mixed", Targets: []string{"missing", "app"}},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, []domain.GroupID{domain.NamedGroup("mixed")}, slices.Collect(r.Groups()))
	assert.Equal(t, []string{"app"}, r.Members(domain.NamedGroup("mixed")))
	assert.False(t, r.Has("not-built"))
}

func TestNewGroupRegistry_DuplicateMemberInSameGroup(t *testing.T) {
	r, err := domain.NewGroupRegistry(
		[]string{"app", "spec"},
		[]domain.GroupSpec{
			{Name: "g", Targets: []string{"app", "app"}},
			{Name: "g", Targets: []string{"spec", "app"}},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, 1, r.GroupCount())
	assert.Equal(t, []string{"app", "spec"}, r.Members(domain.NamedGroup("g")))
}

func TestNewGroupRegistry_TargetInTwoGroups(t *testing.T) {
	_, err := domain.NewGroupRegistry(
		[]string{"app", "vendor"},
		[]domain.GroupSpec{
			{Name: "a", Targets: []string{"vendor"}},
			{Name: "b", Targets: []string{"app", "vendor"}},
		},
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTargetInMultipleGroups))

	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr))
	meta := zErr.Metadata()
	assert.Equal(t, "vendor", meta["target"])
	assert.Equal(t, "a", meta["group"])
	assert.Equal(t, "b", meta["other_group"])
}

func TestValidateTargets(t *testing.T) {
	tests := []struct {
		name    string
		targets []string
		want    error
	}{
		{"empty", nil, domain.ErrNoTargets},
		{"blank name", []string{"app", ""}, domain.ErrInvalidTargetName},
		{"whitespace", []string{"my app"}, domain.ErrInvalidTargetName},
		{"tab", []string{"app\tx"}, domain.ErrInvalidTargetName},
		{"duplicate", []string{"app", "app"}, domain.ErrDuplicateTarget},
		{"valid", []string{"app", "spec", "vendor"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidateTargets(tt.targets)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			// Callers attach metadata on the way up; the sentinel must survive it.
			assert.ErrorIs(t, zerr.With(err, "path", "rebundle.yaml"), tt.want)
		})
	}
}

func TestGroupID(t *testing.T) {
	assert.NotEqual(t, domain.DefaultGroup, domain.NamedGroup(""))
	assert.Equal(t, domain.NamedGroup("v"), domain.NamedGroup("v"))
	assert.Equal(t, "<default>", domain.DefaultGroup.String())
	assert.Equal(t, "v", domain.NamedGroup("v").String())
}
