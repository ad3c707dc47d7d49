package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(newFakeStep(StepIDClean)))
	assert.True(t, r.Has(StepIDClean))
	assert.Equal(t, 1, r.Count())

	err := r.Register(newFakeStep(StepIDClean))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newFakeStep("")))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFakeStep(StepIDClean)))
	require.NoError(t, r.Register(newFakeStep(StepIDRoster)))

	require.NoError(t, r.Unregister(StepIDClean))
	assert.False(t, r.Has(StepIDClean))
	assert.Equal(t, []string{StepIDRoster}, r.ListIDs())

	assert.Error(t, r.Unregister(StepIDClean))
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	step := newFakeStep(StepIDClean)
	require.NoError(t, r.Register(step))

	got, err := r.Get(StepIDClean)
	require.NoError(t, err)
	assert.Equal(t, StepIDClean, got.ID())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistryListOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{StepIDImport, StepIDClean, StepIDRoster} {
		require.NoError(t, r.Register(newFakeStep(id)))
	}

	assert.Equal(t, []string{StepIDImport, StepIDClean, StepIDRoster}, r.ListIDs())

	steps := r.List()
	require.Len(t, steps, 3)
	assert.Equal(t, StepIDImport, steps[0].ID())
}

func TestRegistryDependencyOrder(t *testing.T) {
	r := NewRegistry()

	// Registration order is intentionally the reverse of execution order.
	require.NoError(t, r.Register(newFakeStep(StepIDImport, StepIDSchedule)))
	require.NoError(t, r.Register(newFakeStep(StepIDSchedule, StepIDClean)))
	require.NoError(t, r.Register(newFakeStep(StepIDRoster, StepIDClean)))
	require.NoError(t, r.Register(newFakeStep(StepIDClean)))

	ordered, err := r.GetDependencyOrder()
	require.NoError(t, err)

	ids := make([]string, len(ordered))
	for i, step := range ordered {
		ids[i] = step.ID()
	}
	require.Len(t, ids, 4)
	assert.Equal(t, StepIDClean, ids[0], "the only root runs first")

	position := make(map[string]int, len(ids))
	for i, id := range ids {
		position[id] = i
	}
	assert.Less(t, position[StepIDClean], position[StepIDSchedule])
	assert.Less(t, position[StepIDClean], position[StepIDRoster])
	assert.Less(t, position[StepIDSchedule], position[StepIDImport])
}

func TestRegistryDependencyCycle(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFakeStep("a", "b")))
	require.NoError(t, r.Register(newFakeStep("b", "a")))

	_, err := r.GetDependencyOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")

	assert.Error(t, r.ValidateDependencies())
}

func TestRegistryUnknownDependency(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFakeStep(StepIDRoster, StepIDClean)))

	_, err := r.GetDependencyOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-existent")

	assert.Error(t, r.ValidateDependencies())
}

func TestRegistryGetDependents(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFakeStep(StepIDClean)))
	require.NoError(t, r.Register(newFakeStep(StepIDRoster, StepIDClean)))
	require.NoError(t, r.Register(newFakeStep(StepIDSchedule, StepIDClean)))
	require.NoError(t, r.Register(newFakeStep(StepIDImport, StepIDRoster)))

	dependents := r.GetDependents(StepIDClean)
	ids := make(map[string]bool, len(dependents))
	for _, step := range dependents {
		ids[step.ID()] = true
	}
	assert.Len(t, dependents, 2, "only direct dependents")
	assert.True(t, ids[StepIDRoster])
	assert.True(t, ids[StepIDSchedule])

	assert.Empty(t, r.GetDependents(StepIDImport))
}

func TestRegistryClone(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFakeStep(StepIDClean)))

	clone := r.Clone()
	require.NoError(t, clone.Register(newFakeStep(StepIDRoster)))

	assert.True(t, clone.Has(StepIDRoster))
	assert.False(t, r.Has(StepIDRoster), "clones are independent")
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFakeStep(StepIDClean)))

	r.Clear()
	assert.Zero(t, r.Count())
	assert.Empty(t, r.ListIDs())
}
