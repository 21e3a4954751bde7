package structure

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildGraphTopologicalOrder(t *testing.T) {
	specs := []InstanceSpec{
		{Name: "trend1", Kind: "trend", DependsOn: map[string]string{"swing": "swing1"}},
		{Name: "swing1", Kind: "swing", Params: Params{"left": 1, "right": 1}},
		{Name: "ms1", Kind: "market_structure", DependsOn: map[string]string{"swing": "swing1"}},
	}
	built, err := BuildGraph(specs, nil)
	require.NoError(t, err)
	require.Len(t, built, 3)
	require.NotNil(t, built["swing1"])
	require.NotNil(t, built["trend1"])
	require.NotNil(t, built["ms1"])
}

func TestBuildGraphDetectsCycle(t *testing.T) {
	specs := []InstanceSpec{
		{Name: "a", Kind: "trend", DependsOn: map[string]string{"swing": "b"}},
		{Name: "b", Kind: "trend", DependsOn: map[string]string{"swing": "a"}},
	}
	_, err := BuildGraph(specs, nil)
	require.Error(t, err)
}

func TestBuildGraphRejectsMissingDependency(t *testing.T) {
	specs := []InstanceSpec{
		{Name: "trend1", Kind: "trend", DependsOn: map[string]string{"swing": "nope"}},
	}
	_, err := BuildGraph(specs, nil)
	require.Error(t, err)
}

func TestBuildGraphRejectsUnknownKind(t *testing.T) {
	specs := []InstanceSpec{
		{Name: "x", Kind: "not_a_real_kind"},
	}
	_, err := BuildGraph(specs, nil)
	require.Error(t, err)
}
