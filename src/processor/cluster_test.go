package processor

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignClusters(t *testing.T) {
	labels, err := AssignClusters(insuranceFrame(), []string{"longitude", "latitude"}, 3, 42)
	require.NoError(t, err)
	// INLAND, NEAR BAY, ISLAND 各成一簇
	assert.Equal(t, []int{0, 1, 0, 1, 0, 2, 0, 0}, labels)
}

func TestAssignClustersSeedIndependentPartition(t *testing.T) {
	want, err := AssignClusters(insuranceFrame(), []string{"longitude", "latitude"}, 3, 42)
	require.NoError(t, err)

	for _, seed := range []int64{0, 1, 7, 42, 2024} {
		got, err := AssignClusters(insuranceFrame(), []string{"longitude", "latitude"}, 3, seed)
		require.NoError(t, err)
		assert.Equal(t, want, got, "seed=%d", seed)
	}
}

func TestAssignClustersClampsK(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"longitude", "latitude"},
		{"-121.0", "38.0"},
		{"", "38.1"},
		{"-118.5", "33.4"},
	},
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)

	labels, err := AssignClusters(df, []string{"longitude", "latitude"}, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, []int{0, -1, 1}, labels)
}

func TestAssignClustersErrors(t *testing.T) {
	_, err := AssignClusters(insuranceFrame(), []string{"longitude", "altitude"}, 3, 42)
	assert.Error(t, err)

	_, err = AssignClusters(insuranceFrame(), []string{"longitude"}, 0, 42)
	assert.Error(t, err)
}

func TestAssignClustersNoCoordinates(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"longitude", "latitude"},
		{"n/a", "38.0"},
	},
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)

	labels, err := AssignClusters(df, []string{"longitude", "latitude"}, 2, 42)
	require.NoError(t, err)
	assert.Equal(t, []int{-1}, labels)
}
