package processor

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insuranceFrame 房屋保险保单，带地理坐标
func insuranceFrame() dataframe.DataFrame {
	return dataframe.LoadRecords([][]string{
		{"policy_id", "ocean_proximity", "longitude", "latitude", "median_house_value", "FloodCover", "Churn"},
		{"P1", "INLAND", "-121.0", "38.0", "100", "Yes", "Yes"},
		{"P2", "NEAR BAY", "-122.2", "37.8", "300", "No", "No"},
		{"P3", "INLAND", "-121.1", "38.1", "300", "Yes", "No"},
		{"P4", "NEAR BAY", "-122.3", "37.9", "500", "Yes", "Yes"},
		{"P5", "INLAND", "-121.2", "38.2", "n/a", "No", "No"},
		{"P6", "ISLAND", "-118.5", "33.4", "450", "Yes", "Yes"},
		{"P7", "INLAND", "-121.1", "38.0", "500", "No", "No"},
		{"P8", "INLAND", "-121.0", "38.2", "700", "Yes", "No"},
	},
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
}

func TestSummarizeByGroup(t *testing.T) {
	stats, err := SummarizeByGroup(insuranceFrame(), "ocean_proximity", "median_house_value")
	require.NoError(t, err)
	require.Len(t, stats, 3)

	assert.Equal(t, GroupStat{Group: "INLAND", Count: 4, Mean: 400, Median: 400}, stats[0])
	assert.Equal(t, GroupStat{Group: "NEAR BAY", Count: 2, Mean: 400, Median: 400}, stats[1])
	assert.Equal(t, GroupStat{Group: "ISLAND", Count: 1, Mean: 450, Median: 450}, stats[2])
}

func TestSummarizeByGroupMissingColumn(t *testing.T) {
	_, err := SummarizeByGroup(insuranceFrame(), "district", "median_house_value")
	assert.Error(t, err)
}

func TestTopGroups(t *testing.T) {
	stats := []GroupStat{
		{Group: "a", Median: 1},
		{Group: "b", Median: 5},
		{Group: "c", Median: 5},
		{Group: "d", Median: 3},
	}

	top := TopGroups(stats, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].Group)
	assert.Equal(t, "c", top[1].Group)
	assert.Equal(t, "d", top[2].Group)

	assert.Len(t, TopGroups(stats, 9), 4)
	assert.Empty(t, TopGroups(stats, 0))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 2.0, median([]float64{2}))
	assert.Equal(t, 2.5, median([]float64{1, 2, 3, 4}))
	assert.Equal(t, 3.0, median([]float64{1, 3, 9}))
}

func TestSummarizeByGroupSkipsEmptyGroup(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"district", "median_house_value"},
		{"0", "100"},
		{"", "900"},
		{"0", "300"},
	},
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)

	stats, err := SummarizeByGroup(df, "district", "median_house_value")
	require.NoError(t, err)
	assert.Equal(t, []GroupStat{{Group: "0", Count: 2, Mean: 200, Median: 200}}, stats)
}
