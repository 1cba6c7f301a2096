package utils

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestHasColumn(t *testing.T) {
	df := dataframe.New(series.New([]string{"a"}, series.String, "Churn"))
	assert.True(t, HasColumn(df, "Churn"))
	assert.False(t, HasColumn(df, "churn"))
	assert.False(t, Contains([]int{1, 2}, 3))
}

func TestWriteSheet(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"Fiber", "DSL"}, series.String, "feature"),
		series.New([]float64{75, 12.5}, series.Float, "churn_rate"),
	)

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, WriteSheet(f, "Sheet1", df))

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"feature", "churn_rate"},
		{"Fiber", "75"},
		{"DSL", "12.5"},
	}, rows)
}
