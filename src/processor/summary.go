package processor

import (
	"ChurnInsight/src/utils"
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"
)

// GroupStat 数值列按分组统计的结果
type GroupStat struct {
	Group  string  `json:"group"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// SummarizeByGroup 按 groupCol 分组统计 valueCol 的均值与中位数
// 非数值的单元格与分组为空的行跳过，分组按首次出现的顺序排列
func SummarizeByGroup(df dataframe.DataFrame, groupCol, valueCol string) ([]GroupStat, error) {
	for _, col := range []string{groupCol, valueCol} {
		if !utils.HasColumn(df, col) {
			return nil, fmt.Errorf("数据集缺少列 %s", col)
		}
	}

	groups := df.Col(groupCol).Records()
	values := df.Col(valueCol).Float()

	index := make(map[string]int)
	var names []string
	var buckets [][]float64
	for i, g := range groups {
		v := values[i]
		if g == "" || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		j, ok := index[g]
		if !ok {
			j = len(names)
			index[g] = j
			names = append(names, g)
			buckets = append(buckets, nil)
		}
		buckets[j] = append(buckets[j], v)
	}

	stats := make([]GroupStat, len(names))
	for j, name := range names {
		xs := buckets[j]
		sort.Float64s(xs)
		stats[j] = GroupStat{
			Group:  name,
			Count:  len(xs),
			Mean:   stat.Mean(xs, nil),
			Median: median(xs),
		}
	}
	return stats, nil
}

// TopGroups 按中位数降序取前k个分组
func TopGroups(stats []GroupStat, k int) []GroupStat {
	if k <= 0 {
		return []GroupStat{}
	}
	sorted := make([]GroupStat, len(stats))
	copy(sorted, stats)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Median > sorted[j].Median
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// xs 须已排序，偶数个时取中间两数的平均值
func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return xs[n/2]
	}
	return stat.Mean(xs[n/2-1:n/2+1], nil)
}
