package processor

import (
	"ChurnInsight/src/utils"
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gota/gota/dataframe"
	"github.com/muesli/clusters"
)

const maxClusterIterations = 100

// AssignClusters 对数值列做k-means聚类，返回每行的簇编号。
// 簇编号按首次出现的行顺序从0编号；任一坐标非数值的行为 -1。
// 首个中心由 seed 选出，其余依次取离已选中心最远的点，同一 seed 结果不变。
func AssignClusters(df dataframe.DataFrame, columns []string, k int, seed int64) ([]int, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k 必须大于0")
	}
	coords := make([][]float64, len(columns))
	for i, col := range columns {
		if !utils.HasColumn(df, col) {
			return nil, fmt.Errorf("数据集缺少列 %s", col)
		}
		coords[i] = df.Col(col).Float()
	}

	labels := make([]int, df.Nrow())
	var rows []int
	var obs clusters.Observations
	for i := range labels {
		labels[i] = -1
		p := make(clusters.Coordinates, len(columns))
		valid := true
		for j := range columns {
			v := coords[j][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				valid = false
				break
			}
			p[j] = v
		}
		if valid {
			rows = append(rows, i)
			obs = append(obs, p)
		}
	}
	if len(obs) == 0 {
		return labels, nil
	}
	if k > len(obs) {
		k = len(obs)
	}

	cs := seedCenters(obs, k, seed)
	assigned := make([]int, len(obs))
	for iter := 0; iter < maxClusterIterations; iter++ {
		cs.Reset()
		changed := false
		for i, p := range obs {
			ci := cs.Nearest(p)
			if iter == 0 || ci != assigned[i] {
				changed = true
			}
			assigned[i] = ci
			cs[ci].Append(p)
		}
		if !changed {
			break
		}
		// 空簇保留原中心
		cs.Recenter()
	}

	// 按首次出现重新编号
	renumber := make(map[int]int, k)
	for i, ci := range assigned {
		id, ok := renumber[ci]
		if !ok {
			id = len(renumber)
			renumber[ci] = id
		}
		labels[rows[i]] = id
	}
	return labels, nil
}

func seedCenters(obs clusters.Observations, k int, seed int64) clusters.Clusters {
	rng := rand.New(rand.NewSource(seed))
	first := obs[rng.Intn(len(obs))].Coordinates()

	cs := clusters.Clusters{{Center: append(clusters.Coordinates(nil), first...)}}
	// 每个点到最近已选中心的距离
	dist := make([]float64, len(obs))
	for i, p := range obs {
		dist[i] = p.Distance(first)
	}

	for len(cs) < k {
		far := 0
		for i := range dist {
			if dist[i] > dist[far] {
				far = i
			}
		}
		center := append(clusters.Coordinates(nil), obs[far].Coordinates()...)
		cs = append(cs, clusters.Cluster{Center: center})
		for i, p := range obs {
			if d := p.Distance(center); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return cs
}
