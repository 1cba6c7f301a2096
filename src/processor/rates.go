package processor

import "sort"

// FeatureChurnStat 单个业务的流失统计，每次计算重新生成
type FeatureChurnStat struct {
	Feature     string  `json:"feature"`
	Subscribers int     `json:"subscribers"`
	Churned     int     `json:"churned"`
	ChurnRate   float64 `json:"churn_rate"` // 百分比 [0,100]
}

// ComputeChurnRates 计算每个业务开通客户中的流失占比
// 结果顺序与 featureNames 一致；开通数为0时流失率为0
func ComputeChurnRates(records []CustomerRecord, featureNames []string, churned ChurnPredicate) []FeatureChurnStat {
	stats := make([]FeatureChurnStat, len(featureNames))
	for i, name := range featureNames {
		stats[i].Feature = name
	}

	for _, r := range records {
		isChurned := false
		evaluated := false
		for i, name := range featureNames {
			if r.Feature(name) != Subscribed {
				continue
			}
			if !evaluated {
				isChurned = churned(r)
				evaluated = true
			}
			stats[i].Subscribers++
			if isChurned {
				stats[i].Churned++
			}
		}
	}

	for i := range stats {
		stats[i].ChurnRate = rate(stats[i].Churned, stats[i].Subscribers)
	}
	return stats
}

// TopK 按流失率降序取前k个，流失率相同时保持原顺序
func TopK(stats []FeatureChurnStat, k int) []FeatureChurnStat {
	if k <= 0 {
		return []FeatureChurnStat{}
	}

	sorted := make([]FeatureChurnStat, len(stats))
	copy(sorted, stats)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ChurnRate > sorted[j].ChurnRate
	})

	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// SegmentChurnStat 按类别属性分群后的流失统计
type SegmentChurnStat struct {
	Segment   string  `json:"segment"`
	Customers int     `json:"customers"`
	Churned   int     `json:"churned"`
	ChurnRate float64 `json:"churn_rate"`
}

// ComputeSegmentChurnRates 按属性取值分群计算流失率，分群按首次出现的顺序排列
func ComputeSegmentChurnRates(records []CustomerRecord, attribute string, churned ChurnPredicate) []SegmentChurnStat {
	index := make(map[string]int)
	var stats []SegmentChurnStat

	for _, r := range records {
		seg := r.Attribute(attribute)
		i, ok := index[seg]
		if !ok {
			i = len(stats)
			index[seg] = i
			stats = append(stats, SegmentChurnStat{Segment: seg})
		}
		stats[i].Customers++
		if churned(r) {
			stats[i].Churned++
		}
	}

	for i := range stats {
		stats[i].ChurnRate = rate(stats[i].Churned, stats[i].Customers)
	}
	return stats
}

func rate(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}
