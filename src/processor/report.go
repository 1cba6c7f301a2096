package processor

import (
	"ChurnInsight/src/config"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Report 一次分析的结果
type Report struct {
	GeneratedAt       time.Time          `json:"generated_at"`
	RecordCount       int                `json:"record_count"`
	DuplicatesDropped int                `json:"duplicates_dropped"` // 按主键去重丢弃的行数
	ChurnedCount      int                `json:"churned_count"`
	OverallRate       float64            `json:"overall_rate"`
	Features          []FeatureChurnStat `json:"features"`
	Top               []FeatureChurnStat `json:"top"`
	Segments          []SegmentGroup     `json:"segments,omitempty"` // 与配置的 segments 顺序一致
	Groups            []GroupStat        `json:"groups,omitempty"`
}

// SegmentGroup 某个分群属性下各取值的流失统计
type SegmentGroup struct {
	Attribute string             `json:"attribute"`
	Stats     []SegmentChurnStat `json:"stats"`
}

// ChurnAnalyzer 负责从原始DataFrame生成报表
type ChurnAnalyzer struct {
	Dcfg *config.DataConfig
	TopK int
	now  func() time.Time
}

func NewChurnAnalyzer(dcfg *config.DataConfig, topK int) *ChurnAnalyzer {
	return &ChurnAnalyzer{
		Dcfg: dcfg,
		TopK: topK,
		now:  time.Now,
	}
}

// AnalyzeFrame 过滤、导入并分析数据集
func (a *ChurnAnalyzer) AnalyzeFrame(df dataframe.DataFrame) (*Report, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("数据集无效: %w", df.Err)
	}
	filtered, err := ApplyFilters(df, a.Dcfg.Filters)
	if err != nil {
		return nil, err
	}

	cleaned, dropped, err := DropDuplicates(filtered, a.Dcfg.IDColumn)
	if err != nil {
		return nil, err
	}

	records, err := ParseRecords(cleaned, a.Dcfg)
	if err != nil {
		return nil, err
	}

	report, err := a.Analyze(records)
	if err != nil {
		return nil, err
	}
	report.DuplicatesDropped = dropped

	if s := a.Dcfg.Summary; s != nil {
		groups, err := a.summarize(cleaned, s)
		if err != nil {
			return nil, fmt.Errorf("分组统计失败: %w", err)
		}
		report.Groups = TopGroups(groups, a.TopK)
	}
	return report, nil
}

// summarize 配置了聚类时先把簇编号写入分组列
func (a *ChurnAnalyzer) summarize(df dataframe.DataFrame, s *config.NumericSummary) ([]GroupStat, error) {
	if c := s.Cluster; c != nil {
		labels, err := AssignClusters(df, c.Columns, c.K, c.Seed)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(labels))
		for i, l := range labels {
			if l >= 0 {
				names[i] = strconv.Itoa(l)
			}
		}
		df = df.Mutate(series.New(names, series.String, s.GroupColumn))
		if df.Err != nil {
			return nil, df.Err
		}
	}
	return SummarizeByGroup(df, s.GroupColumn, s.ValueColumn)
}

// Analyze 对已导入的记录计算业务与分群流失率
func (a *ChurnAnalyzer) Analyze(records []CustomerRecord) (*Report, error) {
	pred, err := PredicateFor(a.Dcfg.GetChurnDefinition())
	if err != nil {
		return nil, err
	}

	features := ComputeChurnRates(records, a.Dcfg.GetFeatures(), pred)
	report := &Report{
		GeneratedAt: a.now(),
		RecordCount: len(records),
		Features:    features,
		Top:         TopK(features, a.TopK),
	}
	for _, r := range records {
		if pred(r) {
			report.ChurnedCount++
		}
	}
	report.OverallRate = rate(report.ChurnedCount, report.RecordCount)

	for _, attr := range a.Dcfg.Segments {
		report.Segments = append(report.Segments, SegmentGroup{
			Attribute: attr,
			Stats:     ComputeSegmentChurnRates(records, attr, pred),
		})
	}
	return report, nil
}

// Summary 生成推送用的文字摘要
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "截至%s，共分析客户%d人，其中流失%d人，整体流失率%.2f%%；\n",
		r.GeneratedAt.Format("2006-01-02 15:04"), r.RecordCount, r.ChurnedCount, r.OverallRate)

	if len(r.Top) == 0 {
		b.WriteString("无业务流失数据。")
		return b.String()
	}

	parts := make([]string, 0, len(r.Top))
	for i, s := range r.Top {
		parts = append(parts, fmt.Sprintf("%d. %s %.2f%%（%d/%d）", i+1, s.Feature, s.ChurnRate, s.Churned, s.Subscribers))
	}
	fmt.Fprintf(&b, "流失率最高的%d项业务：\n%s", len(r.Top), strings.Join(parts, "\n"))
	return b.String()
}

// StatsFrame 将业务流失统计转换为DataFrame，便于导出
func StatsFrame(stats []FeatureChurnStat) dataframe.DataFrame {
	names := make([]string, len(stats))
	subs := make([]int, len(stats))
	churned := make([]int, len(stats))
	rates := make([]float64, len(stats))
	for i, s := range stats {
		names[i] = s.Feature
		subs[i] = s.Subscribers
		churned[i] = s.Churned
		rates[i] = s.ChurnRate
	}
	return dataframe.New(
		series.New(names, series.String, "feature"),
		series.New(subs, series.Int, "subscribers"),
		series.New(churned, series.Int, "churned"),
		series.New(rates, series.Float, "churn_rate"),
	)
}

// SegmentFrame 将分群统计转换为DataFrame
func SegmentFrame(stats []SegmentChurnStat) dataframe.DataFrame {
	names := make([]string, len(stats))
	customers := make([]int, len(stats))
	churned := make([]int, len(stats))
	rates := make([]float64, len(stats))
	for i, s := range stats {
		names[i] = s.Segment
		customers[i] = s.Customers
		churned[i] = s.Churned
		rates[i] = s.ChurnRate
	}
	return dataframe.New(
		series.New(names, series.String, "segment"),
		series.New(customers, series.Int, "customers"),
		series.New(churned, series.Int, "churned"),
		series.New(rates, series.Float, "churn_rate"),
	)
}
