// data.go
package processor

import (
	"ChurnInsight/src/config"
	"ChurnInsight/src/utils"
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ApplyFilters 按配置过滤行，列不存在时报错
func ApplyFilters(df dataframe.DataFrame, filters []config.Filter) (dataframe.DataFrame, error) {
	for _, f := range filters {
		if !utils.HasColumn(df, f.Column) {
			return df, fmt.Errorf("过滤列 %s 不存在", f.Column)
		}
		df = df.Filter(
			dataframe.F{Colname: f.Column, Comparator: series.In, Comparando: f.Values},
		)
		if df.Err != nil {
			return df, fmt.Errorf("按 %s 过滤失败: %w", f.Column, df.Err)
		}
	}
	return df, nil
}

// DropDuplicates 按主键去重，保留首次出现的行；主键为空的行一并丢弃
// 返回去重后的数据与丢弃的行数
func DropDuplicates(df dataframe.DataFrame, keyCol string) (dataframe.DataFrame, int, error) {
	if !utils.HasColumn(df, keyCol) {
		return df, 0, fmt.Errorf("数据集缺少列 %s", keyCol)
	}

	keys := df.Col(keyCol)
	seen := make(map[string]bool, df.Nrow())
	keep := make([]int, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		k := strings.TrimSpace(elemString(keys.Elem(i)))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keep = append(keep, i)
	}

	dropped := df.Nrow() - len(keep)
	switch {
	case dropped == 0:
		return df, 0, nil
	case len(keep) == 0:
		return utils.EmptyFrame(df.Names()), dropped, nil
	}

	out := df.Subset(keep)
	if out.Err != nil {
		return df, 0, fmt.Errorf("去重失败: %w", out.Err)
	}
	return out, dropped, nil
}

// ParseRecords 将DataFrame转换为客户记录，业务列在此解析为三态
// 缺少的业务列跳过，对应业务开通数为0
func ParseRecords(df dataframe.DataFrame, dcfg *config.DataConfig) ([]CustomerRecord, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("数据集无效: %w", df.Err)
	}
	for _, col := range []string{dcfg.IDColumn, dcfg.ChurnColumn} {
		if !utils.HasColumn(df, col) {
			return nil, fmt.Errorf("数据集缺少列 %s", col)
		}
	}

	ids := df.Col(dcfg.IDColumn)
	churn := df.Col(dcfg.ChurnColumn)

	features := make(map[string]series.Series)
	for _, name := range dcfg.GetFeatures() {
		if utils.HasColumn(df, name) {
			features[name] = df.Col(name)
		}
	}
	segments := make(map[string]series.Series)
	for _, name := range dcfg.Segments {
		if utils.HasColumn(df, name) {
			segments[name] = df.Col(name)
		}
	}

	records := make([]CustomerRecord, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		r := CustomerRecord{
			ID:         elemString(ids.Elem(i)),
			Churned:    isChurnLabel(elemString(churn.Elem(i)), dcfg.ChurnLabels),
			Features:   make(map[string]Tristate, len(features)),
			Attributes: make(map[string]string, len(segments)),
		}
		for name, s := range features {
			r.Features[name] = ParseTristate(elemString(s.Elem(i)), dcfg.Subscribed, dcfg.NotSubscribed)
		}
		for name, s := range segments {
			r.Attributes[name] = elemString(s.Elem(i))
		}
		records[i] = r
	}
	return records, nil
}

// ParseTristate 与开通/未开通标记精确比较，其余取值一律为 Unknown
func ParseTristate(v, subscribed, notSubscribed string) Tristate {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return Unknown
	case v == subscribed:
		return Subscribed
	case v == notSubscribed:
		return NotSubscribed
	default:
		return Unknown
	}
}

func isChurnLabel(v string, labels []string) bool {
	v = strings.TrimSpace(v)
	for _, l := range labels {
		if strings.EqualFold(v, l) {
			return true
		}
	}
	return false
}

// 辅助函数：NA 统一转为空串
func elemString(e series.Element) string {
	if e.IsNA() {
		return ""
	}
	return e.String()
}
