package processor

import (
	"ChurnInsight/src/utils"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

type sheet struct {
	name string
	df   dataframe.DataFrame
}

// ExportReport 将报表写入 dir 下的xlsx文件并返回文件路径
func ExportReport(r *Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "features"); err != nil {
		return "", err
	}
	sheets := []sheet{
		{"features", StatsFrame(r.Features)},
		{"top", StatsFrame(r.Top)},
	}
	used := map[string]bool{"features": true, "top": true, "groups": true}
	for _, seg := range r.Segments {
		sheets = append(sheets, sheet{uniqueSheetName("segment_"+seg.Attribute, used), SegmentFrame(seg.Stats)})
	}
	if len(r.Groups) > 0 {
		sheets = append(sheets, sheet{"groups", groupFrame(r.Groups)})
	}

	for i, s := range sheets {
		if i > 0 {
			if _, err := f.NewSheet(s.name); err != nil {
				return "", fmt.Errorf("创建工作表 %s 失败: %w", s.name, err)
			}
		}
		if err := utils.WriteSheet(f, s.name, s.df); err != nil {
			return "", err
		}
	}

	file := filepath.Join(dir, fmt.Sprintf("churn_report_%s.xlsx", r.GeneratedAt.Format("20060102150405")))
	if err := f.SaveAs(file); err != nil {
		return "", fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return file, nil
}

func groupFrame(stats []GroupStat) dataframe.DataFrame {
	names := make([]string, len(stats))
	counts := make([]int, len(stats))
	means := make([]float64, len(stats))
	medians := make([]float64, len(stats))
	for i, s := range stats {
		names[i] = s.Group
		counts[i] = s.Count
		means[i] = s.Mean
		medians[i] = s.Median
	}
	return dataframe.New(
		series.New(names, series.String, "group"),
		series.New(counts, series.Int, "count"),
		series.New(means, series.Float, "mean"),
		series.New(medians, series.Float, "median"),
	)
}

// sheetName 替换excel不允许的字符并截断到31个字符
func sheetName(name string) string {
	name = sheetNameReplacer.Replace(name)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "sheet"
	}
	r := []rune(name)
	if len(r) > maxSheetName {
		r = r[:maxSheetName]
	}
	return string(r)
}

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// uniqueSheetName 截断后重名时追加 _2、_3 …，工作表名不区分大小写
func uniqueSheetName(name string, used map[string]bool) string {
	base := sheetName(name)
	candidate := base
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		r := []rune(base)
		if keep := maxSheetName - len(suffix); len(r) > keep {
			r = r[:keep]
		}
		candidate = string(r) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
