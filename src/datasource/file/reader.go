// reader.go
package file

import (
	"ChurnInsight/src/utils"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// ReadDataset 按扩展名读取数据集，所有列均按字符串读入
func ReadDataset(filePath, sheetName string) (dataframe.DataFrame, error) {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".csv":
		f, err := os.Open(filePath)
		if err != nil {
			return dataframe.New(), fmt.Errorf("打开数据集失败: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		xlFile, err := xlsx.OpenFile(filePath)
		if err != nil {
			return dataframe.New(), fmt.Errorf("xlsx open file false: %w", err)
		}
		return sheetToDataFrame(xlFile, sheetName)
	default:
		return dataframe.New(), fmt.Errorf("不支持的数据集格式: %s", ext)
	}
}

// ReadDatasetBytes 读取内存中的数据集(如邮件附件)，name 用于判断格式
func ReadDatasetBytes(name string, data []byte, sheetName string) (dataframe.DataFrame, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		return ReadCSV(bytes.NewReader(data))
	case ".xlsx":
		xlFile, err := xlsx.OpenBinary(data)
		if err != nil {
			return dataframe.New(), fmt.Errorf("解析xlsx附件失败: %w", err)
		}
		return sheetToDataFrame(xlFile, sheetName)
	default:
		return dataframe.New(), fmt.Errorf("不支持的数据集格式: %s", ext)
	}
}

// IsDataset 判断文件名是否为支持的数据集格式
func IsDataset(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ReadCSV 首行为标题行；只有标题行时返回0行的DataFrame
func ReadCSV(r io.Reader) (dataframe.DataFrame, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return dataframe.New(), fmt.Errorf("解析CSV失败: %w", err)
	}
	switch len(records) {
	case 0:
		return dataframe.New(), fmt.Errorf("解析CSV失败: 数据集为空")
	case 1:
		return utils.EmptyFrame(records[0]), nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return df, fmt.Errorf("解析CSV失败: %w", df.Err)
	}
	return df, nil
}

// sheetName 为空时取第一个工作表
func sheetToDataFrame(xlFile *xlsx.File, sheetName string) (dataframe.DataFrame, error) {
	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("excel文件中没有工作表")
	}

	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("工作表 %s 不存在", sheetName)
		}
		sheet = s
	}

	df := convertSheetToDataFrame(sheet)
	if df.Err != nil {
		return df, fmt.Errorf("转换为dataframe失败: %w", df.Err)
	}
	return df, nil
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame，首行为标题行
func convertSheetToDataFrame(sheet *xlsx.Sheet) dataframe.DataFrame {
	if len(sheet.Rows) == 0 {
		return dataframe.New()
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.String()))
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		if row == nil || isEmptyRow(row) {
			continue
		}
		for i := range headers {
			value := ""
			if i < len(row.Cells) && row.Cells[i] != nil {
				value = row.Cells[i].String()
			}
			columns[i] = append(columns[i], value)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}
	return dataframe.New(seriesList...)
}

func isEmptyRow(row *xlsx.Row) bool {
	for _, cell := range row.Cells {
		if cell != nil && strings.TrimSpace(cell.String()) != "" {
			return false
		}
	}
	return true
}
