package web

import (
	"ChurnInsight/src/storage"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
)

// NewMux 注册报表与实时日志路由
func NewMux(store *storage.ReportStore, logger *storage.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/report", reportHandler(store))
	mux.HandleFunc("/report.xlsx", exportHandler(store))
	mux.HandleFunc("/logs", logsHandler(logger))
	return mux
}

// reportHandler 返回最近一次分析结果
func reportHandler(store *storage.ReportStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		report, _ := store.Latest()
		if report == nil {
			http.Error(w, "尚未生成报表", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// exportHandler 下载最近一次导出的xlsx
func exportHandler(store *storage.ReportStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, path := store.Latest()
		if path == "" {
			http.Error(w, "尚未导出报表", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
		http.ServeFile(w, r, path)
	}
}

// logsHandler 持续推送日志，直到客户端断开
func logsHandler(logger *storage.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// 创建日志订阅通道
		logChan := logger.Subscribe()
		defer logger.Unsubscribe(logChan)

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		for {
			select {
			case msg, ok := <-logChan:
				if !ok {
					return
				}
				// 写入失败说明客户端已断开
				if _, err := fmt.Fprintln(w, msg); err != nil {
					return
				}
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}
